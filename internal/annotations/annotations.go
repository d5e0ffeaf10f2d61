// Package annotations implements the strictly user-owned chat metadata:
// per-chat settings (pin/archive/mute), starred-message bookmarks, and the
// directed block list. Everything here lives in the owning user's
// subcollections, so one user's annotations never affect another's view.
package annotations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pointchat/internal/models"
	"pointchat/internal/store"
)

// Service provides per-user annotation operations over the document store.
type Service struct {
	store store.Store
}

// NewService creates an annotations service.
func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// ToggleChatSetting merge-upserts one of the per-chat flags. Unknown keys are
// rejected before any store access; untouched flags keep their values.
func (s *Service) ToggleChatSetting(ctx context.Context, userID, chatID, key string, value bool) error {
	if !models.ValidChatSettingKey(key) {
		return models.NewValidationError("Invalid setting")
	}

	return s.store.Set(ctx, store.ChatSettingPath(userID, chatID), map[string]any{
		key:         value,
		"updatedAt": time.Now().UTC(),
	}, true)
}

// ListChatSettings returns all of the user's per-chat settings keyed by chat
// ID. Chats without a settings document are simply absent (all-false).
func (s *Service) ListChatSettings(ctx context.Context, userID string) (map[string]models.ChatSetting, error) {
	docs, err := s.store.Query(ctx, store.ChatSettingsCollection(userID), store.Query{})
	if err != nil {
		return nil, fmt.Errorf("query chat settings: %w", err)
	}

	settings := make(map[string]models.ChatSetting, len(docs))
	for _, doc := range docs {
		if st, derr := models.ChatSettingFromDoc(doc); derr == nil {
			settings[doc.ID] = *st
		}
	}
	return settings, nil
}

// StarMessage toggles the user's star on a message. The snapshot is the
// caller's copy of the message; it is trusted rather than re-read from the
// message log, since the caller already holds a rendered copy. Returns the
// resulting starred state.
func (s *Service) StarMessage(ctx context.Context, userID, messageID, chatID string, snapshot map[string]any) (bool, error) {
	path := store.StarredPath(userID, messageID)

	_, err := s.store.Get(ctx, path)
	switch {
	case err == nil:
		if derr := s.store.Delete(ctx, path); derr != nil {
			return false, fmt.Errorf("unstar message: %w", derr)
		}
		return false, nil
	case errors.Is(err, store.ErrNotFound):
		serr := s.store.Set(ctx, path, map[string]any{
			"chatId":    chatID,
			"message":   snapshot,
			"starredAt": time.Now().UTC(),
		}, false)
		if serr != nil {
			return false, fmt.Errorf("star message: %w", serr)
		}
		return true, nil
	default:
		return false, fmt.Errorf("read star: %w", err)
	}
}

// ListStarred returns the user's starred messages, newest star first.
func (s *Service) ListStarred(ctx context.Context, userID string) ([]*models.StarredMessage, error) {
	docs, err := s.store.Query(ctx, store.StarredCollection(userID), store.Query{
		OrderBy: "starredAt",
		Desc:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("query starred: %w", err)
	}

	starred := make([]*models.StarredMessage, 0, len(docs))
	for _, doc := range docs {
		if sm, derr := models.StarredFromDoc(doc); derr == nil {
			starred = append(starred, sm)
		}
	}
	return starred, nil
}

// BlockUser records a directed block. Self-blocks are rejected; repeating a
// block is an idempotent upsert.
func (s *Service) BlockUser(ctx context.Context, userID, targetID string) error {
	if targetID == "" {
		return models.NewValidationError("No userId provided")
	}
	if targetID == userID {
		return models.NewValidationError("Cannot block yourself")
	}

	return s.store.Set(ctx, store.BlockedPath(userID, targetID), map[string]any{
		"blockedAt": time.Now().UTC(),
	}, false)
}

// UnblockUser removes a block relation; unblocking an unblocked user is a
// no-op.
func (s *Service) UnblockUser(ctx context.Context, userID, targetID string) error {
	if targetID == "" {
		return models.NewValidationError("No userId provided")
	}
	return s.store.Delete(ctx, store.BlockedPath(userID, targetID))
}

// ListBlocked resolves the user's block list to profile snapshots,
// substituting an "Unknown User" placeholder for accounts that no longer
// exist.
func (s *Service) ListBlocked(ctx context.Context, userID string) ([]models.Profile, error) {
	docs, err := s.store.Query(ctx, store.BlockedCollection(userID), store.Query{})
	if err != nil {
		return nil, fmt.Errorf("query blocked: %w", err)
	}

	blocked := make([]models.Profile, 0, len(docs))
	for _, doc := range docs {
		profile := models.Profile{ID: doc.ID, Username: "Unknown User"}
		if userDoc, uerr := s.store.Get(ctx, store.UserPath(doc.ID)); uerr == nil {
			if u, derr := models.UserFromDoc(userDoc); derr == nil {
				profile = u.Profile()
			}
		}
		blocked = append(blocked, profile)
	}
	return blocked, nil
}

// IsBlocked reports whether userID has blocked targetID. The messaging core
// deliberately does not consult this; it exists for clients that enforce
// blocks at the edge.
func (s *Service) IsBlocked(ctx context.Context, userID, targetID string) (bool, error) {
	_, err := s.store.Get(ctx, store.BlockedPath(userID, targetID))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	return false, err
}
