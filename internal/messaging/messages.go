// Package messaging implements the message store: appending to a chat's
// message log, delete/edit/reaction mutation, and keeping the chat's cached
// last-message snapshot consistent with the log.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pointchat/internal/models"
	"pointchat/internal/store"
)

// DefaultMessageLimit is the page size for message history fetches.
const DefaultMessageLimit = 50

// legacySnapshotTolerance is the timestamp window used to match a message
// against an old last-message snapshot that predates snapshot IDs.
const legacySnapshotTolerance = time.Second

// Service provides message log operations over the document store.
type Service struct {
	store store.Store
	log   *slog.Logger
}

// NewService creates a message store service.
func NewService(st store.Store, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: st, log: log}
}

// PostMessageInput carries the caller-controlled fields of a new message.
type PostMessageInput struct {
	Text        string
	Type        models.MessageType
	MediaURL    string
	ReplyTo     *models.ReplyRef
	IsForwarded bool
}

// PostMessage appends a message to the chat's log and refreshes the chat's
// last-message snapshot and updatedAt. The two writes are sequential and
// best-effort atomic; the snapshot write is the authoritative recency bump.
func (s *Service) PostMessage(ctx context.Context, chatID, senderID string, in PostMessageInput) (*models.Message, error) {
	if senderID == "" {
		return nil, models.NewValidationError("Sender is required")
	}
	msgType := in.Type
	if msgType == "" {
		msgType = models.MessageTypeText
	}
	if !msgType.Valid() {
		return nil, models.NewValidationError("Unknown message type: " + string(msgType))
	}

	// Missing chats 404 before any write.
	if _, err := s.store.Get(ctx, store.ChatPath(chatID)); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	data := map[string]any{
		"text":        in.Text,
		"senderId":    senderID,
		"type":        string(msgType),
		"mediaUrl":    in.MediaURL,
		"timestamp":   now,
		"readBy":      []string{senderID},
		"starredBy":   []string{},
		"replyTo":     replyToData(in.ReplyTo),
		"isForwarded": in.IsForwarded,
		"isEdited":    false,
		"reactions":   map[string][]string{},
	}

	doc, err := s.store.Create(ctx, store.MessagesCollection(chatID), data)
	if err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}

	msg := &models.Message{
		ID:          doc.ID,
		Text:        in.Text,
		SenderID:    senderID,
		Type:        msgType,
		MediaURL:    in.MediaURL,
		Timestamp:   now,
		ReadBy:      []string{senderID},
		StarredBy:   []string{},
		ReplyTo:     in.ReplyTo,
		IsForwarded: in.IsForwarded,
		Reactions:   map[string][]string{},
	}

	err = s.store.Update(ctx, store.ChatPath(chatID), map[string]any{
		"lastMessage": snapshotData(msg),
		"updatedAt":   now,
	})
	if err != nil {
		return nil, fmt.Errorf("update chat snapshot: %w", err)
	}

	return msg, nil
}

// ListMessages returns up to limit of the chat's most recent messages, newest
// first, ordered and limited at the store level.
func (s *Service) ListMessages(ctx context.Context, chatID string, limit int) ([]*models.Message, error) {
	if limit <= 0 {
		limit = DefaultMessageLimit
	}

	docs, err := s.store.Query(ctx, store.MessagesCollection(chatID), store.Query{
		OrderBy: "timestamp",
		Desc:    true,
		Limit:   limit,
	})
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}

	messages := make([]*models.Message, 0, len(docs))
	for _, doc := range docs {
		if m, derr := models.MessageFromDoc(doc); derr == nil {
			messages = append(messages, m)
		}
	}
	return messages, nil
}

// DeleteMessage removes a message. When the removed message backs the chat's
// last-message snapshot, the snapshot is recomputed from the newest remaining
// message (or nulled when the chat is empty). The message's entry in every
// participant's starred subcollection is cleaned up in parallel, best-effort:
// the delete is considered successful once the message document is gone.
func (s *Service) DeleteMessage(ctx context.Context, chatID, messageID string) error {
	chatDoc, err := s.store.Get(ctx, store.ChatPath(chatID))
	if err != nil {
		return err
	}
	chat, err := models.ChatFromDoc(chatDoc)
	if err != nil {
		return fmt.Errorf("decode chat: %w", err)
	}

	msgDoc, err := s.store.Get(ctx, store.MessagePath(chatID, messageID))
	if err != nil {
		return err
	}
	msg, err := models.MessageFromDoc(msgDoc)
	if err != nil {
		return fmt.Errorf("decode message: %w", err)
	}

	isLast := snapshotMatches(chat.LastMessage, msg)

	if err := s.store.Delete(ctx, store.MessagePath(chatID, messageID)); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}

	if isLast {
		if err := s.recomputeSnapshot(ctx, chatID); err != nil {
			return err
		}
	}

	s.cleanupStars(ctx, chat.Participants, messageID)
	return nil
}

// ClearChat deletes every message in the chat in one batch, nulls the
// last-message snapshot, and bumps updatedAt.
func (s *Service) ClearChat(ctx context.Context, chatID string) error {
	if _, err := s.store.Get(ctx, store.ChatPath(chatID)); err != nil {
		return err
	}

	if _, err := s.store.DeleteCollection(ctx, store.MessagesCollection(chatID)); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}

	return s.store.Update(ctx, store.ChatPath(chatID), map[string]any{
		"lastMessage": nil,
		"updatedAt":   time.Now().UTC(),
	})
}

// EditMessage replaces the message text in place and marks it edited. No
// edit history is retained, and sender authorization is the caller's policy.
func (s *Service) EditMessage(ctx context.Context, chatID, messageID, newText string) error {
	return s.store.Update(ctx, store.MessagePath(chatID, messageID), map[string]any{
		"text":     newText,
		"isEdited": true,
	})
}

// ToggleReaction flips userID's reaction with the given emoji under a
// transaction, so concurrent toggles on the same message never lose updates.
// Removing the last user for an emoji drops the emoji key entirely. The
// resulting reactions map is returned for broadcast.
func (s *Service) ToggleReaction(ctx context.Context, chatID, messageID, userID, emoji string) (map[string][]string, error) {
	var result map[string][]string

	err := s.store.RunTransaction(ctx, func(tx store.Tx) error {
		doc, terr := tx.Get(store.MessagePath(chatID, messageID))
		if terr != nil {
			return terr
		}
		msg, terr := models.MessageFromDoc(doc)
		if terr != nil {
			return terr
		}

		reactions := msg.Reactions
		users := reactions[emoji]

		if idx := indexOf(users, userID); idx >= 0 {
			users = append(users[:idx], users[idx+1:]...)
			if len(users) == 0 {
				delete(reactions, emoji)
			} else {
				reactions[emoji] = users
			}
		} else {
			reactions[emoji] = append(users, userID)
		}

		result = reactions
		return tx.Update(store.MessagePath(chatID, messageID), map[string]any{
			"reactions": reactions,
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// recomputeSnapshot rebuilds the chat's last-message snapshot from the
// newest remaining message. This read-then-write runs without a transaction;
// a concurrent post can race it within a narrow window (accepted at this
// scale).
func (s *Service) recomputeSnapshot(ctx context.Context, chatID string) error {
	docs, err := s.store.Query(ctx, store.MessagesCollection(chatID), store.Query{
		OrderBy: "timestamp",
		Desc:    true,
		Limit:   1,
	})
	if err != nil {
		return fmt.Errorf("query latest message: %w", err)
	}

	var snapshot map[string]any
	updatedAt := time.Now().UTC()
	if len(docs) > 0 {
		if m, derr := models.MessageFromDoc(docs[0]); derr == nil {
			snapshot = snapshotData(m)
			updatedAt = m.Timestamp
		}
	}

	return s.store.Update(ctx, store.ChatPath(chatID), map[string]any{
		"lastMessage": snapshot,
		"updatedAt":   updatedAt,
	})
}

// cleanupStars removes the message from each participant's starred
// subcollection. Individual failures are logged and never surfaced.
func (s *Service) cleanupStars(ctx context.Context, participants []string, messageID string) {
	var wg sync.WaitGroup
	for _, p := range participants {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			if err := s.store.Delete(ctx, store.StarredPath(userID, messageID)); err != nil &&
				!errors.Is(err, store.ErrNotFound) {
				s.log.WarnContext(ctx, "starred message cleanup failed",
					slog.String("user_id", userID),
					slog.String("message_id", messageID),
					slog.String("error", err.Error()))
			}
		}(p)
	}
	wg.Wait()
}

// snapshotMatches decides whether msg is the message the chat's cached
// snapshot points to: by ID when the snapshot has one, otherwise the legacy
// heuristic of text equality plus a one-second timestamp tolerance.
func snapshotMatches(snap *models.LastMessageSnapshot, msg *models.Message) bool {
	if snap == nil {
		return false
	}
	if snap.ID != "" {
		return snap.ID == msg.ID
	}
	if snap.Text != msg.Text {
		return false
	}
	delta := snap.Timestamp.Sub(msg.Timestamp)
	if delta < 0 {
		delta = -delta
	}
	return delta < legacySnapshotTolerance
}

func snapshotData(m *models.Message) map[string]any {
	return map[string]any{
		"id":        m.ID,
		"text":      m.PreviewText(),
		"senderId":  m.SenderID,
		"timestamp": m.Timestamp,
		"read":      false,
	}
}

func replyToData(r *models.ReplyRef) any {
	if r == nil {
		return nil
	}
	return map[string]any{
		"id":         r.ID,
		"text":       r.Text,
		"senderName": r.SenderName,
	}
}

func indexOf(list []string, v string) int {
	for i, item := range list {
		if item == v {
			return i
		}
	}
	return -1
}
