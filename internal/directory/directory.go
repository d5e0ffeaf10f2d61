// Package directory implements the chat directory: finding or creating the
// single chat between two users, chat listings with counterpart profiles,
// and username search.
package directory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"pointchat/internal/models"
	"pointchat/internal/store"
)

// usernameRangeSentinel is the high Unicode code point closing the prefix
// range for username search (username >= q AND username <= q + sentinel).
const usernameRangeSentinel = ""

// searchLimit caps username search results.
const searchLimit = 10

// Service provides chat directory operations over the document store.
type Service struct {
	store store.Store
}

// NewService creates a directory service.
func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// PairID returns the deterministic chat document ID for an unordered pair of
// users. Both participants computing it concurrently converge on the same
// document, so first contact cannot race into duplicate chats.
func PairID(userA, userB string) string {
	if userB < userA {
		userA, userB = userB, userA
	}
	return userA + "_" + userB
}

// FindOrCreateChat returns the existing chat between the two users, creating
// it with zeroed unread counts when none exists. Lookup scans the caller's
// chats client-side because the store's query model only supports single-value
// array containment; creation writes under the canonical pair ID inside a
// transaction that re-checks existence.
func (s *Service) FindOrCreateChat(ctx context.Context, userA, userB string) (*models.Chat, error) {
	if userA == "" || userB == "" {
		return nil, models.NewValidationError("Both participants are required")
	}
	if userA == userB {
		return nil, models.NewValidationError("Cannot create a chat with yourself")
	}

	docs, err := s.store.Query(ctx, store.ChatsCollection,
		store.Query{}.Where("participants", store.OpArrayContains, userA))
	if err != nil {
		return nil, fmt.Errorf("query chats: %w", err)
	}
	for _, doc := range docs {
		chat, derr := models.ChatFromDoc(doc)
		if derr != nil {
			continue
		}
		if len(chat.Participants) == 2 && chat.HasParticipant(userB) {
			return chat, nil
		}
	}

	chatID := PairID(userA, userB)
	now := time.Now().UTC()
	data := map[string]any{
		"participants": []string{userA, userB},
		"createdAt":    now,
		"updatedAt":    now,
		"lastMessage":  nil,
		"unreadCounts": map[string]int{userA: 0, userB: 0},
	}

	var chat *models.Chat
	err = s.store.RunTransaction(ctx, func(tx store.Tx) error {
		existing, terr := tx.Get(store.ChatPath(chatID))
		if terr == nil {
			chat, terr = models.ChatFromDoc(existing)
			return terr
		}
		if !errors.Is(terr, store.ErrNotFound) {
			return terr
		}
		chat = nil
		return tx.Set(store.ChatPath(chatID), data)
	})
	if err != nil {
		return nil, fmt.Errorf("create chat: %w", err)
	}
	if chat != nil {
		// Lost the race to the other participant; their write is ours too.
		return chat, nil
	}

	return &models.Chat{
		ID:           chatID,
		Participants: []string{userA, userB},
		CreatedAt:    now,
		UpdatedAt:    now,
		UnreadCounts: map[string]int{userA: 0, userB: 0},
	}, nil
}

// ListChats returns the user's chats joined with the counterpart's public
// profile, newest activity first. Users with no chats get an empty slice,
// never an error. A vanished counterpart account degrades to an "Unknown"
// placeholder profile rather than dropping the chat.
func (s *Service) ListChats(ctx context.Context, userID string) ([]models.ChatWithCounterpart, error) {
	docs, err := s.store.Query(ctx, store.ChatsCollection,
		store.Query{}.Where("participants", store.OpArrayContains, userID))
	if err != nil {
		return nil, fmt.Errorf("query chats: %w", err)
	}

	chats := make([]models.ChatWithCounterpart, 0, len(docs))
	for _, doc := range docs {
		chat, derr := models.ChatFromDoc(doc)
		if derr != nil {
			continue
		}

		otherID := chat.Counterpart(userID)
		other := models.Profile{ID: otherID, Username: "Unknown"}
		if userDoc, uerr := s.store.Get(ctx, store.UserPath(otherID)); uerr == nil {
			if u, perr := models.UserFromDoc(userDoc); perr == nil {
				other = u.Profile()
			}
		}

		chats = append(chats, models.ChatWithCounterpart{Chat: *chat, OtherUser: other})
	}

	// Missing or invalid timestamps are the zero time and therefore sort last.
	sort.SliceStable(chats, func(i, j int) bool {
		return chats[i].UpdatedAt.After(chats[j].UpdatedAt)
	})
	return chats, nil
}

// SearchUsers performs a case-sensitive username prefix search, excluding the
// caller, capped at 10 results. An empty query returns no results without
// touching the store.
func (s *Service) SearchUsers(ctx context.Context, query, excludeUserID string) ([]*models.User, error) {
	if strings.TrimSpace(query) == "" {
		return []*models.User{}, nil
	}

	docs, err := s.store.Query(ctx, store.UsersCollection, store.Query{
		Filters: []store.Filter{
			{Field: "username", Op: store.OpGreaterOrEqual, Value: query},
			{Field: "username", Op: store.OpLessOrEqual, Value: query + usernameRangeSentinel},
		},
		OrderBy: "username",
		Limit:   searchLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}

	users := make([]*models.User, 0, len(docs))
	for _, doc := range docs {
		if doc.ID == excludeUserID {
			continue
		}
		if u, derr := models.UserFromDoc(doc); derr == nil {
			users = append(users, u)
		}
	}
	return users, nil
}

// GetChat fetches a single chat document.
func (s *Service) GetChat(ctx context.Context, chatID string) (*models.Chat, error) {
	doc, err := s.store.Get(ctx, store.ChatPath(chatID))
	if err != nil {
		return nil, err
	}
	return models.ChatFromDoc(doc)
}

// GetUser fetches a single profile document.
func (s *Service) GetUser(ctx context.Context, userID string) (*models.User, error) {
	doc, err := s.store.Get(ctx, store.UserPath(userID))
	if err != nil {
		return nil, err
	}
	return models.UserFromDoc(doc)
}
