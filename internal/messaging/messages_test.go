package messaging

import (
	"context"
	"sync"
	"testing"
	"time"

	"pointchat/internal/models"
	"pointchat/internal/store"
	"pointchat/internal/store/memstore"

	"github.com/stretchr/testify/assert"
)

func newChatFixture(t *testing.T) (*Service, store.Store, string) {
	t.Helper()
	st := memstore.New()
	svc := NewService(st, nil)

	chatID := "u1_u2"
	err := st.Set(context.Background(), store.ChatPath(chatID), map[string]any{
		"participants": []string{"u1", "u2"},
		"createdAt":    time.Now().UTC(),
		"updatedAt":    time.Now().UTC(),
		"lastMessage":  nil,
		"unreadCounts": map[string]int{"u1": 0, "u2": 0},
	}, false)
	assert.NoError(t, err)
	return svc, st, chatID
}

func lastMessageText(t *testing.T, st store.Store, chatID string) any {
	t.Helper()
	doc, err := st.Get(context.Background(), store.ChatPath(chatID))
	assert.NoError(t, err)
	snap, _ := doc.Data["lastMessage"].(map[string]any)
	if snap == nil {
		return nil
	}
	return snap["text"]
}

func TestPostMessage(t *testing.T) {
	svc, st, chatID := newChatFixture(t)
	ctx := context.Background()

	t.Run("appends and snapshots", func(t *testing.T) {
		msg, err := svc.PostMessage(ctx, chatID, "u1", PostMessageInput{Text: "hello"})
		assert.NoError(t, err)
		assert.NotEmpty(t, msg.ID)
		assert.Equal(t, models.MessageTypeText, msg.Type)
		assert.Equal(t, []string{"u1"}, msg.ReadBy)

		assert.Equal(t, "hello", lastMessageText(t, st, chatID))
	})

	t.Run("image snapshot collapses to placeholder", func(t *testing.T) {
		_, err := svc.PostMessage(ctx, chatID, "u2", PostMessageInput{
			Type:     models.MessageTypeImage,
			MediaURL: "https://example.com/x.png",
		})
		assert.NoError(t, err)
		assert.Equal(t, models.ImagePlaceholderText, lastMessageText(t, st, chatID))
	})

	t.Run("unknown type rejected", func(t *testing.T) {
		_, err := svc.PostMessage(ctx, chatID, "u1", PostMessageInput{Type: "voice"})
		assert.Error(t, err)
	})

	t.Run("missing chat 404s before writing", func(t *testing.T) {
		_, err := svc.PostMessage(ctx, "nope", "u1", PostMessageInput{Text: "x"})
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("missing sender rejected", func(t *testing.T) {
		_, err := svc.PostMessage(ctx, chatID, "", PostMessageInput{Text: "x"})
		assert.Error(t, err)
	})
}

func TestListMessages(t *testing.T) {
	svc, _, chatID := newChatFixture(t)
	ctx := context.Background()

	for _, text := range []string{"one", "two", "three"} {
		_, err := svc.PostMessage(ctx, chatID, "u1", PostMessageInput{Text: text})
		assert.NoError(t, err)
		time.Sleep(time.Millisecond)
	}

	msgs, err := svc.ListMessages(ctx, chatID, 0)
	assert.NoError(t, err)
	assert.Len(t, msgs, 3)
	assert.Equal(t, "three", msgs[0].Text)
	assert.Equal(t, "one", msgs[2].Text)

	msgs, err = svc.ListMessages(ctx, chatID, 2)
	assert.NoError(t, err)
	assert.Len(t, msgs, 2)
	assert.Equal(t, "three", msgs[0].Text)
}

func TestDeleteMessageSnapshotCascade(t *testing.T) {
	svc, st, chatID := newChatFixture(t)
	ctx := context.Background()

	m1, err := svc.PostMessage(ctx, chatID, "u1", PostMessageInput{Text: "m1"})
	assert.NoError(t, err)
	time.Sleep(time.Millisecond)
	m2, err := svc.PostMessage(ctx, chatID, "u2", PostMessageInput{Text: "m2"})
	assert.NoError(t, err)
	time.Sleep(time.Millisecond)
	m3, err := svc.PostMessage(ctx, chatID, "u1", PostMessageInput{Text: "m3"})
	assert.NoError(t, err)

	// Deleting the newest rolls the snapshot back one message at a time.
	assert.NoError(t, svc.DeleteMessage(ctx, chatID, m3.ID))
	assert.Equal(t, "m2", lastMessageText(t, st, chatID))

	assert.NoError(t, svc.DeleteMessage(ctx, chatID, m2.ID))
	assert.Equal(t, "m1", lastMessageText(t, st, chatID))

	assert.NoError(t, svc.DeleteMessage(ctx, chatID, m1.ID))
	assert.Nil(t, lastMessageText(t, st, chatID))
}

func TestDeleteMessageKeepsSnapshotForOlderMessages(t *testing.T) {
	svc, st, chatID := newChatFixture(t)
	ctx := context.Background()

	old, err := svc.PostMessage(ctx, chatID, "u1", PostMessageInput{Text: "old"})
	assert.NoError(t, err)
	time.Sleep(time.Millisecond)
	_, err = svc.PostMessage(ctx, chatID, "u2", PostMessageInput{Text: "newest"})
	assert.NoError(t, err)

	assert.NoError(t, svc.DeleteMessage(ctx, chatID, old.ID))
	assert.Equal(t, "newest", lastMessageText(t, st, chatID))
}

func TestDeleteMessageCleansStars(t *testing.T) {
	svc, st, chatID := newChatFixture(t)
	ctx := context.Background()

	msg, err := svc.PostMessage(ctx, chatID, "u1", PostMessageInput{Text: "starred"})
	assert.NoError(t, err)

	for _, userID := range []string{"u1", "u2"} {
		err := st.Set(ctx, store.StarredPath(userID, msg.ID), map[string]any{
			"chatId":    chatID,
			"starredAt": time.Now().UTC(),
		}, false)
		assert.NoError(t, err)
	}

	assert.NoError(t, svc.DeleteMessage(ctx, chatID, msg.ID))

	for _, userID := range []string{"u1", "u2"} {
		_, err := st.Get(ctx, store.StarredPath(userID, msg.ID))
		assert.ErrorIs(t, err, store.ErrNotFound)
	}
}

func TestClearChat(t *testing.T) {
	svc, st, chatID := newChatFixture(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := svc.PostMessage(ctx, chatID, "u1", PostMessageInput{Text: "x"})
		assert.NoError(t, err)
	}

	assert.NoError(t, svc.ClearChat(ctx, chatID))

	msgs, err := svc.ListMessages(ctx, chatID, 0)
	assert.NoError(t, err)
	assert.Empty(t, msgs)
	assert.Nil(t, lastMessageText(t, st, chatID))

	assert.ErrorIs(t, svc.ClearChat(ctx, "missing"), store.ErrNotFound)
}

func TestEditMessage(t *testing.T) {
	svc, _, chatID := newChatFixture(t)
	ctx := context.Background()

	msg, err := svc.PostMessage(ctx, chatID, "u1", PostMessageInput{Text: "typo"})
	assert.NoError(t, err)

	assert.NoError(t, svc.EditMessage(ctx, chatID, msg.ID, "fixed"))

	msgs, err := svc.ListMessages(ctx, chatID, 0)
	assert.NoError(t, err)
	assert.Equal(t, "fixed", msgs[0].Text)
	assert.True(t, msgs[0].IsEdited)

	assert.ErrorIs(t, svc.EditMessage(ctx, chatID, "missing", "x"), store.ErrNotFound)
}

func TestToggleReaction(t *testing.T) {
	svc, _, chatID := newChatFixture(t)
	ctx := context.Background()

	msg, err := svc.PostMessage(ctx, chatID, "u1", PostMessageInput{Text: "react"})
	assert.NoError(t, err)

	t.Run("toggle is self-inverse", func(t *testing.T) {
		reactions, err := svc.ToggleReaction(ctx, chatID, msg.ID, "u2", "👍")
		assert.NoError(t, err)
		assert.Equal(t, []string{"u2"}, reactions["👍"])

		reactions, err = svc.ToggleReaction(ctx, chatID, msg.ID, "u2", "👍")
		assert.NoError(t, err)
		_, present := reactions["👍"]
		assert.False(t, present, "last reactor removed drops the emoji key")
	})

	t.Run("concurrent toggles never lose updates", func(t *testing.T) {
		var wg sync.WaitGroup
		users := []string{"a", "b", "c", "d", "e", "f"}
		for _, u := range users {
			wg.Add(1)
			go func(userID string) {
				defer wg.Done()
				_, err := svc.ToggleReaction(ctx, chatID, msg.ID, userID, "🔥")
				assert.NoError(t, err)
			}(u)
		}
		wg.Wait()

		msgs, err := svc.ListMessages(ctx, chatID, 0)
		assert.NoError(t, err)
		assert.ElementsMatch(t, users, msgs[0].Reactions["🔥"])
	})

	t.Run("missing message", func(t *testing.T) {
		_, err := svc.ToggleReaction(ctx, chatID, "missing", "u1", "👍")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}
