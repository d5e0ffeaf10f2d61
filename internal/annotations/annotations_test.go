package annotations

import (
	"context"
	"testing"
	"time"

	"pointchat/internal/store"
	"pointchat/internal/store/memstore"

	"github.com/stretchr/testify/assert"
)

func TestToggleChatSetting(t *testing.T) {
	st := memstore.New()
	svc := NewService(st)
	ctx := context.Background()

	t.Run("unknown key rejected before store access", func(t *testing.T) {
		err := svc.ToggleChatSetting(ctx, "u1", "c1", "isSparkly", true)
		assert.Error(t, err)
		assert.Equal(t, 0, st.Len())
	})

	t.Run("flags merge independently", func(t *testing.T) {
		assert.NoError(t, svc.ToggleChatSetting(ctx, "u1", "c1", "isPinned", true))
		assert.NoError(t, svc.ToggleChatSetting(ctx, "u1", "c1", "isMuted", true))
		assert.NoError(t, svc.ToggleChatSetting(ctx, "u1", "c1", "isPinned", false))

		settings, err := svc.ListChatSettings(ctx, "u1")
		assert.NoError(t, err)
		c1 := settings["c1"]
		assert.False(t, c1.IsPinned)
		assert.True(t, c1.IsMuted)
		assert.False(t, c1.IsArchived)
	})

	t.Run("settings are per user", func(t *testing.T) {
		settings, err := svc.ListChatSettings(ctx, "u2")
		assert.NoError(t, err)
		assert.Empty(t, settings)
	})
}

func TestStarMessage(t *testing.T) {
	st := memstore.New()
	svc := NewService(st)
	ctx := context.Background()

	snapshot := map[string]any{"text": "keep this", "senderId": "u2"}

	t.Run("star then unstar", func(t *testing.T) {
		starred, err := svc.StarMessage(ctx, "u1", "m1", "c1", snapshot)
		assert.NoError(t, err)
		assert.True(t, starred)

		list, err := svc.ListStarred(ctx, "u1")
		assert.NoError(t, err)
		assert.Len(t, list, 1)
		assert.Equal(t, "c1", list[0].ChatID)
		assert.Equal(t, "keep this", list[0].Message["text"])

		starred, err = svc.StarMessage(ctx, "u1", "m1", "c1", snapshot)
		assert.NoError(t, err)
		assert.False(t, starred)

		list, err = svc.ListStarred(ctx, "u1")
		assert.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("stars are per user", func(t *testing.T) {
		_, err := svc.StarMessage(ctx, "u1", "m2", "c1", snapshot)
		assert.NoError(t, err)

		list, err := svc.ListStarred(ctx, "u2")
		assert.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("newest star first", func(t *testing.T) {
		_, err := svc.StarMessage(ctx, "u3", "old", "c1", snapshot)
		assert.NoError(t, err)
		time.Sleep(time.Millisecond)
		_, err = svc.StarMessage(ctx, "u3", "new", "c1", snapshot)
		assert.NoError(t, err)

		list, err := svc.ListStarred(ctx, "u3")
		assert.NoError(t, err)
		assert.Len(t, list, 2)
		assert.Equal(t, "new", list[0].ID)
	})
}

func TestBlockUser(t *testing.T) {
	st := memstore.New()
	svc := NewService(st)
	ctx := context.Background()

	assert.NoError(t, st.Set(ctx, store.UserPath("u2"), map[string]any{
		"username": "bob",
		"avatar":   "",
	}, false))

	t.Run("block and resolve profile", func(t *testing.T) {
		assert.NoError(t, svc.BlockUser(ctx, "u1", "u2"))

		blocked, err := svc.IsBlocked(ctx, "u1", "u2")
		assert.NoError(t, err)
		assert.True(t, blocked)

		list, err := svc.ListBlocked(ctx, "u1")
		assert.NoError(t, err)
		assert.Len(t, list, 1)
		assert.Equal(t, "bob", list[0].Username)
	})

	t.Run("block is directed", func(t *testing.T) {
		blocked, err := svc.IsBlocked(ctx, "u2", "u1")
		assert.NoError(t, err)
		assert.False(t, blocked)
	})

	t.Run("self-block rejected", func(t *testing.T) {
		assert.Error(t, svc.BlockUser(ctx, "u1", "u1"))
	})

	t.Run("empty target rejected", func(t *testing.T) {
		assert.Error(t, svc.BlockUser(ctx, "u1", ""))
		assert.Error(t, svc.UnblockUser(ctx, "u1", ""))
	})

	t.Run("repeat block idempotent", func(t *testing.T) {
		assert.NoError(t, svc.BlockUser(ctx, "u1", "u2"))
		list, err := svc.ListBlocked(ctx, "u1")
		assert.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("vanished account degrades to placeholder", func(t *testing.T) {
		assert.NoError(t, svc.BlockUser(ctx, "u1", "ghost"))
		list, err := svc.ListBlocked(ctx, "u1")
		assert.NoError(t, err)

		var ghost bool
		for _, p := range list {
			if p.ID == "ghost" {
				ghost = true
				assert.Equal(t, "Unknown User", p.Username)
			}
		}
		assert.True(t, ghost)
	})

	t.Run("unblock removes relation", func(t *testing.T) {
		assert.NoError(t, svc.UnblockUser(ctx, "u1", "u2"))
		blocked, err := svc.IsBlocked(ctx, "u1", "u2")
		assert.NoError(t, err)
		assert.False(t, blocked)

		// Unblocking an unblocked user is a no-op.
		assert.NoError(t, svc.UnblockUser(ctx, "u1", "u2"))
	})
}
