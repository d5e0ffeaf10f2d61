package server

import (
	"context"
	"net/http"
	"testing"

	"pointchat/internal/directory"
	"pointchat/internal/messaging"
	"pointchat/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestCreateChat(t *testing.T) {
	_, app := newTestServer(t)
	aliceToken, aliceID := signupUser(t, app, "alice", "alice@example.com")
	bobToken, bobID := signupUser(t, app, "bob", "bob@example.com")

	t.Run("creates deterministic chat", func(t *testing.T) {
		status, body := doJSON(t, app, http.MethodPost, "/api/user/chat", aliceToken, fiber.Map{
			"targetUserId": bobID,
		})
		assert.Equal(t, http.StatusOK, status)

		chat := body["chat"].(map[string]any)
		assert.Equal(t, directory.PairID(aliceID, bobID), chat["id"])
	})

	t.Run("both sides converge on the same chat", func(t *testing.T) {
		status, body := doJSON(t, app, http.MethodPost, "/api/user/chat", bobToken, fiber.Map{
			"targetUserId": aliceID,
		})
		assert.Equal(t, http.StatusOK, status)

		chat := body["chat"].(map[string]any)
		assert.Equal(t, directory.PairID(aliceID, bobID), chat["id"])
	})

	t.Run("missing target", func(t *testing.T) {
		status, _ := doJSON(t, app, http.MethodPost, "/api/user/chat", aliceToken, fiber.Map{})
		assert.Equal(t, http.StatusBadRequest, status)
	})
}

func TestGetChats(t *testing.T) {
	_, app := newTestServer(t)
	aliceToken, _ := signupUser(t, app, "alice", "alice@example.com")
	_, bobID := signupUser(t, app, "bob", "bob@example.com")

	status, body := doJSON(t, app, http.MethodGet, "/api/user/chats", aliceToken, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["chats"])

	doJSON(t, app, http.MethodPost, "/api/user/chat", aliceToken, fiber.Map{"targetUserId": bobID})

	status, body = doJSON(t, app, http.MethodGet, "/api/user/chats", aliceToken, nil)
	assert.Equal(t, http.StatusOK, status)

	chats := body["chats"].([]any)
	assert.Len(t, chats, 1)

	// The counterpart's public profile is joined onto the listing.
	other := chats[0].(map[string]any)["otherUser"].(map[string]any)
	assert.Equal(t, "bob", other["username"])
}

func TestGetMessages(t *testing.T) {
	s, app := newTestServer(t)
	aliceToken, aliceID := signupUser(t, app, "alice", "alice@example.com")
	_, bobID := signupUser(t, app, "bob", "bob@example.com")

	_, body := doJSON(t, app, http.MethodPost, "/api/user/chat", aliceToken, fiber.Map{"targetUserId": bobID})
	chatID := body["chat"].(map[string]any)["id"].(string)

	ctx := context.Background()
	for _, text := range []string{"first", "second", "third"} {
		_, err := s.messages.PostMessage(ctx, chatID, aliceID, messaging.PostMessageInput{Text: text})
		assert.NoError(t, err)
	}

	status, body := doJSON(t, app, http.MethodGet, "/api/user/messages/"+chatID, aliceToken, nil)
	assert.Equal(t, http.StatusOK, status)

	messages := body["messages"].([]any)
	assert.Len(t, messages, 3)
	// Newest first.
	assert.Equal(t, "third", messages[0].(map[string]any)["text"])

	status, body = doJSON(t, app, http.MethodGet, "/api/user/messages/"+chatID+"?limit=2", aliceToken, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, body["messages"].([]any), 2)
}

func TestEditMessage(t *testing.T) {
	s, app := newTestServer(t)
	aliceToken, aliceID := signupUser(t, app, "alice", "alice@example.com")
	_, bobID := signupUser(t, app, "bob", "bob@example.com")

	_, body := doJSON(t, app, http.MethodPost, "/api/user/chat", aliceToken, fiber.Map{"targetUserId": bobID})
	chatID := body["chat"].(map[string]any)["id"].(string)

	msg, err := s.messages.PostMessage(context.Background(), chatID, aliceID,
		messaging.PostMessageInput{Text: "typo"})
	assert.NoError(t, err)

	status, _ := doJSON(t, app, http.MethodPost,
		"/api/user/chat/"+chatID+"/message/"+msg.ID+"/edit", aliceToken,
		fiber.Map{"newText": "fixed"})
	assert.Equal(t, http.StatusOK, status)

	status, body = doJSON(t, app, http.MethodGet, "/api/user/messages/"+chatID, aliceToken, nil)
	assert.Equal(t, http.StatusOK, status)
	edited := body["messages"].([]any)[0].(map[string]any)
	assert.Equal(t, "fixed", edited["text"])
	assert.Equal(t, true, edited["isEdited"])
}

func TestDeleteMessage(t *testing.T) {
	s, app := newTestServer(t)
	aliceToken, aliceID := signupUser(t, app, "alice", "alice@example.com")
	_, bobID := signupUser(t, app, "bob", "bob@example.com")

	_, body := doJSON(t, app, http.MethodPost, "/api/user/chat", aliceToken, fiber.Map{"targetUserId": bobID})
	chatID := body["chat"].(map[string]any)["id"].(string)

	ctx := context.Background()
	_, err := s.messages.PostMessage(ctx, chatID, aliceID, messaging.PostMessageInput{Text: "keep"})
	assert.NoError(t, err)
	last, err := s.messages.PostMessage(ctx, chatID, aliceID, messaging.PostMessageInput{Text: "remove"})
	assert.NoError(t, err)

	s.notifier = nil // deliver through the local hub, not Redis
	bobClient, err := s.hub.Register(bobID, nil)
	assert.NoError(t, err)
	s.hub.Join(bobClient, notifications.UserRoom(bobID))

	status, _ := doJSON(t, app, http.MethodDelete,
		"/api/user/chat/"+chatID+"/message/"+last.ID, aliceToken, nil)
	assert.Equal(t, http.StatusOK, status)

	// The snapshot rolls back to the surviving message.
	status, body = doJSON(t, app, http.MethodGet, "/api/user/chats", aliceToken, nil)
	assert.Equal(t, http.StatusOK, status)
	chat := body["chats"].([]any)[0].(map[string]any)
	assert.Equal(t, "keep", chat["lastMessage"].(map[string]any)["text"])

	// The counterpart's user room hears about the rolled-back snapshot.
	event := wsEvent(t, bobClient)
	assert.Equal(t, notifications.EventChatUpdated, event.Name)
	data := event.Data.(map[string]any)
	assert.Equal(t, chatID, data["chatId"])
	assert.Equal(t, "keep", data["lastMessage"].(map[string]any)["text"])

	t.Run("missing message 404s", func(t *testing.T) {
		status, _ := doJSON(t, app, http.MethodDelete,
			"/api/user/chat/"+chatID+"/message/nope", aliceToken, nil)
		assert.Equal(t, http.StatusNotFound, status)
	})
}

func TestClearChat(t *testing.T) {
	s, app := newTestServer(t)
	aliceToken, aliceID := signupUser(t, app, "alice", "alice@example.com")
	_, bobID := signupUser(t, app, "bob", "bob@example.com")

	_, body := doJSON(t, app, http.MethodPost, "/api/user/chat", aliceToken, fiber.Map{"targetUserId": bobID})
	chatID := body["chat"].(map[string]any)["id"].(string)

	_, err := s.messages.PostMessage(context.Background(), chatID, aliceID,
		messaging.PostMessageInput{Text: "gone soon"})
	assert.NoError(t, err)

	s.notifier = nil
	bobClient, err := s.hub.Register(bobID, nil)
	assert.NoError(t, err)
	s.hub.Join(bobClient, notifications.UserRoom(bobID))

	status, _ := doJSON(t, app, http.MethodDelete, "/api/user/chat/"+chatID+"/clear", aliceToken, nil)
	assert.Equal(t, http.StatusOK, status)

	// Clearing nulls the snapshot in the broadcast too.
	event := wsEvent(t, bobClient)
	assert.Equal(t, notifications.EventChatUpdated, event.Name)
	assert.Nil(t, event.Data.(map[string]any)["lastMessage"])

	status, body = doJSON(t, app, http.MethodGet, "/api/user/messages/"+chatID, aliceToken, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["messages"])

	status, body = doJSON(t, app, http.MethodGet, "/api/user/chats", aliceToken, nil)
	assert.Equal(t, http.StatusOK, status)
	chat := body["chats"].([]any)[0].(map[string]any)
	assert.Nil(t, chat["lastMessage"])
}

func TestMarkChatRead(t *testing.T) {
	_, app := newTestServer(t)
	aliceToken, _ := signupUser(t, app, "alice", "alice@example.com")

	status, body := doJSON(t, app, http.MethodPost, "/api/user/chat/whatever/mark-read", aliceToken, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
}
