package server

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"pointchat/internal/messaging"
	"pointchat/internal/middleware"
	"pointchat/internal/models"
	"pointchat/internal/notifications"
	"pointchat/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// Per-user WebSocket event budgets.
const (
	sendMessageLimit  = 15
	sendMessageWindow = time.Minute
	typingLimit       = 10
	typingWindow      = 10 * time.Second
)

// WebSocketChatHandler returns the handler for /api/ws/chat. AuthRequired has
// already consumed the ticket and stored the user ID in locals; here the
// connection is registered with the hub and its events are dispatched until
// the read pump exits.
func (s *Server) WebSocketChatHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals("userID").(string)
		if userID == "" {
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(userID, conn)
		if err != nil {
			log.Printf("websocket register rejected for user %s: %v", userID, err)
			_ = conn.Close()
			return
		}

		middleware.ActiveWebSockets.Inc()
		defer middleware.ActiveWebSockets.Dec()

		client.IncomingHandler = s.handleClientEvent

		go client.WritePump()
		client.ReadPump()
	})
}

// handleClientEvent dispatches one inbound frame from a connected client.
// Malformed frames and per-event failures are reported back on the same
// connection; they never tear it down.
func (s *Server) handleClientEvent(client *notifications.Client, raw []byte) {
	var event notifications.Event
	if err := json.Unmarshal(raw, &event); err != nil {
		s.sendClientError(client, "Malformed event")
		return
	}

	observability.RecordWebSocketEvent(event.Name)
	ctx := context.Background()

	switch event.Name {
	case notifications.EventJoinChat:
		s.handleJoinChat(ctx, client, event.Data)
	case notifications.EventLeaveChat:
		s.handleLeaveChat(client, event.Data)
	case notifications.EventJoinUserRoom:
		s.hub.Join(client, notifications.UserRoom(client.UserID))
	case notifications.EventSendMessage:
		s.handleSendMessage(ctx, client, event.Data)
	case notifications.EventTyping:
		s.handleTyping(ctx, client, event.Data)
	case notifications.EventToggleReaction:
		s.handleToggleReaction(ctx, client, event.Data)
	default:
		s.sendClientError(client, "Unknown event: "+event.Name)
	}
}

// handleJoinChat subscribes the connection to a chat room after verifying the
// caller actually participates in that chat.
func (s *Server) handleJoinChat(ctx context.Context, client *notifications.Client, data any) {
	var payload struct {
		ChatID string `json:"chatId"`
	}
	if !decodeEventData(data, &payload) || payload.ChatID == "" {
		s.sendClientError(client, "chatId is required")
		return
	}

	chat, err := s.directory.GetChat(ctx, payload.ChatID)
	if err != nil {
		s.sendClientError(client, "Chat not found")
		return
	}
	if !chat.HasParticipant(client.UserID) {
		s.sendClientError(client, "Not a participant of this chat")
		return
	}

	s.hub.Join(client, payload.ChatID)
}

func (s *Server) handleLeaveChat(client *notifications.Client, data any) {
	var payload struct {
		ChatID string `json:"chatId"`
	}
	if !decodeEventData(data, &payload) || payload.ChatID == "" {
		return
	}
	s.hub.Leave(client, payload.ChatID)
}

// handleSendMessage persists the message and fans it out: receive_message to
// the chat room, chat_updated to both participants' user rooms. The broadcast
// carries its own emission timestamp so clients can order screen updates
// without trusting their local clocks.
func (s *Server) handleSendMessage(ctx context.Context, client *notifications.Client, data any) {
	var payload struct {
		ChatID      string           `json:"chatId"`
		Text        string           `json:"text"`
		Type        string           `json:"type"`
		MediaURL    string           `json:"mediaUrl"`
		ReplyTo     *models.ReplyRef `json:"replyTo"`
		IsForwarded bool             `json:"isForwarded"`
	}
	if !decodeEventData(data, &payload) || payload.ChatID == "" {
		s.sendClientError(client, "chatId is required")
		return
	}

	allowed, err := middleware.CheckRateLimit(ctx, s.redis, "send_chat", client.UserID,
		sendMessageLimit, sendMessageWindow)
	if err == nil && !allowed {
		s.sendClientError(client, "Sending too fast, slow down")
		return
	}

	chat, err := s.directory.GetChat(ctx, payload.ChatID)
	if err != nil {
		s.sendClientError(client, "Chat not found")
		return
	}

	// Server-side block enforcement rolls out behind a flag; clients enforce
	// blocks at the edge either way.
	if s.flags.Enabled("enforce_blocks", client.UserID) {
		counterpart := chat.Counterpart(client.UserID)
		if blocked, berr := s.annotations.IsBlocked(ctx, counterpart, client.UserID); berr == nil && blocked {
			s.sendClientError(client, "You cannot message this user")
			return
		}
	}

	msg, err := s.messages.PostMessage(ctx, payload.ChatID, client.UserID, messaging.PostMessageInput{
		Text:        payload.Text,
		Type:        models.MessageType(payload.Type),
		MediaURL:    payload.MediaURL,
		ReplyTo:     payload.ReplyTo,
		IsForwarded: payload.IsForwarded,
	})
	if err != nil {
		s.sendClientError(client, "Failed to send message")
		return
	}

	s.publishRoom(ctx, payload.ChatID, notifications.Event{
		Name: notifications.EventReceiveMessage,
		Data: fiber.Map{
			"chatId":      payload.ChatID,
			"message":     msg,
			"broadcastAt": time.Now().UTC().Format(time.RFC3339Nano),
		},
	})

	update := notifications.Event{
		Name: notifications.EventChatUpdated,
		Data: fiber.Map{
			"chatId":      payload.ChatID,
			"lastMessage": msg.Snapshot(),
		},
	}
	for _, participant := range chat.Participants {
		s.publishRoom(ctx, notifications.UserRoom(participant), update)
	}
}

// handleTyping relays a typing indicator to everyone else in the chat room.
// Indicators are ephemeral and never persisted.
func (s *Server) handleTyping(ctx context.Context, client *notifications.Client, data any) {
	var payload struct {
		ChatID   string `json:"chatId"`
		IsTyping bool   `json:"isTyping"`
	}
	if !decodeEventData(data, &payload) || payload.ChatID == "" {
		return
	}

	allowed, err := middleware.CheckRateLimit(ctx, s.redis, "typing", client.UserID,
		typingLimit, typingWindow)
	if err == nil && !allowed {
		return
	}

	s.hub.BroadcastExcept(payload.ChatID, client, notifications.Event{
		Name: notifications.EventDisplayTyping,
		Data: fiber.Map{
			"chatId":   payload.ChatID,
			"userId":   client.UserID,
			"isTyping": payload.IsTyping,
		},
	})
}

// handleToggleReaction flips the caller's reaction and broadcasts the full
// resulting reactions map so every client converges on the same state.
func (s *Server) handleToggleReaction(ctx context.Context, client *notifications.Client, data any) {
	var payload struct {
		ChatID    string `json:"chatId"`
		MessageID string `json:"messageId"`
		Emoji     string `json:"emoji"`
	}
	if !decodeEventData(data, &payload) || payload.ChatID == "" || payload.MessageID == "" || payload.Emoji == "" {
		s.sendClientError(client, "chatId, messageId and emoji are required")
		return
	}

	reactions, err := s.messages.ToggleReaction(ctx, payload.ChatID, payload.MessageID,
		client.UserID, payload.Emoji)
	if err != nil {
		s.sendClientError(client, "Failed to toggle reaction")
		return
	}

	s.publishRoom(ctx, payload.ChatID, notifications.Event{
		Name: notifications.EventReactionUpdate,
		Data: fiber.Map{
			"chatId":    payload.ChatID,
			"messageId": payload.MessageID,
			"reactions": reactions,
		},
	})
}

// publishRoom routes a broadcast through Redis when the notifier is wired so
// every server instance delivers it, falling back to the local hub otherwise.
func (s *Server) publishRoom(ctx context.Context, room string, event notifications.Event) {
	if s.notifier != nil && s.notifier.Enabled() {
		if err := s.notifier.PublishRoom(ctx, room, event); err == nil {
			return
		}
	}
	s.hub.Broadcast(room, event)
}

// sendClientError reports a handler failure back on the client's connection.
func (s *Server) sendClientError(client *notifications.Client, message string) {
	raw, err := json.Marshal(notifications.Event{
		Name: "error",
		Data: fiber.Map{"message": message},
	})
	if err != nil {
		return
	}
	client.TrySend(raw)
}

// decodeEventData re-marshals the envelope's loosely typed data field into a
// concrete payload struct.
func decodeEventData(data any, v any) bool {
	raw, err := json.Marshal(data)
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}
