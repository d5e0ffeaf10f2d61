package server

import (
	"strconv"

	"pointchat/internal/models"
	"pointchat/internal/notifications"

	"github.com/gofiber/fiber/v2"
)

// CreateChat handles POST /api/user/chat. Finding and creating converge on
// the same chat document, so calling this twice (or from both sides) is safe.
func (s *Server) CreateChat(c *fiber.Ctx) error {
	var req struct {
		TargetUserID string `json:"targetUserId"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.TargetUserID == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("targetUserId is required"))
	}

	chat, err := s.directory.FindOrCreateChat(c.Context(), currentUserID(c), req.TargetUserID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"chat": chat})
}

// GetChats handles GET /api/user/chats. Chats come back newest activity
// first with the counterpart's public profile attached.
func (s *Server) GetChats(c *fiber.Ctx) error {
	chats, err := s.directory.ListChats(c.Context(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"chats": chats})
}

// GetMessages handles GET /api/user/messages/:chatId?limit=N
func (s *Server) GetMessages(c *fiber.Ctx) error {
	chatID := c.Params("chatId")

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	messages, err := s.messages.ListMessages(c.Context(), chatID, limit)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"messages": messages})
}

// DeleteMessage handles DELETE /api/user/chat/:chatId/message/:messageId.
// The chat's last-message snapshot is recomputed when the deleted message
// backed it, and both participants are notified.
func (s *Server) DeleteMessage(c *fiber.Ctx) error {
	chatID := c.Params("chatId")
	messageID := c.Params("messageId")

	if err := s.messages.DeleteMessage(c.Context(), chatID, messageID); err != nil {
		return respondServiceError(c, err)
	}

	s.notifyChatParticipants(c, chatID)
	return c.JSON(fiber.Map{"success": true})
}

// ClearChat handles DELETE /api/user/chat/:chatId/clear
func (s *Server) ClearChat(c *fiber.Ctx) error {
	chatID := c.Params("chatId")

	if err := s.messages.ClearChat(c.Context(), chatID); err != nil {
		return respondServiceError(c, err)
	}

	s.notifyChatParticipants(c, chatID)
	return c.JSON(fiber.Map{"success": true})
}

// EditMessage handles POST /api/user/chat/:chatId/message/:messageId/edit
func (s *Server) EditMessage(c *fiber.Ctx) error {
	chatID := c.Params("chatId")
	messageID := c.Params("messageId")

	var req struct {
		NewText string `json:"newText"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.NewText == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("newText is required"))
	}

	if err := s.messages.EditMessage(c.Context(), chatID, messageID, req.NewText); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// MarkChatRead handles POST /api/user/chat/:chatId/mark-read. Unread counts
// are tracked client-side today; the endpoint acknowledges so clients can
// treat it uniformly with the other chat mutations.
func (s *Server) MarkChatRead(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"success": true})
}

// notifyChatParticipants pushes a chat_updated event to both participants'
// user rooms, best-effort. HTTP mutations still succeed when delivery fails.
// The chat is re-read after the mutation so the event carries the recomputed
// (possibly nil) last-message snapshot.
func (s *Server) notifyChatParticipants(c *fiber.Ctx, chatID string) {
	chat, err := s.directory.GetChat(c.Context(), chatID)
	if err != nil {
		return
	}

	event := notifications.Event{
		Name: notifications.EventChatUpdated,
		Data: fiber.Map{
			"chatId":      chatID,
			"lastMessage": chat.LastMessage,
		},
	}
	for _, participant := range chat.Participants {
		room := notifications.UserRoom(participant)
		if s.notifier != nil && s.notifier.Enabled() {
			_ = s.notifier.PublishRoom(c.Context(), room, event)
		} else {
			s.hub.Broadcast(room, event)
		}
	}
}
