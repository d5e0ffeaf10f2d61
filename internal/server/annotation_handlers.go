package server

import (
	"pointchat/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ToggleChatSetting handles POST /api/user/chat/:chatId/setting with a body
// of {"setting": "isPinned"|"isArchived"|"isMuted", "value": bool}.
func (s *Server) ToggleChatSetting(c *fiber.Ctx) error {
	chatID := c.Params("chatId")

	var req struct {
		Setting string `json:"setting"`
		Value   bool   `json:"value"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	err := s.annotations.ToggleChatSetting(c.Context(), currentUserID(c), chatID, req.Setting, req.Value)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// GetChatSettings handles GET /api/user/chat-settings. Settings come back
// keyed by chat ID; chats with no stored settings are simply absent.
func (s *Server) GetChatSettings(c *fiber.Ctx) error {
	settings, err := s.annotations.ListChatSettings(c.Context(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"settings": settings})
}

// StarMessage handles POST /api/user/message/:messageId/star. The same call
// toggles: starring an already-starred message unstars it. The response's
// starred field reports the resulting state.
func (s *Server) StarMessage(c *fiber.Ctx) error {
	messageID := c.Params("messageId")

	var req struct {
		ChatID      string         `json:"chatId"`
		MessageData map[string]any `json:"messageData"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.ChatID == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("chatId is required"))
	}

	starred, err := s.annotations.StarMessage(c.Context(), currentUserID(c), messageID, req.ChatID, req.MessageData)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"starred": starred})
}

// GetStarred handles GET /api/user/starred
func (s *Server) GetStarred(c *fiber.Ctx) error {
	starred, err := s.annotations.ListStarred(c.Context(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"starred": starred})
}

// GetBlocked handles GET /api/user/blocked
func (s *Server) GetBlocked(c *fiber.Ctx) error {
	blocked, err := s.annotations.ListBlocked(c.Context(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"blockedUsers": blocked})
}

// BlockUser handles POST /api/user/block with {"userId": "..."}.
func (s *Server) BlockUser(c *fiber.Ctx) error {
	var req struct {
		UserID string `json:"userId"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := s.annotations.BlockUser(c.Context(), currentUserID(c), req.UserID); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// UnblockUser handles POST /api/user/unblock with {"userId": "..."}.
func (s *Server) UnblockUser(c *fiber.Ctx) error {
	var req struct {
		UserID string `json:"userId"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := s.annotations.UnblockUser(c.Context(), currentUserID(c), req.UserID); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}
