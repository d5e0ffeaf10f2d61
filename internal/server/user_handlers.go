package server

import (
	"time"

	"pointchat/internal/models"
	"pointchat/internal/store"

	"github.com/gofiber/fiber/v2"
)

// SearchUsers handles GET /api/user/search?query=...
// Prefix match on username, caller excluded, capped by the directory service.
func (s *Server) SearchUsers(c *fiber.Ctx) error {
	query := c.Query("query")

	users, err := s.directory.SearchUsers(c.Context(), query, currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}

	results := make([]models.Profile, 0, len(users))
	for _, u := range users {
		results = append(results, u.Profile())
	}
	return c.JSON(fiber.Map{"users": results})
}

// UpdateProfile handles PUT /api/user/update. Only the fields present in the
// request body are written; everything else keeps its stored value.
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	var req struct {
		Avatar   *string `json:"avatar"`
		Bio      *string `json:"bio"`
		IsOnline *bool   `json:"isOnline"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	updates := map[string]any{}
	if req.Avatar != nil {
		updates["avatar"] = *req.Avatar
	}
	if req.Bio != nil {
		updates["bio"] = *req.Bio
	}
	if req.IsOnline != nil {
		updates["isOnline"] = *req.IsOnline
		updates["lastSeen"] = time.Now().UTC()
	}
	if len(updates) == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("No updatable fields provided"))
	}

	userID := currentUserID(c)
	if err := s.store.Set(c.Context(), store.UserPath(userID), updates, true); err != nil {
		return respondServiceError(c, err)
	}

	user, err := s.directory.GetUser(c.Context(), userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"user": user})
}
