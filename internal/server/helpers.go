package server

import (
	"errors"

	"pointchat/internal/models"
	"pointchat/internal/store"

	"github.com/gofiber/fiber/v2"
)

// currentUserID returns the authenticated user's ID set by AuthRequired.
func currentUserID(c *fiber.Ctx) string {
	id, _ := c.Locals("userID").(string)
	return id
}

// respondServiceError maps a service-layer error onto the right HTTP status.
// AppError codes carry the intent; store.ErrNotFound covers raw lookups.
func respondServiceError(c *fiber.Ctx, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("Resource", c.Path()))
	}

	var appErr *models.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case "NOT_FOUND":
			return models.RespondWithError(c, fiber.StatusNotFound, appErr)
		case "VALIDATION_ERROR":
			return models.RespondWithError(c, fiber.StatusBadRequest, appErr)
		case "UNAUTHORIZED":
			return models.RespondWithError(c, fiber.StatusUnauthorized, appErr)
		}
	}

	return models.RespondWithError(c, fiber.StatusInternalServerError,
		models.NewInternalError(err))
}
