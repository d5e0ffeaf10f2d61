package server

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log"

	"pointchat/internal/media"
	"pointchat/internal/models"

	"github.com/gofiber/fiber/v2"
	_ "golang.org/x/image/webp"
)

// Upload handles POST /api/upload. The file must decode as a supported image
// format (png, jpeg, gif, webp). Without a configured storage bucket the
// endpoint still answers with a deterministic placeholder URL so clients can
// exercise the image message flow end to end.
func (s *Server) Upload(c *fiber.Ctx) error {
	file, err := c.FormFile("image")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("No file uploaded"))
	}

	maxBytes := int64(s.config.ImageMaxUploadSizeMB) * 1024 * 1024
	if file.Size > maxBytes {
		return models.RespondWithError(c, fiber.StatusRequestEntityTooLarge,
			models.NewValidationError("File too large"))
	}

	src, err := file.Open()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Unable to read uploaded file"))
	}
	defer func() { _ = src.Close() }()

	content, err := io.ReadAll(io.LimitReader(src, maxBytes+1))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Unable to read uploaded file"))
	}
	if int64(len(content)) > maxBytes {
		return models.RespondWithError(c, fiber.StatusRequestEntityTooLarge,
			models.NewValidationError("File too large"))
	}

	// Reject anything the image decoders don't recognize; content type
	// headers are caller-controlled and not trusted.
	if _, _, derr := image.DecodeConfig(bytes.NewReader(content)); derr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Unsupported image format"))
	}

	if s.uploader == nil {
		return c.JSON(fiber.Map{"url": media.PlaceholderImageURL})
	}

	url, err := s.uploader.Upload(c.UserContext(), file.Filename,
		file.Header.Get("Content-Type"), content)
	if err != nil {
		log.Printf("image upload failed: %v (serving placeholder)", err)
		return c.JSON(fiber.Map{"url": media.PlaceholderImageURL})
	}

	return c.JSON(fiber.Map{"url": url})
}
