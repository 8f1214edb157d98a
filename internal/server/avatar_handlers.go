package server

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"foreman/internal/models"

	"github.com/gofiber/fiber/v2"
)

var allowedAvatarExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// UploadAvatar handles POST /api/users/me/avatar
func (s *Server) UploadAvatar(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	file, err := c.FormFile("avatar")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("No file uploaded"))
	}

	maxBytes := int64(s.config.AvatarMaxUploadMB) << 20
	if file.Size > maxBytes {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(fmt.Sprintf("Avatar exceeds the %dMB upload limit", s.config.AvatarMaxUploadMB)))
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedAvatarExtensions[ext] {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Avatar must be a PNG, JPEG, GIF, or WebP image"))
	}

	if err := os.MkdirAll(s.config.AvatarDir, 0o755); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	// Filename is server-generated; the client-supplied name never touches the filesystem.
	name := fmt.Sprintf("%d-%d%s", userID, time.Now().UnixNano(), ext)
	dest := filepath.Join(s.config.AvatarDir, name)
	if err := c.SaveFile(file, dest); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	user, err := s.userService.SetAvatar(c.UserContext(), userID, dest)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(user)
}
