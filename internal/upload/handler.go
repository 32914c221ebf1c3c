package upload

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wichananm65/chocolate-shop-backend/internal/user"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "upload").Logger()

type Handler struct {
	host     Host
	maxBytes int64
}

func NewHandler(host Host, maxBytes int64) *Handler {
	if maxBytes <= 0 {
		maxBytes = 5 * 1024 * 1024
	}
	return &Handler{host: host, maxBytes: maxBytes}
}

func (h *Handler) RegisterProtectedRoutes(app *fiber.App) {
	app.Post("/api/upload", user.RequireAdmin, h.uploadImage)
}

func (h *Handler) uploadImage(c *fiber.Ctx) error {
	file, err := c.FormFile("image")
	if err != nil || file == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "image file is required"})
	}
	if file.Size > h.maxBytes {
		return writeError(c, ErrTooLarge)
	}

	data, err := readFile(file, h.maxBytes)
	if err != nil {
		return writeError(c, err)
	}
	if !strings.HasPrefix(http.DetectContentType(data), "image/") {
		return writeError(c, ErrNotImage)
	}

	name := uuid.NewString() + strings.ToLower(filepath.Ext(file.Filename))
	url, err := h.host.Store(c.UserContext(), name, data)
	if err != nil {
		return writeError(c, err)
	}

	logger.Info().Str("file", name).Int64("bytes", file.Size).Msg("image uploaded")
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"url": url})
}

func readFile(file *multipart.FileHeader, limit int64) ([]byte, error) {
	f, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, ErrTooLarge
	}
	return data, nil
}

func writeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrTooLarge):
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, ErrNotImage):
		return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, ErrUpstream):
		logger.Error().Err(err).Msg("image host request failed")
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"message": "image host unavailable"})
	default:
		logger.Error().Err(err).Str("path", c.Path()).Msg("upload failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "internal server error"})
	}
}
