package recommended

import (
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "recommended").Logger()

type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) RegisterPublicRoutes(app *fiber.App) {
	app.Get("/api/products/top", h.getTop)
}

func (h *Handler) getTop(c *fiber.Ctx) error {
	items, err := h.service.Top(c.UserContext(), c.QueryInt("limit", DefaultLimit))
	if err != nil {
		logger.Error().Err(err).Msg("failed to load top products")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "internal server error"})
	}
	return c.JSON(items)
}
