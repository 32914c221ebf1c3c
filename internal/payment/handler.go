package payment

import "github.com/gofiber/fiber/v2"

type Handler struct {
	client *Client
}

func NewHandler(client *Client) *Handler {
	return &Handler{client: client}
}

func (h *Handler) RegisterPublicRoutes(app *fiber.App) {
	app.Get("/api/config/razorpay", h.getConfig)
}

func (h *Handler) getConfig(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"keyId": h.client.KeyID()})
}
