package order

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/wichananm65/chocolate-shop-backend/internal/payment"
	"github.com/wichananm65/chocolate-shop-backend/internal/user"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterProtectedRoutes(app *fiber.App) {
	app.Post("/api/orders", h.createOrder)
	app.Get("/api/orders", user.RequireAdmin, h.listOrders)
	app.Get("/api/orders/myorders", h.getMyOrders)
	app.Post("/api/orders/razorpay", h.createGatewayOrder)
	app.Get("/api/orders/:id<int>", h.getOrder)
	app.Put("/api/orders/:id<int>/pay", h.payOrder)
	app.Put("/api/orders/:id<int>/status", user.RequireAdmin, h.updateStatus)
	app.Put("/api/orders/:id<int>/cancel", h.cancelOrder)
	app.Delete("/api/orders/:id<int>", h.deleteOrder)
}

func callerFromCtx(c *fiber.Ctx) (Caller, error) {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return Caller{}, err
	}
	return Caller{UserID: userID, IsAdmin: user.IsAdminFromCtx(c)}, nil
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
}

func (h *Handler) createOrder(c *fiber.Ctx) error {
	caller, err := callerFromCtx(c)
	if err != nil {
		return unauthorized(c)
	}

	in := new(CreateInput)
	if err := c.BodyParser(in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid request body"})
	}

	created, err := h.service.Create(c.UserContext(), caller.UserID, *in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *Handler) getMyOrders(c *fiber.Ctx) error {
	caller, err := callerFromCtx(c)
	if err != nil {
		return unauthorized(c)
	}

	orders, err := h.service.ListMine(c.UserContext(), caller.UserID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(orders)
}

func (h *Handler) listOrders(c *fiber.Ctx) error {
	filter := ListFilter{
		UserID:   c.QueryInt("user", 0),
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("pageSize", 20),
	}
	if raw := c.Query("status"); raw != "" {
		status, ok := ParseStatus(raw)
		if !ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "unknown status"})
		}
		filter.Status = status
	}

	page, err := h.service.List(c.UserContext(), filter)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(page)
}

func (h *Handler) getOrder(c *fiber.Ctx) error {
	caller, err := callerFromCtx(c)
	if err != nil {
		return unauthorized(c)
	}
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid order id"})
	}

	ord, err := h.service.Get(c.UserContext(), caller, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(ord)
}

func (h *Handler) createGatewayOrder(c *fiber.Ctx) error {
	caller, err := callerFromCtx(c)
	if err != nil {
		return unauthorized(c)
	}

	var body struct {
		OrderID int `json:"orderId"`
	}
	if err := c.BodyParser(&body); err != nil || body.OrderID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "orderId is required"})
	}

	handle, err := h.service.CreateGatewayOrder(c.UserContext(), caller, body.OrderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(handle)
}

func (h *Handler) payOrder(c *fiber.Ctx) error {
	caller, err := callerFromCtx(c)
	if err != nil {
		return unauthorized(c)
	}
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid order id"})
	}

	in := new(PaymentInput)
	if err := c.BodyParser(in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid request body"})
	}

	updated, err := h.service.MarkPaid(c.UserContext(), caller, id, *in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(updated)
}

func (h *Handler) updateStatus(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid order id"})
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid request body"})
	}

	updated, err := h.service.UpdateStatus(c.UserContext(), id, body.Status)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(updated)
}

func (h *Handler) cancelOrder(c *fiber.Ctx) error {
	caller, err := callerFromCtx(c)
	if err != nil {
		return unauthorized(c)
	}
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid order id"})
	}

	updated, err := h.service.Cancel(c.UserContext(), caller, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(updated)
}

func (h *Handler) deleteOrder(c *fiber.Ctx) error {
	caller, err := callerFromCtx(c)
	if err != nil {
		return unauthorized(c)
	}
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid order id"})
	}

	if err := h.service.Delete(c.UserContext(), caller, id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"message": "order removed"})
}

func writeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "order not found"})
	case errors.Is(err, ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, ErrInvalidSignature):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, ErrAlreadyPaid), errors.Is(err, ErrNotCancellable):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, payment.ErrUpstream):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"message": "payment gateway unavailable"})
	default:
		logger.Error().Err(err).Str("path", c.Path()).Msg("order request failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "internal server error"})
	}
}
