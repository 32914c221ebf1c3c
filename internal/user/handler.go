package user

import (
	"errors"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "user").Logger()

type Handler struct {
	service *Service
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	IsAdmin  bool   `json:"isAdmin"`
}

type profileUpdateRequest struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
}

type adminUpdateRequest struct {
	Name    *string `json:"name,omitempty"`
	Email   *string `json:"email,omitempty"`
	IsAdmin *bool   `json:"isAdmin,omitempty"`
}

type approveRequest struct {
	Action    string `json:"action"`
	MakeAdmin bool   `json:"makeAdmin"`
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterPublicRoutes mounts login and registration. Guards such as a rate
// limiter run before the handlers.
func (h *Handler) RegisterPublicRoutes(app *fiber.App, guards ...fiber.Handler) {
	app.Post("/api/auth/register", chain(guards, h.register)...)
	app.Post("/api/auth/login", chain(guards, h.login)...)
}

func chain(guards []fiber.Handler, handler fiber.Handler) []fiber.Handler {
	handlers := make([]fiber.Handler, 0, len(guards)+1)
	handlers = append(handlers, guards...)
	return append(handlers, handler)
}

func (h *Handler) RegisterProtectedRoutes(app *fiber.App) {
	app.Get("/api/auth/profile", h.getProfile)
	app.Put("/api/auth/profile", h.updateProfile)

	app.Get("/api/auth/users", RequireAdmin, h.getUsers)
	app.Get("/api/auth/pending-users", RequireAdmin, h.getPendingUsers)
	app.Put("/api/auth/approve-user/:id<int>", RequireAdmin, h.approveUser)
	app.Put("/api/auth/users/:id<int>", RequireAdmin, h.updateUser)
	app.Delete("/api/auth/users/:id<int>", RequireAdmin, h.deleteUser)
}

func (h *Handler) register(c *fiber.Ctx) error {
	payload := new(registerRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	created, token, err := h.service.Register(c.UserContext(), RegisterInput{
		Name:           payload.Name,
		Email:          payload.Email,
		Password:       payload.Password,
		IsAdminRequest: payload.IsAdmin,
	})
	if err != nil {
		return writeError(c, err)
	}

	if token == "" {
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"message": "Admin access requested. An administrator must approve the account before you can sign in.",
			"user":    sanitizeUser(created),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"user":  sanitizeUser(created),
		"token": token,
	})
}

func (h *Handler) login(c *fiber.Ctx) error {
	payload := new(loginRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	user, token, err := h.service.Authenticate(c.UserContext(), payload.Email, payload.Password)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Login successful",
		"user":    sanitizeUser(user),
		"token":   token,
	})
}

func (h *Handler) getProfile(c *fiber.Ctx) error {
	userID, err := GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}

	user, err := h.service.GetByID(c.UserContext(), userID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(sanitizeUser(user))
}

func (h *Handler) updateProfile(c *fiber.Ctx) error {
	userID, err := GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}

	var payload profileUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	updated, token, err := h.service.UpdateProfile(c.UserContext(), userID, ProfileUpdate{
		Name:     payload.Name,
		Email:    payload.Email,
		Password: payload.Password,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(fiber.Map{"user": sanitizeUser(updated), "token": token})
}

func (h *Handler) getUsers(c *fiber.Ctx) error {
	filter := ListFilter{
		Keyword:  c.Query("keyword"),
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("pageSize", 20),
	}
	users, total, err := h.service.List(c.UserContext(), filter)
	if err != nil {
		return writeError(c, err)
	}

	response := make([]User, 0, len(users))
	for _, user := range users {
		response = append(response, sanitizeUser(user))
	}
	filter = filter.normalized()
	return c.JSON(fiber.Map{
		"users": response,
		"page":  filter.Page,
		"pages": (total + filter.PageSize - 1) / filter.PageSize,
		"total": total,
	})
}

func (h *Handler) getPendingUsers(c *fiber.Ctx) error {
	users, err := h.service.ListPending(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}

	response := make([]User, 0, len(users))
	for _, user := range users {
		response = append(response, sanitizeUser(user))
	}
	return c.JSON(response)
}

func (h *Handler) approveUser(c *fiber.Ctx) error {
	userID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid user id"})
	}

	var payload approveRequest
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	user, err := h.service.ApproveOrReject(c.UserContext(), userID, payload.Action, payload.MakeAdmin)
	if err != nil {
		return writeError(c, err)
	}

	if payload.Action == ActionReject {
		return c.JSON(fiber.Map{"message": "User rejected and removed"})
	}
	return c.JSON(fiber.Map{"message": "User approved", "user": sanitizeUser(user)})
}

func (h *Handler) updateUser(c *fiber.Ctx) error {
	userID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid user id"})
	}

	var payload adminUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	updated, err := h.service.AdminUpdate(c.UserContext(), userID, AdminUpdate{
		Name:    payload.Name,
		Email:   payload.Email,
		IsAdmin: payload.IsAdmin,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(sanitizeUser(updated))
}

func (h *Handler) deleteUser(c *fiber.Ctx) error {
	userID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid user id"})
	}

	if err := h.service.Delete(c.UserContext(), userID); err != nil {
		return writeError(c, err)
	}

	return c.JSON(fiber.Map{"message": "User removed"})
}

func writeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, ErrEmailExists):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": "Email already exists"})
	case errors.Is(err, ErrInvalidCredentials):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid email or password"})
	case errors.Is(err, ErrPendingApproval):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "Your account is pending admin approval"})
	case errors.Is(err, ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "User not found"})
	case errors.Is(err, ErrHasOrders):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": "User has orders and cannot be deleted"})
	default:
		logger.Error().Err(err).Str("path", c.Path()).Msg("user request failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "internal server error"})
	}
}
