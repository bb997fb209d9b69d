package user

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/ledgerworks/walletledger/internal/form"
)

// Handler exposes user registration.
type Handler struct {
	service *Service
}

// NewHandler constructs a user HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type userResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Register creates a user.
func (h *Handler) Register(c *fiber.Ctx) error {
	f, err := form.Parse(c)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"errors": form.Errors{"__all__": {err.Error()}}})
	}
	reg := Registration{Username: f.String("username"), Password: f.String("password")}
	if !f.Errors.Empty() {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"errors": f.Errors})
	}

	u, err := h.service.Register(c.UserContext(), reg)
	if err != nil {
		fieldErrs := form.Errors{}
		switch {
		case errors.Is(err, ErrInvalidUsername), errors.Is(err, ErrUsernameTaken):
			fieldErrs.Add("username", err.Error())
		case errors.Is(err, ErrWeakPassword):
			fieldErrs.Add("password", err.Error())
		default:
			return fiber.NewError(http.StatusServiceUnavailable, "user store unavailable")
		}
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"errors": fieldErrs})
	}

	return c.Status(http.StatusCreated).JSON(userResponse{ID: u.ID, Username: u.Username})
}
