package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ledgerworks/walletledger/internal/user"
)

// RegisterUserRoutes wires user registration.
func RegisterUserRoutes(r fiber.Router, h *user.Handler) {
	r.Post("/users", h.Register)
}
