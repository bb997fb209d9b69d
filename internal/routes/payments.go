package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ledgerworks/walletledger/internal/payments"
)

// RegisterPaymentRoutes wires the transfer endpoint behind the given limiter.
func RegisterPaymentRoutes(r fiber.Router, h *payments.Handler, limiter fiber.Handler) {
	r.Post("/create-transaction", limiter, h.CreateTransaction)
}
