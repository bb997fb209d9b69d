package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ledgerworks/walletledger/internal/wallet"
)

// RegisterWalletRoutes wires wallet-related endpoints.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	r.Post("/create-wallet", h.Create)
	r.Get("/wallets/:walletId", h.Show)
}
