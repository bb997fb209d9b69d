package payments

import (
	"context"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/ledgerworks/walletledger/internal/form"
	"github.com/ledgerworks/walletledger/internal/ledger"
	"github.com/ledgerworks/walletledger/internal/wallet"
)

const (
	msgCreated       = "transaction created"
	msgWalletMissing = "one of the wallets does not exist"
	msgUnavailable   = "ledger temporarily unavailable, retry later"
)

// Committer applies transfers.
type Committer interface {
	CommitTransfer(ctx context.Context, senderID, recipientID int64, amount decimal.Decimal) (ledger.Transaction, error)
}

// Handler exposes the transfer endpoint.
type Handler struct {
	ledger Committer
}

// NewHandler constructs a transfer handler.
func NewHandler(ledger Committer) *Handler {
	return &Handler{ledger: ledger}
}

// CreateTransaction parses sender_id, recipient_id and amount and commits the
// transfer. Rejection messages are passed through unchanged.
func (h *Handler) CreateTransaction(c *fiber.Ctx) error {
	f, err := form.Parse(c)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	senderID := f.Int64("sender_id")
	recipientID := f.Int64("recipient_id")
	amount := f.Decimal("amount")
	if !f.Errors.Empty() {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": f.Errors})
	}

	_, err = h.ledger.CommitTransfer(c.UserContext(), senderID, recipientID, amount)
	if err != nil {
		var rej *ledger.Rejection
		switch {
		case errors.As(err, &rej):
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": rej.Message()})
		case errors.Is(err, wallet.ErrNotFound):
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": msgWalletMissing})
		case errors.Is(err, ledger.ErrInvalidAmount):
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": form.Errors{"amount": {err.Error()}}})
		default:
			c.Set(fiber.HeaderRetryAfter, "1")
			return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{"error": msgUnavailable})
		}
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{"success": msgCreated})
}
