package wallet

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/ledgerworks/walletledger/internal/form"
	"github.com/ledgerworks/walletledger/internal/money"
	"github.com/ledgerworks/walletledger/internal/user"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type walletResponse struct {
	ID       int64  `json:"id"`
	User     string `json:"user"`
	Currency string `json:"currency"`
	Balance  string `json:"balance"`
}

type balanceResponse struct {
	ID       int64  `json:"id"`
	UserID   int64  `json:"user_id"`
	Currency string `json:"currency"`
	Balance  string `json:"balance"`
}

// Create opens a wallet for the user named in the body.
func (h *Handler) Create(c *fiber.Ctx) error {
	f, err := form.Parse(c)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"errors": form.Errors{"__all__": {err.Error()}}})
	}
	input := CreateInput{
		UserID:   f.Int64("user_id"),
		Currency: f.Currency("currency"),
		Balance:  f.Decimal("balance"),
	}
	if !f.Errors.Empty() {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"errors": f.Errors})
	}

	details, err := h.service.Create(c.UserContext(), input)
	if err != nil {
		fieldErrs := form.Errors{}
		switch {
		case errors.Is(err, user.ErrNotFound):
			fieldErrs.Add("user_id", "User with this id does not exist.")
		case errors.Is(err, ErrNegativeBalance):
			fieldErrs.Add("balance", "Ensure this value is greater than or equal to 0.")
		case errors.Is(err, money.ErrUnknownCurrency):
			fieldErrs.Add("currency", err.Error())
		case errors.Is(err, money.ErrTooManyDecimals), errors.Is(err, money.ErrTooManyDigits):
			fieldErrs.Add("balance", err.Error())
		default:
			return fiber.NewError(http.StatusServiceUnavailable, "wallet store unavailable")
		}
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"errors": fieldErrs})
	}

	return c.Status(http.StatusCreated).JSON(walletResponse{
		ID:       details.ID,
		User:     details.Owner,
		Currency: string(details.Currency),
		Balance:  money.Format(details.Balance),
	})
}

// Show returns the wallet state for display.
func (h *Handler) Show(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("walletId"), 10, 64)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "wallet id must be an integer")
	}
	w, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusServiceUnavailable, "wallet store unavailable")
	}
	return c.Status(http.StatusOK).JSON(balanceResponse{
		ID:       w.ID,
		UserID:   w.UserID,
		Currency: string(w.Currency),
		Balance:  money.Format(w.Balance),
	})
}
