package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ledgerworks/walletledger/internal/money"
	"github.com/ledgerworks/walletledger/internal/wallet"
)

// Reason identifies the ledger rule a transfer broke.
type Reason string

const (
	ReasonSelfTransfer      Reason = "self_transfer"
	ReasonCurrencyMismatch  Reason = "currency_mismatch"
	ReasonInsufficientFunds Reason = "insufficient_funds"
	ReasonBalanceLimit      Reason = "balance_limit"
)

var reasonMessages = map[Reason]string{
	ReasonSelfTransfer:      "self-transfer not allowed",
	ReasonCurrencyMismatch:  "currency mismatch",
	ReasonInsufficientFunds: "insufficient funds",
	ReasonBalanceLimit:      "recipient balance limit exceeded",
}

// Rejection is returned when a transfer breaks a ledger rule. No state was
// changed.
type Rejection struct {
	Reason      Reason
	SenderID    int64
	RecipientID int64
	Amount      decimal.Decimal
}

// Sentinels for errors.Is matching on the reason alone.
var (
	ErrSelfTransfer      = &Rejection{Reason: ReasonSelfTransfer}
	ErrCurrencyMismatch  = &Rejection{Reason: ReasonCurrencyMismatch}
	ErrInsufficientFunds = &Rejection{Reason: ReasonInsufficientFunds}
	ErrBalanceLimit      = &Rejection{Reason: ReasonBalanceLimit}
)

// Message is the user-facing text for the rejection.
func (r *Rejection) Message() string {
	if msg, ok := reasonMessages[r.Reason]; ok {
		return msg
	}
	return string(r.Reason)
}

func (r *Rejection) Error() string {
	if r.SenderID == 0 && r.RecipientID == 0 {
		return r.Message()
	}
	return fmt.Sprintf("%s: %d -> %d amount %s", r.Message(), r.SenderID, r.RecipientID, money.Format(r.Amount))
}

// Is matches any rejection with the same reason.
func (r *Rejection) Is(target error) bool {
	t, ok := target.(*Rejection)
	return ok && t.Reason == r.Reason
}

// Check applies the ledger rules to a proposed transfer in order: self
// transfer, currency, funds, recipient limit. It returns nil when the
// transfer may be applied.
func Check(sender, recipient wallet.Wallet, amount decimal.Decimal) *Rejection {
	reject := func(reason Reason) *Rejection {
		return &Rejection{Reason: reason, SenderID: sender.ID, RecipientID: recipient.ID, Amount: amount}
	}
	switch {
	case sender.ID == recipient.ID:
		return reject(ReasonSelfTransfer)
	case sender.Currency != recipient.Currency:
		return reject(ReasonCurrencyMismatch)
	case sender.Balance.LessThan(amount):
		return reject(ReasonInsufficientFunds)
	case !money.Fits(recipient.Balance.Add(amount)):
		return reject(ReasonBalanceLimit)
	}
	return nil
}
