package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerworks/walletledger/internal/wallet"
)

var (
	// ErrInvalidAmount is returned when the amount is not strictly positive or
	// does not fit the ledger precision. It is an input error, not a rule
	// rejection.
	ErrInvalidAmount = errors.New("amount must be positive with at most 2 decimal places and 10 digits")

	// ErrUnavailable wraps persistence failures. The commit was rolled back
	// and the caller may retry.
	ErrUnavailable = errors.New("ledger store unavailable")
)

// Transaction is an immutable record of an applied transfer.
type Transaction struct {
	ID          string
	Amount      decimal.Decimal
	SenderID    int64
	RecipientID int64
	CreatedAt   time.Time
}

// Store runs read-modify-write units over wallets and the transaction log.
type Store interface {
	// Atomic acquires exclusive access to walletIDs in ascending id order and
	// runs fn. Everything fn wrote is committed iff fn returns nil.
	Atomic(ctx context.Context, walletIDs []int64, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the view of the store inside an atomic unit.
type Tx interface {
	// Wallet returns a wallet locked by the unit, or wallet.ErrNotFound.
	Wallet(ctx context.Context, id int64) (wallet.Wallet, error)
	// UpdateBalance persists next if the stored balance still equals expected.
	UpdateBalance(ctx context.Context, id int64, expected, next decimal.Decimal) error
	// InsertTransaction appends a record to the transaction log.
	InsertTransaction(ctx context.Context, t Transaction) error
	// CommitTime returns the timestamp for a record written by this unit. It
	// is never earlier than local nor than any record already stored for the
	// locked wallets.
	CommitTime(ctx context.Context, local time.Time) (time.Time, error)
}
