package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerworks/walletledger/internal/money"
	"github.com/ledgerworks/walletledger/internal/notification"
	"github.com/ledgerworks/walletledger/internal/wallet"
)

// Invalidator drops cached display copies of wallets.
type Invalidator interface {
	Invalidate(ctx context.Context, ids ...int64) error
}

// Engine is the only writer of wallet balances and the only creator of
// transaction records.
type Engine struct {
	store    Store
	clock    *clock
	logger   *slog.Logger
	notifier notification.Notifier
	cache    Invalidator
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for commit and rejection records.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithNotifier publishes an event after every commit and rejection.
func WithNotifier(n notification.Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithCache invalidates cached wallets after every commit.
func WithCache(c Invalidator) Option {
	return func(e *Engine) { e.cache = c }
}

// WithClock overrides the time source for commit timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.clock = newClock(now) }
}

// NewEngine builds a ledger engine over store.
func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{store: store, clock: newClock(nil), logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CommitTransfer moves amount from sender to recipient. The debit, the
// credit and the transaction record are applied together or not at all.
//
// Errors: ErrInvalidAmount for a malformed amount, wallet.ErrNotFound
// (wrapped) for an unknown wallet, *Rejection for a broken rule, and
// ErrUnavailable (wrapped) for persistence failures.
func (e *Engine) CommitTransfer(ctx context.Context, senderID, recipientID int64, amount decimal.Decimal) (Transaction, error) {
	if !amount.IsPositive() || money.Check(amount) != nil {
		return Transaction{}, ErrInvalidAmount
	}
	amount = money.Normalize(amount)

	var record Transaction
	err := e.store.Atomic(ctx, []int64{senderID, recipientID}, func(ctx context.Context, tx Tx) error {
		sender, err := tx.Wallet(ctx, senderID)
		if err != nil {
			return fmt.Errorf("sender %d: %w", senderID, err)
		}
		recipient, err := tx.Wallet(ctx, recipientID)
		if err != nil {
			return fmt.Errorf("recipient %d: %w", recipientID, err)
		}

		if rej := Check(sender, recipient, amount); rej != nil {
			return rej
		}

		if err := tx.UpdateBalance(ctx, sender.ID, sender.Balance, sender.Balance.Sub(amount)); err != nil {
			return err
		}
		if err := tx.UpdateBalance(ctx, recipient.ID, recipient.Balance, recipient.Balance.Add(amount)); err != nil {
			return err
		}

		at, err := tx.CommitTime(ctx, e.clock.Now())
		if err != nil {
			return err
		}
		record = Transaction{
			ID:          uuid.NewString(),
			Amount:      amount,
			SenderID:    sender.ID,
			RecipientID: recipient.ID,
			CreatedAt:   at,
		}
		return tx.InsertTransaction(ctx, record)
	})

	if err != nil {
		var rej *Rejection
		switch {
		case errors.As(err, &rej):
			e.rejected(ctx, rej)
			return Transaction{}, rej
		case errors.Is(err, wallet.ErrNotFound):
			return Transaction{}, err
		default:
			e.logger.Error("transfer rolled back",
				slog.Int64("sender_id", senderID),
				slog.Int64("recipient_id", recipientID),
				slog.String("amount", money.Format(amount)),
				slog.Any("error", err),
			)
			return Transaction{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
	}

	e.committed(ctx, record)
	return record, nil
}

func (e *Engine) rejected(ctx context.Context, rej *Rejection) {
	e.logger.Warn("transfer rejected",
		slog.String("reason", string(rej.Reason)),
		slog.Int64("sender_id", rej.SenderID),
		slog.Int64("recipient_id", rej.RecipientID),
		slog.String("amount", money.Format(rej.Amount)),
	)
	e.notify(ctx, notification.Event{
		Kind:        notification.KindTransferRejected,
		SenderID:    rej.SenderID,
		RecipientID: rej.RecipientID,
		Amount:      money.Format(rej.Amount),
		Reason:      string(rej.Reason),
		At:          time.Now().UTC(),
	})
}

func (e *Engine) committed(ctx context.Context, t Transaction) {
	e.logger.Info("transfer committed",
		slog.String("transaction_id", t.ID),
		slog.Int64("sender_id", t.SenderID),
		slog.Int64("recipient_id", t.RecipientID),
		slog.String("amount", money.Format(t.Amount)),
	)
	if e.cache != nil {
		if err := e.cache.Invalidate(ctx, t.SenderID, t.RecipientID); err != nil {
			e.logger.Warn("wallet cache invalidation failed", slog.String("transaction_id", t.ID), slog.Any("error", err))
		}
	}
	e.notify(ctx, notification.Event{
		Kind:          notification.KindTransferCommitted,
		TransactionID: t.ID,
		SenderID:      t.SenderID,
		RecipientID:   t.RecipientID,
		Amount:        money.Format(t.Amount),
		At:            t.CreatedAt,
	})
}

func (e *Engine) notify(ctx context.Context, event notification.Event) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Send(ctx, event); err != nil {
		e.logger.Warn("ledger event not delivered", slog.String("kind", event.Kind), slog.Any("error", err))
	}
}
