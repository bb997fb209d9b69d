package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerworks/walletledger/internal/money"
	"github.com/ledgerworks/walletledger/internal/user"
)

// ErrNegativeBalance is returned when a wallet would be opened below zero.
var ErrNegativeBalance = errors.New("initial balance must not be negative")

// Users is the owner lookup the wallet service depends on.
type Users interface {
	Get(ctx context.Context, id int64) (user.User, error)
}

// Service exposes wallet creation and display reads.
type Service struct {
	repo   Repository
	users  Users
	cache  Cache
	logger *slog.Logger
}

// NewService builds a wallet service instance. cache may be nil.
func NewService(repo Repository, users Users, cache Cache, logger *slog.Logger) *Service {
	return &Service{repo: repo, users: users, cache: cache, logger: logger}
}

// CreateInput captures data required to create a wallet.
type CreateInput struct {
	UserID   int64
	Currency money.Currency
	Balance  decimal.Decimal
}

// Create opens a wallet for an existing user. Nothing is persisted when the
// owner does not exist.
func (s *Service) Create(ctx context.Context, input CreateInput) (Details, error) {
	currency, err := money.ParseCurrency(string(input.Currency))
	if err != nil {
		return Details{}, err
	}
	if input.Balance.IsNegative() {
		return Details{}, ErrNegativeBalance
	}
	if err := money.Check(input.Balance); err != nil {
		return Details{}, err
	}

	owner, err := s.users.Get(ctx, input.UserID)
	if err != nil {
		return Details{}, err
	}

	wallet, err := s.repo.Create(ctx, Wallet{
		UserID:    owner.ID,
		Currency:  currency,
		Balance:   money.Normalize(input.Balance),
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return Details{}, err
	}

	s.logger.Info("wallet created",
		slog.Int64("wallet_id", wallet.ID),
		slog.Int64("user_id", wallet.UserID),
		slog.String("currency", string(wallet.Currency)),
	)
	return Details{Wallet: wallet, Owner: owner.Username}, nil
}

// Get returns wallet state for display. The balance may be served from the
// cache; a snapshot read concurrently with a commit is not stored.
func (s *Service) Get(ctx context.Context, id int64) (Wallet, error) {
	var (
		ver      Version
		cacheErr error
	)
	if s.cache != nil {
		w, v, ok, err := s.cache.Get(ctx, id)
		switch {
		case err != nil:
			cacheErr = err
			s.logger.Warn("wallet cache read failed", slog.Int64("wallet_id", id), slog.Any("error", err))
		case ok:
			return w, nil
		default:
			ver = v
		}
	}

	w, err := s.repo.Get(ctx, id)
	if err != nil {
		return Wallet{}, fmt.Errorf("wallet %d: %w", id, err)
	}

	if s.cache != nil && cacheErr == nil {
		if err := s.cache.Set(ctx, w, ver); err != nil {
			s.logger.Warn("wallet cache write failed", slog.Int64("wallet_id", id), slog.Any("error", err))
		}
	}
	return w, nil
}
