package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ledgerworks/walletledger/internal/money"
	"github.com/ledgerworks/walletledger/internal/user"
)

var (
	// ErrNotFound is returned when no wallet has the requested id.
	ErrNotFound = errors.New("wallet not found")
	// ErrBalanceConflict is returned by compare-and-persist when the stored
	// balance no longer matches the expected one.
	ErrBalanceConflict = errors.New("wallet balance changed concurrently")
)

// Repository persists wallets.
type Repository interface {
	Create(ctx context.Context, wallet Wallet) (Wallet, error)
	Get(ctx context.Context, id int64) (Wallet, error)
}

// PostgresRepository stores wallets in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a wallet record and returns it with its assigned id.
func (r *PostgresRepository) Create(ctx context.Context, wallet Wallet) (Wallet, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO wallets (user_id, currency, balance, created_at)
        VALUES ($1, $2, $3::numeric, $4) RETURNING id`,
		wallet.UserID, string(wallet.Currency), money.Format(wallet.Balance), wallet.CreatedAt.UTC())
	if err := row.Scan(&wallet.ID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" { // foreign_key_violation
			return Wallet{}, user.ErrNotFound
		}
		return Wallet{}, fmt.Errorf("insert wallet: %w", err)
	}
	return wallet, nil
}

// Get fetches a wallet by identifier.
func (r *PostgresRepository) Get(ctx context.Context, id int64) (Wallet, error) {
	row := r.db.QueryRow(ctx, `SELECT id, user_id, currency, balance::text, created_at
        FROM wallets WHERE id = $1`, id)
	w, err := ScanWallet(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrNotFound
		}
		return Wallet{}, fmt.Errorf("select wallet: %w", err)
	}
	return w, nil
}

// ScanWallet reads a row of (id, user_id, currency, balance::text, created_at).
func ScanWallet(row pgx.Row) (Wallet, error) {
	var (
		w         Wallet
		currency  string
		balance   string
		createdAt time.Time
	)
	if err := row.Scan(&w.ID, &w.UserID, &currency, &balance, &createdAt); err != nil {
		return Wallet{}, err
	}
	amount, err := decimal.NewFromString(balance)
	if err != nil {
		return Wallet{}, fmt.Errorf("parse balance of wallet %d: %w", w.ID, err)
	}
	w.Currency = money.Currency(currency)
	w.Balance = amount
	w.CreatedAt = createdAt.UTC()
	return w, nil
}
