package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ledgerworks/walletledger/internal/money"
	"github.com/ledgerworks/walletledger/internal/wallet"
)

// PostgresStore runs atomic units as PostgreSQL transactions with row locks.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed ledger store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Atomic locks the wallet rows with SELECT ... ORDER BY id FOR UPDATE so that
// concurrent units always acquire rows in ascending id order.
func (s *PostgresStore) Atomic(ctx context.Context, walletIDs []int64, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	ids := lockOrder(walletIDs)
	rows, err := tx.Query(ctx, `SELECT id, user_id, currency, balance::text, created_at
        FROM wallets WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return fmt.Errorf("lock wallets: %w", err)
	}
	locked := make(map[int64]wallet.Wallet, len(ids))
	for rows.Next() {
		w, err := wallet.ScanWallet(rows)
		if err != nil {
			rows.Close()
			return fmt.Errorf("scan wallet: %w", err)
		}
		locked[w.ID] = w
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("lock wallets: %w", err)
	}

	if err := fn(ctx, &pgTx{tx: tx, locked: locked}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type pgTx struct {
	tx     pgx.Tx
	locked map[int64]wallet.Wallet
}

// CommitTime raises local to the newest record of the locked wallets, so each
// wallet's history stays ordered even when instances' clocks disagree. The
// rows are locked, so no other unit can add a later record for them first.
func (t *pgTx) CommitTime(ctx context.Context, local time.Time) (time.Time, error) {
	ids := make([]int64, 0, len(t.locked))
	for id := range t.locked {
		ids = append(ids, id)
	}
	var at time.Time
	err := t.tx.QueryRow(ctx, `SELECT GREATEST($1::timestamptz, COALESCE(MAX(created_at), $1::timestamptz))
        FROM transactions WHERE sender_id = ANY($2) OR recipient_id = ANY($2)`,
		local.UTC().Truncate(time.Microsecond), ids).Scan(&at)
	if err != nil {
		return time.Time{}, fmt.Errorf("commit time: %w", err)
	}
	return at.UTC(), nil
}

func (t *pgTx) Wallet(_ context.Context, id int64) (wallet.Wallet, error) {
	w, ok := t.locked[id]
	if !ok {
		return wallet.Wallet{}, wallet.ErrNotFound
	}
	return w, nil
}

func (t *pgTx) UpdateBalance(ctx context.Context, id int64, expected, next decimal.Decimal) error {
	if _, ok := t.locked[id]; !ok {
		return fmt.Errorf("wallet %d is not part of this unit", id)
	}
	cmd, err := t.tx.Exec(ctx, `UPDATE wallets SET balance = $1::numeric WHERE id = $2 AND balance = $3::numeric`,
		money.Format(next), id, money.Format(expected))
	if err != nil {
		return fmt.Errorf("update wallet %d: %w", id, err)
	}
	if cmd.RowsAffected() == 0 {
		return wallet.ErrBalanceConflict
	}
	w := t.locked[id]
	w.Balance = next
	t.locked[id] = w
	return nil
}

func (t *pgTx) InsertTransaction(ctx context.Context, rec Transaction) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO transactions (id, amount, sender_id, recipient_id, created_at)
        VALUES ($1, $2::numeric, $3, $4, $5)`,
		rec.ID, money.Format(rec.Amount), rec.SenderID, rec.RecipientID, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}
