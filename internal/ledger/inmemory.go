package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerworks/walletledger/internal/wallet"
)

// InMemory is a process-local Store over a wallet.MemoryRepository.
type InMemory struct {
	wallets *wallet.MemoryRepository

	locksMu sync.Mutex
	locks   map[int64]*sync.Mutex

	logMu        sync.RWMutex
	transactions []Transaction
}

// NewInMemory creates a concurrency-safe in-memory store.
func NewInMemory(wallets *wallet.MemoryRepository) *InMemory {
	return &InMemory{wallets: wallets, locks: make(map[int64]*sync.Mutex)}
}

func (s *InMemory) walletLock(id int64) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	mu, ok := s.locks[id]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[id] = mu
	}
	return mu
}

// Atomic locks the wallets in ascending id order, runs fn against staged
// state, and applies the staged writes in one critical section.
func (s *InMemory) Atomic(ctx context.Context, walletIDs []int64, fn func(ctx context.Context, tx Tx) error) error {
	ids := lockOrder(walletIDs)
	for _, id := range ids {
		mu := s.walletLock(id)
		mu.Lock()
		defer mu.Unlock()
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memoryTx{store: s, locked: make(map[int64]bool, len(ids)), staged: make(map[int64]decimal.Decimal)}
	for _, id := range ids {
		tx.locked[id] = true
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if len(tx.updates) == 0 && len(tx.inserts) == 0 {
		return nil
	}

	return s.wallets.CommitBalances(tx.updates, func() error {
		s.logMu.Lock()
		defer s.logMu.Unlock()
		s.transactions = append(s.transactions, tx.inserts...)
		return nil
	})
}

// Transactions returns the records that reference walletID as sender or
// recipient, oldest first.
func (s *InMemory) Transactions(walletID int64) []Transaction {
	s.logMu.RLock()
	defer s.logMu.RUnlock()
	var out []Transaction
	for _, t := range s.transactions {
		if t.SenderID == walletID || t.RecipientID == walletID {
			out = append(out, t)
		}
	}
	return out
}

// Len returns the total number of records.
func (s *InMemory) Len() int {
	s.logMu.RLock()
	defer s.logMu.RUnlock()
	return len(s.transactions)
}

type memoryTx struct {
	store   *InMemory
	locked  map[int64]bool
	staged  map[int64]decimal.Decimal
	updates []wallet.BalanceUpdate
	inserts []Transaction
}

func (t *memoryTx) Wallet(ctx context.Context, id int64) (wallet.Wallet, error) {
	if !t.locked[id] {
		return wallet.Wallet{}, fmt.Errorf("wallet %d is not part of this unit", id)
	}
	w, err := t.store.wallets.Get(ctx, id)
	if err != nil {
		return wallet.Wallet{}, err
	}
	if b, ok := t.staged[id]; ok {
		w.Balance = b
	}
	return w, nil
}

func (t *memoryTx) UpdateBalance(_ context.Context, id int64, expected, next decimal.Decimal) error {
	if !t.locked[id] {
		return fmt.Errorf("wallet %d is not part of this unit", id)
	}
	if next.IsNegative() {
		return fmt.Errorf("wallet %d: balance would become negative", id)
	}
	if b, ok := t.staged[id]; ok && !b.Equal(expected) {
		return wallet.ErrBalanceConflict
	}
	t.staged[id] = next
	t.updates = append(t.updates, wallet.BalanceUpdate{WalletID: id, Expected: expected, Next: next})
	return nil
}

// CommitTime returns local. The store lives in one process, so the engine
// clock already orders every record it holds.
func (t *memoryTx) CommitTime(_ context.Context, local time.Time) (time.Time, error) {
	return local, nil
}

func (t *memoryTx) InsertTransaction(_ context.Context, rec Transaction) error {
	t.inserts = append(t.inserts, rec)
	return nil
}

// lockOrder returns the distinct ids in ascending order.
func lockOrder(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
