package wallet

import (
	"context"
	"sync"
)

// MemoryRepository keeps wallets in process memory. It also exposes the
// batched compare-and-persist used by the in-memory ledger store.
type MemoryRepository struct {
	mu      sync.RWMutex
	nextID  int64
	storage map[int64]Wallet
}

// NewMemoryRepository constructs an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{storage: make(map[int64]Wallet)}
}

func (r *MemoryRepository) Create(_ context.Context, wallet Wallet) (Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	wallet.ID = r.nextID
	r.storage[wallet.ID] = wallet
	return wallet, nil
}

func (r *MemoryRepository) Get(_ context.Context, id int64) (Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	wallet, ok := r.storage[id]
	if !ok {
		return Wallet{}, ErrNotFound
	}
	return wallet, nil
}

// CommitBalances applies every update or none. Each update's Expected value
// must equal the stored balance. record runs inside the same critical section
// after the balances are written; if it fails the balances are restored.
func (r *MemoryRepository) CommitBalances(updates []BalanceUpdate, record func() error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range updates {
		w, ok := r.storage[u.WalletID]
		if !ok {
			return ErrNotFound
		}
		if !w.Balance.Equal(u.Expected) {
			return ErrBalanceConflict
		}
	}

	previous := make(map[int64]Wallet, len(updates))
	for _, u := range updates {
		w := r.storage[u.WalletID]
		if _, seen := previous[u.WalletID]; !seen {
			previous[u.WalletID] = w
		}
		w.Balance = u.Next
		r.storage[u.WalletID] = w
	}

	if record != nil {
		if err := record(); err != nil {
			for id, w := range previous {
				r.storage[id] = w
			}
			return err
		}
	}
	return nil
}
