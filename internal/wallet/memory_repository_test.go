package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerworks/walletledger/internal/money"
)

func seed(t *testing.T, repo *MemoryRepository, balance string) Wallet {
	t.Helper()
	w, err := repo.Create(context.Background(), Wallet{UserID: 1, Currency: money.RUB, Balance: decimal.RequireFromString(balance)})
	require.NoError(t, err)
	return w
}

func TestMemoryRepositoryAssignsAscendingIDs(t *testing.T) {
	repo := NewMemoryRepository()
	a := seed(t, repo, "1")
	b := seed(t, repo, "2")
	assert.Less(t, a.ID, b.ID)
}

func TestCommitBalancesAllOrNothing(t *testing.T) {
	repo := NewMemoryRepository()
	a := seed(t, repo, "100")
	b := seed(t, repo, "200")
	ctx := context.Background()

	err := repo.CommitBalances([]BalanceUpdate{
		{WalletID: a.ID, Expected: a.Balance, Next: decimal.NewFromInt(50)},
		{WalletID: b.ID, Expected: decimal.NewFromInt(1), Next: decimal.NewFromInt(250)},
	}, nil)
	require.ErrorIs(t, err, ErrBalanceConflict)

	got, _ := repo.Get(ctx, a.ID)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(100)))
}

func TestCommitBalancesRestoresOnRecordFailure(t *testing.T) {
	repo := NewMemoryRepository()
	a := seed(t, repo, "100")
	b := seed(t, repo, "200")
	ctx := context.Background()
	boom := errors.New("boom")

	err := repo.CommitBalances([]BalanceUpdate{
		{WalletID: a.ID, Expected: a.Balance, Next: decimal.NewFromInt(50)},
		{WalletID: b.ID, Expected: b.Balance, Next: decimal.NewFromInt(250)},
	}, func() error { return boom })
	require.ErrorIs(t, err, boom)

	gotA, _ := repo.Get(ctx, a.ID)
	gotB, _ := repo.Get(ctx, b.ID)
	assert.True(t, gotA.Balance.Equal(decimal.NewFromInt(100)))
	assert.True(t, gotB.Balance.Equal(decimal.NewFromInt(200)))
}

func TestCommitBalancesUnknownWallet(t *testing.T) {
	repo := NewMemoryRepository()
	err := repo.CommitBalances([]BalanceUpdate{{WalletID: 7}}, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}
