package wallet

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerworks/walletledger/internal/money"
)

// Wallet holds a balance in a single currency for one user.
type Wallet struct {
	ID        int64
	UserID    int64
	Currency  money.Currency
	Balance   decimal.Decimal
	CreatedAt time.Time
}

// Details is a wallet together with its owner's display name.
type Details struct {
	Wallet
	Owner string
}

// BalanceUpdate is a compare-and-persist instruction for one wallet.
type BalanceUpdate struct {
	WalletID int64
	Expected decimal.Decimal
	Next     decimal.Decimal
}
