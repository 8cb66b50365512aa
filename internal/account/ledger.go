// Package account defines the engine's view of the external balance ledger.
// The ledger service itself lives outside this system; the engine only debits
// stakes at placement and credits payouts at settlement.
package account

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var ErrInsufficientFunds = errors.New("account: insufficient funds")

// Ledger debits and credits user balances. Both operations are idempotent
// per key: re-applying a key the ledger has already seen is a no-op, which
// lets settlement retry safely without double-paying.
type Ledger interface {
	Debit(ctx context.Context, userID string, amount decimal.Decimal, key string) error
	Credit(ctx context.Context, userID string, amount decimal.Decimal, key string) error
}
