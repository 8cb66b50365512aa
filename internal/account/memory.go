package account

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

// MemoryLedger is an in-process Ledger used by tests and single-node
// deployments that have not wired a real balance service.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[string]decimal.Decimal
	applied  map[string]struct{}

	// AllowOverdraft disables the balance check on debit; useful when the
	// authoritative balance lives elsewhere.
	AllowOverdraft bool
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		balances: map[string]decimal.Decimal{},
		applied:  map[string]struct{}{},
	}
}

// Deposit seeds a balance outside the bet flow.
func (l *MemoryLedger) Deposit(userID string, amount decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[userID] = l.balances[userID].Add(amount)
}

// Balance returns the current balance for a user.
func (l *MemoryLedger) Balance(userID string) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[userID]
}

func (l *MemoryLedger) Debit(ctx context.Context, userID string, amount decimal.Decimal, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.applied[key]; ok {
		return nil
	}
	if !l.AllowOverdraft && l.balances[userID].LessThan(amount) {
		return ErrInsufficientFunds
	}
	l.balances[userID] = l.balances[userID].Sub(amount)
	l.applied[key] = struct{}{}
	return nil
}

func (l *MemoryLedger) Credit(ctx context.Context, userID string, amount decimal.Decimal, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.applied[key]; ok {
		return nil
	}
	l.balances[userID] = l.balances[userID].Add(amount)
	l.applied[key] = struct{}{}
	return nil
}

var _ Ledger = (*MemoryLedger)(nil)
