package notify

import (
	"time"

	"github.com/shopspring/decimal"
)

// BetResolved is published after a bet settles.
type BetResolved struct {
	BetID          uint64                     `json:"bet_id"`
	Winners        []string                   `json:"winners"`
	Losers         []string                   `json:"losers"`
	PayoutsByUser  map[string]decimal.Decimal `json:"payouts_by_user"`
	ResolutionText string                     `json:"resolution_text"`
	ResolvedAt     time.Time                  `json:"resolved_at"`
}

// BetCancelled is published after a bet is cancelled and refunded.
type BetCancelled struct {
	BetID         uint64                     `json:"bet_id"`
	RefundsByUser map[string]decimal.Decimal `json:"refunds_by_user"`
	Reason        string                     `json:"reason"`
}

// BetAwaitingResolution is published when a closed bet passes its resolve-by
// date without an outcome.
type BetAwaitingResolution struct {
	BetID       uint64    `json:"bet_id"`
	ResolveDate time.Time `json:"resolve_date"`
	Method      string    `json:"method"`
}
