// Package payout computes final settlement amounts for a bet's pool. All
// arithmetic is decimal; callers pass stakes already normalized to two
// fractional digits.
package payout

import (
	"github.com/shopspring/decimal"
)

// Entry is one active participation entering settlement.
type Entry struct {
	ParticipationID uint64
	UserID          string
	Stake           decimal.Decimal
}

// Award is the settlement outcome for a single entry. When the enclosing
// Outcome is a refund, Amount equals the entry's own stake and Won is false.
type Award struct {
	Entry  Entry
	Won    bool
	Amount decimal.Decimal
}

// Outcome is the full settlement of a pool: one award per entry, in input
// order.
type Outcome struct {
	// Refunded is set when no entry matched the winner predicate; every
	// entry then gets its stake back in full.
	Refunded bool
	Awards   []Award
}

// Split distributes the pool across entries. Winners receive their stake
// plus a stake-proportional share of the losing pool, rounded half-up to two
// decimals; losers receive zero. The rounding residual is assigned to the
// winner with the largest stake (lowest participation ID on ties) so the
// distributed total equals the pool exactly.
func Split(entries []Entry, isWinner func(Entry) bool) Outcome {
	if len(entries) == 0 {
		return Outcome{}
	}

	total := decimal.Zero
	winningPool := decimal.Zero
	winners := 0
	for _, e := range entries {
		total = total.Add(e.Stake)
		if isWinner(e) {
			winningPool = winningPool.Add(e.Stake)
			winners++
		}
	}

	if winners == 0 {
		out := Outcome{Refunded: true, Awards: make([]Award, 0, len(entries))}
		for _, e := range entries {
			out.Awards = append(out.Awards, Award{Entry: e, Amount: e.Stake})
		}
		return out
	}

	losingPool := total.Sub(winningPool)
	out := Outcome{Awards: make([]Award, 0, len(entries))}
	distributed := decimal.Zero
	adjustIdx := -1
	for i, e := range entries {
		if !isWinner(e) {
			out.Awards = append(out.Awards, Award{Entry: e, Amount: decimal.Zero})
			continue
		}
		amount := e.Stake.Add(e.Stake.Div(winningPool).Mul(losingPool)).Round(2)
		out.Awards = append(out.Awards, Award{Entry: e, Won: true, Amount: amount})
		distributed = distributed.Add(amount)
		if adjustIdx < 0 || betterResidualTarget(e, out.Awards[adjustIdx].Entry) {
			adjustIdx = i
		}
	}

	if residual := total.Sub(distributed); !residual.IsZero() && adjustIdx >= 0 {
		out.Awards[adjustIdx].Amount = out.Awards[adjustIdx].Amount.Add(residual)
	}
	return out
}

func betterResidualTarget(candidate, current Entry) bool {
	switch candidate.Stake.Cmp(current.Stake) {
	case 1:
		return true
	case -1:
		return false
	default:
		return candidate.ParticipationID < current.ParticipationID
	}
}

// Potential is the advisory payout estimate shown at placement: the stake
// plus its proportional share of the current losing pool, computed after the
// new stake is folded into the winning side. Display-only; settlement always
// recomputes from the final pool.
func Potential(stake, winningPool, totalPool decimal.Decimal) decimal.Decimal {
	if winningPool.LessThanOrEqual(decimal.Zero) {
		return stake
	}
	losingPool := totalPool.Sub(winningPool)
	if losingPool.LessThan(decimal.Zero) {
		losingPool = decimal.Zero
	}
	return stake.Add(stake.Div(winningPool).Mul(losingPool)).Round(2)
}
