package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ParticipationStatus string

const (
	ParticipationActive   ParticipationStatus = "ACTIVE"
	ParticipationWon      ParticipationStatus = "WON"
	ParticipationLost     ParticipationStatus = "LOST"
	ParticipationRefunded ParticipationStatus = "REFUNDED"
)

// Participation is one user's stake against a bet. OptionIndex is set for
// option-based bets; prediction bets instead link a Prediction row.
// At most one ACTIVE participation may exist per (bet, user); the bet row
// lock taken during placement enforces it.
type Participation struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement"`
	BetID  uint64 `gorm:"not null;index:idx_participations_bet_user"`
	UserID string `gorm:"type:text;not null;index:idx_participations_bet_user"`

	OptionIndex *int

	Stake decimal.Decimal `gorm:"type:numeric(30,10);not null"`

	// PotentialPayout is the advisory estimate shown at placement. Settlement
	// never reuses it; final payouts are recomputed from the final pool.
	PotentialPayout decimal.Decimal `gorm:"type:numeric(30,10);not null"`

	Payout *decimal.Decimal `gorm:"type:numeric(30,10)"`

	Status ParticipationStatus `gorm:"type:varchar(10);not null;default:'ACTIVE';index"`

	// IdempotencyKey scopes external ledger debits/credits to exactly one
	// application per participation. Internal bookkeeping; never serialized.
	IdempotencyKey string `gorm:"type:varchar(64);not null;uniqueIndex" json:"-"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Participation) TableName() string {
	return "participations"
}
