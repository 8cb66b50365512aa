package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type BetType string

const (
	BetTypeBinary         BetType = "BINARY"
	BetTypeMultipleChoice BetType = "MULTIPLE_CHOICE"
	BetTypePrediction     BetType = "PREDICTION"
)

type ResolutionMethod string

const (
	ResolutionMethodCreator          ResolutionMethod = "CREATOR"
	ResolutionMethodAssignedResolver ResolutionMethod = "ASSIGNED_RESOLVER"
	ResolutionMethodConsensusVote    ResolutionMethod = "CONSENSUS_VOTE"
)

type BetStatus string

const (
	BetStatusOpen      BetStatus = "OPEN"
	BetStatusClosed    BetStatus = "CLOSED"
	BetStatusResolved  BetStatus = "RESOLVED"
	BetStatusCancelled BetStatus = "CANCELLED"
)

// MaxOptions is the cap on fixed option labels for option-based bets.
const MaxOptions = 4

// Bet is the proposition ledger row. TotalPool and ParticipantCount are
// denormalized over active/settled participations and are only ever updated
// inside the same transaction as the participation write. Per-option pools
// are computed on read (see repository.OptionAggregate).
type Bet struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	GroupID   string `gorm:"type:text;index;not null"`
	CreatorID string `gorm:"type:text;index;not null"`

	Question string           `gorm:"type:text;not null"`
	Type     BetType          `gorm:"type:varchar(20);not null"`
	Method   ResolutionMethod `gorm:"type:varchar(20);not null"`
	Status   BetStatus        `gorm:"type:varchar(12);not null;default:'OPEN';index"`

	// OptionLabels is a JSON array of 1-4 labels; empty for PREDICTION bets.
	OptionLabels datatypes.JSON `gorm:"type:jsonb"`

	// Outcome is the 1-based winning option index; non-nil iff RESOLVED and
	// the bet is option-based.
	Outcome *int

	// ResolvedValue is the actual value of a PREDICTION bet, set at resolution.
	ResolvedValue *string `gorm:"type:text"`

	BettingDeadline time.Time  `gorm:"type:timestamptz;not null;index"`
	ResolveBy       *time.Time `gorm:"type:timestamptz;index"`

	MinStake decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	MaxStake decimal.Decimal `gorm:"type:numeric(30,10);not null"`

	TotalPool        decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`
	ParticipantCount int             `gorm:"not null;default:0"`

	MinVotesRequired int  `gorm:"not null;default:0"`
	AllowCreatorVote bool `gorm:"not null;default:false"`

	ResolvedAt     *time.Time `gorm:"type:timestamptz"`
	ResolutionNote *string    `gorm:"type:text"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Bet) TableName() string {
	return "bets"
}

// Options decodes the JSON option labels. Returns nil for prediction bets.
func (b *Bet) Options() []string {
	if b == nil || len(b.OptionLabels) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(b.OptionLabels, &out); err != nil {
		return nil
	}
	return out
}

// SetOptions encodes option labels as the JSON column value.
func (b *Bet) SetOptions(labels []string) error {
	raw, err := json.Marshal(labels)
	if err != nil {
		return err
	}
	b.OptionLabels = datatypes.JSON(raw)
	return nil
}

// ValidOption reports whether idx is a valid 1-based option index.
func (b *Bet) ValidOption(idx int) bool {
	n := len(b.Options())
	return idx >= 1 && idx <= n
}

// Terminal reports whether the bet can no longer transition.
func (b *Bet) Terminal() bool {
	return b.Status == BetStatusResolved || b.Status == BetStatusCancelled
}
