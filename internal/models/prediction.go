package models

import (
	"strings"
	"time"
)

// Prediction holds the free-text predicted value for a predict-the-value
// participation. ActualValue and Correct are set at resolution.
type Prediction struct {
	ID              uint64 `gorm:"primaryKey;autoIncrement"`
	BetID           uint64 `gorm:"not null;index"`
	ParticipationID uint64 `gorm:"not null;uniqueIndex"`

	PredictedValue string  `gorm:"type:text;not null"`
	ActualValue    *string `gorm:"type:text"`
	Correct        *bool

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Prediction) TableName() string {
	return "predictions"
}

// NormalizePrediction is the canonical form used for correctness comparison:
// surrounding whitespace stripped, case folded.
func NormalizePrediction(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// Matches reports whether the predicted value equals actual under
// normalization.
func (p *Prediction) Matches(actual string) bool {
	if p == nil {
		return false
	}
	return NormalizePrediction(p.PredictedValue) == NormalizePrediction(actual)
}
