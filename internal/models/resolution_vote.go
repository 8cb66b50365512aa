package models

import "time"

// ResolutionVote is one voter's outcome vote on a consensus bet. Re-voting
// revokes the prior vote and appends a new row; rows are never mutated in
// place, preserving the audit trail.
type ResolutionVote struct {
	ID      uint64 `gorm:"primaryKey;autoIncrement"`
	BetID   uint64 `gorm:"not null;index:idx_resolution_votes_bet_voter"`
	VoterID string `gorm:"type:text;not null;index:idx_resolution_votes_bet_voter"`

	// OptionIndex is the 1-based option the voter chose.
	OptionIndex int `gorm:"not null"`

	Reasoning string `gorm:"type:text"`

	Revoked bool `gorm:"not null;default:false;index"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (ResolutionVote) TableName() string {
	return "resolution_votes"
}
