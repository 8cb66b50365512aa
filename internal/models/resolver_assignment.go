package models

import "time"

// ResolverAssignment delegates resolution (or vote-only) authority on a bet
// to a user. At most one active (non-revoked) assignment may exist per
// (bet, resolver).
type ResolverAssignment struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement"`
	BetID      uint64 `gorm:"not null;index:idx_resolver_assignments_bet_user"`
	ResolverID string `gorm:"type:text;not null;index:idx_resolver_assignments_bet_user"`
	AssignedBy string `gorm:"type:text;not null"`

	// VoteOnly assignments may cast consensus votes but not resolve directly.
	VoteOnly bool `gorm:"not null;default:false"`

	Revoked bool    `gorm:"not null;default:false;index"`
	Reason  *string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (ResolverAssignment) TableName() string {
	return "resolver_assignments"
}

// CanResolveIndependently reports whether the assignment authorizes a direct
// resolution, not just a consensus vote.
func (a *ResolverAssignment) CanResolveIndependently() bool {
	return a != nil && !a.Revoked && !a.VoteOnly
}
