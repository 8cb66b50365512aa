package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	EventBetResolved           = "bet_resolved"
	EventBetCancelled          = "bet_cancelled"
	EventBetAwaitingResolution = "bet_awaiting_resolution"
)

// BetEvent is the persisted record of a lifecycle event, written in the same
// transaction as the state change it describes and dispatched to notifiers
// afterwards.
type BetEvent struct {
	ID        uint64         `gorm:"primaryKey;autoIncrement"`
	BetID     uint64         `gorm:"not null;index"`
	EventType string         `gorm:"type:varchar(40);not null;index"`
	Payload   datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"type:timestamptz;autoCreateTime"`
}

func (BetEvent) TableName() string {
	return "bet_events"
}
