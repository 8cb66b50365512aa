package db

import (
	"github.com/koensakamoto/friendbet/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Bet{},
		&models.Participation{},
		&models.Prediction{},
		&models.ResolverAssignment{},
		&models.ResolutionVote{},
		&models.BetEvent{},
	)
}
