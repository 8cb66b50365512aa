package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	rediscache "github.com/koensakamoto/friendbet/internal/cache/redis"
	"github.com/koensakamoto/friendbet/internal/models"
	"github.com/koensakamoto/friendbet/internal/repository"
)

// DeadlineSweepService closes OPEN bets whose betting deadline has passed.
// It polls cooperatively; per-bet CAS transitions make a concurrent sweep or
// bettor-triggered close harmless.
type DeadlineSweepService struct {
	Repo      repository.Repository
	Locks     *rediscache.LockManager
	Logger    *zap.Logger
	BatchSize int
}

func (s *DeadlineSweepService) RunOnce(ctx context.Context) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	unlock, err := s.Locks.Acquire(ctx, "sweep:deadline")
	if err != nil {
		if errors.Is(err, rediscache.ErrLockHeld) {
			return nil
		}
		return err
	}
	defer unlock()

	batch := s.BatchSize
	if batch <= 0 {
		batch = 200
	}
	now := time.Now().UTC()
	bets, err := s.Repo.ListOpenBetsPastDeadline(ctx, now, batch)
	if err != nil {
		return err
	}
	closed := 0
	for _, bet := range bets {
		transitioned, err := s.Repo.TransitionBetStatus(ctx, bet.ID,
			[]models.BetStatus{models.BetStatusOpen},
			repository.BetTransition{To: models.BetStatusClosed})
		if err != nil {
			return err
		}
		if transitioned {
			closed++
		}
	}
	if s.Logger != nil && len(bets) > 0 {
		s.Logger.Info("deadline sweep",
			zap.Int("due", len(bets)),
			zap.Int("closed", closed),
		)
	}
	return nil
}
