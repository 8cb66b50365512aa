package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	rediscache "github.com/koensakamoto/friendbet/internal/cache/redis"
	"github.com/koensakamoto/friendbet/internal/models"
	"github.com/koensakamoto/friendbet/internal/notify"
	"github.com/koensakamoto/friendbet/internal/repository"
)

// ResolutionSweepService watches CLOSED bets past their resolve-by date.
// Consensus bets with a decisive tally are resolved on the spot; everything
// else gets a one-time awaiting-resolution event so the responsible humans
// are nudged.
type ResolutionSweepService struct {
	Repo      repository.Repository
	Engine    *ResolutionEngine
	Notifier  *notify.Notifier
	Locks     *rediscache.LockManager
	Logger    *zap.Logger
	BatchSize int
}

func (s *ResolutionSweepService) RunOnce(ctx context.Context) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	unlock, err := s.Locks.Acquire(ctx, "sweep:resolution")
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
	bets, err := s.Repo.ListBetsDueResolution(ctx, now, batch)
	if err != nil {
		return err
	}
	for _, bet := range bets {
		if bet.Method == models.ResolutionMethodConsensusVote {
			result, err := s.Engine.Resolve(ctx, ResolveParams{BetID: bet.ID})
			if err != nil {
				if errors.Is(err, ErrAlreadyTransitioned) {
					continue
				}
				if s.Logger != nil {
					s.Logger.Warn("sweep consensus resolve failed",
						zap.Uint64("bet_id", bet.ID),
						zap.Error(err),
					)
				}
				continue
			}
			if !result.Pending {
				continue
			}
			// Tally still blocked past the resolve-by date: escalate.
		}
		if err := s.emitAwaiting(ctx, bet); err != nil {
			return err
		}
	}
	return nil
}

// emitAwaiting persists and dispatches BetAwaitingResolution once per bet;
// subsequent sweeps of the same overdue bet stay silent.
func (s *ResolutionSweepService) emitAwaiting(ctx context.Context, bet models.Bet) error {
	events, err := s.Repo.ListBetEvents(ctx, bet.ID, 50)
	if err != nil {
		return err
	}
	for _, ev := range events {
		if ev.EventType == models.EventBetAwaitingResolution {
			return nil
		}
	}
	resolveBy := time.Now().UTC()
	if bet.ResolveBy != nil {
		resolveBy = *bet.ResolveBy
	}
	payload := notify.BetAwaitingResolution{
		BetID:       bet.ID,
		ResolveDate: resolveBy,
		Method:      string(bet.Method),
	}
	if err := insertEvent(ctx, s.Repo, bet.ID, models.EventBetAwaitingResolution, payload); err != nil {
		return err
	}
	if s.Notifier != nil {
		s.Notifier.BetAwaitingResolution(ctx, payload)
	}
	return nil
}
