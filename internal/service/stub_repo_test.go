package service

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/koensakamoto/friendbet/internal/models"
	"github.com/koensakamoto/friendbet/internal/repository"
)

// stubRepo is a test-only in-memory implementation of repository.Repository.
// InTx snapshots state and restores it when fn fails, mirroring the
// all-or-nothing behavior of the real transaction.
type stubRepo struct {
	bets           map[uint64]*models.Bet
	participations map[uint64]*models.Participation
	predictions    map[uint64]*models.Prediction
	assignments    map[uint64]*models.ResolverAssignment
	votes          map[uint64]*models.ResolutionVote
	events         []*models.BetEvent
	nextID         uint64

	// settleFailAfter makes SettleParticipation fail once the given number of
	// calls succeeded; used to prove settlement aborts atomically.
	settleFailAfter int
	settleCalls     int
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		bets:            map[uint64]*models.Bet{},
		participations:  map[uint64]*models.Participation{},
		predictions:     map[uint64]*models.Prediction{},
		assignments:     map[uint64]*models.ResolverAssignment{},
		votes:           map[uint64]*models.ResolutionVote{},
		settleFailAfter: -1,
	}
}

func (s *stubRepo) id() uint64 {
	s.nextID++
	return s.nextID
}

func (s *stubRepo) snapshot() *stubRepo {
	c := newStubRepo()
	c.nextID = s.nextID
	c.settleFailAfter = s.settleFailAfter
	c.settleCalls = s.settleCalls
	for k, v := range s.bets {
		cp := *v
		c.bets[k] = &cp
	}
	for k, v := range s.participations {
		cp := *v
		c.participations[k] = &cp
	}
	for k, v := range s.predictions {
		cp := *v
		c.predictions[k] = &cp
	}
	for k, v := range s.assignments {
		cp := *v
		c.assignments[k] = &cp
	}
	for k, v := range s.votes {
		cp := *v
		c.votes[k] = &cp
	}
	c.events = append(c.events, s.events...)
	return c
}

func (s *stubRepo) restore(from *stubRepo) {
	s.bets = from.bets
	s.participations = from.participations
	s.predictions = from.predictions
	s.assignments = from.assignments
	s.votes = from.votes
	s.events = from.events
	s.nextID = from.nextID
}

func (s *stubRepo) InTx(ctx context.Context, fn func(tx repository.Repository) error) error {
	saved := s.snapshot()
	if err := fn(s); err != nil {
		s.restore(saved)
		return err
	}
	return nil
}

func (s *stubRepo) CreateBet(ctx context.Context, item *models.Bet) error {
	item.ID = s.id()
	cp := *item
	s.bets[item.ID] = &cp
	return nil
}

func (s *stubRepo) GetBetByID(ctx context.Context, id uint64) (*models.Bet, error) {
	b, ok := s.bets[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (s *stubRepo) GetBetByIDForUpdate(ctx context.Context, id uint64) (*models.Bet, error) {
	return s.GetBetByID(ctx, id)
}

func (s *stubRepo) ListBets(ctx context.Context, params repository.ListBetsParams) ([]models.Bet, error) {
	var out []models.Bet
	for _, b := range s.bets {
		if params.Status != nil && b.Status != *params.Status {
			continue
		}
		out = append(out, *b)
	}
	return out, nil
}

func (s *stubRepo) CountBets(ctx context.Context, params repository.ListBetsParams) (int64, error) {
	items, _ := s.ListBets(ctx, params)
	return int64(len(items)), nil
}

func (s *stubRepo) TransitionBetStatus(ctx context.Context, id uint64, from []models.BetStatus, tr repository.BetTransition) (bool, error) {
	b, ok := s.bets[id]
	if !ok {
		return false, nil
	}
	matched := false
	for _, f := range from {
		if b.Status == f {
			matched = true
			break
		}
	}
	if !matched {
		return false, nil
	}
	b.Status = tr.To
	if tr.Outcome != nil {
		v := *tr.Outcome
		b.Outcome = &v
	}
	if tr.ResolvedValue != nil {
		v := *tr.ResolvedValue
		b.ResolvedValue = &v
	}
	if tr.ResolvedAt != nil {
		v := *tr.ResolvedAt
		b.ResolvedAt = &v
	}
	if tr.Note != nil {
		v := *tr.Note
		b.ResolutionNote = &v
	}
	return true, nil
}

func (s *stubRepo) AddToBetPool(ctx context.Context, id uint64, stake decimal.Decimal) error {
	b, ok := s.bets[id]
	if !ok {
		return nil
	}
	b.TotalPool = b.TotalPool.Add(stake)
	b.ParticipantCount++
	return nil
}

func (s *stubRepo) ListOpenBetsPastDeadline(ctx context.Context, now time.Time, limit int) ([]models.Bet, error) {
	var out []models.Bet
	for _, b := range s.bets {
		if b.Status == models.BetStatusOpen && !b.BettingDeadline.After(now) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (s *stubRepo) ListBetsDueResolution(ctx context.Context, now time.Time, limit int) ([]models.Bet, error) {
	var out []models.Bet
	for _, b := range s.bets {
		if b.Status == models.BetStatusClosed && b.ResolveBy != nil && !b.ResolveBy.After(now) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (s *stubRepo) InsertParticipation(ctx context.Context, item *models.Participation) error {
	item.ID = s.id()
	cp := *item
	s.participations[item.ID] = &cp
	return nil
}

func (s *stubRepo) GetActiveParticipation(ctx context.Context, betID uint64, userID string) (*models.Participation, error) {
	for _, p := range s.participations {
		if p.BetID == betID && p.UserID == userID && p.Status == models.ParticipationActive {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) ListParticipationsByBet(ctx context.Context, betID uint64, status *models.ParticipationStatus) ([]models.Participation, error) {
	var out []models.Participation
	for id := uint64(1); id <= s.nextID; id++ {
		p, ok := s.participations[id]
		if !ok || p.BetID != betID {
			continue
		}
		if status != nil && p.Status != *status {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

func (s *stubRepo) SettleParticipation(ctx context.Context, id uint64, status models.ParticipationStatus, amount decimal.Decimal) error {
	if s.settleFailAfter >= 0 && s.settleCalls >= s.settleFailAfter {
		return errors.New("stub: settle failure injected")
	}
	s.settleCalls++
	p, ok := s.participations[id]
	if !ok || p.Status != models.ParticipationActive {
		return nil
	}
	p.Status = status
	v := amount
	p.Payout = &v
	return nil
}

func (s *stubRepo) ListOptionAggregates(ctx context.Context, betID uint64) ([]repository.OptionAggregate, error) {
	byIdx := map[int]*repository.OptionAggregate{}
	for _, p := range s.participations {
		if p.BetID != betID || p.OptionIndex == nil {
			continue
		}
		agg, ok := byIdx[*p.OptionIndex]
		if !ok {
			agg = &repository.OptionAggregate{OptionIndex: *p.OptionIndex, Pool: decimal.Zero}
			byIdx[*p.OptionIndex] = agg
		}
		agg.Pool = agg.Pool.Add(p.Stake)
		agg.Participants++
	}
	var out []repository.OptionAggregate
	for _, agg := range byIdx {
		out = append(out, *agg)
	}
	return out, nil
}

func (s *stubRepo) InsertPrediction(ctx context.Context, item *models.Prediction) error {
	item.ID = s.id()
	cp := *item
	s.predictions[item.ID] = &cp
	return nil
}

func (s *stubRepo) ListPredictionsByBet(ctx context.Context, betID uint64) ([]models.Prediction, error) {
	var out []models.Prediction
	for id := uint64(1); id <= s.nextID; id++ {
		p, ok := s.predictions[id]
		if ok && p.BetID == betID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *stubRepo) ResolvePrediction(ctx context.Context, id uint64, actual string, correct bool) error {
	p, ok := s.predictions[id]
	if !ok {
		return nil
	}
	p.ActualValue = &actual
	p.Correct = &correct
	return nil
}

func (s *stubRepo) InsertResolverAssignment(ctx context.Context, item *models.ResolverAssignment) error {
	item.ID = s.id()
	cp := *item
	s.assignments[item.ID] = &cp
	return nil
}

func (s *stubRepo) GetActiveResolverAssignment(ctx context.Context, betID uint64, resolverID string) (*models.ResolverAssignment, error) {
	for _, a := range s.assignments {
		if a.BetID == betID && a.ResolverID == resolverID && !a.Revoked {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) ListResolverAssignmentsByBet(ctx context.Context, betID uint64, includeRevoked bool) ([]models.ResolverAssignment, error) {
	var out []models.ResolverAssignment
	for _, a := range s.assignments {
		if a.BetID != betID {
			continue
		}
		if a.Revoked && !includeRevoked {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (s *stubRepo) RevokeResolverAssignment(ctx context.Context, id uint64) (bool, error) {
	a, ok := s.assignments[id]
	if !ok || a.Revoked {
		return false, nil
	}
	a.Revoked = true
	return true, nil
}

func (s *stubRepo) InsertResolutionVote(ctx context.Context, item *models.ResolutionVote) error {
	item.ID = s.id()
	cp := *item
	s.votes[item.ID] = &cp
	return nil
}

func (s *stubRepo) RevokeActiveVotes(ctx context.Context, betID uint64, voterID string) (int64, error) {
	var n int64
	for _, v := range s.votes {
		if v.BetID == betID && v.VoterID == voterID && !v.Revoked {
			v.Revoked = true
			n++
		}
	}
	return n, nil
}

func (s *stubRepo) ListActiveVotesByBet(ctx context.Context, betID uint64) ([]models.ResolutionVote, error) {
	var out []models.ResolutionVote
	for id := uint64(1); id <= s.nextID; id++ {
		v, ok := s.votes[id]
		if ok && v.BetID == betID && !v.Revoked {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (s *stubRepo) InsertBetEvent(ctx context.Context, item *models.BetEvent) error {
	item.ID = s.id()
	cp := *item
	s.events = append(s.events, &cp)
	return nil
}

func (s *stubRepo) ListBetEvents(ctx context.Context, betID uint64, limit int) ([]models.BetEvent, error) {
	var out []models.BetEvent
	for _, ev := range s.events {
		if ev.BetID == betID {
			out = append(out, *ev)
		}
	}
	return out, nil
}

var _ repository.Repository = (*stubRepo)(nil)
