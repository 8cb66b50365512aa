package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/koensakamoto/friendbet/internal/account"
	"github.com/koensakamoto/friendbet/internal/config"
	"github.com/koensakamoto/friendbet/internal/membership"
	"github.com/koensakamoto/friendbet/internal/models"
	"github.com/koensakamoto/friendbet/internal/payout"
	"github.com/koensakamoto/friendbet/internal/repository"
)

// BetService owns the proposition ledger: bet creation, participation
// placement, and the OPEN->CLOSED transition.
type BetService struct {
	Repo    repository.Repository
	Ledger  account.Ledger
	Members membership.Service
	Config  config.BetsConfig
	Logger  *zap.Logger
}

type CreateBetParams struct {
	GroupID   string
	CreatorID string
	Question  string

	Type   models.BetType
	Method models.ResolutionMethod

	Options []string

	BettingDeadline time.Time
	ResolveBy       *time.Time

	MinStake decimal.Decimal
	MaxStake decimal.Decimal

	MinVotesRequired int
	AllowCreatorVote bool
}

func (s *BetService) CreateBet(ctx context.Context, params CreateBetParams) (*models.Bet, error) {
	if s == nil || s.Repo == nil {
		return nil, ErrBetNotFound
	}
	params.GroupID = strings.TrimSpace(params.GroupID)
	params.CreatorID = strings.TrimSpace(params.CreatorID)
	params.Question = strings.TrimSpace(params.Question)
	if params.GroupID == "" || params.CreatorID == "" {
		return nil, fmt.Errorf("%w: group and creator required", ErrInvalidBetSpec)
	}
	maxQuestion := s.Config.MaxQuestionLength
	if maxQuestion <= 0 {
		maxQuestion = 500
	}
	if params.Question == "" || len(params.Question) > maxQuestion {
		return nil, fmt.Errorf("%w: question empty or too long", ErrInvalidBetSpec)
	}

	switch params.Type {
	case models.BetTypeBinary:
		if len(params.Options) != 2 {
			return nil, fmt.Errorf("%w: binary bets take exactly 2 options", ErrInvalidBetSpec)
		}
	case models.BetTypeMultipleChoice:
		if len(params.Options) < 2 || len(params.Options) > models.MaxOptions {
			return nil, fmt.Errorf("%w: multiple choice bets take 2-%d options", ErrInvalidBetSpec, models.MaxOptions)
		}
	case models.BetTypePrediction:
		if len(params.Options) != 0 {
			return nil, fmt.Errorf("%w: prediction bets take no fixed options", ErrInvalidBetSpec)
		}
	default:
		return nil, fmt.Errorf("%w: unknown bet type %q", ErrInvalidBetSpec, params.Type)
	}
	for _, label := range params.Options {
		if strings.TrimSpace(label) == "" {
			return nil, fmt.Errorf("%w: blank option label", ErrInvalidBetSpec)
		}
	}

	switch params.Method {
	case models.ResolutionMethodCreator, models.ResolutionMethodAssignedResolver:
	case models.ResolutionMethodConsensusVote:
		if params.Type == models.BetTypePrediction {
			// Votes pick a fixed option; there is nothing to vote on for a
			// free-text prediction target.
			return nil, fmt.Errorf("%w: prediction bets cannot use consensus voting", ErrInvalidBetSpec)
		}
		if params.MinVotesRequired <= 0 {
			params.MinVotesRequired = s.Config.DefaultMinVotes
		}
		if params.MinVotesRequired <= 0 {
			params.MinVotesRequired = 1
		}
	default:
		return nil, fmt.Errorf("%w: unknown resolution method %q", ErrInvalidBetSpec, params.Method)
	}

	now := time.Now().UTC()
	if !params.BettingDeadline.After(now) {
		return nil, fmt.Errorf("%w: betting deadline must be in the future", ErrInvalidBetSpec)
	}
	if params.ResolveBy != nil && !params.ResolveBy.After(params.BettingDeadline) {
		return nil, fmt.Errorf("%w: resolve-by date must follow the betting deadline", ErrInvalidBetSpec)
	}

	minStake, maxStake, err := s.stakeBounds(params.MinStake, params.MaxStake)
	if err != nil {
		return nil, err
	}

	if s.Members != nil {
		ok, err := s.Members.IsActiveMember(ctx, params.GroupID, params.CreatorID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrNotAuthorized
		}
	}

	bet := &models.Bet{
		GroupID:          params.GroupID,
		CreatorID:        params.CreatorID,
		Question:         params.Question,
		Type:             params.Type,
		Method:           params.Method,
		Status:           models.BetStatusOpen,
		BettingDeadline:  params.BettingDeadline.UTC(),
		ResolveBy:        params.ResolveBy,
		MinStake:         minStake,
		MaxStake:         maxStake,
		TotalPool:        decimal.Zero,
		MinVotesRequired: params.MinVotesRequired,
		AllowCreatorVote: params.AllowCreatorVote,
	}
	if len(params.Options) > 0 {
		if err := bet.SetOptions(params.Options); err != nil {
			return nil, err
		}
	}
	if err := s.Repo.CreateBet(ctx, bet); err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("bet created",
			zap.Uint64("bet_id", bet.ID),
			zap.String("group", bet.GroupID),
			zap.String("type", string(bet.Type)),
			zap.String("method", string(bet.Method)),
		)
	}
	return bet, nil
}

func (s *BetService) stakeBounds(min, max decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	if min.IsZero() {
		if v, err := decimal.NewFromString(s.Config.DefaultMinStake); err == nil {
			min = v
		}
	}
	if max.IsZero() {
		if v, err := decimal.NewFromString(s.Config.DefaultMaxStake); err == nil {
			max = v
		}
	}
	min = min.Round(2)
	max = max.Round(2)
	if min.LessThanOrEqual(decimal.Zero) || max.LessThan(min) {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: stake bounds invalid", ErrInvalidBetSpec)
	}
	return min, max, nil
}

type PlaceParticipationParams struct {
	BetID  uint64
	UserID string

	// OptionIndex is required for option-based bets, PredictedValue for
	// prediction bets; exactly one must be set.
	OptionIndex    *int
	PredictedValue *string

	Amount decimal.Decimal
}

// PlaceParticipation validates and records a stake. The whole
// validate->insert->aggregate-update sequence runs under the bet's row lock
// in one transaction, so concurrent bettors cannot lose pool updates.
func (s *BetService) PlaceParticipation(ctx context.Context, params PlaceParticipationParams) (*models.Participation, error) {
	if s == nil || s.Repo == nil {
		return nil, ErrBetNotFound
	}
	params.UserID = strings.TrimSpace(params.UserID)
	if params.UserID == "" {
		return nil, ErrNotAuthorized
	}
	stake := params.Amount.Round(2)
	if stake.LessThanOrEqual(decimal.Zero) {
		return nil, ErrStakeOutOfBounds
	}

	var placed *models.Participation
	err := s.Repo.InTx(ctx, func(tx repository.Repository) error {
		bet, err := tx.GetBetByIDForUpdate(ctx, params.BetID)
		if err != nil {
			return err
		}
		if bet == nil {
			return ErrBetNotFound
		}
		if bet.Status != models.BetStatusOpen {
			return ErrBetNotOpen
		}
		now := time.Now().UTC()
		if !now.Before(bet.BettingDeadline) {
			return ErrDeadlinePassed
		}
		if stake.LessThan(bet.MinStake) || stake.GreaterThan(bet.MaxStake) {
			return ErrStakeOutOfBounds
		}

		if s.Members != nil {
			ok, err := s.Members.IsActiveMember(ctx, bet.GroupID, params.UserID)
			if err != nil {
				return err
			}
			if !ok {
				return ErrNotAuthorized
			}
		}

		var predicted string
		switch bet.Type {
		case models.BetTypePrediction:
			if params.OptionIndex != nil {
				return ErrInvalidOption
			}
			if params.PredictedValue == nil || strings.TrimSpace(*params.PredictedValue) == "" {
				return ErrInvalidPrediction
			}
			predicted = strings.TrimSpace(*params.PredictedValue)
		default:
			if params.PredictedValue != nil {
				return ErrInvalidPrediction
			}
			if params.OptionIndex == nil || !bet.ValidOption(*params.OptionIndex) {
				return ErrInvalidOption
			}
		}

		existing, err := tx.GetActiveParticipation(ctx, bet.ID, params.UserID)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrDuplicateParticipation
		}

		potential := s.advisoryPayout(ctx, tx, bet, params.OptionIndex, stake)

		item := &models.Participation{
			BetID:           bet.ID,
			UserID:          params.UserID,
			OptionIndex:     params.OptionIndex,
			Stake:           stake,
			PotentialPayout: potential,
			Status:          models.ParticipationActive,
			IdempotencyKey:  uuid.NewString(),
		}
		if err := tx.InsertParticipation(ctx, item); err != nil {
			return err
		}
		if bet.Type == models.BetTypePrediction {
			pred := &models.Prediction{
				BetID:           bet.ID,
				ParticipationID: item.ID,
				PredictedValue:  predicted,
			}
			if err := tx.InsertPrediction(ctx, pred); err != nil {
				return err
			}
		}
		if err := tx.AddToBetPool(ctx, bet.ID, stake); err != nil {
			return err
		}

		// Debit last so a ledger refusal (insufficient funds) rolls the whole
		// placement back with nothing recorded.
		if s.Ledger != nil {
			if err := s.Ledger.Debit(ctx, params.UserID, stake, item.IdempotencyKey+":stake"); err != nil {
				return err
			}
		}
		placed = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.Logger != nil && placed != nil {
		s.Logger.Info("participation placed",
			zap.Uint64("bet_id", params.BetID),
			zap.String("user", params.UserID),
			zap.String("stake", stake.StringFixed(2)),
		)
	}
	return placed, nil
}

// advisoryPayout estimates winnings from the pool state with the new stake
// already folded in. Display-only; settlement recomputes from the final pool.
func (s *BetService) advisoryPayout(ctx context.Context, tx repository.Repository, bet *models.Bet, optionIdx *int, stake decimal.Decimal) decimal.Decimal {
	if optionIdx == nil {
		return stake
	}
	aggs, err := tx.ListOptionAggregates(ctx, bet.ID)
	if err != nil {
		return stake
	}
	sameSide := stake
	for _, agg := range aggs {
		if agg.OptionIndex == *optionIdx {
			sameSide = sameSide.Add(agg.Pool)
		}
	}
	return payout.Potential(stake, sameSide, bet.TotalPool.Add(stake))
}

// CloseForBetting moves an OPEN bet to CLOSED. The false return means another
// actor already closed (or cancelled) the bet; that is not an error.
func (s *BetService) CloseForBetting(ctx context.Context, betID uint64) (bool, error) {
	if s == nil || s.Repo == nil {
		return false, nil
	}
	transitioned, err := s.Repo.TransitionBetStatus(ctx, betID,
		[]models.BetStatus{models.BetStatusOpen},
		repository.BetTransition{To: models.BetStatusClosed})
	if err != nil {
		return false, err
	}
	if transitioned && s.Logger != nil {
		s.Logger.Info("bet closed for betting", zap.Uint64("bet_id", betID))
	}
	return transitioned, nil
}

// OptionState pairs an option label with its pool rollup.
type OptionState struct {
	Index        int             `json:"index"`
	Label        string          `json:"label"`
	Pool         decimal.Decimal `json:"pool"`
	Participants int             `json:"participants"`
}

// BetState is the full read model for one bet.
type BetState struct {
	Bet            models.Bet             `json:"bet"`
	Options        []OptionState          `json:"options,omitempty"`
	Participations []models.Participation `json:"participations"`
	ActiveVotes    int                    `json:"active_votes"`
}

func (s *BetService) GetBetState(ctx context.Context, betID uint64) (*BetState, error) {
	if s == nil || s.Repo == nil {
		return nil, ErrBetNotFound
	}
	bet, err := s.Repo.GetBetByID(ctx, betID)
	if err != nil {
		return nil, err
	}
	if bet == nil {
		return nil, ErrBetNotFound
	}
	state := &BetState{Bet: *bet}

	if labels := bet.Options(); len(labels) > 0 {
		aggs, err := s.Repo.ListOptionAggregates(ctx, betID)
		if err != nil {
			return nil, err
		}
		byIndex := map[int]repository.OptionAggregate{}
		for _, agg := range aggs {
			byIndex[agg.OptionIndex] = agg
		}
		for i, label := range labels {
			idx := i + 1
			opt := OptionState{Index: idx, Label: label, Pool: decimal.Zero}
			if agg, ok := byIndex[idx]; ok {
				opt.Pool = agg.Pool
				opt.Participants = agg.Participants
			}
			state.Options = append(state.Options, opt)
		}
	}

	parts, err := s.Repo.ListParticipationsByBet(ctx, betID, nil)
	if err != nil {
		return nil, err
	}
	state.Participations = parts

	votes, err := s.Repo.ListActiveVotesByBet(ctx, betID)
	if err != nil {
		return nil, err
	}
	state.ActiveVotes = len(votes)
	return state, nil
}

func (s *BetService) ListBets(ctx context.Context, params repository.ListBetsParams) ([]models.Bet, int64, error) {
	if s == nil || s.Repo == nil {
		return nil, 0, nil
	}
	items, err := s.Repo.ListBets(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.Repo.CountBets(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
