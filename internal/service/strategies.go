package service

import (
	"context"

	"github.com/koensakamoto/friendbet/internal/membership"
	"github.com/koensakamoto/friendbet/internal/models"
)

// ResolutionStrategy decides who may resolve a bet and where its outcome
// comes from. Adding a resolution method is one new implementation, not
// edits across the engine.
type ResolutionStrategy interface {
	Method() models.ResolutionMethod
	Authorize(ctx context.Context, bet *models.Bet, actingUser string) error
	// DetermineOutcome returns the winning option index, or a pending tally
	// when the strategy cannot yet decide. Prediction-type bets skip this and
	// carry the actual value instead.
	DetermineOutcome(ctx context.Context, bet *models.Bet, params ResolveParams) (*int, *TallyResult, error)
}

// creatorStrategy: only the bet's creator supplies the outcome.
type creatorStrategy struct{}

func (creatorStrategy) Method() models.ResolutionMethod { return models.ResolutionMethodCreator }

func (creatorStrategy) Authorize(ctx context.Context, bet *models.Bet, actingUser string) error {
	if actingUser == "" || actingUser != bet.CreatorID {
		return ErrNotAuthorized
	}
	return nil
}

func (creatorStrategy) DetermineOutcome(ctx context.Context, bet *models.Bet, params ResolveParams) (*int, *TallyResult, error) {
	return suppliedOutcome(bet, params)
}

// assignedResolverStrategy: an active, non-vote-only resolver (or the
// creator) supplies the outcome.
type assignedResolverStrategy struct {
	resolver *ResolverService
}

func (assignedResolverStrategy) Method() models.ResolutionMethod {
	return models.ResolutionMethodAssignedResolver
}

func (s assignedResolverStrategy) Authorize(ctx context.Context, bet *models.Bet, actingUser string) error {
	if actingUser == "" {
		return ErrNotAuthorized
	}
	if actingUser == bet.CreatorID {
		return nil
	}
	if s.resolver == nil {
		return ErrNotAuthorized
	}
	ok, err := s.resolver.CanResolveIndependently(ctx, bet.ID, actingUser)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotAuthorized
	}
	return nil
}

func (assignedResolverStrategy) DetermineOutcome(ctx context.Context, bet *models.Bet, params ResolveParams) (*int, *TallyResult, error) {
	return suppliedOutcome(bet, params)
}

// consensusStrategy: the outcome comes from the vote tally. The scheduler
// (empty acting user) or any active group member may trigger the attempt.
type consensusStrategy struct {
	consensus *ConsensusService
	members   membership.Service
}

func (consensusStrategy) Method() models.ResolutionMethod {
	return models.ResolutionMethodConsensusVote
}

func (s consensusStrategy) Authorize(ctx context.Context, bet *models.Bet, actingUser string) error {
	if actingUser == "" || actingUser == bet.CreatorID {
		return nil
	}
	if s.members == nil {
		return nil
	}
	ok, err := s.members.IsActiveMember(ctx, bet.GroupID, actingUser)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotAuthorized
	}
	return nil
}

func (s consensusStrategy) DetermineOutcome(ctx context.Context, bet *models.Bet, params ResolveParams) (*int, *TallyResult, error) {
	if s.consensus == nil {
		return nil, nil, ErrBetNotFound
	}
	tally, err := s.consensus.Tally(ctx, bet)
	if err != nil {
		return nil, nil, err
	}
	if tally.Blocked {
		return nil, &tally, nil
	}
	return tally.Outcome, nil, nil
}

func suppliedOutcome(bet *models.Bet, params ResolveParams) (*int, *TallyResult, error) {
	if params.OutcomeIndex == nil || !bet.ValidOption(*params.OutcomeIndex) {
		return nil, nil, ErrInvalidOption
	}
	return params.OutcomeIndex, nil, nil
}
