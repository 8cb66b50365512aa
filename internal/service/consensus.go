package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/koensakamoto/friendbet/internal/models"
	"github.com/koensakamoto/friendbet/internal/repository"
)

// ConsensusService counts resolution votes and derives a plurality outcome.
type ConsensusService struct {
	Repo     repository.Repository
	Resolver *ResolverService
	Logger   *zap.Logger

	// MaxReasoning caps stored vote reasoning length; zero means unlimited.
	MaxReasoning int
}

type CastVoteParams struct {
	BetID       uint64
	VoterID     string
	OptionIndex int
	Reasoning   string
}

// CastVote revokes the voter's prior active vote and appends a new one. The
// audit trail of revoked votes is preserved.
func (s *ConsensusService) CastVote(ctx context.Context, params CastVoteParams) (*models.ResolutionVote, error) {
	if s == nil || s.Repo == nil {
		return nil, ErrBetNotFound
	}
	params.VoterID = strings.TrimSpace(params.VoterID)
	if params.VoterID == "" {
		return nil, ErrNotAuthorized
	}
	bet, err := s.Repo.GetBetByID(ctx, params.BetID)
	if err != nil {
		return nil, err
	}
	if bet == nil {
		return nil, ErrBetNotFound
	}
	if bet.Method != models.ResolutionMethodConsensusVote {
		return nil, ErrInvalidBetSpec
	}
	if bet.Terminal() {
		return nil, ErrAlreadyTransitioned
	}
	if !bet.ValidOption(params.OptionIndex) {
		return nil, ErrInvalidOption
	}

	// The creator may always record a vote; whether it counts is decided at
	// tally time by the allow-creator-vote flag.
	if params.VoterID != bet.CreatorID {
		if s.Resolver == nil {
			return nil, ErrNotAuthorized
		}
		ok, err := s.Resolver.CanVote(ctx, bet.ID, params.VoterID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrNotAuthorized
		}
	}

	reasoning := strings.TrimSpace(params.Reasoning)
	if s.MaxReasoning > 0 && len(reasoning) > s.MaxReasoning {
		reasoning = reasoning[:s.MaxReasoning]
	}

	var vote *models.ResolutionVote
	err = s.Repo.InTx(ctx, func(tx repository.Repository) error {
		if _, err := tx.RevokeActiveVotes(ctx, bet.ID, params.VoterID); err != nil {
			return err
		}
		vote = &models.ResolutionVote{
			BetID:       bet.ID,
			VoterID:     params.VoterID,
			OptionIndex: params.OptionIndex,
			Reasoning:   reasoning,
		}
		return tx.InsertResolutionVote(ctx, vote)
	})
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("vote cast",
			zap.Uint64("bet_id", bet.ID),
			zap.String("voter", params.VoterID),
			zap.Int("option", params.OptionIndex),
		)
	}
	return vote, nil
}

// TallyResult is a consensus snapshot. Blocked tallies (tie or below the
// vote minimum) are a pending state, not a failure; callers wait for more
// votes or escalate.
type TallyResult struct {
	Counts     map[int]int `json:"counts"`
	ValidVotes int         `json:"valid_votes"`
	Outcome    *int        `json:"outcome,omitempty"`
	Blocked    bool        `json:"blocked"`
	Reason     string      `json:"reason,omitempty"`
}

// Tally reads one consistent snapshot of active votes and derives the
// plurality outcome under the bet's minimum-vote rule.
func (s *ConsensusService) Tally(ctx context.Context, bet *models.Bet) (TallyResult, error) {
	if s == nil || s.Repo == nil || bet == nil {
		return TallyResult{Blocked: true, Reason: "no votes"}, nil
	}
	votes, err := s.Repo.ListActiveVotesByBet(ctx, bet.ID)
	if err != nil {
		return TallyResult{}, err
	}
	counts := map[int]int{}
	valid := 0
	for _, v := range votes {
		if !bet.AllowCreatorVote && v.VoterID == bet.CreatorID {
			continue
		}
		counts[v.OptionIndex]++
		valid++
	}
	return decideOutcome(counts, valid, bet.MinVotesRequired), nil
}

// decideOutcome applies the plurality rule: strictly highest count wins; a
// tie at the top or too few valid votes blocks the tally.
func decideOutcome(counts map[int]int, valid, minVotes int) TallyResult {
	result := TallyResult{Counts: counts, ValidVotes: valid}
	if valid < minVotes {
		result.Blocked = true
		result.Reason = "below minimum vote count"
		return result
	}
	best := 0
	bestOption := 0
	tied := false
	for option, count := range counts {
		switch {
		case count > best:
			best = count
			bestOption = option
			tied = false
		case count == best:
			tied = true
		}
	}
	if best == 0 || tied {
		result.Blocked = true
		result.Reason = "tie between leading options"
		return result
	}
	result.Outcome = &bestOption
	return result
}
