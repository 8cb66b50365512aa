package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/koensakamoto/friendbet/internal/membership"
	"github.com/koensakamoto/friendbet/internal/models"
	"github.com/koensakamoto/friendbet/internal/repository"
)

// ResolverService is the resolver directory: who may resolve or vote on a
// bet besides its creator.
type ResolverService struct {
	Repo    repository.Repository
	Members membership.Service
	Logger  *zap.Logger
}

type AssignResolverParams struct {
	BetID      uint64
	ResolverID string
	ActingUser string
	VoteOnly   bool
	Reason     string
}

func (s *ResolverService) Assign(ctx context.Context, params AssignResolverParams) (*models.ResolverAssignment, error) {
	if s == nil || s.Repo == nil {
		return nil, ErrBetNotFound
	}
	params.ResolverID = strings.TrimSpace(params.ResolverID)
	params.ActingUser = strings.TrimSpace(params.ActingUser)
	if params.ResolverID == "" || params.ActingUser == "" {
		return nil, ErrNotAuthorized
	}

	bet, err := s.Repo.GetBetByID(ctx, params.BetID)
	if err != nil {
		return nil, err
	}
	if bet == nil {
		return nil, ErrBetNotFound
	}
	if bet.Terminal() {
		return nil, ErrAlreadyTransitioned
	}

	if err := s.requireCreatorOrAdmin(ctx, bet, params.ActingUser); err != nil {
		return nil, err
	}
	if s.Members != nil {
		ok, err := s.Members.IsActiveMember(ctx, bet.GroupID, params.ResolverID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrNotAuthorized
		}
	}

	existing, err := s.Repo.GetActiveResolverAssignment(ctx, bet.ID, params.ResolverID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateAssignment
	}

	item := &models.ResolverAssignment{
		BetID:      bet.ID,
		ResolverID: params.ResolverID,
		AssignedBy: params.ActingUser,
		VoteOnly:   params.VoteOnly,
	}
	if reason := strings.TrimSpace(params.Reason); reason != "" {
		item.Reason = &reason
	}
	if err := s.Repo.InsertResolverAssignment(ctx, item); err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("resolver assigned",
			zap.Uint64("bet_id", bet.ID),
			zap.String("resolver", params.ResolverID),
			zap.Bool("vote_only", params.VoteOnly),
		)
	}
	return item, nil
}

func (s *ResolverService) Revoke(ctx context.Context, betID uint64, resolverID, actingUser string) error {
	if s == nil || s.Repo == nil {
		return ErrBetNotFound
	}
	bet, err := s.Repo.GetBetByID(ctx, betID)
	if err != nil {
		return err
	}
	if bet == nil {
		return ErrBetNotFound
	}
	if err := s.requireCreatorOrAdmin(ctx, bet, strings.TrimSpace(actingUser)); err != nil {
		return err
	}
	existing, err := s.Repo.GetActiveResolverAssignment(ctx, betID, strings.TrimSpace(resolverID))
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrAssignmentNotFound
	}
	revoked, err := s.Repo.RevokeResolverAssignment(ctx, existing.ID)
	if err != nil {
		return err
	}
	if !revoked {
		// Someone revoked concurrently; the end state is what was asked for.
		return nil
	}
	if s.Logger != nil {
		s.Logger.Info("resolver revoked",
			zap.Uint64("bet_id", betID),
			zap.String("resolver", resolverID),
		)
	}
	return nil
}

// CanResolveIndependently reports whether user holds an active, non-vote-only
// assignment on the bet.
func (s *ResolverService) CanResolveIndependently(ctx context.Context, betID uint64, userID string) (bool, error) {
	if s == nil || s.Repo == nil {
		return false, nil
	}
	a, err := s.Repo.GetActiveResolverAssignment(ctx, betID, userID)
	if err != nil {
		return false, err
	}
	return a.CanResolveIndependently(), nil
}

// CanVote reports whether user holds any active assignment on the bet.
func (s *ResolverService) CanVote(ctx context.Context, betID uint64, userID string) (bool, error) {
	if s == nil || s.Repo == nil {
		return false, nil
	}
	a, err := s.Repo.GetActiveResolverAssignment(ctx, betID, userID)
	if err != nil {
		return false, err
	}
	return a != nil && !a.Revoked, nil
}

func (s *ResolverService) requireCreatorOrAdmin(ctx context.Context, bet *models.Bet, userID string) error {
	if userID == bet.CreatorID {
		return nil
	}
	if s.Members != nil {
		ok, err := s.Members.IsAdmin(ctx, bet.GroupID, userID)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return ErrNotAuthorized
}
