package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/koensakamoto/friendbet/internal/models"
)

// BetTransition carries the fields applied together with a status
// compare-and-swap. Nil fields are left untouched.
type BetTransition struct {
	To            models.BetStatus
	Outcome       *int
	ResolvedValue *string
	ResolvedAt    *time.Time
	Note          *string
}

// ListBetsParams filters bet listings.
type ListBetsParams struct {
	GroupID   *string
	CreatorID *string
	Status    *models.BetStatus
	Limit     int
	Offset    int
	OrderBy   string
	Asc       *bool
}

// OptionAggregate is the per-option pool/participant rollup computed on read
// from the participation set.
type OptionAggregate struct {
	OptionIndex  int             `json:"option_index"`
	Pool         decimal.Decimal `json:"pool"`
	Participants int             `json:"participants"`
}

// Repository is the storage surface of the bet engine. InTx runs fn against a
// transaction-scoped Repository; every write inside fn commits or rolls back
// as one unit.
type Repository interface {
	InTx(ctx context.Context, fn func(tx Repository) error) error

	// Bets.
	CreateBet(ctx context.Context, item *models.Bet) error
	GetBetByID(ctx context.Context, id uint64) (*models.Bet, error)
	// GetBetByIDForUpdate takes a row lock; only meaningful inside InTx.
	GetBetByIDForUpdate(ctx context.Context, id uint64) (*models.Bet, error)
	ListBets(ctx context.Context, params ListBetsParams) ([]models.Bet, error)
	CountBets(ctx context.Context, params ListBetsParams) (int64, error)
	// TransitionBetStatus performs the conditional status update. It reports
	// false when zero rows matched, meaning another actor already moved the
	// bet; callers treat that as authoritative, not as an error.
	TransitionBetStatus(ctx context.Context, id uint64, from []models.BetStatus, tr BetTransition) (bool, error)
	// AddToBetPool folds a stake into the denormalized pool aggregates. Must
	// run in the same transaction as the participation insert.
	AddToBetPool(ctx context.Context, id uint64, stake decimal.Decimal) error
	ListOpenBetsPastDeadline(ctx context.Context, now time.Time, limit int) ([]models.Bet, error)
	ListBetsDueResolution(ctx context.Context, now time.Time, limit int) ([]models.Bet, error)

	// Participations.
	InsertParticipation(ctx context.Context, item *models.Participation) error
	GetActiveParticipation(ctx context.Context, betID uint64, userID string) (*models.Participation, error)
	ListParticipationsByBet(ctx context.Context, betID uint64, status *models.ParticipationStatus) ([]models.Participation, error)
	SettleParticipation(ctx context.Context, id uint64, status models.ParticipationStatus, payout decimal.Decimal) error
	ListOptionAggregates(ctx context.Context, betID uint64) ([]OptionAggregate, error)

	// Predictions.
	InsertPrediction(ctx context.Context, item *models.Prediction) error
	ListPredictionsByBet(ctx context.Context, betID uint64) ([]models.Prediction, error)
	ResolvePrediction(ctx context.Context, id uint64, actual string, correct bool) error

	// Resolver assignments.
	InsertResolverAssignment(ctx context.Context, item *models.ResolverAssignment) error
	GetActiveResolverAssignment(ctx context.Context, betID uint64, resolverID string) (*models.ResolverAssignment, error)
	ListResolverAssignmentsByBet(ctx context.Context, betID uint64, includeRevoked bool) ([]models.ResolverAssignment, error)
	RevokeResolverAssignment(ctx context.Context, id uint64) (bool, error)

	// Resolution votes.
	InsertResolutionVote(ctx context.Context, item *models.ResolutionVote) error
	RevokeActiveVotes(ctx context.Context, betID uint64, voterID string) (int64, error)
	ListActiveVotesByBet(ctx context.Context, betID uint64) ([]models.ResolutionVote, error)

	// Events.
	InsertBetEvent(ctx context.Context, item *models.BetEvent) error
	ListBetEvents(ctx context.Context, betID uint64, limit int) ([]models.BetEvent, error)
}
