package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/koensakamoto/friendbet/internal/models"
	"github.com/koensakamoto/friendbet/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx repository.Repository) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// --- Bets -------------------------------------------------------------------

func (s *Store) CreateBet(ctx context.Context, item *models.Bet) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetBetByID(ctx context.Context, id uint64) (*models.Bet, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Bet
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetBetByIDForUpdate(ctx context.Context, id uint64) (*models.Bet, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Bet
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) applyBetFilters(query *gorm.DB, params repository.ListBetsParams) *gorm.DB {
	if params.GroupID != nil && strings.TrimSpace(*params.GroupID) != "" {
		query = query.Where("group_id = ?", strings.TrimSpace(*params.GroupID))
	}
	if params.CreatorID != nil && strings.TrimSpace(*params.CreatorID) != "" {
		query = query.Where("creator_id = ?", strings.TrimSpace(*params.CreatorID))
	}
	if params.Status != nil && *params.Status != "" {
		query = query.Where("status = ?", *params.Status)
	}
	return query
}

func (s *Store) ListBets(ctx context.Context, params repository.ListBetsParams) ([]models.Bet, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.applyBetFilters(s.db.WithContext(ctx).Model(&models.Bet{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	var items []models.Bet
	if err := query.Limit(normalizeLimit(params.Limit, 100)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountBets(ctx context.Context, params repository.ListBetsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var count int64
	query := s.applyBetFilters(s.db.WithContext(ctx).Model(&models.Bet{}), params)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) TransitionBetStatus(ctx context.Context, id uint64, from []models.BetStatus, tr repository.BetTransition) (bool, error) {
	if s == nil || s.db == nil || len(from) == 0 {
		return false, nil
	}
	updates := map[string]any{
		"status":     tr.To,
		"updated_at": time.Now().UTC(),
	}
	if tr.Outcome != nil {
		updates["outcome"] = *tr.Outcome
	}
	if tr.ResolvedValue != nil {
		updates["resolved_value"] = *tr.ResolvedValue
	}
	if tr.ResolvedAt != nil {
		updates["resolved_at"] = *tr.ResolvedAt
	}
	if tr.Note != nil {
		updates["resolution_note"] = *tr.Note
	}
	res := s.db.WithContext(ctx).
		Model(&models.Bet{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) AddToBetPool(ctx context.Context, id uint64, stake decimal.Decimal) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Bet{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"total_pool":        gorm.Expr("total_pool + ?", stake),
			"participant_count": gorm.Expr("participant_count + 1"),
		}).Error
}

func (s *Store) ListOpenBetsPastDeadline(ctx context.Context, now time.Time, limit int) ([]models.Bet, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Bet
	err := s.db.WithContext(ctx).
		Where("status = ? AND betting_deadline <= ?", models.BetStatusOpen, now).
		Order("betting_deadline asc").
		Limit(normalizeLimit(limit, 200)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListBetsDueResolution(ctx context.Context, now time.Time, limit int) ([]models.Bet, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Bet
	err := s.db.WithContext(ctx).
		Where("status = ? AND resolve_by IS NOT NULL AND resolve_by <= ?", models.BetStatusClosed, now).
		Order("resolve_by asc").
		Limit(normalizeLimit(limit, 200)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- Participations ---------------------------------------------------------

func (s *Store) InsertParticipation(ctx context.Context, item *models.Participation) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetActiveParticipation(ctx context.Context, betID uint64, userID string) (*models.Participation, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Participation
	err := s.db.WithContext(ctx).
		Where("bet_id = ? AND user_id = ? AND status = ?", betID, userID, models.ParticipationActive).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListParticipationsByBet(ctx context.Context, betID uint64, status *models.ParticipationStatus) ([]models.Participation, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Where("bet_id = ?", betID)
	if status != nil && *status != "" {
		query = query.Where("status = ?", *status)
	}
	var items []models.Participation
	if err := query.Order("id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) SettleParticipation(ctx context.Context, id uint64, status models.ParticipationStatus, payout decimal.Decimal) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Participation{}).
		Where("id = ? AND status = ?", id, models.ParticipationActive).
		Updates(map[string]any{
			"status":     status,
			"payout":     payout,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (s *Store) ListOptionAggregates(ctx context.Context, betID uint64) ([]repository.OptionAggregate, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []repository.OptionAggregate
	err := s.db.WithContext(ctx).
		Model(&models.Participation{}).
		Select("option_index as option_index, COALESCE(SUM(stake), 0) as pool, COUNT(*) as participants").
		Where("bet_id = ? AND option_index IS NOT NULL", betID).
		Group("option_index").
		Order("option_index asc").
		Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- Predictions ------------------------------------------------------------

func (s *Store) InsertPrediction(ctx context.Context, item *models.Prediction) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListPredictionsByBet(ctx context.Context, betID uint64) ([]models.Prediction, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Prediction
	if err := s.db.WithContext(ctx).Where("bet_id = ?", betID).Order("id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ResolvePrediction(ctx context.Context, id uint64, actual string, correct bool) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Prediction{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"actual_value": actual,
			"correct":      correct,
			"updated_at":   time.Now().UTC(),
		}).Error
}

// --- Resolver assignments ---------------------------------------------------

func (s *Store) InsertResolverAssignment(ctx context.Context, item *models.ResolverAssignment) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetActiveResolverAssignment(ctx context.Context, betID uint64, resolverID string) (*models.ResolverAssignment, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.ResolverAssignment
	err := s.db.WithContext(ctx).
		Where("bet_id = ? AND resolver_id = ? AND revoked = false", betID, resolverID).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListResolverAssignmentsByBet(ctx context.Context, betID uint64, includeRevoked bool) ([]models.ResolverAssignment, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Where("bet_id = ?", betID)
	if !includeRevoked {
		query = query.Where("revoked = false")
	}
	var items []models.ResolverAssignment
	if err := query.Order("id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) RevokeResolverAssignment(ctx context.Context, id uint64) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.ResolverAssignment{}).
		Where("id = ? AND revoked = false", id).
		Updates(map[string]any{
			"revoked":    true,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// --- Resolution votes -------------------------------------------------------

func (s *Store) InsertResolutionVote(ctx context.Context, item *models.ResolutionVote) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) RevokeActiveVotes(ctx context.Context, betID uint64, voterID string) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.ResolutionVote{}).
		Where("bet_id = ? AND voter_id = ? AND revoked = false", betID, voterID).
		Updates(map[string]any{
			"revoked":    true,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

func (s *Store) ListActiveVotesByBet(ctx context.Context, betID uint64) ([]models.ResolutionVote, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.ResolutionVote
	err := s.db.WithContext(ctx).
		Where("bet_id = ? AND revoked = false", betID).
		Order("id asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- Events -----------------------------------------------------------------

func (s *Store) InsertBetEvent(ctx context.Context, item *models.BetEvent) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListBetEvents(ctx context.Context, betID uint64, limit int) ([]models.BetEvent, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.BetEvent
	err := s.db.WithContext(ctx).
		Where("bet_id = ?", betID).
		Order("id desc").
		Limit(normalizeLimit(limit, 100)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

var _ repository.Repository = (*Store)(nil)

// --- Helpers ----------------------------------------------------------------

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	switch column {
	case "created_at", "updated_at", "betting_deadline", "resolve_by", "total_pool":
	default:
		column = fallback
	}
	dir := "desc"
	if asc != nil && *asc {
		dir = "asc"
	}
	return query.Order(column + " " + dir)
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 || limit > 1000 {
		return fallback
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
