package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/koensakamoto/friendbet/internal/account"
	"github.com/koensakamoto/friendbet/internal/membership"
	"github.com/koensakamoto/friendbet/internal/models"
	"github.com/koensakamoto/friendbet/internal/notify"
	"github.com/koensakamoto/friendbet/internal/payout"
	"github.com/koensakamoto/friendbet/internal/repository"
)

// ResolutionEngine drives settlement. The status compare-and-swap inside the
// settlement transaction guarantees at most one caller settles a given bet;
// settlement of all participations commits or rolls back as one unit.
type ResolutionEngine struct {
	Repo      repository.Repository
	Ledger    account.Ledger
	Members   membership.Service
	Consensus *ConsensusService
	Resolver  *ResolverService
	Notifier  *notify.Notifier
	Logger    *zap.Logger

	strategies map[models.ResolutionMethod]ResolutionStrategy
}

func NewResolutionEngine(
	repo repository.Repository,
	ledger account.Ledger,
	members membership.Service,
	consensus *ConsensusService,
	resolver *ResolverService,
	notifier *notify.Notifier,
	logger *zap.Logger,
) *ResolutionEngine {
	e := &ResolutionEngine{
		Repo:      repo,
		Ledger:    ledger,
		Members:   members,
		Consensus: consensus,
		Resolver:  resolver,
		Notifier:  notifier,
		Logger:    logger,
	}
	e.strategies = map[models.ResolutionMethod]ResolutionStrategy{
		models.ResolutionMethodCreator:          creatorStrategy{},
		models.ResolutionMethodAssignedResolver: assignedResolverStrategy{resolver: resolver},
		models.ResolutionMethodConsensusVote:    consensusStrategy{consensus: consensus, members: members},
	}
	return e
}

// ResolveParams names the outcome source: a fixed option index for
// option-based bets, the actual value for prediction bets. An empty
// ActingUser is the scheduler.
type ResolveParams struct {
	BetID        uint64
	ActingUser   string
	OutcomeIndex *int
	ActualValue  *string
	Reasoning    string
}

// ResolveResult reports either a completed settlement or a pending consensus
// tally. Pending is not a failure: the bet stays CLOSED and callers wait for
// more votes or escalate.
type ResolveResult struct {
	Pending bool                `json:"pending"`
	Tally   *TallyResult        `json:"tally,omitempty"`
	Event   *notify.BetResolved `json:"event,omitempty"`
}

func (e *ResolutionEngine) Resolve(ctx context.Context, params ResolveParams) (*ResolveResult, error) {
	if e == nil || e.Repo == nil {
		return nil, ErrBetNotFound
	}
	params.ActingUser = strings.TrimSpace(params.ActingUser)

	bet, err := e.Repo.GetBetByID(ctx, params.BetID)
	if err != nil {
		return nil, err
	}
	if bet == nil {
		return nil, ErrBetNotFound
	}
	if bet.Terminal() {
		return nil, ErrAlreadyTransitioned
	}

	now := time.Now().UTC()
	if bet.Status == models.BetStatusOpen {
		if now.Before(bet.BettingDeadline) {
			return nil, ErrBetNotClosed
		}
		// Past deadline: close first. A lost race means someone else closed
		// (or cancelled); re-read to find out which.
		if _, err := e.Repo.TransitionBetStatus(ctx, bet.ID,
			[]models.BetStatus{models.BetStatusOpen},
			repository.BetTransition{To: models.BetStatusClosed}); err != nil {
			return nil, err
		}
		bet, err = e.Repo.GetBetByID(ctx, bet.ID)
		if err != nil {
			return nil, err
		}
		if bet == nil {
			return nil, ErrBetNotFound
		}
		if bet.Terminal() {
			return nil, ErrAlreadyTransitioned
		}
	}
	if bet.Status != models.BetStatusClosed {
		return nil, ErrBetNotClosed
	}

	strategy, ok := e.strategies[bet.Method]
	if !ok {
		return nil, ErrInvalidBetSpec
	}
	if err := strategy.Authorize(ctx, bet, params.ActingUser); err != nil {
		return nil, err
	}

	var outcomeIdx *int
	var actualValue string
	if bet.Type == models.BetTypePrediction {
		if params.ActualValue == nil || strings.TrimSpace(*params.ActualValue) == "" {
			return nil, ErrInvalidPrediction
		}
		actualValue = strings.TrimSpace(*params.ActualValue)
	} else {
		idx, pending, err := strategy.DetermineOutcome(ctx, bet, params)
		if err != nil {
			return nil, err
		}
		if pending != nil {
			if e.Logger != nil {
				e.Logger.Info("consensus pending",
					zap.Uint64("bet_id", bet.ID),
					zap.Int("valid_votes", pending.ValidVotes),
					zap.String("reason", pending.Reason),
				)
			}
			return &ResolveResult{Pending: true, Tally: pending}, nil
		}
		outcomeIdx = idx
	}

	event, err := e.settle(ctx, bet, outcomeIdx, actualValue, params.Reasoning, now)
	if err != nil {
		return nil, err
	}
	if e.Notifier != nil {
		e.Notifier.BetResolved(ctx, *event)
	}
	if e.Logger != nil {
		e.Logger.Info("bet resolved",
			zap.Uint64("bet_id", bet.ID),
			zap.Int("winners", len(event.Winners)),
			zap.Int("losers", len(event.Losers)),
		)
	}
	return &ResolveResult{Event: event}, nil
}

// settle performs the CLOSED->RESOLVED swap and pays out every active
// participation in one transaction. A false CAS means another actor already
// resolved or cancelled; settlement then does nothing.
func (e *ResolutionEngine) settle(ctx context.Context, bet *models.Bet, outcomeIdx *int, actualValue, reasoning string, now time.Time) (*notify.BetResolved, error) {
	note := strings.TrimSpace(reasoning)
	tr := repository.BetTransition{
		To:         models.BetStatusResolved,
		ResolvedAt: &now,
	}
	if outcomeIdx != nil {
		tr.Outcome = outcomeIdx
	}
	if actualValue != "" {
		tr.ResolvedValue = &actualValue
	}
	if note != "" {
		tr.Note = &note
	}

	event := &notify.BetResolved{
		BetID:          bet.ID,
		Winners:        []string{},
		Losers:         []string{},
		PayoutsByUser:  map[string]decimal.Decimal{},
		ResolutionText: note,
		ResolvedAt:     now,
	}

	var credits []pendingCredit
	err := e.Repo.InTx(ctx, func(tx repository.Repository) error {
		transitioned, err := tx.TransitionBetStatus(ctx, bet.ID,
			[]models.BetStatus{models.BetStatusClosed}, tr)
		if err != nil {
			return err
		}
		if !transitioned {
			return ErrAlreadyTransitioned
		}

		active := models.ParticipationActive
		parts, err := tx.ListParticipationsByBet(ctx, bet.ID, &active)
		if err != nil {
			return err
		}

		isWinner, err := e.winnerPredicate(ctx, tx, bet, parts, outcomeIdx, actualValue)
		if err != nil {
			return err
		}

		entries := make([]payout.Entry, 0, len(parts))
		byID := make(map[uint64]models.Participation, len(parts))
		for _, p := range parts {
			entries = append(entries, payout.Entry{
				ParticipationID: p.ID,
				UserID:          p.UserID,
				Stake:           p.Stake,
			})
			byID[p.ID] = p
		}
		out := payout.Split(entries, isWinner)

		for _, award := range out.Awards {
			p := byID[award.Entry.ParticipationID]
			status := models.ParticipationLost
			switch {
			case out.Refunded:
				status = models.ParticipationRefunded
			case award.Won:
				status = models.ParticipationWon
			}
			if err := tx.SettleParticipation(ctx, p.ID, status, award.Amount); err != nil {
				return err
			}
			if award.Amount.GreaterThan(decimal.Zero) {
				credits = append(credits, pendingCredit{
					userID: p.UserID,
					amount: award.Amount,
					key:    p.IdempotencyKey + ":payout",
				})
			}
			event.PayoutsByUser[p.UserID] = award.Amount
			if award.Won {
				event.Winners = append(event.Winners, p.UserID)
			} else if !out.Refunded {
				event.Losers = append(event.Losers, p.UserID)
			}
		}

		return insertEvent(ctx, tx, bet.ID, models.EventBetResolved, event)
	})
	if err != nil {
		return nil, err
	}
	e.applyCredits(ctx, credits)
	return event, nil
}

// pendingCredit is a ledger credit collected during settlement and applied
// only after the transaction commits: an aborted settlement must leave the
// external ledger untouched.
type pendingCredit struct {
	userID string
	amount decimal.Decimal
	key    string
}

// applyCredits pushes committed payouts to the external ledger. Each credit
// is idempotent per key, so a delivery failure here is retryable from the
// settled rows without double-paying.
func (e *ResolutionEngine) applyCredits(ctx context.Context, credits []pendingCredit) {
	if e.Ledger == nil {
		return
	}
	for _, c := range credits {
		if err := e.Ledger.Credit(ctx, c.userID, c.amount, c.key); err != nil && e.Logger != nil {
			e.Logger.Error("ledger credit failed",
				zap.String("user", c.userID),
				zap.String("key", c.key),
				zap.Error(err),
			)
		}
	}
}

// winnerPredicate builds the per-participation winner test. Option bets match
// the chosen option; prediction bets compare each linked prediction against
// the actual value independently, recording correctness as a side effect.
func (e *ResolutionEngine) winnerPredicate(ctx context.Context, tx repository.Repository, bet *models.Bet, parts []models.Participation, outcomeIdx *int, actualValue string) (func(payout.Entry) bool, error) {
	if bet.Type != models.BetTypePrediction {
		if outcomeIdx == nil {
			return nil, ErrInvalidOption
		}
		winning := map[uint64]bool{}
		for _, p := range parts {
			winning[p.ID] = p.OptionIndex != nil && *p.OptionIndex == *outcomeIdx
		}
		return func(en payout.Entry) bool { return winning[en.ParticipationID] }, nil
	}

	preds, err := tx.ListPredictionsByBet(ctx, bet.ID)
	if err != nil {
		return nil, err
	}
	correct := map[uint64]bool{}
	for _, pred := range preds {
		matched := pred.Matches(actualValue)
		if err := tx.ResolvePrediction(ctx, pred.ID, actualValue, matched); err != nil {
			return nil, err
		}
		correct[pred.ParticipationID] = matched
	}
	return func(en payout.Entry) bool { return correct[en.ParticipationID] }, nil
}

// Cancel refunds every active participation in full and moves the bet to
// CANCELLED. Permitted any time before RESOLVED; the shared CAS discipline
// means cancellation and resolution can never both succeed.
func (e *ResolutionEngine) Cancel(ctx context.Context, betID uint64, actingUser, reason string) (*notify.BetCancelled, error) {
	if e == nil || e.Repo == nil {
		return nil, ErrBetNotFound
	}
	actingUser = strings.TrimSpace(actingUser)

	bet, err := e.Repo.GetBetByID(ctx, betID)
	if err != nil {
		return nil, err
	}
	if bet == nil {
		return nil, ErrBetNotFound
	}
	if bet.Terminal() {
		return nil, ErrAlreadyTransitioned
	}
	if err := e.authorizeCancel(ctx, bet, actingUser); err != nil {
		return nil, err
	}

	reason = strings.TrimSpace(reason)
	event := &notify.BetCancelled{
		BetID:         bet.ID,
		RefundsByUser: map[string]decimal.Decimal{},
		Reason:        reason,
	}
	var credits []pendingCredit
	err = e.Repo.InTx(ctx, func(tx repository.Repository) error {
		tr := repository.BetTransition{To: models.BetStatusCancelled}
		if reason != "" {
			tr.Note = &reason
		}
		transitioned, err := tx.TransitionBetStatus(ctx, bet.ID,
			[]models.BetStatus{models.BetStatusOpen, models.BetStatusClosed}, tr)
		if err != nil {
			return err
		}
		if !transitioned {
			return ErrAlreadyTransitioned
		}

		active := models.ParticipationActive
		parts, err := tx.ListParticipationsByBet(ctx, bet.ID, &active)
		if err != nil {
			return err
		}
		for _, p := range parts {
			if err := tx.SettleParticipation(ctx, p.ID, models.ParticipationRefunded, p.Stake); err != nil {
				return err
			}
			if p.Stake.GreaterThan(decimal.Zero) {
				credits = append(credits, pendingCredit{
					userID: p.UserID,
					amount: p.Stake,
					key:    p.IdempotencyKey + ":payout",
				})
			}
			event.RefundsByUser[p.UserID] = p.Stake
		}
		return insertEvent(ctx, tx, bet.ID, models.EventBetCancelled, event)
	})
	if err != nil {
		return nil, err
	}
	e.applyCredits(ctx, credits)
	if e.Notifier != nil {
		e.Notifier.BetCancelled(ctx, *event)
	}
	if e.Logger != nil {
		e.Logger.Info("bet cancelled",
			zap.Uint64("bet_id", bet.ID),
			zap.Int("refunds", len(event.RefundsByUser)),
		)
	}
	return event, nil
}

func (e *ResolutionEngine) authorizeCancel(ctx context.Context, bet *models.Bet, actingUser string) error {
	if actingUser == "" {
		return ErrNotAuthorized
	}
	if actingUser == bet.CreatorID {
		return nil
	}
	if e.Members != nil {
		ok, err := e.Members.IsAdmin(ctx, bet.GroupID, actingUser)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return ErrNotAuthorized
}

func insertEvent(ctx context.Context, tx repository.Repository, betID uint64, eventType string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return tx.InsertBetEvent(ctx, &models.BetEvent{
		BetID:     betID,
		EventType: eventType,
		Payload:   datatypes.JSON(raw),
	})
}
