package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/koensakamoto/friendbet/internal/account"
	"github.com/koensakamoto/friendbet/internal/membership"
	"github.com/koensakamoto/friendbet/internal/models"
)

func newTestEngine(repo *stubRepo, ledger *account.MemoryLedger) *ResolutionEngine {
	members := &membership.StaticService{
		Admins:  map[string][]string{"g1": {"root"}},
		Members: map[string][]string{"g1": {"alice", "bob", "carol", "dave"}},
	}
	resolver := &ResolverService{Repo: repo, Members: members}
	consensus := &ConsensusService{Repo: repo, Resolver: resolver}
	var l account.Ledger
	if ledger != nil {
		l = ledger
	}
	return NewResolutionEngine(repo, l, members, consensus, resolver, nil, nil)
}

// addStake inserts an active participation directly and folds it into the
// bet's pool, bypassing placement validation.
func addStake(t *testing.T, repo *stubRepo, betID uint64, user string, option *int, stake decimal.Decimal) *models.Participation {
	t.Helper()
	ctx := context.Background()
	p := &models.Participation{
		BetID:           betID,
		UserID:          user,
		OptionIndex:     option,
		Stake:           stake,
		PotentialPayout: stake,
		Status:          models.ParticipationActive,
		IdempotencyKey:  fmt.Sprintf("key-%d-%s", betID, user),
	}
	if err := repo.InsertParticipation(ctx, p); err != nil {
		t.Fatalf("InsertParticipation: %v", err)
	}
	if err := repo.AddToBetPool(ctx, betID, stake); err != nil {
		t.Fatalf("AddToBetPool: %v", err)
	}
	return p
}

func addPrediction(t *testing.T, repo *stubRepo, betID uint64, user, value string, stake decimal.Decimal) *models.Participation {
	t.Helper()
	p := addStake(t, repo, betID, user, nil, stake)
	err := repo.InsertPrediction(context.Background(), &models.Prediction{
		BetID:           betID,
		ParticipationID: p.ID,
		PredictedValue:  value,
	})
	if err != nil {
		t.Fatalf("InsertPrediction: %v", err)
	}
	return p
}

func participationsByUser(t *testing.T, repo *stubRepo, betID uint64) map[string]models.Participation {
	t.Helper()
	parts, err := repo.ListParticipationsByBet(context.Background(), betID, nil)
	if err != nil {
		t.Fatalf("ListParticipationsByBet: %v", err)
	}
	out := map[string]models.Participation{}
	for _, p := range parts {
		out[p.UserID] = p
	}
	return out
}

func TestResolve_BinarySettlement(t *testing.T) {
	repo := newStubRepo()
	ledger := account.NewMemoryLedger()
	engine := newTestEngine(repo, ledger)
	bet := seedOpenBet(t, repo, func(b *models.Bet) { b.Status = models.BetStatusClosed })
	addStake(t, repo, bet.ID, "bob", intPtr(1), d("10"))
	addStake(t, repo, bet.ID, "carol", intPtr(2), d("5"))

	ctx := context.Background()
	res, err := engine.Resolve(ctx, ResolveParams{
		BetID:        bet.ID,
		ActingUser:   "alice",
		OutcomeIndex: intPtr(1),
		Reasoning:    "it rained",
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Pending {
		t.Fatal("unexpected pending result")
	}

	got, _ := repo.GetBetByID(ctx, bet.ID)
	if got.Status != models.BetStatusResolved {
		t.Fatalf("status = %s, want RESOLVED", got.Status)
	}
	if got.Outcome == nil || *got.Outcome != 1 {
		t.Fatalf("outcome = %v, want 1", got.Outcome)
	}
	if got.ResolvedAt == nil {
		t.Fatal("ResolvedAt not set")
	}

	byUser := participationsByUser(t, repo, bet.ID)
	bob, carol := byUser["bob"], byUser["carol"]
	if bob.Status != models.ParticipationWon || bob.Payout == nil || !bob.Payout.Equal(d("15")) {
		t.Fatalf("bob = %s/%v, want WON 15.00", bob.Status, bob.Payout)
	}
	if carol.Status != models.ParticipationLost || carol.Payout == nil || !carol.Payout.IsZero() {
		t.Fatalf("carol = %s/%v, want LOST 0", carol.Status, carol.Payout)
	}
	if !ledger.Balance("bob").Equal(d("15")) {
		t.Fatalf("bob ledger = %s, want 15", ledger.Balance("bob"))
	}
	if !ledger.Balance("carol").IsZero() {
		t.Fatalf("carol ledger = %s, want 0", ledger.Balance("carol"))
	}

	if len(res.Event.Winners) != 1 || res.Event.Winners[0] != "bob" {
		t.Fatalf("winners = %v", res.Event.Winners)
	}
	if len(res.Event.Losers) != 1 || res.Event.Losers[0] != "carol" {
		t.Fatalf("losers = %v", res.Event.Losers)
	}

	events, _ := repo.ListBetEvents(ctx, bet.ID, 10)
	if len(events) != 1 || events[0].EventType != models.EventBetResolved {
		t.Fatalf("events = %+v, want one bet_resolved", events)
	}
}

func TestResolve_SecondAttemptLosesRace(t *testing.T) {
	repo := newStubRepo()
	engine := newTestEngine(repo, nil)
	bet := seedOpenBet(t, repo, func(b *models.Bet) { b.Status = models.BetStatusClosed })
	addStake(t, repo, bet.ID, "bob", intPtr(1), d("10"))

	ctx := context.Background()
	params := ResolveParams{BetID: bet.ID, ActingUser: "alice", OutcomeIndex: intPtr(1)}
	if _, err := engine.Resolve(ctx, params); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	if _, err := engine.Resolve(ctx, params); !errors.Is(err, ErrAlreadyTransitioned) {
		t.Fatalf("second resolve err = %v, want ErrAlreadyTransitioned", err)
	}
	// Exactly one settlement event.
	events, _ := repo.ListBetEvents(ctx, bet.ID, 10)
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
}

func TestResolve_Authorization(t *testing.T) {
	ctx := context.Background()

	t.Run("creator method rejects non-creator", func(t *testing.T) {
		repo := newStubRepo()
		engine := newTestEngine(repo, nil)
		bet := seedOpenBet(t, repo, func(b *models.Bet) { b.Status = models.BetStatusClosed })
		_, err := engine.Resolve(ctx, ResolveParams{BetID: bet.ID, ActingUser: "bob", OutcomeIndex: intPtr(1)})
		if !errors.Is(err, ErrNotAuthorized) {
			t.Fatalf("err = %v, want ErrNotAuthorized", err)
		}
	})

	t.Run("assigned resolver may resolve", func(t *testing.T) {
		repo := newStubRepo()
		engine := newTestEngine(repo, nil)
		bet := seedOpenBet(t, repo, func(b *models.Bet) {
			b.Status = models.BetStatusClosed
			b.Method = models.ResolutionMethodAssignedResolver
		})
		err := repo.InsertResolverAssignment(ctx, &models.ResolverAssignment{
			BetID: bet.ID, ResolverID: "dave", AssignedBy: "alice",
		})
		if err != nil {
			t.Fatalf("assign: %v", err)
		}
		if _, err := engine.Resolve(ctx, ResolveParams{BetID: bet.ID, ActingUser: "dave", OutcomeIndex: intPtr(2)}); err != nil {
			t.Fatalf("Resolve: %v", err)
		}
	})

	t.Run("vote-only assignment cannot resolve", func(t *testing.T) {
		repo := newStubRepo()
		engine := newTestEngine(repo, nil)
		bet := seedOpenBet(t, repo, func(b *models.Bet) {
			b.Status = models.BetStatusClosed
			b.Method = models.ResolutionMethodAssignedResolver
		})
		err := repo.InsertResolverAssignment(ctx, &models.ResolverAssignment{
			BetID: bet.ID, ResolverID: "dave", AssignedBy: "alice", VoteOnly: true,
		})
		if err != nil {
			t.Fatalf("assign: %v", err)
		}
		_, err = engine.Resolve(ctx, ResolveParams{BetID: bet.ID, ActingUser: "dave", OutcomeIndex: intPtr(2)})
		if !errors.Is(err, ErrNotAuthorized) {
			t.Fatalf("err = %v, want ErrNotAuthorized", err)
		}
	})
}

func TestResolve_OpenBet(t *testing.T) {
	ctx := context.Background()

	t.Run("before deadline", func(t *testing.T) {
		repo := newStubRepo()
		engine := newTestEngine(repo, nil)
		bet := seedOpenBet(t, repo, nil)
		_, err := engine.Resolve(ctx, ResolveParams{BetID: bet.ID, ActingUser: "alice", OutcomeIndex: intPtr(1)})
		if !errors.Is(err, ErrBetNotClosed) {
			t.Fatalf("err = %v, want ErrBetNotClosed", err)
		}
	})

	t.Run("past deadline auto-closes and resolves", func(t *testing.T) {
		repo := newStubRepo()
		engine := newTestEngine(repo, nil)
		bet := seedOpenBet(t, repo, func(b *models.Bet) {
			b.BettingDeadline = time.Now().UTC().Add(-time.Minute)
		})
		addStake(t, repo, bet.ID, "bob", intPtr(1), d("10"))
		if _, err := engine.Resolve(ctx, ResolveParams{BetID: bet.ID, ActingUser: "alice", OutcomeIndex: intPtr(1)}); err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		got, _ := repo.GetBetByID(ctx, bet.ID)
		if got.Status != models.BetStatusResolved {
			t.Fatalf("status = %s, want RESOLVED", got.Status)
		}
	})
}

func TestResolve_NoWinnersRefundsEveryone(t *testing.T) {
	repo := newStubRepo()
	ledger := account.NewMemoryLedger()
	engine := newTestEngine(repo, ledger)
	bet := seedOpenBet(t, repo, func(b *models.Bet) { b.Status = models.BetStatusClosed })
	addStake(t, repo, bet.ID, "bob", intPtr(1), d("10"))
	addStake(t, repo, bet.ID, "carol", intPtr(1), d("20"))

	if _, err := engine.Resolve(context.Background(), ResolveParams{
		BetID: bet.ID, ActingUser: "alice", OutcomeIndex: intPtr(2),
	}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	byUser := participationsByUser(t, repo, bet.ID)
	for user, stake := range map[string]string{"bob": "10", "carol": "20"} {
		p := byUser[user]
		if p.Status != models.ParticipationRefunded {
			t.Fatalf("%s status = %s, want REFUNDED", user, p.Status)
		}
		if p.Payout == nil || !p.Payout.Equal(d(stake)) {
			t.Fatalf("%s payout = %v, want %s", user, p.Payout, stake)
		}
		if !ledger.Balance(user).Equal(d(stake)) {
			t.Fatalf("%s ledger = %s, want %s", user, ledger.Balance(user), stake)
		}
	}
}

func TestResolve_RoundingConservesPool(t *testing.T) {
	repo := newStubRepo()
	engine := newTestEngine(repo, nil)
	bet := seedOpenBet(t, repo, func(b *models.Bet) { b.Status = models.BetStatusClosed })
	// Three equal winners splitting a 10.00 losing pool cannot split evenly;
	// the 0.01 residual must land on exactly one of them.
	addStake(t, repo, bet.ID, "alice", intPtr(1), d("10"))
	addStake(t, repo, bet.ID, "bob", intPtr(1), d("10"))
	addStake(t, repo, bet.ID, "carol", intPtr(1), d("10"))
	addStake(t, repo, bet.ID, "dave", intPtr(2), d("10"))

	if _, err := engine.Resolve(context.Background(), ResolveParams{
		BetID: bet.ID, ActingUser: "alice", OutcomeIndex: intPtr(1),
	}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	byUser := participationsByUser(t, repo, bet.ID)
	total := decimal.Zero
	for _, user := range []string{"alice", "bob", "carol", "dave"} {
		p := byUser[user]
		if p.Payout == nil {
			t.Fatalf("%s has no payout", user)
		}
		total = total.Add(*p.Payout)
	}
	if !total.Equal(d("40")) {
		t.Fatalf("payout sum = %s, want exactly the 40.00 pool", total)
	}
	if byUser["dave"].Status != models.ParticipationLost {
		t.Fatalf("dave status = %s, want LOST", byUser["dave"].Status)
	}
}

func TestResolve_ConsensusTieStaysPending(t *testing.T) {
	repo := newStubRepo()
	engine := newTestEngine(repo, nil)
	bet := seedConsensusBet(t, repo, func(b *models.Bet) { b.MinVotesRequired = 3 })
	addStake(t, repo, bet.ID, "bob", intPtr(1), d("10"))

	ctx := context.Background()
	for voter, option := range map[string]int{"v1": 1, "v2": 1, "v3": 2, "v4": 2} {
		err := repo.InsertResolutionVote(ctx, &models.ResolutionVote{
			BetID: bet.ID, VoterID: voter, OptionIndex: option,
		})
		if err != nil {
			t.Fatalf("vote %s: %v", voter, err)
		}
	}

	res, err := engine.Resolve(ctx, ResolveParams{BetID: bet.ID})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !res.Pending {
		t.Fatal("expected pending result on a tied tally")
	}
	if res.Tally == nil || !res.Tally.Blocked {
		t.Fatalf("tally = %+v, want blocked", res.Tally)
	}

	got, _ := repo.GetBetByID(ctx, bet.ID)
	if got.Status != models.BetStatusClosed {
		t.Fatalf("status = %s, want CLOSED to stay", got.Status)
	}
	byUser := participationsByUser(t, repo, bet.ID)
	if byUser["bob"].Status != models.ParticipationActive {
		t.Fatalf("participation settled on a pending tally: %s", byUser["bob"].Status)
	}
}

func TestResolve_ConsensusBelowMinimumStaysPending(t *testing.T) {
	repo := newStubRepo()
	engine := newTestEngine(repo, nil)
	bet := seedConsensusBet(t, repo, func(b *models.Bet) { b.MinVotesRequired = 3 })

	ctx := context.Background()
	for _, voter := range []string{"v1", "v2"} {
		err := repo.InsertResolutionVote(ctx, &models.ResolutionVote{
			BetID: bet.ID, VoterID: voter, OptionIndex: 1,
		})
		if err != nil {
			t.Fatalf("vote %s: %v", voter, err)
		}
	}

	res, err := engine.Resolve(ctx, ResolveParams{BetID: bet.ID})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !res.Pending || res.Tally == nil || res.Tally.Reason != "below minimum vote count" {
		t.Fatalf("result = %+v, want pending below-minimum tally", res)
	}
}

func TestResolve_ConsensusPluralitySettles(t *testing.T) {
	repo := newStubRepo()
	engine := newTestEngine(repo, nil)
	bet := seedConsensusBet(t, repo, func(b *models.Bet) { b.MinVotesRequired = 3 })
	addStake(t, repo, bet.ID, "bob", intPtr(1), d("10"))
	addStake(t, repo, bet.ID, "carol", intPtr(2), d("10"))

	ctx := context.Background()
	for voter, option := range map[string]int{"v1": 1, "v2": 1, "v3": 2} {
		err := repo.InsertResolutionVote(ctx, &models.ResolutionVote{
			BetID: bet.ID, VoterID: voter, OptionIndex: option,
		})
		if err != nil {
			t.Fatalf("vote %s: %v", voter, err)
		}
	}

	// Empty acting user: the scheduler triggers the attempt.
	res, err := engine.Resolve(ctx, ResolveParams{BetID: bet.ID})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Pending {
		t.Fatal("expected settlement, got pending")
	}
	got, _ := repo.GetBetByID(ctx, bet.ID)
	if got.Status != models.BetStatusResolved || got.Outcome == nil || *got.Outcome != 1 {
		t.Fatalf("bet = %s/%v, want RESOLVED outcome 1", got.Status, got.Outcome)
	}
}

func TestResolve_PredictionMatchesAreCaseInsensitive(t *testing.T) {
	repo := newStubRepo()
	engine := newTestEngine(repo, nil)
	bet := seedOpenBet(t, repo, func(b *models.Bet) {
		b.Status = models.BetStatusClosed
		b.Type = models.BetTypePrediction
		b.OptionLabels = nil
	})
	addPrediction(t, repo, bet.ID, "bob", "42 points", d("10"))
	addPrediction(t, repo, bet.ID, "carol", "  42 POINTS ", d("10"))
	addPrediction(t, repo, bet.ID, "dave", "50 points", d("10"))

	ctx := context.Background()
	if _, err := engine.Resolve(ctx, ResolveParams{
		BetID: bet.ID, ActingUser: "alice", ActualValue: strPtr("42 Points"),
	}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	byUser := participationsByUser(t, repo, bet.ID)
	// Two correct predictors split the 30 pool evenly: 10 + 10/2*10 = 15.
	for _, user := range []string{"bob", "carol"} {
		p := byUser[user]
		if p.Status != models.ParticipationWon || p.Payout == nil || !p.Payout.Equal(d("15")) {
			t.Fatalf("%s = %s/%v, want WON 15", user, p.Status, p.Payout)
		}
	}
	if byUser["dave"].Status != models.ParticipationLost {
		t.Fatalf("dave = %s, want LOST", byUser["dave"].Status)
	}

	preds, _ := repo.ListPredictionsByBet(ctx, bet.ID)
	for _, pred := range preds {
		if pred.Correct == nil || pred.ActualValue == nil {
			t.Fatalf("prediction %d not marked", pred.ID)
		}
	}
	got, _ := repo.GetBetByID(ctx, bet.ID)
	if got.ResolvedValue == nil || *got.ResolvedValue != "42 Points" {
		t.Fatalf("resolved value = %v", got.ResolvedValue)
	}
}

func TestResolve_PredictionWithNoCorrectPredictorsRefunds(t *testing.T) {
	repo := newStubRepo()
	engine := newTestEngine(repo, nil)
	bet := seedOpenBet(t, repo, func(b *models.Bet) {
		b.Status = models.BetStatusClosed
		b.Type = models.BetTypePrediction
		b.OptionLabels = nil
	})
	addPrediction(t, repo, bet.ID, "bob", "10", d("10"))
	addPrediction(t, repo, bet.ID, "carol", "20", d("25"))

	if _, err := engine.Resolve(context.Background(), ResolveParams{
		BetID: bet.ID, ActingUser: "alice", ActualValue: strPtr("30"),
	}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	byUser := participationsByUser(t, repo, bet.ID)
	for user, stake := range map[string]string{"bob": "10", "carol": "25"} {
		p := byUser[user]
		if p.Status != models.ParticipationRefunded || p.Payout == nil || !p.Payout.Equal(d(stake)) {
			t.Fatalf("%s = %s/%v, want REFUNDED %s", user, p.Status, p.Payout, stake)
		}
	}
}

func TestResolve_PredictionRequiresActualValue(t *testing.T) {
	repo := newStubRepo()
	engine := newTestEngine(repo, nil)
	bet := seedOpenBet(t, repo, func(b *models.Bet) {
		b.Status = models.BetStatusClosed
		b.Type = models.BetTypePrediction
		b.OptionLabels = nil
	})
	_, err := engine.Resolve(context.Background(), ResolveParams{BetID: bet.ID, ActingUser: "alice"})
	if !errors.Is(err, ErrInvalidPrediction) {
		t.Fatalf("err = %v, want ErrInvalidPrediction", err)
	}
}

func TestResolve_SettlementAbortRollsBackEverything(t *testing.T) {
	repo := newStubRepo()
	ledger := account.NewMemoryLedger()
	engine := newTestEngine(repo, ledger)
	bet := seedOpenBet(t, repo, func(b *models.Bet) { b.Status = models.BetStatusClosed })
	addStake(t, repo, bet.ID, "bob", intPtr(1), d("10"))
	addStake(t, repo, bet.ID, "carol", intPtr(1), d("10"))
	addStake(t, repo, bet.ID, "dave", intPtr(2), d("10"))
	repo.settleFailAfter = 1

	ctx := context.Background()
	_, err := engine.Resolve(ctx, ResolveParams{BetID: bet.ID, ActingUser: "alice", OutcomeIndex: intPtr(1)})
	if err == nil {
		t.Fatal("expected injected settlement failure")
	}

	got, _ := repo.GetBetByID(ctx, bet.ID)
	if got.Status != models.BetStatusClosed {
		t.Fatalf("status = %s, want CLOSED restored", got.Status)
	}
	for user, p := range participationsByUser(t, repo, bet.ID) {
		if p.Status != models.ParticipationActive || p.Payout != nil {
			t.Fatalf("%s = %s/%v, want ACTIVE with no payout", user, p.Status, p.Payout)
		}
		// The aborted settlement must leave the external ledger untouched.
		if !ledger.Balance(user).IsZero() {
			t.Fatalf("%s ledger = %s after abort, want 0", user, ledger.Balance(user))
		}
	}
	if events, _ := repo.ListBetEvents(ctx, bet.ID, 10); len(events) != 0 {
		t.Fatalf("events = %d after rollback, want 0", len(events))
	}

	// A later cancellation must still refund every stake in full; the abort
	// must not have burned the per-participation idempotency keys.
	repo.settleFailAfter = -1
	if _, err := engine.Cancel(ctx, bet.ID, "alice", "outcome disputed"); err != nil {
		t.Fatalf("Cancel after aborted settlement: %v", err)
	}
	for _, user := range []string{"bob", "carol", "dave"} {
		if !ledger.Balance(user).Equal(d("10")) {
			t.Fatalf("%s ledger = %s after cancel, want 10 refund", user, ledger.Balance(user))
		}
	}
}

func TestCancel_RefundsAllActiveStakes(t *testing.T) {
	repo := newStubRepo()
	ledger := account.NewMemoryLedger()
	engine := newTestEngine(repo, ledger)
	bet := seedOpenBet(t, repo, nil)
	addStake(t, repo, bet.ID, "bob", intPtr(1), d("10"))
	addStake(t, repo, bet.ID, "carol", intPtr(2), d("20"))
	addStake(t, repo, bet.ID, "dave", intPtr(1), d("30"))

	ctx := context.Background()
	event, err := engine.Cancel(ctx, bet.ID, "alice", "game called off")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	got, _ := repo.GetBetByID(ctx, bet.ID)
	if got.Status != models.BetStatusCancelled {
		t.Fatalf("status = %s, want CANCELLED", got.Status)
	}
	wantRefunds := map[string]string{"bob": "10", "carol": "20", "dave": "30"}
	for user, stake := range wantRefunds {
		p := participationsByUser(t, repo, bet.ID)[user]
		if p.Status != models.ParticipationRefunded || p.Payout == nil || !p.Payout.Equal(d(stake)) {
			t.Fatalf("%s = %s/%v, want REFUNDED %s", user, p.Status, p.Payout, stake)
		}
		if !ledger.Balance(user).Equal(d(stake)) {
			t.Fatalf("%s ledger = %s, want %s", user, ledger.Balance(user), stake)
		}
		if !event.RefundsByUser[user].Equal(d(stake)) {
			t.Fatalf("event refund %s = %s, want %s", user, event.RefundsByUser[user], stake)
		}
	}
	events, _ := repo.ListBetEvents(ctx, bet.ID, 10)
	if len(events) != 1 || events[0].EventType != models.EventBetCancelled {
		t.Fatalf("events = %+v, want one bet_cancelled", events)
	}
}

func TestCancel_Authorization(t *testing.T) {
	ctx := context.Background()

	t.Run("admin may cancel", func(t *testing.T) {
		repo := newStubRepo()
		engine := newTestEngine(repo, nil)
		bet := seedOpenBet(t, repo, nil)
		if _, err := engine.Cancel(ctx, bet.ID, "root", ""); err != nil {
			t.Fatalf("Cancel: %v", err)
		}
	})

	t.Run("member may not cancel", func(t *testing.T) {
		repo := newStubRepo()
		engine := newTestEngine(repo, nil)
		bet := seedOpenBet(t, repo, nil)
		if _, err := engine.Cancel(ctx, bet.ID, "bob", ""); !errors.Is(err, ErrNotAuthorized) {
			t.Fatalf("err = %v, want ErrNotAuthorized", err)
		}
	})

	t.Run("resolved bet cannot be cancelled", func(t *testing.T) {
		repo := newStubRepo()
		engine := newTestEngine(repo, nil)
		bet := seedOpenBet(t, repo, func(b *models.Bet) { b.Status = models.BetStatusResolved })
		if _, err := engine.Cancel(ctx, bet.ID, "alice", ""); !errors.Is(err, ErrAlreadyTransitioned) {
			t.Fatalf("err = %v, want ErrAlreadyTransitioned", err)
		}
	})
}
