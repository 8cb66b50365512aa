package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/koensakamoto/friendbet/internal/account"
	"github.com/koensakamoto/friendbet/internal/models"
	"github.com/koensakamoto/friendbet/internal/repository"
	"github.com/koensakamoto/friendbet/internal/service"
)

// BetHandler exposes the bet lifecycle over HTTP. Identity is caller-supplied
// (user_id in the body, X-User-ID for reads); authentication sits in front of
// this service.
type BetHandler struct {
	Bets      *service.BetService
	Engine    *service.ResolutionEngine
	Consensus *service.ConsensusService
	Resolver  *service.ResolverService
	Repo      repository.Repository
}

func (h *BetHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/bets")
	group.POST("", h.create)
	group.GET("", h.list)
	group.GET("/:id", h.get)
	group.GET("/:id/events", h.events)
	group.POST("/:id/participations", h.placeParticipation)
	group.POST("/:id/close", h.close)
	group.POST("/:id/votes", h.castVote)
	group.POST("/:id/resolve", h.resolve)
	group.POST("/:id/cancel", h.cancel)
	group.POST("/:id/resolvers", h.assignResolver)
	group.DELETE("/:id/resolvers/:resolver", h.revokeResolver)
}

type createBetRequest struct {
	GroupID   string   `json:"group_id"`
	CreatorID string   `json:"creator_id"`
	Question  string   `json:"question"`
	Type      string   `json:"type"`
	Method    string   `json:"method"`
	Options   []string `json:"options"`

	BettingDeadline string  `json:"betting_deadline"`
	ResolveBy       *string `json:"resolve_by"`

	MinStake *string `json:"min_stake"`
	MaxStake *string `json:"max_stake"`

	MinVotesRequired int  `json:"min_votes_required"`
	AllowCreatorVote bool `json:"allow_creator_vote"`
}

func (h *BetHandler) create(c *gin.Context) {
	var req createBetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	deadline, err := time.Parse(time.RFC3339, strings.TrimSpace(req.BettingDeadline))
	if err != nil {
		Error(c, http.StatusBadRequest, "betting_deadline must be RFC3339", nil)
		return
	}
	params := service.CreateBetParams{
		GroupID:          req.GroupID,
		CreatorID:        req.CreatorID,
		Question:         req.Question,
		Type:             models.BetType(strings.ToUpper(strings.TrimSpace(req.Type))),
		Method:           models.ResolutionMethod(strings.ToUpper(strings.TrimSpace(req.Method))),
		Options:          req.Options,
		BettingDeadline:  deadline,
		MinVotesRequired: req.MinVotesRequired,
		AllowCreatorVote: req.AllowCreatorVote,
	}
	if req.ResolveBy != nil && strings.TrimSpace(*req.ResolveBy) != "" {
		rb, err := time.Parse(time.RFC3339, strings.TrimSpace(*req.ResolveBy))
		if err != nil {
			Error(c, http.StatusBadRequest, "resolve_by must be RFC3339", nil)
			return
		}
		params.ResolveBy = &rb
	}
	if params.MinStake, err = parseAmount(req.MinStake); err != nil {
		Error(c, http.StatusBadRequest, "min_stake invalid", nil)
		return
	}
	if params.MaxStake, err = parseAmount(req.MaxStake); err != nil {
		Error(c, http.StatusBadRequest, "max_stake invalid", nil)
		return
	}

	bet, err := h.Bets.CreateBet(c.Request.Context(), params)
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, bet, nil)
}

func (h *BetHandler) list(c *gin.Context) {
	params := repository.ListBetsParams{
		Limit:  parseIntQuery(c, "limit", 50),
		Offset: parseIntQuery(c, "offset", 0),
	}
	if v := strings.TrimSpace(c.Query("group_id")); v != "" {
		params.GroupID = &v
	}
	if v := strings.TrimSpace(c.Query("creator_id")); v != "" {
		params.CreatorID = &v
	}
	if v := strings.ToUpper(strings.TrimSpace(c.Query("status"))); v != "" {
		status := models.BetStatus(v)
		params.Status = &status
	}
	items, total, err := h.Bets.ListBets(c.Request.Context(), params)
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, items, map[string]any{
		"total":  total,
		"limit":  params.Limit,
		"offset": params.Offset,
	})
}

func (h *BetHandler) get(c *gin.Context) {
	id, ok := betID(c)
	if !ok {
		return
	}
	state, err := h.Bets.GetBetState(c.Request.Context(), id)
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, state, nil)
}

func (h *BetHandler) events(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id, ok := betID(c)
	if !ok {
		return
	}
	events, err := h.Repo.ListBetEvents(c.Request.Context(), id, parseIntQuery(c, "limit", 50))
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, events, nil)
}

type placeParticipationRequest struct {
	UserID         string  `json:"user_id"`
	OptionIndex    *int    `json:"option_index"`
	PredictedValue *string `json:"predicted_value"`
	Amount         string  `json:"amount"`
}

func (h *BetHandler) placeParticipation(c *gin.Context) {
	id, ok := betID(c)
	if !ok {
		return
	}
	var req placeParticipationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		Error(c, http.StatusBadRequest, "amount invalid", nil)
		return
	}
	p, err := h.Bets.PlaceParticipation(c.Request.Context(), service.PlaceParticipationParams{
		BetID:          id,
		UserID:         req.UserID,
		OptionIndex:    req.OptionIndex,
		PredictedValue: req.PredictedValue,
		Amount:         amount,
	})
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, p, nil)
}

func (h *BetHandler) close(c *gin.Context) {
	id, ok := betID(c)
	if !ok {
		return
	}
	transitioned, err := h.Bets.CloseForBetting(c.Request.Context(), id)
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, gin.H{"closed": transitioned}, nil)
}

type castVoteRequest struct {
	VoterID     string `json:"voter_id"`
	OptionIndex int    `json:"option_index"`
	Reasoning   string `json:"reasoning"`
}

func (h *BetHandler) castVote(c *gin.Context) {
	if h.Consensus == nil {
		Error(c, http.StatusInternalServerError, "consensus unavailable", nil)
		return
	}
	id, ok := betID(c)
	if !ok {
		return
	}
	var req castVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	vote, err := h.Consensus.CastVote(c.Request.Context(), service.CastVoteParams{
		BetID:       id,
		VoterID:     req.VoterID,
		OptionIndex: req.OptionIndex,
		Reasoning:   req.Reasoning,
	})
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, vote, nil)
}

type resolveRequest struct {
	ActingUser   string  `json:"acting_user"`
	OutcomeIndex *int    `json:"outcome_index"`
	ActualValue  *string `json:"actual_value"`
	Reasoning    string  `json:"reasoning"`
}

func (h *BetHandler) resolve(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	id, ok := betID(c)
	if !ok {
		return
	}
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	result, err := h.Engine.Resolve(c.Request.Context(), service.ResolveParams{
		BetID:        id,
		ActingUser:   req.ActingUser,
		OutcomeIndex: req.OutcomeIndex,
		ActualValue:  req.ActualValue,
		Reasoning:    req.Reasoning,
	})
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, result, nil)
}

type cancelRequest struct {
	ActingUser string `json:"acting_user"`
	Reason     string `json:"reason"`
}

func (h *BetHandler) cancel(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	id, ok := betID(c)
	if !ok {
		return
	}
	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	event, err := h.Engine.Cancel(c.Request.Context(), id, req.ActingUser, req.Reason)
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, event, nil)
}

type assignResolverRequest struct {
	ResolverID string `json:"resolver_id"`
	ActingUser string `json:"acting_user"`
	VoteOnly   bool   `json:"vote_only"`
	Reason     string `json:"reason"`
}

func (h *BetHandler) assignResolver(c *gin.Context) {
	if h.Resolver == nil {
		Error(c, http.StatusInternalServerError, "resolver unavailable", nil)
		return
	}
	id, ok := betID(c)
	if !ok {
		return
	}
	var req assignResolverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	a, err := h.Resolver.Assign(c.Request.Context(), service.AssignResolverParams{
		BetID:      id,
		ResolverID: req.ResolverID,
		ActingUser: req.ActingUser,
		VoteOnly:   req.VoteOnly,
		Reason:     req.Reason,
	})
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, a, nil)
}

func (h *BetHandler) revokeResolver(c *gin.Context) {
	if h.Resolver == nil {
		Error(c, http.StatusInternalServerError, "resolver unavailable", nil)
		return
	}
	id, ok := betID(c)
	if !ok {
		return
	}
	actingUser := strings.TrimSpace(c.GetHeader("X-User-ID"))
	err := h.Resolver.Revoke(c.Request.Context(), id, c.Param("resolver"), actingUser)
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, gin.H{"revoked": true}, nil)
}

func betID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || id == 0 {
		Error(c, http.StatusBadRequest, "invalid bet id", nil)
		return 0, false
	}
	return id, true
}

func parseAmount(s *string) (decimal.Decimal, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(strings.TrimSpace(*s))
}

func parseIntQuery(c *gin.Context, key string, def int) int {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// serviceRejections maps each service sentinel onto an HTTP status and a
// stable reason code for the response envelope.
var serviceRejections = []struct {
	err    error
	status int
	reason string
}{
	{service.ErrBetNotFound, http.StatusNotFound, "bet_not_found"},
	{service.ErrAssignmentNotFound, http.StatusNotFound, "assignment_not_found"},
	{service.ErrNotAuthorized, http.StatusForbidden, "not_authorized"},
	{service.ErrAlreadyTransitioned, http.StatusConflict, "already_transitioned"},
	{service.ErrDuplicateParticipation, http.StatusConflict, "duplicate_participation"},
	{service.ErrDuplicateAssignment, http.StatusConflict, "duplicate_assignment"},
	{service.ErrBetNotOpen, http.StatusConflict, "bet_not_open"},
	{service.ErrBetNotClosed, http.StatusConflict, "bet_not_closed"},
	{service.ErrDeadlinePassed, http.StatusConflict, "deadline_passed"},
	{service.ErrStakeOutOfBounds, http.StatusBadRequest, "stake_out_of_bounds"},
	{service.ErrInvalidOption, http.StatusBadRequest, "invalid_option"},
	{service.ErrInvalidPrediction, http.StatusBadRequest, "invalid_prediction"},
	{service.ErrInvalidBetSpec, http.StatusBadRequest, "invalid_bet_spec"},
	{account.ErrInsufficientFunds, http.StatusBadRequest, "insufficient_funds"},
}

func serviceError(c *gin.Context, err error) {
	for _, r := range serviceRejections {
		if errors.Is(err, r.err) {
			Reject(c, r.status, r.reason, err.Error())
			return
		}
	}
	Error(c, http.StatusInternalServerError, err.Error(), nil)
}
