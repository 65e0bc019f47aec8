/*
handlers.go - HTTP API handlers for the coin economy

PURPOSE:
  Exposes the coin economy via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the domain managers.

ENDPOINTS:
  Users:
    POST   /api/users                       Create a ledger entry
    GET    /api/users/{id}                  Get profile
    POST   /api/users/{id}/login            Daily login (idempotent per day)
    POST   /api/users/{id}/allocation       Grant monthly allocation
    POST   /api/users/{id}/actions/{action} Earn a fixed catalog action
    GET    /api/users/{id}/transactions     Transaction history
    GET    /api/users/{id}/stats            Weekly + billing-month stats
    GET    /api/users/{id}/recommendations  Ranked coaching suggestions
    GET    /api/users/{id}/questions        User's questions

  Actions:
    GET    /api/actions                     The action catalog

  Forum:
    GET    /api/questions                   Recent questions
    POST   /api/questions                   Ask (spends coins)
    GET    /api/questions/{id}              One question
    GET    /api/questions/{id}/answers      Its answers
    POST   /api/questions/{id}/answers      Answer it
    POST   /api/answers/{id}/rate           Rate / accept (pays answerer)
    POST   /api/answers/{id}/vote           Up/down vote

  Coach:
    GET    /api/coach/personas              Available personas
    POST   /api/coach/chat                  One chat completion

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, unknown actions
  - 402: Insufficient balance
  - 403: Acting on someone else's records
  - 404: User/question/answer not found
  - 409: Conflict (duplicate user, already rated/voted/accepted)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/alpharise/coin-engine/coach"
	"github.com/alpharise/coin-engine/economy"
	"github.com/alpharise/coin-engine/qa"
	"github.com/alpharise/coin-engine/recommend"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Economy     *economy.Manager
	Forum       *qa.Manager
	Recommender *recommend.Engine
	Coach       *coach.Client
}

// NewHandler creates a new handler.
func NewHandler(eco *economy.Manager, forum *qa.Manager, rec *recommend.Engine, coachClient *coach.Client) *Handler {
	return &Handler{
		Economy:     eco,
		Forum:       forum,
		Recommender: rec,
		Coach:       coachClient,
	}
}

// =============================================================================
// USER HANDLERS
// =============================================================================

// CreateUser creates a ledger entry for a new user.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	p, err := h.Economy.CreateUser(r.Context(), req.UserID, req.Username, economy.SubscriptionTier(req.Subscription))
	if err != nil {
		writeDomainError(w, "Failed to create user", err)
		return
	}

	writeJSON(w, http.StatusCreated, toProfileDTO(p))
}

// GetUser returns a user's profile.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	p, err := h.Economy.GetProfile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to get user", err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileDTO(p))
}

// DailyLogin records a daily login. A repeat login on the same calendar
// day returns 200 with an empty transaction list.
func (h *Handler) DailyLogin(w http.ResponseWriter, r *http.Request) {
	txs, err := h.Economy.DailyLogin(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to record login", err)
		return
	}

	dtos := toTransactionDTOs(txs)
	observeTransactions(dtos...)
	writeJSON(w, http.StatusOK, dtos)
}

// MonthlyAllocation grants the user's monthly coin allocation and
// starts a fresh billing month.
func (h *Handler) MonthlyAllocation(w http.ResponseWriter, r *http.Request) {
	tx, err := h.Economy.MonthlyAllocation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to grant allocation", err)
		return
	}

	dto := toTransactionDTO(*tx)
	observeTransactions(dto)
	writeJSON(w, http.StatusOK, dto)
}

// EarnAction grants a fixed catalog action (e.g. profile completion).
func (h *Handler) EarnAction(w http.ResponseWriter, r *http.Request) {
	tx, err := h.Economy.EarnAction(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "action"))
	if err != nil {
		writeDomainError(w, "Failed to grant action", err)
		return
	}

	dto := toTransactionDTO(*tx)
	observeTransactions(dto)
	writeJSON(w, http.StatusOK, dto)
}

// GetTransactions returns a user's transaction history, most recent
// first. ?limit=N caps the result (default 50).
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}

	txs, err := h.Economy.Transactions(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		writeDomainError(w, "Failed to get transactions", err)
		return
	}

	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

// GetStats returns profile, trailing-week and billing-month aggregates.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Economy.Stats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to get stats", err)
		return
	}

	writeJSON(w, http.StatusOK, StatsDTO{
		Profile: toProfileDTO(&stats.Profile),
		Weekly: WeeklyStatsDTO{
			Earned:           stats.Weekly.Earned,
			Spent:            stats.Weekly.Spent,
			TransactionCount: stats.Weekly.TransactionCount,
		},
		Monthly: MonthlyStatsDTO{
			Earned:                stats.Monthly.Earned,
			DiscountProgress:      stats.Monthly.DiscountProgress.String(),
			NextDiscountThreshold: stats.Monthly.NextDiscountThreshold,
		},
	})
}

// GetRecommendations returns ranked coaching suggestions for a user.
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	stats, err := h.Economy.Stats(r.Context(), userID)
	if err != nil {
		writeDomainError(w, "Failed to get stats", err)
		return
	}

	recs := h.Recommender.Recommend(stats, h.Forum.ActivityFor(userID))
	writeJSON(w, http.StatusOK, recs)
}

// RecentActivity returns the newest transactions across all users.
// ?limit=N caps the result (default 50).
func (h *Handler) RecentActivity(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}

	txs, err := h.Economy.RecentActivity(r.Context(), limit)
	if err != nil {
		writeDomainError(w, "Failed to get recent activity", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

// =============================================================================
// CATALOG HANDLERS
// =============================================================================

// ListActions returns the static action catalog.
func (h *Handler) ListActions(w http.ResponseWriter, r *http.Request) {
	actions := economy.Actions()
	dtos := make([]ActionDTO, len(actions))
	for i, a := range actions {
		dtos[i] = ActionDTO{
			ID:          a.ID,
			Name:        a.Name,
			Type:        string(a.Type),
			Amount:      a.Amount,
			Description: a.Description,
			Category:    string(a.Category),
			Icon:        a.Icon,
			Conditions:  a.Conditions,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// FORUM HANDLERS
// =============================================================================

// ListQuestions returns recent questions. ?limit=N caps the result.
func (h *Handler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}

	questions := h.Forum.Recent(limit)
	dtos := make([]QuestionDTO, len(questions))
	for i := range questions {
		dtos[i] = toQuestionDTO(&questions[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// AskQuestion posts a question, charging the asker for the kind plus
// any bounty. A failed charge creates nothing.
func (h *Handler) AskQuestion(w http.ResponseWriter, r *http.Request) {
	var req AskQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	kind := economy.QuestionKind(req.Kind)
	if kind == "" {
		kind = economy.QuestionRegular
	}

	q, tx, err := h.Forum.Ask(r.Context(), req.UserID, req.Title, req.Body, kind, req.Bounty)
	if err != nil {
		writeDomainError(w, "Failed to post question", err)
		return
	}

	observeTransactions(toTransactionDTO(*tx))
	writeJSON(w, http.StatusCreated, toQuestionDTO(q))
}

// GetQuestion returns one question.
func (h *Handler) GetQuestion(w http.ResponseWriter, r *http.Request) {
	q, err := h.Forum.Question(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to get question", err)
		return
	}
	writeJSON(w, http.StatusOK, toQuestionDTO(q))
}

// ListUserQuestions returns a user's questions, most recent first.
func (h *Handler) ListUserQuestions(w http.ResponseWriter, r *http.Request) {
	questions := h.Forum.ByUser(chi.URLParam(r, "id"))
	dtos := make([]QuestionDTO, len(questions))
	for i := range questions {
		dtos[i] = toQuestionDTO(&questions[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListAnswers returns a question's answers in post order.
func (h *Handler) ListAnswers(w http.ResponseWriter, r *http.Request) {
	answers, err := h.Forum.Answers(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to get answers", err)
		return
	}
	dtos := make([]AnswerDTO, len(answers))
	for i := range answers {
		dtos[i] = toAnswerDTO(&answers[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// PostAnswer answers an open question.
func (h *Handler) PostAnswer(w http.ResponseWriter, r *http.Request) {
	var req AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	a, err := h.Forum.Answer(r.Context(), req.UserID, chi.URLParam(r, "id"), req.Body)
	if err != nil {
		writeDomainError(w, "Failed to post answer", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAnswerDTO(a))
}

// RateAnswer records the asker's rating and pays the answerer. With
// accept=true the answer becomes the best answer and the bounty pays out.
func (h *Handler) RateAnswer(w http.ResponseWriter, r *http.Request) {
	var req RateAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	a, txs, err := h.Forum.Rate(r.Context(), req.UserID, chi.URLParam(r, "id"), req.Rating, req.Accept)
	if err != nil {
		writeDomainError(w, "Failed to rate answer", err)
		return
	}

	observeTransactions(toTransactionDTOs(txs)...)
	writeJSON(w, http.StatusOK, toAnswerDTO(a))
}

// VoteAnswer records an up/down vote.
func (h *Handler) VoteAnswer(w http.ResponseWriter, r *http.Request) {
	var req VoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	a, err := h.Forum.Vote(req.UserID, chi.URLParam(r, "id"), req.Up)
	if err != nil {
		writeDomainError(w, "Failed to vote", err)
		return
	}
	writeJSON(w, http.StatusOK, toAnswerDTO(a))
}

// =============================================================================
// COACH HANDLERS
// =============================================================================

// ListPersonas returns the available coach personas.
func (h *Handler) ListPersonas(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, coach.Personas())
}

// CoachChat runs one chat completion under the chosen persona.
func (h *Handler) CoachChat(w http.ResponseWriter, r *http.Request) {
	if h.Coach == nil {
		writeError(w, http.StatusServiceUnavailable, "Coach is not configured", nil)
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "Message is required", nil)
		return
	}

	persona := coach.PersonaByID(req.PersonaID)
	reply, err := h.Coach.Chat(r.Context(), persona, req.Message)
	if err != nil {
		coachChats.WithLabelValues("error").Inc()
		writeError(w, http.StatusBadGateway, "Coach request failed", err)
		return
	}

	coachChats.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, ChatResponse{Persona: persona.ID, Reply: reply})
}

// =============================================================================
// HELPERS
// =============================================================================

// writeDomainError maps domain errors to HTTP status codes.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case economy.IsNotFound(err) || qa.IsNotFound(err):
		status = http.StatusNotFound
	case errors.Is(err, economy.ErrInsufficientBalance):
		status = http.StatusPaymentRequired
	case errors.Is(err, economy.ErrUserExists),
		errors.Is(err, qa.ErrAlreadyRated),
		errors.Is(err, qa.ErrAlreadyVoted),
		errors.Is(err, qa.ErrAlreadyAccepted):
		status = http.StatusConflict
	case errors.Is(err, qa.ErrNotAuthor),
		errors.Is(err, qa.ErrOwnQuestion),
		errors.Is(err, qa.ErrOwnAnswer):
		status = http.StatusForbidden
	case economy.IsClientError(err):
		status = http.StatusBadRequest
	}
	writeError(w, status, message, err)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]any{"error": message}
	if err != nil {
		response["details"] = err.Error()
	}
	writeJSON(w, status, response)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
