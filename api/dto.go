/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers and the domain managers, not in DTOs.
  DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/alpharise/coin-engine/coach"
	"github.com/alpharise/coin-engine/economy"
	"github.com/alpharise/coin-engine/qa"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// ProfileDTO represents a user's ledger entry in API responses.
type ProfileDTO struct {
	UserID            string   `json:"user_id"`
	Username          string   `json:"username"`
	Subscription      string   `json:"subscription"`
	CurrentBalance    int64    `json:"current_balance"`
	TotalEarned       int64    `json:"total_earned"`
	TotalSpent        int64    `json:"total_spent"`
	MonthlyAllocation int64    `json:"monthly_allocation"`
	Streak            int      `json:"streak"`
	Level             int      `json:"level"`
	Badges            []string `json:"badges"`
	LastActivity      string   `json:"last_activity,omitempty"`
	MonthlyEarnings   int64    `json:"monthly_earnings"`
	DiscountEarned    string   `json:"discount_earned"`
	LastAllocation    string   `json:"last_allocation,omitempty"`
	CreatedAt         string   `json:"created_at,omitempty"`
}

// CreateUserRequest is the request to create a user's ledger entry.
type CreateUserRequest struct {
	UserID       string `json:"user_id"`
	Username     string `json:"username"`
	Subscription string `json:"subscription,omitempty"`
}

// TransactionDTO represents one ledger entry in API responses.
type TransactionDTO struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	Type       string `json:"type"`
	Amount     int64  `json:"amount"`
	Reason     string `json:"reason"`
	Category   string `json:"category"`
	QuestionID string `json:"question_id,omitempty"`
	Rating     int    `json:"rating,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// ActionDTO represents a catalog action in API responses.
type ActionDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Icon        string `json:"icon,omitempty"`
	Conditions  string `json:"conditions,omitempty"`
}

// StatsDTO aggregates profile, weekly and billing-month numbers.
type StatsDTO struct {
	Profile ProfileDTO      `json:"profile"`
	Weekly  WeeklyStatsDTO  `json:"weekly"`
	Monthly MonthlyStatsDTO `json:"monthly"`
}

type WeeklyStatsDTO struct {
	Earned           int64 `json:"earned"`
	Spent            int64 `json:"spent"`
	TransactionCount int   `json:"transaction_count"`
}

type MonthlyStatsDTO struct {
	Earned                int64  `json:"earned"`
	DiscountProgress      string `json:"discount_progress"`
	NextDiscountThreshold int64  `json:"next_discount_threshold"`
}

// AskQuestionRequest is the request to post a question.
type AskQuestionRequest struct {
	UserID string `json:"user_id"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	Kind   string `json:"kind,omitempty"`
	Bounty int64  `json:"bounty,omitempty"`
}

// QuestionDTO represents a question in API responses.
type QuestionDTO struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	Title        string `json:"title"`
	Body         string `json:"body"`
	Kind         string `json:"kind"`
	Bounty       int64  `json:"bounty"`
	Status       string `json:"status"`
	BestAnswerID string `json:"best_answer_id,omitempty"`
	AnswerCount  int    `json:"answer_count"`
	CreatedAt    string `json:"created_at"`
}

// AnswerRequest is the request to post an answer.
type AnswerRequest struct {
	UserID string `json:"user_id"`
	Body   string `json:"body"`
}

// AnswerDTO represents an answer in API responses.
type AnswerDTO struct {
	ID         string `json:"id"`
	QuestionID string `json:"question_id"`
	UserID     string `json:"user_id"`
	Body       string `json:"body"`
	Upvotes    int    `json:"upvotes"`
	Downvotes  int    `json:"downvotes"`
	Rating     int    `json:"rating,omitempty"`
	IsBest     bool   `json:"is_best"`
	CreatedAt  string `json:"created_at"`
}

// RateAnswerRequest is the asker's rating for an answer.
type RateAnswerRequest struct {
	UserID string `json:"user_id"`
	Rating int    `json:"rating"`
	Accept bool   `json:"accept,omitempty"`
}

// VoteRequest is an up/down vote on an answer.
type VoteRequest struct {
	UserID string `json:"user_id"`
	Up     bool   `json:"up"`
}

// ChatRequest is a message to the AI coach.
type ChatRequest struct {
	PersonaID string `json:"persona_id,omitempty"`
	Message   string `json:"message"`
}

// ChatResponse wraps the coach's reply.
type ChatResponse struct {
	Persona string `json:"persona"`
	Reply   string `json:"reply"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toProfileDTO(p *economy.Profile) ProfileDTO {
	badges := p.Badges
	if badges == nil {
		badges = []string{}
	}
	return ProfileDTO{
		UserID:            p.UserID,
		Username:          p.Username,
		Subscription:      string(p.Subscription),
		CurrentBalance:    p.CurrentBalance,
		TotalEarned:       p.TotalEarned,
		TotalSpent:        p.TotalSpent,
		MonthlyAllocation: p.MonthlyAllocation,
		Streak:            p.Streak,
		Level:             p.Level,
		Badges:            badges,
		LastActivity:      formatTime(p.LastActivity),
		MonthlyEarnings:   p.MonthlyEarnings,
		DiscountEarned:    p.DiscountEarned.String(),
		LastAllocation:    formatTime(p.LastAllocation),
		CreatedAt:         formatTime(p.CreatedAt),
	}
}

func toTransactionDTO(tx economy.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:         tx.ID,
		UserID:     tx.UserID,
		Type:       string(tx.Type),
		Amount:     tx.Amount,
		Reason:     tx.Reason,
		Category:   string(tx.Category),
		QuestionID: tx.QuestionID,
		Rating:     tx.Rating,
		CreatedAt:  formatTime(tx.CreatedAt),
	}
}

func toTransactionDTOs(txs []economy.Transaction) []TransactionDTO {
	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = toTransactionDTO(tx)
	}
	return dtos
}

func toQuestionDTO(q *qa.Question) QuestionDTO {
	return QuestionDTO{
		ID:           q.ID,
		UserID:       q.UserID,
		Title:        q.Title,
		Body:         q.Body,
		Kind:         string(q.Kind),
		Bounty:       q.Bounty,
		Status:       string(q.Status),
		BestAnswerID: q.BestAnswerID,
		AnswerCount:  q.AnswerCount,
		CreatedAt:    formatTime(q.CreatedAt),
	}
}

func toAnswerDTO(a *qa.Answer) AnswerDTO {
	return AnswerDTO{
		ID:         a.ID,
		QuestionID: a.QuestionID,
		UserID:     a.UserID,
		Body:       a.Body,
		Upvotes:    a.Upvotes,
		Downvotes:  a.Downvotes,
		Rating:     a.Rating,
		IsBest:     a.IsBest,
		CreatedAt:  formatTime(a.CreatedAt),
	}
}

// PersonaDTO is re-exported directly; coach.Persona already carries
// json tags and hides the system prompt.
type PersonaDTO = coach.Persona

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
