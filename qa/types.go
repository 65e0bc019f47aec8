/*
Package qa implements the community Q&A forum economy.

PURPOSE:
  Users spend coins to post questions (with optional bounties) and
  earn coins when their answers are rated or accepted. This package
  owns the question/answer records and their voting state; all coin
  movement goes through economy.Manager - qa never touches balances
  directly.

SHAPE:
  Same pattern as the ledger: fixed rules + append-style records +
  derived aggregates + a façade enforcing the invariants. Records live
  in process memory; durability for the coin side comes from the
  economy store.

INVARIANTS:
  - Only the question author may rate or accept an answer
  - At most one best answer per question
  - A user cannot answer their own question or vote on their own answer
  - One vote per user per answer
  - Each answer is rated (and therefore paid) at most once

SEE ALSO:
  - economy/rules.go: AnswerReward, QuestionCost
  - qa/manager.go: The façade
*/
package qa

import (
	"errors"
	"time"

	"github.com/alpharise/coin-engine/economy"
)

// =============================================================================
// RECORDS
// =============================================================================

type QuestionStatus string

const (
	QuestionOpen     QuestionStatus = "open"
	QuestionAnswered QuestionStatus = "answered"
)

type Question struct {
	ID           string
	UserID       string
	Title        string
	Body         string
	Kind         economy.QuestionKind
	Bounty       int64
	Status       QuestionStatus
	BestAnswerID string
	AnswerCount  int
	CreatedAt    time.Time
}

type Answer struct {
	ID         string
	QuestionID string
	UserID     string
	Body       string
	Upvotes    int
	Downvotes  int
	Rating     int // 1-5 once rated by the asker, 0 before
	IsBest     bool
	CreatedAt  time.Time
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrQuestionNotFound = errors.New("question not found")
	ErrAnswerNotFound   = errors.New("answer not found")
	ErrNotAuthor        = errors.New("only the question author may do this")
	ErrOwnQuestion      = errors.New("cannot answer your own question")
	ErrOwnAnswer        = errors.New("cannot vote on your own answer")
	ErrAlreadyVoted     = errors.New("already voted on this answer")
	ErrAlreadyRated     = errors.New("answer already rated")
	ErrAlreadyAccepted  = errors.New("question already has a best answer")
)

// IsClientError returns true for conditions caused by the caller.
func IsClientError(err error) bool {
	return errors.Is(err, ErrNotAuthor) ||
		errors.Is(err, ErrOwnQuestion) ||
		errors.Is(err, ErrOwnAnswer) ||
		errors.Is(err, ErrAlreadyVoted) ||
		errors.Is(err, ErrAlreadyRated) ||
		errors.Is(err, ErrAlreadyAccepted)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrQuestionNotFound) || errors.Is(err, ErrAnswerNotFound)
}
