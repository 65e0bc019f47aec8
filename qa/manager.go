/*
manager.go - Q&A façade

PURPOSE:
  Coordinates question/answer records with the coin economy. Posting a
  question charges the asker (cost + bounty) before the record exists,
  so a failed spend means no question. Rating an answer pays the
  answerer exactly once; accepting additionally pays out the bounty.

SEE ALSO:
  - types.go: Records and invariants
  - economy/manager.go: Coin movements
*/
package qa

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alpharise/coin-engine/economy"
)

// =============================================================================
// MANAGER
// =============================================================================

type Manager struct {
	economy *economy.Manager

	// Clock returns the current time. Override in tests.
	Clock func() time.Time

	mu         sync.RWMutex
	questions  map[string]*Question
	answers    map[string]*Answer
	byQuestion map[string][]string          // answer ids in post order
	votes      map[string]map[string]bool   // answer id -> voter ids
}

func NewManager(eco *economy.Manager) *Manager {
	return &Manager{
		economy:    eco,
		Clock:      time.Now,
		questions:  make(map[string]*Question),
		answers:    make(map[string]*Answer),
		byQuestion: make(map[string][]string),
		votes:      make(map[string]map[string]bool),
	}
}

// =============================================================================
// QUESTIONS
// =============================================================================

// Ask charges the asker (kind cost + bounty) and creates the question.
// A failed spend (insufficient balance, unknown user) creates nothing.
// Returns the question along with the spend transaction.
func (m *Manager) Ask(ctx context.Context, userID, title, body string, kind economy.QuestionKind, bounty int64) (*Question, *economy.Transaction, error) {
	if title == "" || body == "" {
		return nil, nil, fmt.Errorf("%w: title and body are required", economy.ErrInvalidInput)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.NewString()
	tx, err := m.economy.Spend(ctx, userID, kind, bounty, id)
	if err != nil {
		return nil, nil, err
	}

	q := &Question{
		ID:        id,
		UserID:    userID,
		Title:     title,
		Body:      body,
		Kind:      kind,
		Bounty:    bounty,
		Status:    QuestionOpen,
		CreatedAt: m.Clock().UTC(),
	}
	m.questions[id] = q

	cp := *q
	return &cp, tx, nil
}

// Question returns one question by id.
func (m *Manager) Question(questionID string) (*Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	q, ok := m.questions[questionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrQuestionNotFound, questionID)
	}
	cp := *q
	return &cp, nil
}

// Recent returns the newest questions, most recent first.
func (m *Manager) Recent(limit int) []Question {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Question, 0, len(m.questions))
	for _, q := range m.questions {
		out = append(out, *q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

// ByUser returns a user's questions, most recent first.
func (m *Manager) ByUser(userID string) []Question {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Question
	for _, q := range m.questions {
		if q.UserID == userID {
			out = append(out, *q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// =============================================================================
// ANSWERS
// =============================================================================

// Answer posts an answer to an open question. Answering pays nothing
// by itself - the reward lands when the asker rates it.
func (m *Manager) Answer(ctx context.Context, userID, questionID, body string) (*Answer, error) {
	if body == "" {
		return nil, fmt.Errorf("%w: body is required", economy.ErrInvalidInput)
	}
	// The answerer must have a ledger entry so the eventual reward has
	// somewhere to land. Fail closed here, not at rating time.
	if _, err := m.economy.GetProfile(ctx, userID); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	q, ok := m.questions[questionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrQuestionNotFound, questionID)
	}
	if q.UserID == userID {
		return nil, ErrOwnQuestion
	}

	a := &Answer{
		ID:         uuid.NewString(),
		QuestionID: questionID,
		UserID:     userID,
		Body:       body,
		CreatedAt:  m.Clock().UTC(),
	}
	m.answers[a.ID] = a
	m.byQuestion[questionID] = append(m.byQuestion[questionID], a.ID)
	q.AnswerCount++

	cp := *a
	return &cp, nil
}

// Answers returns a question's answers in post order.
func (m *Manager) Answers(questionID string) ([]Answer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.questions[questionID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrQuestionNotFound, questionID)
	}
	ids := m.byQuestion[questionID]
	out := make([]Answer, 0, len(ids))
	for _, id := range ids {
		out = append(out, *m.answers[id])
	}
	return out, nil
}

// Rate records the asker's rating for an answer and pays the answerer.
// With accept=true the answer becomes the question's best answer and
// any bounty is paid out on top of the reward. Returns the answer
// along with the payout transactions.
func (m *Manager) Rate(ctx context.Context, raterID, answerID string, rating int, accept bool) (*Answer, []economy.Transaction, error) {
	if rating < 1 || rating > 5 {
		return nil, nil, fmt.Errorf("%w: rating %d out of range 1-5", economy.ErrInvalidInput, rating)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.answers[answerID]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrAnswerNotFound, answerID)
	}
	q := m.questions[a.QuestionID]
	if q.UserID != raterID {
		return nil, nil, ErrNotAuthor
	}
	if a.Rating != 0 {
		return nil, nil, ErrAlreadyRated
	}
	if accept && q.BestAnswerID != "" {
		return nil, nil, ErrAlreadyAccepted
	}

	var bounty int64
	if accept {
		bounty = q.Bounty
	}

	// Pay before mutating records, and in a single ledger operation:
	// a failed payment leaves the answer unrated and completely unpaid,
	// so the asker can retry without double-paying the answerer.
	txs, err := m.economy.EarnAnswerPayout(ctx, a.UserID, q.ID, rating, accept, bounty)
	if err != nil {
		return nil, nil, err
	}

	a.Rating = rating
	if accept {
		a.IsBest = true
		q.BestAnswerID = a.ID
		q.Status = QuestionAnswered
	}

	cp := *a
	return &cp, txs, nil
}

// Vote records an up/down vote. One vote per user per answer, and
// never on your own answer.
func (m *Manager) Vote(userID, answerID string, up bool) (*Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.answers[answerID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAnswerNotFound, answerID)
	}
	if a.UserID == userID {
		return nil, ErrOwnAnswer
	}
	if m.votes[answerID][userID] {
		return nil, ErrAlreadyVoted
	}

	if m.votes[answerID] == nil {
		m.votes[answerID] = make(map[string]bool)
	}
	m.votes[answerID][userID] = true

	if up {
		a.Upvotes++
	} else {
		a.Downvotes++
	}

	cp := *a
	return &cp, nil
}

// =============================================================================
// AGGREGATES
// =============================================================================

// Activity summarizes a user's forum participation. Used by the
// recommendation engine.
type Activity struct {
	QuestionsAsked int
	AnswersGiven   int
	BestAnswers    int
}

// ActivityFor aggregates a user's forum activity counts.
func (m *Manager) ActivityFor(userID string) Activity {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var act Activity
	for _, q := range m.questions {
		if q.UserID == userID {
			act.QuestionsAsked++
		}
	}
	for _, a := range m.answers {
		if a.UserID == userID {
			act.AnswersGiven++
			if a.IsBest {
				act.BestAnswers++
			}
		}
	}
	return act
}
