package qa_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpharise/coin-engine/economy"
	"github.com/alpharise/coin-engine/qa"
	"github.com/alpharise/coin-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var tuesday = time.Date(2025, time.March, 11, 10, 0, 0, 0, time.UTC)

func newTestForum(t *testing.T) (*qa.Manager, *economy.Manager) {
	t.Helper()
	eco := economy.NewManager(memory.New())
	eco.Clock = func() time.Time { return tuesday }
	forum := qa.NewManager(eco)
	forum.Clock = eco.Clock
	return forum, eco
}

// fundUser creates a user and grants their monthly allocation.
func fundUser(t *testing.T, eco *economy.Manager, userID string, tier economy.SubscriptionTier) {
	t.Helper()
	ctx := context.Background()
	_, err := eco.CreateUser(ctx, userID, userID+"-name", tier)
	require.NoError(t, err)
	_, err = eco.MonthlyAllocation(ctx, userID)
	require.NoError(t, err)
}

func balance(t *testing.T, eco *economy.Manager, userID string) int64 {
	t.Helper()
	p, err := eco.GetProfile(context.Background(), userID)
	require.NoError(t, err)
	return p.CurrentBalance
}

// failingStore fails the Nth atomic write, simulating a storage error
// in the middle of a flow.
type failingStore struct {
	economy.TxStore
	calls  int
	failOn int
}

func (f *failingStore) WithTx(ctx context.Context, fn func(economy.Store) error) error {
	f.calls++
	if f.calls == f.failOn {
		return errors.New("disk full")
	}
	return f.TxStore.WithTx(ctx, fn)
}

// =============================================================================
// ASK TESTS
// =============================================================================

func TestAsk_ChargesCostPlusBounty(t *testing.T) {
	// GIVEN: A funded asker (trial: 50 coins)
	// WHEN: Posting an urgent question with a 10-coin bounty
	// THEN: 15 coins leave the balance and the question is open

	forum, eco := newTestForum(t)
	fundUser(t, eco, "asker", economy.TierTrial)
	ctx := context.Background()

	q, tx, err := forum.Ask(ctx, "asker", "How do I start?", "Details...", economy.QuestionUrgent, 10)
	require.NoError(t, err)

	assert.Equal(t, qa.QuestionOpen, q.Status)
	assert.Equal(t, int64(10), q.Bounty)
	assert.Equal(t, economy.TxSpend, tx.Type)
	assert.Equal(t, int64(15), tx.Amount)
	assert.Equal(t, int64(35), balance(t, eco, "asker"))
}

func TestAsk_InsufficientBalance_CreatesNothing(t *testing.T) {
	// GIVEN: A user with no coins
	// WHEN: Trying to post a question
	// THEN: The spend fails and no question record exists

	forum, eco := newTestForum(t)
	ctx := context.Background()
	_, err := eco.CreateUser(ctx, "broke", "broke-name", economy.TierTrial)
	require.NoError(t, err)

	_, _, err = forum.Ask(ctx, "broke", "Help", "Body", economy.QuestionVIP, 0)
	assert.ErrorIs(t, err, economy.ErrInsufficientBalance)

	assert.Empty(t, forum.Recent(0), "a failed charge must not create a question")
}

func TestAsk_MissingTitle_Rejected(t *testing.T) {
	forum, eco := newTestForum(t)
	fundUser(t, eco, "asker", economy.TierTrial)

	_, _, err := forum.Ask(context.Background(), "asker", "", "Body", economy.QuestionRegular, 0)
	assert.ErrorIs(t, err, economy.ErrInvalidInput)
	assert.Equal(t, int64(50), balance(t, eco, "asker"), "rejected ask must not charge")
}

func TestAsk_UnknownUser(t *testing.T) {
	forum, _ := newTestForum(t)

	_, _, err := forum.Ask(context.Background(), "ghost", "Title", "Body", economy.QuestionRegular, 0)
	assert.ErrorIs(t, err, economy.ErrUserNotFound)
}

func TestRecentAndByUser_Ordering(t *testing.T) {
	forum, eco := newTestForum(t)
	fundUser(t, eco, "asker", economy.TierPremium)
	ctx := context.Background()

	clock := tuesday
	forum.Clock = func() time.Time { return clock }

	q1, _, err := forum.Ask(ctx, "asker", "First", "Body", economy.QuestionRegular, 0)
	require.NoError(t, err)
	clock = clock.Add(time.Hour)
	q2, _, err := forum.Ask(ctx, "asker", "Second", "Body", economy.QuestionRegular, 0)
	require.NoError(t, err)

	recent := forum.Recent(0)
	require.Len(t, recent, 2)
	assert.Equal(t, q2.ID, recent[0].ID, "newest first")
	assert.Equal(t, q1.ID, recent[1].ID)

	mine := forum.ByUser("asker")
	assert.Len(t, mine, 2)
}

// =============================================================================
// ANSWER TESTS
// =============================================================================

func TestAnswer_OwnQuestion_Rejected(t *testing.T) {
	forum, eco := newTestForum(t)
	fundUser(t, eco, "asker", economy.TierTrial)
	ctx := context.Background()

	q, _, err := forum.Ask(ctx, "asker", "Title", "Body", economy.QuestionRegular, 0)
	require.NoError(t, err)

	_, err = forum.Answer(ctx, "asker", q.ID, "Answering myself")
	assert.ErrorIs(t, err, qa.ErrOwnQuestion)
}

func TestAnswer_RequiresLedgerEntry(t *testing.T) {
	// The answerer must exist in the ledger so the eventual reward has
	// somewhere to land.
	forum, eco := newTestForum(t)
	fundUser(t, eco, "asker", economy.TierTrial)
	ctx := context.Background()

	q, _, err := forum.Ask(ctx, "asker", "Title", "Body", economy.QuestionRegular, 0)
	require.NoError(t, err)

	_, err = forum.Answer(ctx, "ghost", q.ID, "I don't exist")
	assert.ErrorIs(t, err, economy.ErrUserNotFound)
}

func TestAnswers_PostOrder(t *testing.T) {
	forum, eco := newTestForum(t)
	fundUser(t, eco, "asker", economy.TierTrial)
	fundUser(t, eco, "helper1", economy.TierTrial)
	fundUser(t, eco, "helper2", economy.TierTrial)
	ctx := context.Background()

	q, _, err := forum.Ask(ctx, "asker", "Title", "Body", economy.QuestionRegular, 0)
	require.NoError(t, err)

	a1, err := forum.Answer(ctx, "helper1", q.ID, "First answer")
	require.NoError(t, err)
	a2, err := forum.Answer(ctx, "helper2", q.ID, "Second answer")
	require.NoError(t, err)

	answers, err := forum.Answers(q.ID)
	require.NoError(t, err)
	require.Len(t, answers, 2)
	assert.Equal(t, a1.ID, answers[0].ID)
	assert.Equal(t, a2.ID, answers[1].ID)

	got, err := forum.Question(q.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.AnswerCount)
}

// =============================================================================
// RATING TESTS
// =============================================================================

func TestRate_PaysAnswererOnce(t *testing.T) {
	// GIVEN: A rated-5 answer on a weekday
	// WHEN: The asker rates it (no accept)
	// THEN: The answerer earns 7 coins, exactly once

	forum, eco := newTestForum(t)
	fundUser(t, eco, "asker", economy.TierTrial)
	fundUser(t, eco, "helper", economy.TierTrial)
	ctx := context.Background()

	q, _, err := forum.Ask(ctx, "asker", "Title", "Body", economy.QuestionRegular, 0)
	require.NoError(t, err)
	a, err := forum.Answer(ctx, "helper", q.ID, "An answer")
	require.NoError(t, err)

	rated, txs, err := forum.Rate(ctx, "asker", a.ID, 5, false)
	require.NoError(t, err)
	assert.Equal(t, 5, rated.Rating)
	assert.False(t, rated.IsBest)
	require.Len(t, txs, 1)
	assert.Equal(t, int64(7), txs[0].Amount)
	assert.Equal(t, int64(57), balance(t, eco, "helper"))

	// Rating again must fail and pay nothing
	_, _, err = forum.Rate(ctx, "asker", a.ID, 5, false)
	assert.ErrorIs(t, err, qa.ErrAlreadyRated)
	assert.Equal(t, int64(57), balance(t, eco, "helper"))
}

func TestRate_AcceptPaysRewardAndBounty(t *testing.T) {
	// GIVEN: A question with a 10-coin bounty
	// WHEN: The asker accepts a rating-5 answer
	// THEN: Best-answer reward (10 on a weekday) plus the bounty land

	forum, eco := newTestForum(t)
	fundUser(t, eco, "asker", economy.TierPremium)
	fundUser(t, eco, "helper", economy.TierTrial)
	ctx := context.Background()

	q, _, err := forum.Ask(ctx, "asker", "Title", "Body", economy.QuestionRegular, 10)
	require.NoError(t, err)
	a, err := forum.Answer(ctx, "helper", q.ID, "An answer")
	require.NoError(t, err)

	rated, txs, err := forum.Rate(ctx, "asker", a.ID, 5, true)
	require.NoError(t, err)
	assert.True(t, rated.IsBest)
	require.Len(t, txs, 2, "reward plus bounty")
	assert.Equal(t, "Best answer reward", txs[0].Reason)
	assert.Equal(t, "Question bounty", txs[1].Reason)
	assert.Equal(t, int64(70), balance(t, eco, "helper"), "50 + 10 reward + 10 bounty")

	got, err := forum.Question(q.ID)
	require.NoError(t, err)
	assert.Equal(t, qa.QuestionAnswered, got.Status)
	assert.Equal(t, a.ID, got.BestAnswerID)
}

func TestRate_FailedPayout_RetryPaysOnce(t *testing.T) {
	// GIVEN: A bounty question whose accept payout fails at the store
	// WHEN: The asker retries the rating
	// THEN: The answer stays unrated after the failure, the retry
	//       succeeds, and the answerer is paid exactly once

	// Writes: asker allocation, helper allocation, ask spend, payout.
	store := &failingStore{TxStore: memory.New(), failOn: 4}
	eco := economy.NewManager(store)
	eco.Clock = func() time.Time { return tuesday }
	forum := qa.NewManager(eco)
	forum.Clock = eco.Clock

	fundUser(t, eco, "asker", economy.TierTrial)
	fundUser(t, eco, "helper", economy.TierTrial)
	ctx := context.Background()

	q, _, err := forum.Ask(ctx, "asker", "Title", "Body", economy.QuestionRegular, 5)
	require.NoError(t, err)
	a, err := forum.Answer(ctx, "helper", q.ID, "An answer")
	require.NoError(t, err)

	_, _, err = forum.Rate(ctx, "asker", a.ID, 5, true)
	require.Error(t, err)
	assert.Equal(t, int64(50), balance(t, eco, "helper"), "failed payout must pay nothing")

	got, err := forum.Answers(q.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Zero(t, got[0].Rating, "failed payout must leave the answer unrated")

	// Retry lands the reward (10) and the bounty (5) exactly once.
	rated, txs, err := forum.Rate(ctx, "asker", a.ID, 5, true)
	require.NoError(t, err)
	assert.True(t, rated.IsBest)
	require.Len(t, txs, 2)
	assert.Equal(t, int64(65), balance(t, eco, "helper"))

	history, err := eco.Transactions(ctx, "helper", 0)
	require.NoError(t, err)
	assert.Len(t, history, 3, "allocation, reward, bounty - nothing double-paid")
}

func TestRate_OnlyAuthorMayRate(t *testing.T) {
	forum, eco := newTestForum(t)
	fundUser(t, eco, "asker", economy.TierTrial)
	fundUser(t, eco, "helper", economy.TierTrial)
	fundUser(t, eco, "stranger", economy.TierTrial)
	ctx := context.Background()

	q, _, err := forum.Ask(ctx, "asker", "Title", "Body", economy.QuestionRegular, 0)
	require.NoError(t, err)
	a, err := forum.Answer(ctx, "helper", q.ID, "An answer")
	require.NoError(t, err)

	_, _, err = forum.Rate(ctx, "stranger", a.ID, 5, false)
	assert.ErrorIs(t, err, qa.ErrNotAuthor)
}

func TestRate_SecondAccept_Rejected(t *testing.T) {
	forum, eco := newTestForum(t)
	fundUser(t, eco, "asker", economy.TierTrial)
	fundUser(t, eco, "helper1", economy.TierTrial)
	fundUser(t, eco, "helper2", economy.TierTrial)
	ctx := context.Background()

	q, _, err := forum.Ask(ctx, "asker", "Title", "Body", economy.QuestionRegular, 0)
	require.NoError(t, err)
	a1, err := forum.Answer(ctx, "helper1", q.ID, "First")
	require.NoError(t, err)
	a2, err := forum.Answer(ctx, "helper2", q.ID, "Second")
	require.NoError(t, err)

	_, _, err = forum.Rate(ctx, "asker", a1.ID, 5, true)
	require.NoError(t, err)

	_, _, err = forum.Rate(ctx, "asker", a2.ID, 4, true)
	assert.ErrorIs(t, err, qa.ErrAlreadyAccepted)
}

func TestRate_OutOfRange_Rejected(t *testing.T) {
	forum, eco := newTestForum(t)
	fundUser(t, eco, "asker", economy.TierTrial)
	fundUser(t, eco, "helper", economy.TierTrial)
	ctx := context.Background()

	q, _, err := forum.Ask(ctx, "asker", "Title", "Body", economy.QuestionRegular, 0)
	require.NoError(t, err)
	a, err := forum.Answer(ctx, "helper", q.ID, "An answer")
	require.NoError(t, err)

	for _, rating := range []int{0, 6, -1} {
		_, _, err := forum.Rate(ctx, "asker", a.ID, rating, false)
		assert.ErrorIs(t, err, economy.ErrInvalidInput, "rating %d", rating)
	}
}

// =============================================================================
// VOTING TESTS
// =============================================================================

func TestVote_Rules(t *testing.T) {
	forum, eco := newTestForum(t)
	fundUser(t, eco, "asker", economy.TierTrial)
	fundUser(t, eco, "helper", economy.TierTrial)
	fundUser(t, eco, "voter", economy.TierTrial)
	ctx := context.Background()

	q, _, err := forum.Ask(ctx, "asker", "Title", "Body", economy.QuestionRegular, 0)
	require.NoError(t, err)
	a, err := forum.Answer(ctx, "helper", q.ID, "An answer")
	require.NoError(t, err)

	// Own answer
	_, err = forum.Vote("helper", a.ID, true)
	assert.ErrorIs(t, err, qa.ErrOwnAnswer)

	// First vote counts
	voted, err := forum.Vote("voter", a.ID, true)
	require.NoError(t, err)
	assert.Equal(t, 1, voted.Upvotes)

	// Second vote by the same user is rejected
	_, err = forum.Vote("voter", a.ID, false)
	assert.ErrorIs(t, err, qa.ErrAlreadyVoted)

	// A different user can downvote
	voted, err = forum.Vote("asker", a.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 1, voted.Downvotes)
}

// =============================================================================
// ACTIVITY TESTS
// =============================================================================

func TestActivityFor(t *testing.T) {
	forum, eco := newTestForum(t)
	fundUser(t, eco, "asker", economy.TierPremium)
	fundUser(t, eco, "helper", economy.TierTrial)
	ctx := context.Background()

	q1, _, err := forum.Ask(ctx, "asker", "One", "Body", economy.QuestionRegular, 0)
	require.NoError(t, err)
	_, _, err = forum.Ask(ctx, "asker", "Two", "Body", economy.QuestionRegular, 0)
	require.NoError(t, err)

	a, err := forum.Answer(ctx, "helper", q1.ID, "An answer")
	require.NoError(t, err)
	_, _, err = forum.Rate(ctx, "asker", a.ID, 5, true)
	require.NoError(t, err)

	askerAct := forum.ActivityFor("asker")
	assert.Equal(t, 2, askerAct.QuestionsAsked)
	assert.Zero(t, askerAct.AnswersGiven)

	helperAct := forum.ActivityFor("helper")
	assert.Equal(t, 1, helperAct.AnswersGiven)
	assert.Equal(t, 1, helperAct.BestAnswers)
}
