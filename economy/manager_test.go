package economy_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpharise/coin-engine/economy"
	"github.com/alpharise/coin-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// testClock is a settable clock injected into the manager.
type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) advanceDays(n int) { c.now = c.now.AddDate(0, 0, n) }

func newTestManager(t *testing.T) (*economy.Manager, *memory.Store, *testClock) {
	t.Helper()
	store := memory.New()
	clock := &testClock{now: tuesday}
	mgr := economy.NewManager(store)
	mgr.Clock = clock.Now
	return mgr, store, clock
}

func createUser(t *testing.T, mgr *economy.Manager, userID string, tier economy.SubscriptionTier) *economy.Profile {
	t.Helper()
	p, err := mgr.CreateUser(context.Background(), userID, userID+"-name", tier)
	require.NoError(t, err)
	return p
}

// assertBalanceInvariant checks CurrentBalance == TotalEarned - TotalSpent.
func assertBalanceInvariant(t *testing.T, p *economy.Profile) {
	t.Helper()
	assert.Equal(t, p.TotalEarned-p.TotalSpent, p.CurrentBalance,
		"balance invariant violated: balance=%d earned=%d spent=%d",
		p.CurrentBalance, p.TotalEarned, p.TotalSpent)
}

// =============================================================================
// USER CREATION TESTS
// =============================================================================

func TestCreateUser_Defaults(t *testing.T) {
	// GIVEN: A new user with no tier specified
	// WHEN: Creating the ledger entry
	// THEN: Trial tier, 50-coin allocation, level 1, zero balance

	mgr, _, _ := newTestManager(t)

	p, err := mgr.CreateUser(context.Background(), "u1", "alice", "")
	require.NoError(t, err)

	assert.Equal(t, economy.TierTrial, p.Subscription)
	assert.Equal(t, int64(50), p.MonthlyAllocation)
	assert.Equal(t, 1, p.Level)
	assert.Zero(t, p.CurrentBalance)
	assertBalanceInvariant(t, p)
}

func TestCreateUser_PremiumAllocation(t *testing.T) {
	mgr, _, _ := newTestManager(t)

	p := createUser(t, mgr, "u1", economy.TierPremium)
	assert.Equal(t, int64(200), p.MonthlyAllocation)
}

func TestCreateUser_Duplicate_Rejected(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	createUser(t, mgr, "u1", economy.TierTrial)

	_, err := mgr.CreateUser(context.Background(), "u1", "alice-again", economy.TierTrial)
	assert.ErrorIs(t, err, economy.ErrUserExists)
}

func TestCreateUser_UnknownTier_Rejected(t *testing.T) {
	mgr, _, _ := newTestManager(t)

	_, err := mgr.CreateUser(context.Background(), "u1", "alice", "platinum")
	assert.ErrorIs(t, err, economy.ErrInvalidInput)
}

func TestGetProfile_UnknownUser(t *testing.T) {
	mgr, _, _ := newTestManager(t)

	_, err := mgr.GetProfile(context.Background(), "ghost")
	assert.ErrorIs(t, err, economy.ErrUserNotFound)
}

// =============================================================================
// EARN TESTS
// =============================================================================

func TestEarnAction_FixedAmount(t *testing.T) {
	// GIVEN: A user completing their profile
	// WHEN: Granting the profile_complete achievement
	// THEN: +5 coins, badge recorded, invariant holds

	mgr, _, _ := newTestManager(t)
	createUser(t, mgr, "u1", economy.TierTrial)
	ctx := context.Background()

	tx, err := mgr.EarnAction(ctx, "u1", economy.ActionProfileComplete)
	require.NoError(t, err)
	assert.Equal(t, economy.TxEarn, tx.Type)
	assert.Equal(t, int64(5), tx.Amount)

	p, err := mgr.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), p.CurrentBalance)
	assert.True(t, p.HasBadge(economy.ActionProfileComplete))
	assertBalanceInvariant(t, p)
}

func TestEarnAction_AchievementIsOneShot(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	createUser(t, mgr, "u1", economy.TierTrial)
	ctx := context.Background()

	_, err := mgr.EarnAction(ctx, "u1", economy.ActionProfileComplete)
	require.NoError(t, err)

	_, err = mgr.EarnAction(ctx, "u1", economy.ActionProfileComplete)
	assert.ErrorIs(t, err, economy.ErrInvalidInput)

	p, err := mgr.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), p.CurrentBalance, "second grant must not pay")
}

func TestEarnAction_UnknownAction(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	createUser(t, mgr, "u1", economy.TierTrial)

	_, err := mgr.EarnAction(context.Background(), "u1", "moon_landing")
	assert.ErrorIs(t, err, economy.ErrUnknownAction)
}

func TestEarnAction_SpendActionRejected(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	createUser(t, mgr, "u1", economy.TierTrial)

	_, err := mgr.EarnAction(context.Background(), "u1", economy.ActionAskQuestion)
	assert.ErrorIs(t, err, economy.ErrInvalidInput)
}

func TestEarnAnswerPayout_BestAnswerOnWeekday(t *testing.T) {
	// GIVEN: A rating-5 best answer on a Tuesday
	// WHEN: Paying the reward
	// THEN: 3 -> 5 -> 8 -> 10 coins, question context recorded

	mgr, _, _ := newTestManager(t)
	createUser(t, mgr, "u1", economy.TierTrial)

	txs, err := mgr.EarnAnswerPayout(context.Background(), "u1", "q-1", 5, true, 0)
	require.NoError(t, err)
	require.Len(t, txs, 1)

	assert.Equal(t, int64(10), txs[0].Amount)
	assert.Equal(t, "Best answer reward", txs[0].Reason)
	assert.Equal(t, "q-1", txs[0].QuestionID)
	assert.Equal(t, 5, txs[0].Rating)
}

func TestEarnAnswerPayout_WeekendDoubling(t *testing.T) {
	mgr, _, clock := newTestManager(t)
	createUser(t, mgr, "u1", economy.TierTrial)

	clock.now = saturday
	txs, err := mgr.EarnAnswerPayout(context.Background(), "u1", "q-1", 5, true, 0)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, int64(20), txs[0].Amount)
}

func TestEarnAnswerPayout_BountyInSameWrite(t *testing.T) {
	// GIVEN: A rating-5 accepted answer with a 10-coin bounty
	// WHEN: Paying the answerer
	// THEN: Reward and bounty land as two transactions from one call

	mgr, _, _ := newTestManager(t)
	createUser(t, mgr, "u1", economy.TierTrial)
	ctx := context.Background()

	txs, err := mgr.EarnAnswerPayout(ctx, "u1", "q-1", 5, true, 10)
	require.NoError(t, err)
	require.Len(t, txs, 2)

	assert.Equal(t, int64(10), txs[0].Amount)
	assert.Equal(t, "Question bounty", txs[1].Reason)
	assert.Equal(t, int64(10), txs[1].Amount)
	assert.Equal(t, "q-1", txs[1].QuestionID)

	p, err := mgr.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(20), p.CurrentBalance)
	assertBalanceInvariant(t, p)
}

// =============================================================================
// SPEND TESTS
// =============================================================================

func TestSpend_InsufficientBalance_LeavesLedgerUntouched(t *testing.T) {
	// GIVEN: A fresh user with zero balance
	// WHEN: Trying to post a VIP question
	// THEN: InsufficientBalanceError with the shortfall, nothing recorded

	mgr, _, _ := newTestManager(t)
	createUser(t, mgr, "u1", economy.TierTrial)
	ctx := context.Background()

	_, err := mgr.Spend(ctx, "u1", economy.QuestionVIP, 0, "q-1")
	require.Error(t, err)

	assert.ErrorIs(t, err, economy.ErrInsufficientBalance)
	var insufficient *economy.InsufficientBalanceError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(0), insufficient.Available)
	assert.Equal(t, int64(15), insufficient.Requested)
	assert.Equal(t, int64(15), insufficient.Shortfall)

	p, err := mgr.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, p.CurrentBalance)
	assert.Zero(t, p.TotalSpent)

	txs, err := mgr.Transactions(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Empty(t, txs, "failed spend must not append a transaction")
}

func TestSpend_WithBounty(t *testing.T) {
	// GIVEN: A premium user with their monthly 200 coins
	// WHEN: Posting a VIP question with a 5-coin bounty
	// THEN: 20 coins leave the balance in a single transaction

	mgr, _, _ := newTestManager(t)
	createUser(t, mgr, "u1", economy.TierPremium)
	ctx := context.Background()

	_, err := mgr.MonthlyAllocation(ctx, "u1")
	require.NoError(t, err)

	tx, err := mgr.Spend(ctx, "u1", economy.QuestionVIP, 5, "q-1")
	require.NoError(t, err)
	assert.Equal(t, economy.TxSpend, tx.Type)
	assert.Equal(t, int64(20), tx.Amount)
	assert.Equal(t, "Posted vip question (+5 bounty)", tx.Reason)

	p, err := mgr.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(180), p.CurrentBalance)
	assertBalanceInvariant(t, p)
}

func TestSpend_NegativeBounty_Rejected(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	createUser(t, mgr, "u1", economy.TierTrial)

	_, err := mgr.Spend(context.Background(), "u1", economy.QuestionRegular, -1, "q-1")
	assert.ErrorIs(t, err, economy.ErrInvalidInput)
}

// =============================================================================
// DAILY LOGIN TESTS
// =============================================================================

func TestDailyLogin_SameDayIsIdempotent(t *testing.T) {
	// GIVEN: A user who already logged in today
	// WHEN: Logging in again the same calendar day
	// THEN: No transactions, no balance change, streak unchanged

	mgr, _, clock := newTestManager(t)
	createUser(t, mgr, "u1", economy.TierTrial)
	ctx := context.Background()

	txs, err := mgr.DailyLogin(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, int64(1), txs[0].Amount)
	assert.Equal(t, "Daily login", txs[0].Reason)

	// Same day, hours later
	clock.now = clock.now.Add(8 * time.Hour)
	txs, err = mgr.DailyLogin(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, txs)

	p, err := mgr.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.CurrentBalance)
	assert.Equal(t, 1, p.Streak)
}

func TestDailyLogin_ConsecutiveDaysExtendStreak(t *testing.T) {
	mgr, _, clock := newTestManager(t)
	createUser(t, mgr, "u1", economy.TierTrial)
	ctx := context.Background()

	for day := 0; day < 3; day++ {
		_, err := mgr.DailyLogin(ctx, "u1")
		require.NoError(t, err)
		clock.advanceDays(1)
	}

	p, err := mgr.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, p.Streak)
}

func TestDailyLogin_GapResetsStreak(t *testing.T) {
	mgr, _, clock := newTestManager(t)
	createUser(t, mgr, "u1", economy.TierTrial)
	ctx := context.Background()

	_, err := mgr.DailyLogin(ctx, "u1")
	require.NoError(t, err)

	// Skip a day
	clock.advanceDays(2)
	_, err = mgr.DailyLogin(ctx, "u1")
	require.NoError(t, err)

	p, err := mgr.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, p.Streak)
}

func TestDailyLogin_WeekStreakBonus(t *testing.T) {
	// GIVEN: Six consecutive login days
	// WHEN: Day 7 arrives
	// THEN: The login pays 1 + a separate 10-coin bonus, badge granted.
	//       Day 6 and day 8 pay the plain 1 coin.

	mgr, _, clock := newTestManager(t)
	createUser(t, mgr, "u1", economy.TierTrial)
	ctx := context.Background()

	var day6, day7, day8 []economy.Transaction
	for day := 1; day <= 8; day++ {
		txs, err := mgr.DailyLogin(ctx, "u1")
		require.NoError(t, err)
		switch day {
		case 6:
			day6 = txs
		case 7:
			day7 = txs
		case 8:
			day8 = txs
		}
		clock.advanceDays(1)
	}

	assert.Len(t, day6, 1)
	require.Len(t, day7, 2, "day 7 pays the login plus the streak bonus")
	assert.Equal(t, int64(10), day7[1].Amount)
	assert.Equal(t, "7-day streak bonus", day7[1].Reason)
	assert.Equal(t, economy.CategoryBonus, day7[1].Category)
	assert.Len(t, day8, 1)

	p, err := mgr.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, p.HasBadge("week-streak"))
	assert.Equal(t, 8, p.Streak)
	// 8 logins + 10 bonus
	assert.Equal(t, int64(18), p.CurrentBalance)
	assertBalanceInvariant(t, p)
}

func TestDailyLogin_MonthStreakBonus(t *testing.T) {
	mgr, _, clock := newTestManager(t)
	createUser(t, mgr, "u1", economy.TierTrial)
	ctx := context.Background()

	for day := 1; day <= 30; day++ {
		_, err := mgr.DailyLogin(ctx, "u1")
		require.NoError(t, err)
		clock.advanceDays(1)
	}

	p, err := mgr.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 30, p.Streak)
	assert.True(t, p.HasBadge("week-streak"))
	assert.True(t, p.HasBadge("month-streak"))
	// 30 logins + 10 (day 7) + 25 (day 30)
	assert.Equal(t, int64(65), p.CurrentBalance)
	assertBalanceInvariant(t, p)
}

// =============================================================================
// MONTHLY ALLOCATION TESTS
// =============================================================================

func TestMonthlyAllocation_GrantsAndResetsBillingMonth(t *testing.T) {
	// GIVEN: A premium user with accrued monthly earnings and discount
	// WHEN: The monthly allocation lands
	// THEN: One transaction, +200 coins, monthly accrual state reset

	mgr, _, _ := newTestManager(t)
	createUser(t, mgr, "u1", economy.TierPremium)
	ctx := context.Background()

	// Accrue within the month: 3 + 247 = 250 earned -> discount 2
	_, err := mgr.EarnAnswerPayout(ctx, "u1", "q-1", 0, false, 247)
	require.NoError(t, err)

	p, err := mgr.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(250), p.MonthlyEarnings)
	assert.True(t, p.DiscountEarned.Equal(decimal.NewFromInt(2)))

	tx, err := mgr.MonthlyAllocation(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(200), tx.Amount)
	assert.Equal(t, economy.CategorySubscription, tx.Category)
	assert.Equal(t, "Monthly premium allocation", tx.Reason)

	p, err = mgr.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(450), p.CurrentBalance)
	assert.Zero(t, p.MonthlyEarnings, "allocation starts a fresh billing month")
	assert.True(t, p.DiscountEarned.IsZero())
	assert.False(t, p.LastAllocation.IsZero())
	assertBalanceInvariant(t, p)

	// Externally: reward, bounty, allocation - no separate "reset" record
	txs, err := mgr.Transactions(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Len(t, txs, 3)
}

// =============================================================================
// STATS TESTS
// =============================================================================

func TestStats_TrailingWeekWindow(t *testing.T) {
	// GIVEN: One transaction 10 days ago and one today
	// WHEN: Computing stats
	// THEN: Only the recent transaction counts toward the weekly window

	mgr, _, clock := newTestManager(t)
	createUser(t, mgr, "u1", economy.TierTrial)
	ctx := context.Background()

	_, err := mgr.EarnAnswerPayout(ctx, "u1", "q-old", 0, false, 37) // 3 + 37 = 40
	require.NoError(t, err)

	clock.advanceDays(10)
	_, err = mgr.EarnAnswerPayout(ctx, "u1", "q-new", 0, false, 67) // 3 + 67 = 70
	require.NoError(t, err)

	stats, err := mgr.Stats(ctx, "u1")
	require.NoError(t, err)

	assert.Equal(t, int64(70), stats.Weekly.Earned)
	assert.Equal(t, 2, stats.Weekly.TransactionCount)
	assert.Equal(t, int64(110), stats.Monthly.Earned)
	assert.True(t, stats.Monthly.DiscountProgress.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, int64(200), stats.Monthly.NextDiscountThreshold)
}

func TestTransactions_UnknownUser(t *testing.T) {
	mgr, _, _ := newTestManager(t)

	_, err := mgr.Transactions(context.Background(), "ghost", 10)
	assert.ErrorIs(t, err, economy.ErrUserNotFound)
}

// =============================================================================
// END-TO-END SCENARIO
// =============================================================================

func TestLedger_EndToEndInvariant(t *testing.T) {
	// GIVEN: A trial user going through a realistic week
	// WHEN: Logins, answer rewards, a spend and an allocation interleave
	// THEN: The balance invariant holds throughout and the log sums to
	//       the profile totals

	mgr, _, clock := newTestManager(t)
	createUser(t, mgr, "u1", economy.TierTrial)
	ctx := context.Background()

	check := func() {
		p, err := mgr.GetProfile(ctx, "u1")
		require.NoError(t, err)
		assertBalanceInvariant(t, p)
	}

	_, err := mgr.MonthlyAllocation(ctx, "u1") // +50
	require.NoError(t, err)
	check()

	for day := 0; day < 3; day++ { // +3
		_, err = mgr.DailyLogin(ctx, "u1")
		require.NoError(t, err)
		check()
		clock.advanceDays(1)
	}

	_, err = mgr.EarnAnswerPayout(ctx, "u1", "q-1", 4, false, 0) // +5 (weekday)
	require.NoError(t, err)
	check()

	_, err = mgr.Spend(ctx, "u1", economy.QuestionUrgent, 10, "q-2") // -15
	require.NoError(t, err)
	check()

	p, err := mgr.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(43), p.CurrentBalance)
	assert.Equal(t, int64(58), p.TotalEarned)
	assert.Equal(t, int64(15), p.TotalSpent)

	// The log is the source of truth: replaying it yields the totals
	txs, err := mgr.Transactions(ctx, "u1", 0)
	require.NoError(t, err)

	var earned, spent int64
	for _, tx := range txs {
		require.Positive(t, tx.Amount, "amounts are always positive")
		switch tx.Type {
		case economy.TxEarn:
			earned += tx.Amount
		case economy.TxSpend:
			spent += tx.Amount
		default:
			t.Fatalf("unexpected transaction type %q", tx.Type)
		}
	}
	assert.Equal(t, p.TotalEarned, earned)
	assert.Equal(t, p.TotalSpent, spent)
}

func TestConcurrentSpends_NeverOverdraw(t *testing.T) {
	// GIVEN: A user with 50 coins
	// WHEN: 40 concurrent regular-question spends race (2 coins each)
	// THEN: At most 25 succeed and the balance never goes negative

	mgr, _, _ := newTestManager(t)
	createUser(t, mgr, "u1", economy.TierTrial)
	ctx := context.Background()

	_, err := mgr.MonthlyAllocation(ctx, "u1") // +50
	require.NoError(t, err)

	done := make(chan error, 40)
	for i := 0; i < 40; i++ {
		go func() {
			_, err := mgr.Spend(ctx, "u1", economy.QuestionRegular, 0, "q-race")
			done <- err
		}()
	}

	succeeded := 0
	for i := 0; i < 40; i++ {
		if err := <-done; err == nil {
			succeeded++
		} else {
			require.True(t, errors.Is(err, economy.ErrInsufficientBalance),
				"only insufficient-balance failures expected, got %v", err)
		}
	}

	assert.Equal(t, 25, succeeded)

	p, err := mgr.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), p.CurrentBalance)
	assertBalanceInvariant(t, p)
}
