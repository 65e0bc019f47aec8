/*
manager.go - The ledger façade

PURPOSE:
  Manager is the ONLY component allowed to mutate a Profile. Every
  public operation validates input, computes the coin movement through
  catalog.go / rules.go, and persists the transaction append and the
  profile update atomically.

CONCURRENCY:
  Mutations are serialized per user with a keyed mutex, so two
  concurrent spends cannot interleave between the balance check and
  the balance update. Different users proceed in parallel. The store
  write itself runs inside TxStore.WithTx, so a failed write leaves
  the stored profile unchanged.

GUARANTEE:
  After any successful Spend / Earn / MonthlyAllocation call:
    CurrentBalance == TotalEarned - TotalSpent
  and the appended transactions are exactly the externally visible
  record of the change (monthly allocation is one transaction, not a
  reset-plus-transaction pair).

CLOCK:
  The Clock field exists so calendar-sensitive rules (weekend
  doubling, same-day login idempotence) are testable. Production code
  leaves it at time.Now.

SEE ALSO:
  - rules.go: Reward arithmetic
  - store.go: Persistence contract
*/
package economy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// MANAGER
// =============================================================================

type Manager struct {
	store TxStore

	// Clock returns the current time. Override in tests.
	Clock func() time.Time

	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
}

func NewManager(store TxStore) *Manager {
	return &Manager{
		store:     store,
		Clock:     time.Now,
		userLocks: make(map[string]*sync.Mutex),
	}
}

// userLock returns the mutex serializing mutations for one user.
func (m *Manager) userLock(userID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.userLocks[userID]
	if !ok {
		l = &sync.Mutex{}
		m.userLocks[userID] = l
	}
	return l
}

// =============================================================================
// USERS
// =============================================================================

// CreateUser creates a ledger entry for a new user. The ledger never
// creates entries implicitly: every other operation fails with
// ErrUserNotFound until this has been called.
func (m *Manager) CreateUser(ctx context.Context, userID, username string, tier SubscriptionTier) (*Profile, error) {
	if userID == "" || username == "" {
		return nil, fmt.Errorf("%w: user id and username are required", ErrInvalidInput)
	}
	switch tier {
	case TierTrial, TierPremium:
	case "":
		tier = TierTrial
	default:
		return nil, fmt.Errorf("%w: unknown subscription tier %q", ErrInvalidInput, tier)
	}

	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()

	if _, err := m.store.GetProfile(ctx, userID); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrUserExists, userID)
	} else if !IsNotFound(err) {
		return nil, err
	}

	now := m.Clock().UTC()
	p := Profile{
		UserID:            userID,
		Username:          username,
		Subscription:      tier,
		MonthlyAllocation: AllocationFor(tier),
		Level:             1,
		DiscountEarned:    decimal.Zero,
		CreatedAt:         now,
	}
	if err := m.store.SaveProfile(ctx, p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProfile returns a user's ledger entry.
func (m *Manager) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return m.store.GetProfile(ctx, userID)
}

// =============================================================================
// EARN
// =============================================================================

// EarnAction grants the catalog base amount for a fixed-amount action.
// Dynamic actions (answer rewards, monthly allocation) have dedicated
// operations and are rejected here.
func (m *Manager) EarnAction(ctx context.Context, userID, actionID string) (*Transaction, error) {
	action, ok := LookupAction(actionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, actionID)
	}
	if action.Type != TxEarn {
		return nil, fmt.Errorf("%w: %s is not an earn action", ErrInvalidInput, actionID)
	}
	if action.Amount == 0 {
		return nil, fmt.Errorf("%w: %s has a computed amount", ErrInvalidInput, actionID)
	}

	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()

	p, err := m.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Achievements are one-shot; the badge doubles as the dedupe marker.
	if action.Category == CategoryAchievement {
		if p.HasBadge(action.ID) {
			return nil, fmt.Errorf("%w: achievement %s already granted", ErrInvalidInput, action.ID)
		}
		p.Badges = append(p.Badges, action.ID)
	}

	tx := m.newTransaction(userID, TxEarn, action.Amount, action.Name, action.Category)
	applyEarn(p, action.Amount)

	if err := m.persist(ctx, p, tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// EarnAnswerPayout pays a user for an answer. The reward follows the
// answer reward rule: rating tier, best-answer bonus, then weekend
// doubling of the sum. A positive bounty adds a second transaction for
// the accepted answer's bounty. Both land in one atomic ledger write:
// a failed payout pays neither, so the caller can retry without the
// answerer ever being paid twice.
func (m *Manager) EarnAnswerPayout(ctx context.Context, userID, questionID string, rating int, isBest bool, bounty int64) ([]Transaction, error) {
	if rating < 0 || rating > 5 {
		return nil, fmt.Errorf("%w: rating %d out of range 1-5", ErrInvalidInput, rating)
	}
	if bounty < 0 {
		return nil, fmt.Errorf("%w: bounty cannot be negative", ErrInvalidInput)
	}

	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()

	p, err := m.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := m.Clock().UTC()
	amount := AnswerReward(rating, isBest, now)
	reason := "Answer reward"
	if isBest {
		reason = "Best answer reward"
	}

	tx := m.newTransaction(userID, TxEarn, amount, reason, CategoryAnswer)
	tx.QuestionID = questionID
	tx.Rating = rating

	txs := []Transaction{tx}
	total := amount
	if bounty > 0 {
		btx := m.newTransaction(userID, TxEarn, bounty, "Question bounty", CategoryAnswer)
		btx.QuestionID = questionID
		txs = append(txs, btx)
		total += bounty
	}
	applyEarn(p, total)

	if err := m.persist(ctx, p, txs...); err != nil {
		return nil, err
	}
	return txs, nil
}

// =============================================================================
// SPEND
// =============================================================================

// Spend charges a user for posting a question: base cost for the kind
// plus any bounty attached. Rejects with InsufficientBalanceError when
// the balance cannot cover the total, leaving the ledger untouched.
func (m *Manager) Spend(ctx context.Context, userID string, kind QuestionKind, bounty int64, questionID string) (*Transaction, error) {
	if bounty < 0 {
		return nil, fmt.Errorf("%w: bounty cannot be negative", ErrInvalidInput)
	}

	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()

	p, err := m.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	total := QuestionCost(kind) + bounty
	if p.CurrentBalance < total {
		return nil, &InsufficientBalanceError{
			UserID:    userID,
			Available: p.CurrentBalance,
			Requested: total,
			Shortfall: total - p.CurrentBalance,
		}
	}

	reason := fmt.Sprintf("Posted %s question", kind)
	if bounty > 0 {
		reason = fmt.Sprintf("Posted %s question (+%d bounty)", kind, bounty)
	}

	tx := m.newTransaction(userID, TxSpend, total, reason, CategoryQuestion)
	tx.QuestionID = questionID
	p.CurrentBalance -= total
	p.TotalSpent += total

	if err := m.persist(ctx, p, tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// =============================================================================
// DAILY LOGIN
// =============================================================================

// DailyLogin records a calendar day of activity and pays the login
// reward, plus the streak bonus when a threshold is reached exactly.
//
// IDEMPOTENT: a second login on the same calendar date returns no
// transactions and changes nothing. At most one daily-login reward per
// calendar day per user.
func (m *Manager) DailyLogin(ctx context.Context, userID string) ([]Transaction, error) {
	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()

	p, err := m.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := m.Clock().UTC()
	if !p.LastActivity.IsZero() && SameDay(p.LastActivity, now) {
		return nil, nil // already logged in today
	}

	p.Streak = NextStreak(p.Streak, p.LastActivity, now)
	p.LastActivity = now

	txs := []Transaction{
		m.newTransaction(userID, TxEarn, dailyLoginReward, "Daily login", CategoryDaily),
	}
	total := dailyLoginReward

	if bonus, reason := StreakBonus(p.Streak); bonus > 0 {
		txs = append(txs, m.newTransaction(userID, TxEarn, bonus, reason, CategoryBonus))
		total += bonus
	}
	switch p.Streak {
	case streakWeekLength:
		if !p.HasBadge("week-streak") {
			p.Badges = append(p.Badges, "week-streak")
		}
	case streakMonthLength:
		if !p.HasBadge("month-streak") {
			p.Badges = append(p.Badges, "month-streak")
		}
	}

	applyEarn(p, total)

	if err := m.persist(ctx, p, txs...); err != nil {
		return nil, err
	}
	return txs, nil
}

// =============================================================================
// MONTHLY ALLOCATION
// =============================================================================

// MonthlyAllocation grants the tier-dependent coin allocation and
// starts a fresh billing month: monthly earnings and discount accrual
// reset to zero as part of the same atomic operation. Externally this
// is a single transaction.
func (m *Manager) MonthlyAllocation(ctx context.Context, userID string) (*Transaction, error) {
	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()

	p, err := m.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	amount := p.MonthlyAllocation
	if amount <= 0 {
		amount = AllocationFor(p.Subscription)
	}

	now := m.Clock().UTC()
	tx := m.newTransaction(userID, TxEarn, amount, fmt.Sprintf("Monthly %s allocation", p.Subscription), CategorySubscription)

	p.CurrentBalance += amount
	p.TotalEarned += amount
	p.Level = LevelFor(p.TotalEarned)
	p.MonthlyEarnings = 0
	p.DiscountEarned = decimal.Zero
	p.LastAllocation = now

	if err := m.persist(ctx, p, tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// =============================================================================
// READS
// =============================================================================

// Transactions returns a user's history, most recent first.
func (m *Manager) Transactions(ctx context.Context, userID string, limit int) ([]Transaction, error) {
	if _, err := m.store.GetProfile(ctx, userID); err != nil {
		return nil, err
	}
	return m.store.TransactionsByUser(ctx, userID, limit)
}

// RecentActivity returns the newest transactions across all users,
// most recent first.
func (m *Manager) RecentActivity(ctx context.Context, limit int) ([]Transaction, error) {
	return m.store.RecentTransactions(ctx, limit)
}

// Stats aggregates a user's profile with a trailing-7-day window and
// billing-month discount progress. Read-only.
func (m *Manager) Stats(ctx context.Context, userID string) (*Stats, error) {
	p, err := m.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	weekAgo := m.Clock().UTC().Add(-7 * 24 * time.Hour)
	txs, err := m.store.TransactionsByUserSince(ctx, userID, weekAgo)
	if err != nil {
		return nil, err
	}

	var weekly WeeklyStats
	for _, tx := range txs {
		weekly.TransactionCount++
		switch tx.Type {
		case TxEarn:
			weekly.Earned += tx.Amount
		case TxSpend:
			weekly.Spent += tx.Amount
		}
	}

	return &Stats{
		Profile: *p,
		Weekly:  weekly,
		Monthly: MonthlyStats{
			Earned:                p.MonthlyEarnings,
			DiscountProgress:      p.DiscountEarned,
			NextDiscountThreshold: NextDiscountThreshold(p.MonthlyEarnings),
		},
	}, nil
}

// =============================================================================
// INTERNALS
// =============================================================================

func (m *Manager) newTransaction(userID string, typ TxType, amount int64, reason string, category Category) Transaction {
	return Transaction{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      typ,
		Amount:    amount,
		Reason:    reason,
		Category:  category,
		CreatedAt: m.Clock().UTC(),
	}
}

// applyEarn updates the profile totals for coins earned through
// activity (allocations bypass this - they don't count as earnings).
func applyEarn(p *Profile, amount int64) {
	p.CurrentBalance += amount
	p.TotalEarned += amount
	p.MonthlyEarnings += amount
	p.DiscountEarned = DiscountFor(p.MonthlyEarnings)
	p.Level = LevelFor(p.TotalEarned)
}

// persist writes the appended transactions and the updated profile
// atomically. Either everything lands or nothing does.
func (m *Manager) persist(ctx context.Context, p *Profile, txs ...Transaction) error {
	return m.store.WithTx(ctx, func(s Store) error {
		for _, tx := range txs {
			if err := s.AppendTransaction(ctx, tx); err != nil {
				return err
			}
		}
		return s.SaveProfile(ctx, *p)
	})
}
