/*
Package economy implements the AlphaRise coin economy.

PURPOSE:
  Users earn coins through activity (daily logins, answering community
  questions, streaks) and spend them on forum actions (asking questions,
  bounties, boosts). This package owns the ledger of those coin
  movements and the per-user running totals derived from it.

KEY CONCEPTS IN THIS FILE (types.go):
  - Transaction: An immutable ledger entry recording one coin movement
  - Profile: Per-user running totals (balance, streak, discount accrual)
  - Category: What a transaction was for (question, answer, bonus, ...)
  - SubscriptionTier: Trial vs premium (drives monthly allocation)

DESIGN PRINCIPLES:
  1. Immutability: Transactions are never modified after append
  2. Derivability: Profile totals are redundant with the log and the
     invariant CurrentBalance == TotalEarned - TotalSpent must hold
     after every mutation
  3. Precision: Discount accrual uses decimal.Decimal (currency), never
     floats

SEE ALSO:
  - catalog.go: Static table of earn/spend actions
  - rules.go: Variable reward computation (answers, streaks, costs)
  - manager.go: The only component allowed to mutate a Profile
*/
package economy

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// TRANSACTION - One immutable coin movement
// =============================================================================

type TxType string

const (
	TxEarn  TxType = "earn"
	TxSpend TxType = "spend"
)

type Category string

const (
	CategoryQuestion     Category = "question"
	CategoryAnswer       Category = "answer"
	CategoryBonus        Category = "bonus"
	CategorySubscription Category = "subscription"
	CategoryDaily        Category = "daily"
	CategoryAchievement  Category = "achievement"
)

// Transaction records one coin movement. Amount is always positive;
// direction is carried by Type. Created exclusively by the Manager and
// never updated or deleted afterwards.
type Transaction struct {
	ID       string
	UserID   string
	Type     TxType
	Amount   int64 // coins, always > 0
	Reason   string
	Category Category

	// Optional context for forum-related transactions.
	QuestionID string
	Rating     int // 1-5, zero when not applicable

	CreatedAt time.Time
}

// =============================================================================
// SUBSCRIPTION TIERS
// =============================================================================

type SubscriptionTier string

const (
	TierTrial   SubscriptionTier = "trial"
	TierPremium SubscriptionTier = "premium"
)

// Monthly coin allocation per tier.
const (
	TrialAllocation   int64 = 50
	PremiumAllocation int64 = 200
)

// AllocationFor returns the monthly coin grant for a tier.
// Unknown tiers get the trial allocation.
func AllocationFor(tier SubscriptionTier) int64 {
	if tier == TierPremium {
		return PremiumAllocation
	}
	return TrialAllocation
}

// =============================================================================
// PROFILE - Per-user running totals derived from the transaction log
// =============================================================================

// Profile is the per-user ledger entry.
//
// INVARIANTS:
//   - CurrentBalance == TotalEarned - TotalSpent after every mutation
//   - DiscountEarned is non-decreasing within a billing month, capped
//     at MaxMonthlyDiscount, and resets only on monthly allocation
type Profile struct {
	UserID       string
	Username     string
	Subscription SubscriptionTier

	CurrentBalance    int64
	TotalEarned       int64
	TotalSpent        int64
	MonthlyAllocation int64

	// Engagement state.
	Streak       int // consecutive calendar days with activity
	Level        int
	Badges       []string
	LastActivity time.Time // calendar-date granularity

	// Billing-month accrual state, reset by MonthlyAllocation.
	MonthlyEarnings int64
	DiscountEarned  decimal.Decimal // currency units off next invoice
	LastAllocation  time.Time

	CreatedAt time.Time
}

// HasBadge reports whether the profile already holds a badge.
func (p *Profile) HasBadge(badge string) bool {
	for _, b := range p.Badges {
		if b == badge {
			return true
		}
	}
	return false
}

// =============================================================================
// STATS - Read-only aggregation returned by Manager.Stats
// =============================================================================

// WeeklyStats aggregates the trailing 7 days of the user's log.
type WeeklyStats struct {
	Earned           int64
	Spent            int64
	TransactionCount int
}

// MonthlyStats reports billing-month progress toward the next discount.
type MonthlyStats struct {
	Earned                int64
	DiscountProgress      decimal.Decimal
	NextDiscountThreshold int64 // coins to earn this month for the next unit; 0 when capped
}

type Stats struct {
	Profile Profile
	Weekly  WeeklyStats
	Monthly MonthlyStats
}

// =============================================================================
// CALENDAR HELPERS
// =============================================================================
// Streak and daily-login logic work on calendar dates, not elapsed
// hours: a login at 23:59 followed by one at 00:01 counts as two days.

// SameDay reports whether two instants fall on the same calendar date (UTC).
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// IsYesterday reports whether a falls on the calendar day before b.
func IsYesterday(a, b time.Time) bool {
	return SameDay(a, b.UTC().AddDate(0, 0, -1))
}

// StartOfMonth returns midnight UTC on the first of t's month.
func StartOfMonth(t time.Time) time.Time {
	y, m, _ := t.UTC().Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}
