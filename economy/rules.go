/*
rules.go - Variable reward computation

PURPOSE:
  Pure functions computing coin amounts for actions whose payout
  depends on context rather than a fixed catalog amount: answer
  rewards (rating, best-answer, weekend), daily-login streak bonuses,
  and question posting costs.

ORDER OF APPLICATION (answer rewards):
  The tiers are order-dependent and must not be rearranged:
    1. base 3
    2. rating >= 4 replaces the base with 5
    3. best answer adds 3
    4. rating == 5 adds 2
    5. Saturday/Sunday doubles the running total, applied last
  Weekday rating-5 best answer: 3 -> 5 -> 8 -> 10. Weekend: 20.

UNKNOWN QUESTION KINDS:
  QuestionCost falls back to the regular rate for unknown kinds
  instead of failing. Kept for caller compatibility, but made an
  explicit, logged fallback so a miscoded kind shows up in logs.

SEE ALSO:
  - catalog.go: Fixed base amounts
  - manager.go: Applies these rules inside ledger mutations
*/
package economy

import (
	"log"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ANSWER REWARDS
// =============================================================================

// AnswerReward computes the coin payout for an answer.
// Rating 0 means unrated and earns the base amount.
func AnswerReward(rating int, isBest bool, at time.Time) int64 {
	amount := int64(3)
	if rating >= 4 {
		amount = 5
	}
	if isBest {
		amount += 3
	}
	if rating == 5 {
		amount += 2
	}
	// Weekend multiplier applies to the full sum, last.
	if wd := at.UTC().Weekday(); wd == time.Saturday || wd == time.Sunday {
		amount *= 2
	}
	return amount
}

// =============================================================================
// DAILY LOGIN / STREAKS
// =============================================================================

const dailyLoginReward int64 = 1

const (
	streakWeekLength  = 7
	streakMonthLength = 30
)

// StreakBonus returns the bonus for the streak length just reached.
// Only the exact thresholds pay out: 7 and 30, nothing at 6, 8, 29 or 31.
func StreakBonus(streak int) (amount int64, reason string) {
	switch streak {
	case streakWeekLength:
		return 10, "7-day streak bonus"
	case streakMonthLength:
		return 25, "30-day streak bonus"
	}
	return 0, ""
}

// NextStreak computes the streak after activity at now, given the last
// recorded activity. Consecutive calendar days extend the streak;
// anything else resets it to 1.
func NextStreak(current int, lastActivity, now time.Time) int {
	if IsYesterday(lastActivity, now) {
		return current + 1
	}
	return 1
}

// =============================================================================
// QUESTION COSTS
// =============================================================================

type QuestionKind string

const (
	QuestionRegular QuestionKind = "regular"
	QuestionUrgent  QuestionKind = "urgent"
	QuestionPrivate QuestionKind = "private"
	QuestionVIP     QuestionKind = "vip"
	QuestionBoost   QuestionKind = "boost"
)

var questionCosts = map[QuestionKind]int64{
	QuestionRegular: 2,
	QuestionUrgent:  5,
	QuestionPrivate: 8,
	QuestionVIP:     15,
	QuestionBoost:   3,
}

// QuestionCost returns the base posting cost for a question kind.
// Unknown kinds charge the regular rate.
func QuestionCost(kind QuestionKind) int64 {
	if cost, ok := questionCosts[kind]; ok {
		return cost
	}
	log.Printf("[Economy] unknown question kind %q, charging regular rate", kind)
	return questionCosts[QuestionRegular]
}

// =============================================================================
// DISCOUNT ACCRUAL
// =============================================================================

// Every 100 coins earned within a billing month accrues one currency
// unit off the next invoice, capped at 15.
const coinsPerDiscountStep int64 = 100

var (
	discountUnit       = decimal.NewFromInt(1)
	maxMonthlyDiscount = decimal.NewFromInt(15)
)

// MaxMonthlyDiscount is the cap on discount accrued in one billing month.
func MaxMonthlyDiscount() decimal.Decimal { return maxMonthlyDiscount }

// DiscountFor computes the discount accrued from coins earned this
// billing month. Monotonic non-decreasing in monthlyEarnings, capped.
func DiscountFor(monthlyEarnings int64) decimal.Decimal {
	d := decimal.NewFromInt(monthlyEarnings / coinsPerDiscountStep).Mul(discountUnit)
	if d.GreaterThan(maxMonthlyDiscount) {
		return maxMonthlyDiscount
	}
	return d
}

// NextDiscountThreshold returns the monthly-earnings total at which the
// next discount unit unlocks, or 0 once the cap is reached.
func NextDiscountThreshold(monthlyEarnings int64) int64 {
	if !DiscountFor(monthlyEarnings).LessThan(maxMonthlyDiscount) {
		return 0
	}
	return (monthlyEarnings/coinsPerDiscountStep + 1) * coinsPerDiscountStep
}

// =============================================================================
// LEVELS
// =============================================================================

const coinsPerLevel int64 = 250

// LevelFor derives a user's level from lifetime earnings.
func LevelFor(totalEarned int64) int {
	return 1 + int(totalEarned/coinsPerLevel)
}
