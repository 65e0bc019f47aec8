/*
catalog.go - Static table of earn/spend actions

PURPOSE:
  Enumerates every named action in the coin economy with its direction,
  base amount, category, and description. Pure, static configuration -
  read-only at runtime, not user data.

DYNAMIC AMOUNTS:
  Actions with Amount == 0 compute their payout through rules.go
  instead of the catalog (answer rewards depend on rating/weekend,
  monthly allocation depends on subscription tier). The catalog entry
  still exists so the action is discoverable and validatable.

LOOKUPS:
  LookupAction returns (Action, true) or (Action{}, false) for unknown
  ids. Callers validate the id before acting on it; the Manager turns
  a failed lookup into ErrUnknownAction.

SEE ALSO:
  - rules.go: Variable amounts for answer rewards, streaks, costs
  - manager.go: Validates ids against this catalog
*/
package economy

// Action is one catalog entry: a named earn/spend with its base amount.
type Action struct {
	ID          string
	Name        string
	Type        TxType
	Amount      int64 // base amount; 0 = computed by rules.go
	Description string
	Category    Category
	Icon        string
	Conditions  string // human-readable constraint, empty if none
}

// Action ids referenced across the codebase.
const (
	ActionDailyLogin        = "daily_login"
	ActionStreakWeek        = "streak_week"
	ActionStreakMonth       = "streak_month"
	ActionAnswerQuestion    = "answer_question"
	ActionMonthlyAllocation = "monthly_allocation"
	ActionProfileComplete   = "profile_complete"
	ActionAskQuestion       = "ask_question"
	ActionUrgentQuestion    = "urgent_question"
	ActionPrivateQuestion   = "private_question"
	ActionVIPQuestion       = "vip_question"
	ActionBoostQuestion     = "boost_question"
)

var catalog = map[string]Action{
	ActionDailyLogin: {
		ID: ActionDailyLogin, Name: "Daily Login", Type: TxEarn, Amount: 1,
		Description: "Check in once per calendar day", Category: CategoryDaily, Icon: "📅",
		Conditions: "at most once per calendar day",
	},
	ActionStreakWeek: {
		ID: ActionStreakWeek, Name: "7-Day Streak", Type: TxEarn, Amount: 10,
		Description: "Bonus for seven consecutive active days", Category: CategoryBonus, Icon: "🔥",
		Conditions: "streak reaches exactly 7",
	},
	ActionStreakMonth: {
		ID: ActionStreakMonth, Name: "30-Day Streak", Type: TxEarn, Amount: 25,
		Description: "Bonus for thirty consecutive active days", Category: CategoryBonus, Icon: "🏆",
		Conditions: "streak reaches exactly 30",
	},
	ActionAnswerQuestion: {
		ID: ActionAnswerQuestion, Name: "Answer a Question", Type: TxEarn, Amount: 0,
		Description: "Reward depends on rating, best-answer, weekend", Category: CategoryAnswer, Icon: "💬",
	},
	ActionMonthlyAllocation: {
		ID: ActionMonthlyAllocation, Name: "Monthly Allocation", Type: TxEarn, Amount: 0,
		Description: "Subscription coin grant (tier-dependent)", Category: CategorySubscription, Icon: "💳",
	},
	ActionProfileComplete: {
		ID: ActionProfileComplete, Name: "Profile Completed", Type: TxEarn, Amount: 5,
		Description: "One-time bonus for completing the profile", Category: CategoryAchievement, Icon: "✅",
		Conditions: "once per user",
	},
	ActionAskQuestion: {
		ID: ActionAskQuestion, Name: "Ask a Question", Type: TxSpend, Amount: 2,
		Description: "Post a regular question to the forum", Category: CategoryQuestion, Icon: "❓",
	},
	ActionUrgentQuestion: {
		ID: ActionUrgentQuestion, Name: "Urgent Question", Type: TxSpend, Amount: 5,
		Description: "Pinned for faster responses", Category: CategoryQuestion, Icon: "⚡",
	},
	ActionPrivateQuestion: {
		ID: ActionPrivateQuestion, Name: "Private Question", Type: TxSpend, Amount: 8,
		Description: "Visible only to coaches", Category: CategoryQuestion, Icon: "🔒",
	},
	ActionVIPQuestion: {
		ID: ActionVIPQuestion, Name: "VIP Question", Type: TxSpend, Amount: 15,
		Description: "Guaranteed coach response", Category: CategoryQuestion, Icon: "⭐",
	},
	ActionBoostQuestion: {
		ID: ActionBoostQuestion, Name: "Boost Question", Type: TxSpend, Amount: 3,
		Description: "Bump an existing question", Category: CategoryQuestion, Icon: "🚀",
	},
}

// LookupAction returns the catalog entry for an action id.
func LookupAction(id string) (Action, bool) {
	a, ok := catalog[id]
	return a, ok
}

// Actions returns every catalog entry. The slice is a copy; the catalog
// itself is never mutated at runtime.
func Actions() []Action {
	out := make([]Action, 0, len(catalog))
	for _, a := range catalog {
		out = append(out, a)
	}
	return out
}
