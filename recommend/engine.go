/*
Package recommend scores coaching recommendations from activity.

PURPOSE:
  A heuristic rule table over aggregate ledger and forum activity:
  each rule inspects the user's stats (streak, balance, monthly
  earnings, answer counts) and emits a weighted recommendation when
  its condition matches. Results are ranked by score. This is business
  heuristics, not a learning system.

SHAPE:
  Same pattern as the ledger's catalog: a static table of rules,
  evaluated by a pure function. No state, no I/O - trivially testable.

SEE ALSO:
  - economy/manager.go: Stats input
  - qa/manager.go: Activity input
*/
package recommend

import (
	"sort"

	"github.com/alpharise/coin-engine/economy"
	"github.com/alpharise/coin-engine/qa"
)

// Recommendation is one ranked suggestion surfaced to the user.
type Recommendation struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Reason   string  `json:"reason"`
	Category string  `json:"category"`
	Score    float64 `json:"score"`
}

// rule emits a recommendation when its condition matches.
type rule struct {
	id       string
	title    string
	category string
	score    float64
	when     func(s *economy.Stats, a qa.Activity) (bool, string)
}

var rules = []rule{
	{
		id: "build-daily-habit", title: "Build a daily check-in habit", category: "habit", score: 90,
		when: func(s *economy.Stats, a qa.Activity) (bool, string) {
			if s.Profile.Streak < 3 {
				return true, "Your streak is under 3 days - daily check-ins compound fast"
			}
			return false, ""
		},
	},
	{
		id: "streak-week-push", title: "Four more days to your weekly bonus", category: "habit", score: 70,
		when: func(s *economy.Stats, a qa.Activity) (bool, string) {
			if s.Profile.Streak >= 3 && s.Profile.Streak < 7 {
				return true, "A 7-day streak pays a 10-coin bonus"
			}
			return false, ""
		},
	},
	{
		id: "first-answer", title: "Answer your first community question", category: "community", score: 80,
		when: func(s *economy.Stats, a qa.Activity) (bool, string) {
			if a.AnswersGiven == 0 {
				return true, "Answering earns 3-10 coins and doubles on weekends"
			}
			return false, ""
		},
	},
	{
		id: "aim-best-answer", title: "Go for a best-answer badge", category: "community", score: 60,
		when: func(s *economy.Stats, a qa.Activity) (bool, string) {
			if a.AnswersGiven >= 3 && a.BestAnswers == 0 {
				return true, "You answer often - an accepted answer adds a 3-coin bonus and any bounty"
			}
			return false, ""
		},
	},
	{
		id: "low-balance", title: "Ways to earn before your next question", category: "economy", score: 75,
		when: func(s *economy.Stats, a qa.Activity) (bool, string) {
			if s.Profile.CurrentBalance < economy.QuestionCost(economy.QuestionRegular) {
				return true, "Your balance can't cover a regular question right now"
			}
			return false, ""
		},
	},
	{
		id: "discount-progress", title: "You're close to your next discount", category: "billing", score: 65,
		when: func(s *economy.Stats, a qa.Activity) (bool, string) {
			next := s.Monthly.NextDiscountThreshold
			if next > 0 && next-s.Monthly.Earned <= 20 {
				return true, "A few more coins this month unlock another unit off your subscription"
			}
			return false, ""
		},
	},
	{
		id: "advanced-content", title: "Unlock the advanced confidence track", category: "content", score: 55,
		when: func(s *economy.Stats, a qa.Activity) (bool, string) {
			if s.Profile.Level >= 3 && s.Profile.Streak >= 7 {
				return true, "High level and a solid streak - you're ready for harder material"
			}
			return false, ""
		},
	},
}

// Engine evaluates the rule table. Stateless.
type Engine struct{}

func NewEngine() *Engine { return &Engine{} }

// Recommend returns matching recommendations ranked by score.
func (e *Engine) Recommend(stats *economy.Stats, activity qa.Activity) []Recommendation {
	out := make([]Recommendation, 0, len(rules))
	for _, r := range rules {
		match, reason := r.when(stats, activity)
		if !match {
			continue
		}
		out = append(out, Recommendation{
			ID:       r.id,
			Title:    r.title,
			Reason:   reason,
			Category: r.category,
			Score:    r.score,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
