// Package adaptation maps model outputs to exactly one recommended action.
package adaptation

import "github.com/okian/alie/internal/domain/model"

// Rule thresholds.
const (
	FoundationGapThreshold   = 0.75
	StruggleFailureRate      = 0.6
	MasteryAccuracyThreshold = 0.85
)

// Signals are the inputs the rules look at.
type Signals struct {
	GapScore        float64
	DifficultyLevel model.DifficultyLevel
	FailureRate     float64
	AccuracyRate    float64
}

// Rule pairs a predicate with the action it recommends.
type Rule struct {
	Name    string
	Matches func(Signals) bool
	Action  model.Action
}

// Rule names, also used as metric labels.
const (
	RuleFoundationGap    = "foundation_gap"
	RuleStrugglingOnHard = "struggling_on_hard"
	RuleMastered         = "mastered"
	RuleDefault          = "default"
)

var rules = []Rule{
	{
		Name:    RuleFoundationGap,
		Matches: func(s Signals) bool { return s.GapScore > FoundationGapThreshold },
		Action:  model.ActionAddFoundationResources,
	},
	{
		Name: RuleStrugglingOnHard,
		Matches: func(s Signals) bool {
			return s.DifficultyLevel == model.DifficultyHard && s.FailureRate > StruggleFailureRate
		},
		Action: model.ActionReduceDifficulty,
	},
	{
		Name:    RuleMastered,
		Matches: func(s Signals) bool { return s.AccuracyRate > MasteryAccuracyThreshold },
		Action:  model.ActionIncreaseDifficulty,
	},
	{
		Name:    RuleDefault,
		Matches: func(Signals) bool { return true },
		Action:  model.ActionContinueCurrentPath,
	},
}

// Rules returns the table in evaluation order.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// Decide evaluates the rules in order and returns the first match with its rule name.
func Decide(s Signals) (model.Action, string) {
	return Evaluate(rules, s)
}

// Evaluate runs an arbitrary table with first-match-wins semantics. A table
// without a match falls back to continue_current_path.
func Evaluate(table []Rule, s Signals) (model.Action, string) {
	for _, r := range table {
		if r.Matches(s) {
			return r.Action, r.Name
		}
	}
	return model.ActionContinueCurrentPath, RuleDefault
}
