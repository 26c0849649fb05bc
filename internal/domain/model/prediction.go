// Package model contains domain models passed between layers.
package model

import "fmt"

// WeakGapThreshold is the skill gap above which a learner is flagged weak.
// A gap exactly at the threshold is not weak.
const WeakGapThreshold = 0.6

// DifficultyLevel classifies how content matches a learner's ability.
type DifficultyLevel string

// Difficulty labels. Class indices follow the trainer's encoding: 0 easy, 1 medium, 2 hard.
const (
	DifficultyEasy   DifficultyLevel = "easy"
	DifficultyMedium DifficultyLevel = "medium"
	DifficultyHard   DifficultyLevel = "hard"
)

var difficultyByClass = [...]DifficultyLevel{DifficultyEasy, DifficultyMedium, DifficultyHard}

// DifficultyFromClass maps a classifier class index to its label.
func DifficultyFromClass(class int) (DifficultyLevel, error) {
	if class < 0 || class >= len(difficultyByClass) {
		return "", fmt.Errorf("unknown difficulty class %d", class)
	}
	return difficultyByClass[class], nil
}

// ParseDifficulty validates a label.
func ParseDifficulty(s string) (DifficultyLevel, error) {
	d := DifficultyLevel(s)
	if !d.Valid() {
		return "", fmt.Errorf("unknown difficulty level %q", s)
	}
	return d, nil
}

// Valid reports whether d is one of the three labels.
func (d DifficultyLevel) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Action is the single next step recommended to the learning platform.
type Action string

// Adaptation actions.
const (
	ActionAddFoundationResources Action = "add_foundation_resources"
	ActionReduceDifficulty       Action = "reduce_difficulty"
	ActionIncreaseDifficulty     Action = "increase_difficulty"
	ActionContinueCurrentPath    Action = "continue_current_path"
)

// Actions lists every action.
func Actions() []Action {
	return []Action{
		ActionAddFoundationResources,
		ActionReduceDifficulty,
		ActionIncreaseDifficulty,
		ActionContinueCurrentPath,
	}
}

// Valid reports whether a is one of the four actions.
func (a Action) Valid() bool {
	for _, known := range Actions() {
		if a == known {
			return true
		}
	}
	return false
}

// IsWeak applies WeakGapThreshold.
func IsWeak(gapScore float64) bool {
	return gapScore > WeakGapThreshold
}

// SkillGap is the skill gap sub-result.
type SkillGap struct {
	GapScore float64 `json:"gap_score"`
	Weak     bool    `json:"weak"`
}

// Difficulty is the difficulty sub-result.
type Difficulty struct {
	DifficultyLevel DifficultyLevel `json:"difficulty_level"`
}

// Ranking is the ranking sub-result.
type Ranking struct {
	RankingScore float64 `json:"ranking_score"`
}

// Adaptation is the recommended action sub-result.
type Adaptation struct {
	Action Action `json:"action"`
}

// PredictionResult is the full response for one learner snapshot.
type PredictionResult struct {
	SkillGap         SkillGap   `json:"skill_gap"`
	Difficulty       Difficulty `json:"difficulty"`
	Ranking          Ranking    `json:"ranking"`
	Adaptation       Adaptation `json:"adaptation"`
	RequestID        string     `json:"request_id"`
	PredictionTimeMS float64    `json:"prediction_time_ms"`
}
