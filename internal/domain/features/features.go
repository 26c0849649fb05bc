// Package features derives the model input vector from a learner snapshot.
package features

import (
	"fmt"

	"github.com/okian/alie/internal/domain/learner"
)

// Derived holds the six secondary signals computed from one snapshot.
type Derived struct {
	AccuracyRate             float64 `json:"accuracy_rate"`
	FailureRate              float64 `json:"failure_rate"`
	LearningVelocity         float64 `json:"learning_velocity"`
	ConfidencePerformanceGap float64 `json:"confidence_performance_gap"`
	DifficultyStressIndex    float64 `json:"difficulty_stress_index"`
	PersistenceScore         float64 `json:"persistence_score"`
}

// Derive computes the secondary signals. Ratios with a zero denominator resolve to 0.
func Derive(s learner.Snapshot) Derived {
	var accuracy float64
	if s.AttemptCount > 0 {
		accuracy = float64(s.CorrectAttempts) / float64(s.AttemptCount)
	}
	failure := 1 - accuracy

	var velocity float64
	if s.SessionDuration > 0 {
		velocity = s.PreviousMasteryScore / s.SessionDuration
	}

	return Derived{
		AccuracyRate:             accuracy,
		FailureRate:              failure,
		LearningVelocity:         velocity,
		ConfidencePerformanceGap: s.SelfConfidenceRating - accuracy,
		DifficultyStressIndex:    float64(s.DifficultyFeedback) * failure,
		// attempt_count is never negative after validation, so the denominator is at least 1.
		PersistenceScore: s.SessionDuration / (float64(s.AttemptCount) + 1),
	}
}

// Feature names in the order the models were trained on.
const (
	AttemptCount             = "attempt_count"
	CorrectAttempts          = "correct_attempts"
	AvgResponseTime          = "avg_response_time"
	SelfConfidenceRating     = "self_confidence_rating"
	DifficultyFeedback       = "difficulty_feedback"
	SessionDuration          = "session_duration"
	PreviousMasteryScore     = "previous_mastery_score"
	TimeSinceLastAttempt     = "time_since_last_attempt"
	AccuracyRate             = "accuracy_rate"
	FailureRate              = "failure_rate"
	LearningVelocity         = "learning_velocity"
	ConfidencePerformanceGap = "confidence_performance_gap"
	DifficultyStressIndex    = "difficulty_stress_index"
	PersistenceScore         = "persistence_score"
)

var names = [...]string{
	AttemptCount,
	CorrectAttempts,
	AvgResponseTime,
	SelfConfidenceRating,
	DifficultyFeedback,
	SessionDuration,
	PreviousMasteryScore,
	TimeSinceLastAttempt,
	AccuracyRate,
	FailureRate,
	LearningVelocity,
	ConfidencePerformanceGap,
	DifficultyStressIndex,
	PersistenceScore,
}

// Len is the width of a Vector.
const Len = len(names)

var indexByName = func() map[string]int {
	m := make(map[string]int, Len)
	for i, n := range names {
		m[n] = i
	}
	return m
}()

// Names returns the canonical feature order.
func Names() []string {
	out := make([]string, Len)
	copy(out, names[:])
	return out
}

// Index resolves a feature name to its position in a Vector.
func Index(name string) (int, error) {
	i, ok := indexByName[name]
	if !ok {
		return 0, fmt.Errorf("unknown feature %q", name)
	}
	return i, nil
}

// Vector is the fixed-width model input: eight raw fields followed by six derived ones.
type Vector [Len]float64

// NewVector assembles the model input for a snapshot and its derived signals.
func NewVector(s learner.Snapshot, d Derived) Vector {
	return Vector{
		float64(s.AttemptCount),
		float64(s.CorrectAttempts),
		s.AvgResponseTime,
		s.SelfConfidenceRating,
		float64(s.DifficultyFeedback),
		s.SessionDuration,
		s.PreviousMasteryScore,
		s.TimeSinceLastAttempt,
		d.AccuracyRate,
		d.FailureRate,
		d.LearningVelocity,
		d.ConfidencePerformanceGap,
		d.DifficultyStressIndex,
		d.PersistenceScore,
	}
}

// Build derives and assembles in one step.
func Build(s learner.Snapshot) (Vector, Derived) {
	d := Derive(s)
	return NewVector(s, d), d
}

// Get returns the value of a named feature.
func (v Vector) Get(name string) (float64, error) {
	i, err := Index(name)
	if err != nil {
		return 0, err
	}
	return v[i], nil
}
