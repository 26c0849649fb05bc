// Package learner holds the inbound learner snapshot and its schema validation.
package learner

// Snapshot is one learner's raw interaction telemetry for a topic.
// It is immutable once validated.
type Snapshot struct {
	UserID               string  `json:"user_id"`
	TopicID              string  `json:"topic_id"`
	AttemptCount         int     `json:"attempt_count"`
	CorrectAttempts      int     `json:"correct_attempts"`
	AvgResponseTime      float64 `json:"avg_response_time"`       // seconds
	SelfConfidenceRating float64 `json:"self_confidence_rating"`  // [0,1]
	DifficultyFeedback   int     `json:"difficulty_feedback"`     // 1..5
	SessionDuration      float64 `json:"session_duration"`        // minutes
	PreviousMasteryScore float64 `json:"previous_mastery_score"`  // [0,1]
	TimeSinceLastAttempt float64 `json:"time_since_last_attempt"` // hours
}

// Field names as they appear on the wire.
const (
	FieldUserID               = "user_id"
	FieldTopicID              = "topic_id"
	FieldAttemptCount         = "attempt_count"
	FieldCorrectAttempts      = "correct_attempts"
	FieldAvgResponseTime      = "avg_response_time"
	FieldSelfConfidenceRating = "self_confidence_rating"
	FieldDifficultyFeedback   = "difficulty_feedback"
	FieldSessionDuration      = "session_duration"
	FieldPreviousMasteryScore = "previous_mastery_score"
	FieldTimeSinceLastAttempt = "time_since_last_attempt"
)
