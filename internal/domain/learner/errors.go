package learner

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel kinds for snapshot errors.
var (
	// ErrMalformedJSON marks a body that is not parseable JSON.
	ErrMalformedJSON = errors.New("malformed json")
	// ErrInvalidSnapshot marks a snapshot that breaks one or more field rules.
	ErrInvalidSnapshot = errors.New("invalid learner snapshot")
)

// Violation describes one failed rule.
type Violation struct {
	Field      string `json:"field"`
	Message    string `json:"message"`
	Constraint string `json:"constraint"`
}

// ValidationError lists every violation found in a snapshot.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, fmt.Sprintf("%s: %s", v.Field, v.Message))
	}
	return fmt.Sprintf("%s: %s", ErrInvalidSnapshot, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidSnapshot }
