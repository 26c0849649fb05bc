package scoring

import "errors"

// Sentinel kinds for scoring errors.
var (
	// ErrNotReady is returned by every prediction on a degraded registry.
	ErrNotReady = errors.New("scoring models not loaded")
	// ErrArtifact marks a missing, unreadable or structurally invalid artifact.
	ErrArtifact = errors.New("invalid model artifact")
)
