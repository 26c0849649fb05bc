package loadgen

import "errors"

var (
	// ErrUnhealthy is returned when the target does not answer /health or has no models.
	ErrUnhealthy = errors.New("loadgen: service unhealthy")

	// ErrContract is returned when at least one response broke the prediction contract.
	ErrContract = errors.New("loadgen: contract violated")
)
