package inference

import "errors"

var (
	// ErrServiceUnavailable is returned when the models are not loaded.
	ErrServiceUnavailable = errors.New("inference: models not loaded")
	// ErrInference is returned when any model call fails.
	ErrInference = errors.New("inference: model evaluation failed")
)
