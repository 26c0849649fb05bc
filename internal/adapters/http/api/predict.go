// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/okian/alie/internal/domain/inference"
	"github.com/okian/alie/internal/domain/learner"
	"github.com/okian/alie/pkg/logger"
)

// maxBodyBytes bounds the snapshot request body.
const maxBodyBytes = 1 << 20

// PredictHandler handles prediction requests.
type PredictHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewPredictHandler creates a new predict handler.
func NewPredictHandler(deps Dependencies, log logger.Logger) *PredictHandler {
	if log == nil {
		log = logger.Get()
	}
	return &PredictHandler{deps: deps, logger: log}
}

// HandlePredict handles POST /predict requests.
func (h *PredictHandler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	const op = "api.predict"
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, r, http.StatusMethodNotAllowed, codeMethodNotAllowed, NewKind(op, ErrMethodNotAllowed))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, codeBadRequest, WrapKind(op, ErrBadRequest, err))
			return
		}
		writeError(w, r, http.StatusBadRequest, codeBadRequest, WrapKind(op, ErrBadRequest, err))
		return
	}

	res, err := h.deps.PredictJSON(r.Context(), body)
	if err == nil {
		writeJSON(w, http.StatusOK, res)
		return
	}

	var verr *learner.ValidationError
	switch {
	case errors.Is(err, learner.ErrMalformedJSON):
		writeError(w, r, http.StatusBadRequest, codeBadRequest, WrapKind(op, ErrBadRequest, err))
	case errors.As(err, &verr):
		writeViolations(w, r, verr.Violations)
	case errors.Is(err, inference.ErrServiceUnavailable):
		writeError(w, r, http.StatusServiceUnavailable, codeUnavailable, NewKind(op, ErrUnavailable))
	default:
		h.logger.Error(r.Context(), "prediction failed", logger.Error(Wrap(op, err)))
		writeError(w, r, http.StatusInternalServerError, codeInternal, NewKind(op, ErrInternal))
	}
}
