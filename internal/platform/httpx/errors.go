package httpx

import (
	"errors"
	"net/http"

	"github.com/meridian-relief/meridian/internal/shared"
)

// ErrValidation marks request payloads rejected at the boundary.
var ErrValidation = errors.New("validation failed")

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var dup *shared.DuplicateTrackingNumberError
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.As(err, &dup):
		Problem(w, http.StatusConflict, "Duplicate Tracking Number", err.Error())
	case errors.Is(err, shared.ErrIllegalTransition):
		Problem(w, http.StatusConflict, "Illegal State Transition", err.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		Problem(w, http.StatusConflict, "Already Processed", err.Error())
	case errors.Is(err, shared.ErrInsufficientStock):
		Problem(w, http.StatusUnprocessableEntity, "Insufficient Stock", err.Error())
	case errors.Is(err, shared.ErrInvalidCommand), errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
