package httpx

import (
	"errors"
	"net/http"

	"github.com/rentaldesk/rentaldesk/internal/shared"
)

// RespondError maps domain errors to HTTP responses. Not-found covers both
// absent records and records outside the actor's ownership scope, so no
// existence information leaks across owners.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		Problem(w, http.StatusConflict, "Duplicate Request", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
