package httpx

import (
	"errors"
	"net/http"

	"github.com/milsim-hq/rosterd/internal/whitelist"
)

// ErrUnauthorized guards the operator API surface.
var ErrUnauthorized = errors.New("unauthorized")

// RespondError maps whitelist domain errors to RFC7807 responses.
// Validation failures are ordinary 4xx results the caller renders inline;
// only source failures surface as 5xx.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, whitelist.ErrInvalidRole):
		Problem(w, http.StatusBadRequest, "Invalid Role", err.Error())
	case errors.Is(err, whitelist.ErrInvalidIdentifier):
		Problem(w, http.StatusBadRequest, "Invalid Identifier", err.Error())
	case errors.Is(err, whitelist.ErrAlreadyWhitelisted):
		Problem(w, http.StatusConflict, "Already Whitelisted", err.Error())
	case errors.Is(err, whitelist.ErrNotWhitelisted):
		Problem(w, http.StatusNotFound, "Not Whitelisted", err.Error())
	case errors.Is(err, whitelist.ErrBlockNotFound):
		Problem(w, http.StatusConflict, "Role Block Missing", err.Error())
	case errors.Is(err, whitelist.ErrSourceUnavailable):
		Problem(w, http.StatusServiceUnavailable, "Whitelist Source Unavailable", "")
	case errors.Is(err, ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", "")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
