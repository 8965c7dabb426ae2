package gate

import (
	"errors"
	"net/http"
)

// Sentinel errors returned by Root.Resolve and Root.Read.
var (
	ErrForbidden = errors.New("path escapes static root")
	ErrNotFound  = errors.New("file not readable")
)

// Outcome is the result class of a handled request.
type Outcome int

const (
	OK Outcome = iota
	Unauthorized
	Forbidden
	NotFound
)

// Status returns the HTTP status code for the outcome.
func (o Outcome) Status() int {
	switch o {
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	default:
		return http.StatusOK
	}
}

func (o Outcome) String() string {
	switch o {
	case Unauthorized:
		return "unauthorized"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not_found"
	default:
		return "ok"
	}
}

// OutcomeOf classifies an error from Resolve or Read.
// Anything that is not ErrForbidden folds into NotFound.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OK
	case errors.Is(err, ErrForbidden):
		return Forbidden
	default:
		return NotFound
	}
}

// OutcomeForStatus maps a response status back to its outcome.
func OutcomeForStatus(status int) Outcome {
	switch status {
	case http.StatusUnauthorized:
		return Unauthorized
	case http.StatusForbidden:
		return Forbidden
	case http.StatusNotFound:
		return NotFound
	default:
		return OK
	}
}
