// Package errs provides types and support related to web v1 functionality.
package errs

import (
	"errors"
	"net/http"

	"github.com/ardanlabs/lattice/foundation/lattice/ledger"
	"github.com/ardanlabs/lattice/foundation/lattice/validator"
	"github.com/ardanlabs/lattice/foundation/node"
	"github.com/ardanlabs/lattice/foundation/validate"
)

// Response is the form used for API responses from failures in the API.
type Response struct {
	Error  string            `json:"error"`
	Status string            `json:"status,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Trusted is used to pass an error during the request through the
// application with web specific context.
type Trusted struct {
	Err    error
	Status int
}

// NewTrusted wraps a provided error with an HTTP status code. This
// function should be used when handlers encounter expected errors.
func NewTrusted(err error, status int) error {
	return &Trusted{err, status}
}

// Error implements the error interface. It uses the default message of the
// wrapped error. This is what will be shown in the services' logs.
func (re *Trusted) Error() string {
	return re.Err.Error()
}

// Unwrap returns the wrapped error.
func (re *Trusted) Unwrap() error {
	return re.Err
}

// IsTrusted checks if an error of type Trusted exists.
func IsTrusted(err error) bool {
	var re *Trusted
	return errors.As(err, &re)
}

// GetTrusted returns a copy of the Trusted pointer.
func GetTrusted(err error) *Trusted {
	var re *Trusted
	if !errors.As(err, &re) {
		return nil
	}
	return re
}

// =============================================================================

// FromLedger classifies the errors returned by the ledger core. Expected
// errors come back trusted with a status code; anything else is returned
// unchanged and reported as an internal error.
func FromLedger(err error) error {
	if err == nil || IsTrusted(err) {
		return err
	}

	if _, ok := validator.AsStatus(err); ok {
		return NewTrusted(err, http.StatusBadRequest)
	}

	var fe validate.FieldErrors
	switch {
	case errors.As(err, &fe):
		return NewTrusted(err, http.StatusBadRequest)
	case errors.Is(err, ledger.ErrBlockNotFound), errors.Is(err, ledger.ErrAccountNotFound):
		return NewTrusted(err, http.StatusNotFound)
	case errors.Is(err, ledger.ErrRollbackConfirmed):
		return NewTrusted(err, http.StatusConflict)
	case errors.Is(err, node.ErrShutdown):
		return NewTrusted(err, http.StatusServiceUnavailable)
	}

	return err
}

// ToResponse builds the response body and status code for the error.
func ToResponse(err error) (Response, int) {
	trusted := GetTrusted(err)
	if trusted == nil {
		return Response{Error: http.StatusText(http.StatusInternalServerError)}, http.StatusInternalServerError
	}

	resp := Response{Error: trusted.Error()}

	if s, ok := validator.AsStatus(trusted.Err); ok {
		resp.Status = s.String()
	}

	var fe validate.FieldErrors
	if errors.As(trusted.Err, &fe) {
		resp.Error = "data validation error"
		resp.Fields = fe.Fields()
	}

	return resp, trusted.Status
}
