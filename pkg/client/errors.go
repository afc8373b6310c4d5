package client

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/vaultkit/vault-client/pkg/api"
)

// Common errors
var (
	// ErrNotConfigured is matched by every *ConfigurationError.
	ErrNotConfigured = errors.New("not configured")
)

// ErrorBody is the structured error list Vault returns on failure.
type ErrorBody struct {
	Errors []string `json:"errors"`
}

// ErrorResponse is the status and optional error list of a failed request.
type ErrorResponse struct {
	StatusCode int
	Body       *ErrorBody
}

// Errors returns the server supplied messages, if any.
func (r ErrorResponse) Errors() []string {
	if r.Body == nil {
		return nil
	}
	return r.Body.Errors
}

// RequestError is returned for every response outside the accepted status
// codes. The more specific error types below all wrap a *RequestError, so
// errors.As(err, &reqErr) works for any of them.
type RequestError struct {
	Message  string
	URL      string
	Response ErrorResponse
}

func (e *RequestError) Error() string {
	if errs := e.Response.Errors(); len(errs) > 0 {
		return fmt.Sprintf("%s: %s", e.Message, strings.Join(errs, "; "))
	}
	return e.Message
}

// StatusCode returns the HTTP status of the failed response.
func (e *RequestError) StatusCode() int {
	return e.Response.StatusCode
}

// DecryptionKeyNotFoundError is returned when the named key used for
// decryption does not exist.
type DecryptionKeyNotFoundError struct {
	*RequestError
}

func (e *DecryptionKeyNotFoundError) Error() string {
	return "decryption key not found: " + e.RequestError.Error()
}

func (e *DecryptionKeyNotFoundError) Unwrap() error { return e.RequestError }

// PermissionDeniedError is a 403 that survived the token renewal retry.
type PermissionDeniedError struct {
	*RequestError
}

func (e *PermissionDeniedError) Error() string {
	return "permission denied: " + e.RequestError.Error()
}

func (e *PermissionDeniedError) Unwrap() error { return e.RequestError }

// SealedError is returned while the server is sealed.
type SealedError struct {
	*RequestError
}

func (e *SealedError) Error() string {
	return "vault is sealed: " + e.RequestError.Error()
}

func (e *SealedError) Unwrap() error { return e.RequestError }

// ValidationError represents invalid caller input, rejected before any
// request is sent. It carries a 400 status like a server side rejection.
type ValidationError struct {
	*RequestError
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) Unwrap() error { return e.RequestError }

func newValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{RequestError: &RequestError{
		Message:  fmt.Sprintf(format, args...),
		Response: ErrorResponse{StatusCode: http.StatusBadRequest},
	}}
}

// ConfigurationError is returned when an operation needs configuration that
// was never supplied.
type ConfigurationError struct {
	Operation string
	Message   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Operation, e.Message)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrNotConfigured
}

// classifyRule upgrades a generic request error when the status matches and
// any returned message contains the substring (case-insensitive).
type classifyRule struct {
	statuses []int
	contains string
	wrap     func(*RequestError) error
}

// Evaluated in order, first match wins.
var classifyRules = []classifyRule{
	{
		statuses: []int{http.StatusBadRequest, http.StatusNotFound},
		contains: "encryption key not found",
		wrap:     func(e *RequestError) error { return &DecryptionKeyNotFoundError{RequestError: e} },
	},
	{
		statuses: []int{http.StatusForbidden},
		contains: "permission denied",
		wrap:     func(e *RequestError) error { return &PermissionDeniedError{RequestError: e} },
	},
	{
		statuses: []int{http.StatusServiceUnavailable},
		contains: "vault is sealed",
		wrap:     func(e *RequestError) error { return &SealedError{RequestError: e} },
	},
}

func (r classifyRule) matches(e *RequestError) bool {
	statusOK := false
	for _, s := range r.statuses {
		if s == e.Response.StatusCode {
			statusOK = true
			break
		}
	}
	if !statusOK {
		return false
	}
	for _, msg := range e.Response.Errors() {
		if strings.Contains(strings.ToLower(msg), r.contains) {
			return true
		}
	}
	return false
}

// classify returns the most specific error kind for e.
func classify(e *RequestError) error {
	for _, rule := range classifyRules {
		if rule.matches(e) {
			return rule.wrap(e)
		}
	}
	return e
}

// IsRequestError returns true for any non-accepted response, including
// validation failures and all specialised kinds.
func IsRequestError(err error) bool {
	var re *RequestError
	return errors.As(err, &re)
}

// StatusCode returns the HTTP status carried by err, or 0 if there is none.
func StatusCode(err error) int {
	var re *RequestError
	if errors.As(err, &re) {
		return re.Response.StatusCode
	}
	return 0
}

// IsDecryptionKeyNotFound returns true if the decryption key does not exist.
func IsDecryptionKeyNotFound(err error) bool {
	var de *DecryptionKeyNotFoundError
	return errors.As(err, &de)
}

// IsPermissionDenied returns true if the server denied the request.
func IsPermissionDenied(err error) bool {
	var pe *PermissionDeniedError
	return errors.As(err, &pe)
}

// IsSealed returns true if the server reported itself sealed.
func IsSealed(err error) bool {
	var se *SealedError
	return errors.As(err, &se)
}

// IsValidationError returns true if the error indicates invalid request data.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsConfigurationError returns true if required configuration is missing.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrNotConfigured)
}

// IsContractError returns true if a response did not match its declared shape.
func IsContractError(err error) bool {
	var ce *api.ContractError
	return errors.As(err, &ce)
}
