// Package apperr defines the error kinds surfaced by the portal's services.
// Handlers translate them to HTTP responses with Status and Message; lower
// layers (repositories) keep using their own sentinel values.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ValidationError reports missing or malformed caller input.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return e.Field + ": " + e.Msg
}

// NotFoundError reports a lookup that matched no record.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string { return e.Resource + " not found" }

// ConfigurationError reports missing server-side settings or secrets.
type ConfigurationError struct {
	Missing []string
	Msg     string
}

func (e *ConfigurationError) Error() string {
	if len(e.Missing) == 0 {
		return e.Msg
	}
	return fmt.Sprintf("%s (missing: %s)", e.Msg, strings.Join(e.Missing, ", "))
}

// DeliveryError wraps a transport failure while talking to an outside
// system such as an SMTP server.
type DeliveryError struct {
	Op  string
	Err error
}

func (e *DeliveryError) Error() string { return e.Op + " failed: " + e.Err.Error() }
func (e *DeliveryError) Unwrap() error { return e.Err }

// AuthorizationError reports a caller without the required role. Its
// message is intentionally generic.
type AuthorizationError struct{}

func (e *AuthorizationError) Error() string { return "forbidden" }

// Validation builds a ValidationError for field.
func Validation(field, msg string) error { return &ValidationError{Field: field, Msg: msg} }

// NotFound builds a NotFoundError for resource.
func NotFound(resource string) error { return &NotFoundError{Resource: resource} }

// Delivery wraps err as a DeliveryError for op.
func Delivery(op string, err error) error { return &DeliveryError{Op: op, Err: err} }

// Forbidden returns an AuthorizationError.
func Forbidden() error { return &AuthorizationError{} }

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var v *NotFoundError
	return errors.As(err, &v)
}

// Status maps an error to the HTTP status code used by the API.
func Status(err error) int {
	var (
		ve *ValidationError
		ne *NotFoundError
		ce *ConfigurationError
		de *DeliveryError
		ae *AuthorizationError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &ne):
		return http.StatusNotFound
	case errors.As(err, &ae):
		return http.StatusForbidden
	case errors.As(err, &ce):
		return http.StatusInternalServerError
	case errors.As(err, &de):
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

// Message returns the client-facing text for err. Unknown errors are
// collapsed to a generic message so internals do not leak.
func Message(err error) string {
	var (
		ve *ValidationError
		ne *NotFoundError
		ce *ConfigurationError
		de *DeliveryError
		ae *AuthorizationError
	)
	switch {
	case errors.As(err, &ve):
		return ve.Error()
	case errors.As(err, &ne):
		return ne.Error()
	case errors.As(err, &ce):
		return ce.Error()
	case errors.As(err, &de):
		return de.Error()
	case errors.As(err, &ae):
		return ae.Error()
	}
	return "internal error"
}
