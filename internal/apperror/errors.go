// Package apperror defines coded application errors shared by the engine,
// the planner and the HTTP layer.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeInvalidArgument     Code = "INVALID_ARGUMENT"
	CodeNoValidPackages     Code = "NO_VALID_PACKAGES"
	CodeInvalidCoordinate   Code = "INVALID_COORDINATE"
	CodeMalformedTimeWindow Code = "MALFORMED_TIME_WINDOW"

	CodeSolverInfeasible Code = "SOLVER_INFEASIBLE"
	CodeSolverTimeout    Code = "SOLVER_TIMEOUT"

	CodeGatewayUnavailable Code = "GATEWAY_UNAVAILABLE"
	CodeGatewayCapped      Code = "GATEWAY_CAPPED"
	CodeGatewayFailed      Code = "GATEWAY_FAILED"

	CodeNotFound Code = "NOT_FOUND"
	CodeInternal Code = "INTERNAL"
)

// Error carries a code, a human message and optional structured details.
type Error struct {
	Code    Code
	Message string
	Field   string
	Details map[string]any
	Cause   error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Field != "" {
		msg += " (field: " + e.Field + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches cause. A nil cause still yields a usable error.
func Wrap(cause error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func (e *Error) WithField(field string) *Error {
	e.Field = field
	return e
}

func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	e.Details[key] = value
	return e
}

// Reason is the message without code decoration, used for fallback reasons.
func (e *Error) Reason() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// CodeOf returns the code of the first *Error in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternal
}

func Is(err error, code Code) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Code == code
}

// ReasonOf renders err for recording as a fallback reason.
func ReasonOf(err error) string {
	if err == nil {
		return ""
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Reason()
	}
	return err.Error()
}

func HTTPStatus(code Code) int {
	switch code {
	case CodeInvalidArgument, CodeInvalidCoordinate, CodeMalformedTimeWindow:
		return http.StatusBadRequest
	case CodeNoValidPackages:
		return http.StatusUnprocessableEntity
	case CodeNotFound:
		return http.StatusNotFound
	case CodeGatewayUnavailable, CodeGatewayCapped:
		return http.StatusServiceUnavailable
	case CodeGatewayFailed:
		return http.StatusBadGateway
	case CodeSolverTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
