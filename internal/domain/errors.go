package domain

import (
	"errors"
	"net/http"
	"sort"
	"strings"
)

// ErrorKind tags an Error with the way callers are expected to react to it.
type ErrorKind int

const (
	KindServer ErrorKind = iota
	KindValidation
	KindPlanLimit
	KindUnauthorized
	KindNotFound
)

// Wire codes, shared by the server error envelope and the client decoder.
const (
	CodeBadRequest   = "BAD_REQUEST"
	CodeForbidden    = "FORBIDDEN"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeNotFound     = "NOT_FOUND"
	CodeInternal     = "INTERNAL_SERVER_ERROR"
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindPlanLimit:
		return "plan_limit"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	default:
		return "server"
	}
}

// Code returns the wire code for the kind.
func (k ErrorKind) Code() string {
	switch k {
	case KindValidation:
		return CodeBadRequest
	case KindPlanLimit:
		return CodeForbidden
	case KindUnauthorized:
		return CodeUnauthorized
	case KindNotFound:
		return CodeNotFound
	default:
		return CodeInternal
	}
}

// HTTPStatus returns the response status used for the kind.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindPlanLimit:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// KindFromCode maps a wire code back to its kind. Unknown codes are server errors.
func KindFromCode(code string) ErrorKind {
	switch code {
	case CodeBadRequest:
		return KindValidation
	case CodeForbidden:
		return KindPlanLimit
	case CodeUnauthorized:
		return KindUnauthorized
	case CodeNotFound:
		return KindNotFound
	default:
		return KindServer
	}
}

// Error is the tagged error returned by services, procedures and the client.
type Error struct {
	Kind    ErrorKind
	Message string
	// Fields holds per-field validation messages keyed by input field name.
	Fields map[string]string
	Err    error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Validation builds a validation error. With no explicit message the
// field messages are joined in field order.
func Validation(fields map[string]string) *Error {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, fields[k])
	}
	return &Error{Kind: KindValidation, Message: strings.Join(msgs, "; "), Fields: fields}
}

// Invalid builds a validation error with a single message.
func Invalid(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// PlanLimit signals that the free tier ceiling for a resource was reached.
func PlanLimit(message string) *Error {
	return &Error{Kind: KindPlanLimit, Message: message}
}

// Unauthorized signals missing or invalid credentials.
func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

// NotFound signals a missing resource, or one owned by another user.
func NotFound(resource string) *Error {
	return &Error{Kind: KindNotFound, Message: resource + " not found"}
}

// Internal wraps an unexpected failure. The message stays generic.
func Internal(err error) *Error {
	return &Error{Kind: KindServer, Message: "something went wrong", Err: err}
}

// KindOf reports the kind of err. Untagged errors are server errors.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindServer
}

// IsKind reports whether err is a tagged error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var de *Error
	return errors.As(err, &de) && de.Kind == kind
}
