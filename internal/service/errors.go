package service

import (
	"errors"
	"net/http"
)

// Kind classifies a workflow failure
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindForbidden
	KindUnauthorized
	KindValidation
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindUnauthorized:
		return "unauthorized"
	case KindValidation:
		return "validation"
	case KindStorage:
		return "storage"
	default:
		return "internal"
	}
}

// Messages returned to API clients
const (
	MsgIssueNotValid    = "The issue ID provided is not valid"
	MsgIssueForbidden   = "You do not have permission to access the content of this issue"
	MsgCommentNotFound  = "Comment not found"
	MsgResponseNotFound = "Response not found"
	MsgFilesNotSaved    = "Error saving files"
	MsgUnauthenticated  = "Authentication required"
	MsgInternal         = "Internal server error"
)

// Error is a typed workflow failure carrying a client-facing message
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

func Validation(msg string, err error) *Error {
	return &Error{Kind: KindValidation, Message: msg, Err: err}
}

func Storage(msg string, err error) *Error {
	return &Error{Kind: KindStorage, Message: msg, Err: err}
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: MsgInternal, Err: err}
}

// KindOf returns the kind of err; untyped errors are internal
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsNotFound reports whether err is a NotFound failure
func IsNotFound(err error) bool {
	return err != nil && KindOf(err) == KindNotFound
}

// StatusCode maps err to the HTTP status it is rendered with
func StatusCode(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the reason shown to clients; internal details never leak
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return MsgInternal
}
