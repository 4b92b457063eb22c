package apperr

import (
	"errors"
	"net/http"
)

// Code is the machine-readable error code returned to clients.
type Code string

const (
	CodePolicyDenied        Code = "policy_denied"
	CodeNotFound            Code = "not_found"
	CodeNoActiveQuestion    Code = "no_active_question"
	CodeGenerationExhausted Code = "generation_exhausted"
	CodeNoCachedQuestions   Code = "no_cached_questions"
	CodeInvalidRequest      Code = "invalid_request"
	CodeConflict            Code = "conflict"
	CodeUnauthorized        Code = "unauthorized"
	CodeInternal            Code = "internal_error"
)

type Error struct {
	Code    Code
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

// Is matches another *Error by code so callers can compare against the
// package-level sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Message == ""
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Sentinels for errors.Is checks. They carry no message.
var (
	ErrPolicyDenied        = &Error{Code: CodePolicyDenied}
	ErrNotFound            = &Error{Code: CodeNotFound}
	ErrNoActiveQuestion    = &Error{Code: CodeNoActiveQuestion}
	ErrGenerationExhausted = &Error{Code: CodeGenerationExhausted}
	ErrNoCachedQuestions   = &Error{Code: CodeNoCachedQuestions}
	ErrInvalidRequest      = &Error{Code: CodeInvalidRequest}
	ErrConflict            = &Error{Code: CodeConflict}
	ErrUnauthorized        = &Error{Code: CodeUnauthorized}
	ErrInternal            = &Error{Code: CodeInternal}
)

// CodeOf reports the code carried by err, or CodeInternal for foreign errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// MessageOf returns the client-facing message. Foreign errors never leak
// their text.
func MessageOf(err error) string {
	var e *Error
	if !errors.As(err, &e) || e.Code == CodeInternal {
		return defaultMessages[CodeInternal]
	}
	if e.Message != "" {
		return e.Message
	}
	return defaultMessages[e.Code]
}

var defaultMessages = map[Code]string{
	CodePolicyDenied:        "Not allowed right now, try again later",
	CodeNotFound:            "Not found",
	CodeNoActiveQuestion:    "Answer window expired, request a new question",
	CodeGenerationExhausted: "Could not generate a question",
	CodeNoCachedQuestions:   "Questions expired, start the quiz again",
	CodeInvalidRequest:      "Invalid request",
	CodeConflict:            "Already exists",
	CodeUnauthorized:        "Unauthorized",
	CodeInternal:            "Internal server error",
}

func HTTPStatus(code Code) int {
	switch code {
	case CodePolicyDenied:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeNoActiveQuestion, CodeConflict:
		return http.StatusConflict
	case CodeGenerationExhausted:
		return http.StatusUnprocessableEntity
	case CodeNoCachedQuestions:
		return http.StatusGone
	case CodeInvalidRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
