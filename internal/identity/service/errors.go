package service

import (
	"errors"
	"fmt"
)

// Kind classifies a service failure. The HTTP layer maps kinds to status
// codes; services never touch HTTP status codes directly.
type Kind string

const (
	KindValidation   Kind = "validation_error"
	KindConflict     Kind = "conflict"
	KindNotFound     Kind = "not_found"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindServer       Kind = "server_error"
)

// Error is the typed failure every service method returns for expected
// conditions. Unexpected failures (driver errors, IO) pass through wrapped
// and classify as KindServer.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func ValidationError(msg string) error   { return &Error{Kind: KindValidation, Message: msg} }
func ConflictError(msg string) error     { return &Error{Kind: KindConflict, Message: msg} }
func NotFoundError(msg string) error     { return &Error{Kind: KindNotFound, Message: msg} }
func UnauthorizedError(msg string) error { return &Error{Kind: KindUnauthorized, Message: msg} }
func ForbiddenError(msg string) error    { return &Error{Kind: KindForbidden, Message: msg} }
func ServerError(msg string) error       { return &Error{Kind: KindServer, Message: msg} }

// KindOf reports the kind of err, defaulting to KindServer for anything
// that is not a *Error.
func KindOf(err error) Kind {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return KindServer
}
