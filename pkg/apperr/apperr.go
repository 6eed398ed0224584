package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers and for the HTTP boundary.
type Kind string

const (
	KindValidation         Kind = "validation_error"
	KindUnauthenticated    Kind = "unauthenticated"
	KindInvalidCredentials Kind = "invalid_credentials"
	KindPermissionDenied   Kind = "permission_denied"
	KindAlreadyExists      Kind = "already_exists"
	KindNotFound           Kind = "not_found"
	KindPayloadTooLarge    Kind = "payload_too_large"
	KindServiceUnavailable Kind = "service_unavailable"
	KindAIService          Kind = "ai_service_error"
	KindDatabase           Kind = "database_error"
	KindInternal           Kind = "internal_error"
)

type Metadata struct {
	HTTPStatus    int
	PublicMessage string
	// ExposeMessage lets the error's own message reach the client.
	ExposeMessage  bool
	DetailsAllowed bool
}

var metadataByKind = map[Kind]Metadata{
	KindValidation: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		PublicMessage:  "validation failed",
		ExposeMessage:  true,
		DetailsAllowed: true,
	},
	KindUnauthenticated: {
		HTTPStatus:    http.StatusUnauthorized,
		PublicMessage: "Could not validate credentials",
	},
	KindInvalidCredentials: {
		HTTPStatus:    http.StatusUnauthorized,
		PublicMessage: "Incorrect email or password",
		ExposeMessage: true,
	},
	KindPermissionDenied: {
		HTTPStatus:    http.StatusForbidden,
		PublicMessage: "Not enough permissions",
		ExposeMessage: true,
	},
	KindAlreadyExists: {
		HTTPStatus:    http.StatusBadRequest,
		PublicMessage: "resource already exists",
		ExposeMessage: true,
	},
	KindNotFound: {
		HTTPStatus:    http.StatusNotFound,
		PublicMessage: "resource not found",
		ExposeMessage: true,
	},
	KindPayloadTooLarge: {
		HTTPStatus:    http.StatusRequestEntityTooLarge,
		PublicMessage: "request body too large",
		ExposeMessage: true,
	},
	KindServiceUnavailable: {
		HTTPStatus:    http.StatusServiceUnavailable,
		PublicMessage: "service unavailable",
		ExposeMessage: true,
	},
	KindAIService: {
		HTTPStatus:    http.StatusServiceUnavailable,
		PublicMessage: "AI generation failed",
		ExposeMessage: true,
	},
	KindDatabase: {
		HTTPStatus:    http.StatusInternalServerError,
		PublicMessage: "Database operation failed",
	},
	KindInternal: {
		HTTPStatus:    http.StatusInternalServerError,
		PublicMessage: "Internal server error",
	},
}

// MetadataFor falls back to internal metadata for unknown kinds.
func MetadataFor(kind Kind) Metadata {
	if meta, ok := metadataByKind[kind]; ok {
		return meta
	}
	return metadataByKind[KindInternal]
}

// Status returns the HTTP status code mapped to kind.
func (k Kind) Status() int { return MetadataFor(k).HTTPStatus }

type Error struct {
	Kind    Kind
	Message string
	Details any
	Err     error
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind, so sentinels like ErrNotFound work
// with errors.Is regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

// As returns the first *Error in the chain, or nil.
func As(err error) *Error {
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	return nil
}

// KindOf returns the kind of the first *Error in the chain, KindInternal otherwise.
func KindOf(err error) Kind {
	if typed := As(err); typed != nil {
		return typed.Kind
	}
	return KindInternal
}

// Kind sentinels for errors.Is checks.
var (
	ErrValidation         = &Error{Kind: KindValidation}
	ErrUnauthenticated    = &Error{Kind: KindUnauthenticated}
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials}
	ErrPermissionDenied   = &Error{Kind: KindPermissionDenied}
	ErrAlreadyExists      = &Error{Kind: KindAlreadyExists}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrServiceUnavailable = &Error{Kind: KindServiceUnavailable}
	ErrAIService          = &Error{Kind: KindAIService}
	ErrDatabase           = &Error{Kind: KindDatabase}
)
