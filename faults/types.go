package faults

import (
	"errors"
	"fmt"
)

type ErrorCategory string

const (
	ValidationError     ErrorCategory = "ValidationError"
	NotFoundError       ErrorCategory = "NotFoundError"
	AmbiguousMatchError ErrorCategory = "AmbiguousMatchError"
	ConflictError       ErrorCategory = "ConflictError"
	AuthError           ErrorCategory = "AuthError"
	ConnectionError     ErrorCategory = "ConnectionError"
	CreateError         ErrorCategory = "CreateError"
	UpdateError         ErrorCategory = "UpdateError"
	DeleteError         ErrorCategory = "DeleteError"
	TemplateParseError  ErrorCategory = "TemplateParseError"
	InternalError       ErrorCategory = "InternalError"
)

// TypedError is the single structured failure returned by every package.
// Kind names the entity kind involved, when there is one.
type TypedError struct {
	Category ErrorCategory
	Kind     string
	Message  string
	Cause    error
}

func (e *TypedError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Message != "" && e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return string(e.Category)
}

func (e *TypedError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func NewTypedError(category ErrorCategory, message string, cause error) *TypedError {
	return &TypedError{
		Category: category,
		Message:  message,
		Cause:    cause,
	}
}

// NewMutationError builds a CreateError, UpdateError or DeleteError for kind.
func NewMutationError(category ErrorCategory, kind string, cause error) *TypedError {
	verb := "mutating"
	switch category {
	case CreateError:
		verb = "creating"
	case UpdateError:
		verb = "updating"
	case DeleteError:
		verb = "deleting"
	}
	return &TypedError{
		Category: category,
		Kind:     kind,
		Message:  fmt.Sprintf("error while %s %s", verb, kind),
		Cause:    cause,
	}
}

func IsCategory(err error, category ErrorCategory) bool {
	if err == nil {
		return false
	}

	var typedErr *TypedError
	if !errors.As(err, &typedErr) {
		return false
	}
	return typedErr.Category == category
}

// CategoryOf returns the category of the first typed error in the chain.
func CategoryOf(err error) (ErrorCategory, bool) {
	var typedErr *TypedError
	if err == nil || !errors.As(err, &typedErr) {
		return "", false
	}
	return typedErr.Category, true
}
