package server

import (
	"errors"

	"github.com/crmarques/cement/faults"
)

// PagePayloadShapeError marks search responses whose body does not have the
// expected page shape.
type PagePayloadShapeError struct {
	err error
}

func (e *PagePayloadShapeError) Error() string {
	if e == nil || e.err == nil {
		return "<nil>"
	}
	return e.err.Error()
}

func (e *PagePayloadShapeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

func NewPagePayloadShapeError(message string, cause error) error {
	return &PagePayloadShapeError{
		err: faults.NewTypedError(faults.ConnectionError, message, cause),
	}
}

func IsPagePayloadShapeError(err error) bool {
	var target *PagePayloadShapeError
	return errors.As(err, &target)
}
