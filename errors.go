package dynashadow

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

var (
	// ErrInvalidInput is matched by every ValidationError.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidToken is matched by every EncodingError.
	ErrInvalidToken = errors.New("invalid encoding")
)

// ValidationError is returned when a record, configuration or query is
// rejected before any request is sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// Is reports whether target is ErrInvalidInput or another ValidationError.
func (e *ValidationError) Is(target error) bool {
	if target == ErrInvalidInput {
		return true
	}
	_, ok := target.(*ValidationError)
	return ok
}

// EncodingError is returned when a pagination token, a projection or a
// stored item cannot be decoded.
type EncodingError struct {
	Err error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding error: %v", e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrInvalidToken or another EncodingError.
func (e *EncodingError) Is(target error) bool {
	if target == ErrInvalidToken {
		return true
	}
	_, ok := target.(*EncodingError)
	return ok
}

func validationErrorf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func encodingErrorf(format string, args ...any) error {
	return &EncodingError{Err: fmt.Errorf(format, args...)}
}

// IsValidationError reports whether err is, or wraps, a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsEncodingError reports whether err is, or wraps, an EncodingError.
func IsEncodingError(err error) bool {
	var ee *EncodingError
	return errors.As(err, &ee)
}

// ErrorCode returns the AWS API error code carried by err, or an empty string
// when err did not come from the service.
func ErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}
