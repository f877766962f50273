package errors

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedRecord = errors.New("malformed record")
	ErrTooManyWords    = errors.New("too many words")
	ErrEmptyWord       = errors.New("empty word token")
	ErrInvalidYear     = errors.New("invalid year")
	ErrInvalidCount    = errors.New("invalid occurrence count")
)

// RecordError ties a per-record failure to the input line it came from.
type RecordError struct {
	Err     error
	Line    int
	Message string
}

func (e *RecordError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s: %s", e.Line, e.Err.Error(), e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

func New(sentinel error, message string) *RecordError {
	return &RecordError{
		Err:     sentinel,
		Message: message,
	}
}

func Newf(sentinel error, format string, args ...any) *RecordError {
	return &RecordError{
		Err:     sentinel,
		Message: fmt.Sprintf(format, args...),
	}
}

// AtLine stamps err with a line number when it is a RecordError and returns it.
func AtLine(err error, line int) error {
	var recErr *RecordError
	if errors.As(err, &recErr) {
		recErr.Line = line
	}
	return err
}

// Reason returns a short, stable label for err, suitable for metric labels.
func Reason(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrTooManyWords):
		return "too_many_words"
	case errors.Is(err, ErrEmptyWord):
		return "empty_word"
	case errors.Is(err, ErrInvalidYear):
		return "invalid_year"
	case errors.Is(err, ErrInvalidCount):
		return "invalid_count"
	case errors.Is(err, ErrMalformedRecord):
		return "malformed"
	default:
		return "error"
	}
}
