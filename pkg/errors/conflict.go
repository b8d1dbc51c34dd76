package errors

import (
	"errors"
	"fmt"
)

// Conflict is returned when a uniqueness check rejects a candidate.
// Candidate holds the submitted data, and for property conflicts the
// rebuilt view with the sibling list, so callers can re-render input.
type Conflict[T any] struct {
	Code      ErrorCode
	Message   string
	Candidate T
}

// ConflictPayload lets transport code read a conflict without knowing T
type ConflictPayload interface {
	error
	ConflictCode() ErrorCode
	ConflictMessage() string
	ConflictCandidate() interface{}
}

// NewConflict creates a conflict for the given candidate
func NewConflict[T any](code ErrorCode, candidate T, format string, args ...interface{}) *Conflict[T] {
	return &Conflict[T]{
		Code:      code,
		Message:   fmt.Sprintf(format, args...),
		Candidate: candidate,
	}
}

func (c *Conflict[T]) Error() string {
	return fmt.Sprintf("[%s] %s", c.Code, c.Message)
}

// Unwrap exposes the conflict as a structured Error so IsCode and GetCode work
func (c *Conflict[T]) Unwrap() error {
	return &Error{Code: c.Code, Message: c.Message}
}

func (c *Conflict[T]) ConflictCode() ErrorCode        { return c.Code }
func (c *Conflict[T]) ConflictMessage() string        { return c.Message }
func (c *Conflict[T]) ConflictCandidate() interface{} { return c.Candidate }

// AsConflict extracts a typed conflict from err
func AsConflict[T any](err error) (*Conflict[T], bool) {
	var c *Conflict[T]
	if errors.As(err, &c) {
		return c, true
	}
	return nil, false
}

// AsConflictPayload extracts any conflict from err
func AsConflictPayload(err error) (ConflictPayload, bool) {
	var c ConflictPayload
	if errors.As(err, &c) {
		return c, true
	}
	return nil, false
}
