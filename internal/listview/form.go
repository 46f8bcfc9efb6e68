package listview

import (
	"context"
	"errors"
	"sync/atomic"
)

// ErrSubmitPending is returned by Form.Submit while an earlier submission
// from the same form has not settled.
var ErrSubmitPending = errors.New("a submission is already pending")

// Input is a form payload that can check itself before it is sent.
type Input interface {
	Validate() error
}

// Form guards a submit function so one form instance never has two
// submissions in flight. Distinct forms are independent.
type Form[T Input] struct {
	submit  func(context.Context, T) error
	pending atomic.Bool
}

// NewForm wraps submit.
func NewForm[T Input](submit func(context.Context, T) error) *Form[T] {
	return &Form[T]{submit: submit}
}

// Pending reports whether a submission is in flight.
func (f *Form[T]) Pending() bool { return f.pending.Load() }

// Submit validates in and, if it is valid and nothing is pending, calls the
// submit function. Invalid input never reaches the server.
func (f *Form[T]) Submit(ctx context.Context, in T) error {
	if err := in.Validate(); err != nil {
		return err
	}
	if !f.pending.CompareAndSwap(false, true) {
		return ErrSubmitPending
	}
	defer f.pending.Store(false)
	return f.submit(ctx, in)
}
