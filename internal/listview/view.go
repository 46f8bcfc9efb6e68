package listview

import (
	"context"
	"sync"
)

// State is where a view is in its load cycle.
type State int

const (
	StateLoading State = iota
	StateSuccess
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// ErrorState is the generic message a view shows when loading fails. The
// underlying cause is not shown.
type ErrorState struct {
	Title       string
	Description string
}

// Render draws the error state.
func (e ErrorState) Render() string {
	return titleStyle.Render(e.Title) + "\n" + mutedStyle.Render(e.Description)
}

var (
	AgentsError   = ErrorState{Title: "Error Loading Agents", Description: "There was an error fetching the agents. Please try again later."}
	MeetingsError = ErrorState{Title: "Error Loading Meetings", Description: "There was an error fetching the meetings. Please try again later."}
	GenericError  = ErrorState{Title: "Error", Description: "Please try again later"}
)

// View loads data of type T and tracks the result. A view shows nothing
// until a load settles: data is only available in StateSuccess and a
// failed reload discards the previous data.
type View[T any] struct {
	load    func(context.Context) (T, error)
	failure ErrorState

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	state State
	data  T
	err   error
}

// NewView creates a view in StateLoading. Its loads run under a context
// derived from parent and cancelled by Close.
func NewView[T any](parent context.Context, load func(context.Context) (T, error), failure ErrorState) *View[T] {
	ctx, cancel := context.WithCancel(parent)
	return &View[T]{load: load, failure: failure, ctx: ctx, cancel: cancel}
}

// Load runs the loader and returns the state it settled in.
func (v *View[T]) Load() State {
	v.mu.Lock()
	var zero T
	v.state, v.data, v.err = StateLoading, zero, nil
	v.mu.Unlock()

	data, err := v.load(v.ctx)

	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		v.state, v.err = StateError, err
		return v.state
	}
	v.state, v.data = StateSuccess, data
	return v.state
}

// Snapshot returns the current state, the data if loaded and the error if
// failed.
func (v *View[T]) Snapshot() (State, T, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state, v.data, v.err
}

// Render draws the view with render once loaded, the error state after a
// failure, and a loading line before either.
func (v *View[T]) Render(render func(T) string) string {
	state, data, _ := v.Snapshot()
	switch state {
	case StateSuccess:
		return render(data)
	case StateError:
		return v.failure.Render()
	default:
		return mutedStyle.Render("Loading…")
	}
}

// Close cancels any load in flight. Loads after Close fail.
func (v *View[T]) Close() { v.cancel() }

// Done is closed when the view is closed.
func (v *View[T]) Done() <-chan struct{} { return v.ctx.Done() }
