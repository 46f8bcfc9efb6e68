package listview

import (
	"context"
	"errors"

	"github.com/meetai/meetai/internal/domain"
	"github.com/meetai/meetai/internal/logging"
	"github.com/meetai/meetai/internal/query"
)

// UpgradePath is where a plan limit sends the user.
const UpgradePath = "/upgrade"

// Navigator moves the user to another view.
type Navigator interface {
	Navigate(path string)
}

// Notifier shows transient messages.
type Notifier interface {
	Success(message string)
	Error(message string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

// Navigate calls f(path).
func (f NavigatorFunc) Navigate(path string) { f(path) }

type nopNavigator struct{}

func (nopNavigator) Navigate(string) {}

type nopNotifier struct{}

func (nopNotifier) Success(string) {}
func (nopNotifier) Error(string)   {}

// Dispatcher runs create and update procedures. It never retries and never
// updates the cache optimistically: entries are invalidated only after the
// server confirms the mutation.
type Dispatcher struct {
	api    API
	cache  *query.Client
	nav    Navigator
	notify Notifier
	log    *logging.Logger
}

// NewDispatcher creates a dispatcher. nav and notify may be nil.
func NewDispatcher(api API, cache *query.Client, nav Navigator, notify Notifier, log *logging.Logger) *Dispatcher {
	if nav == nil {
		nav = nopNavigator{}
	}
	if notify == nil {
		notify = nopNotifier{}
	}
	return &Dispatcher{api: api, cache: cache, nav: nav, notify: notify, log: log.Sub("dispatch")}
}

// CreateAgent creates an agent.
func (d *Dispatcher) CreateAgent(ctx context.Context, in domain.AgentInput) (domain.Agent, error) {
	a, err := d.api.CreateAgent(ctx, in)
	if err := d.settle(domain.ChangeEvent{Entity: domain.EntityAgents, Op: domain.OpCreated, ID: a.ID}, "Agent created", err); err != nil {
		return domain.Agent{}, err
	}
	return a, nil
}

// UpdateAgent updates the agent with id.
func (d *Dispatcher) UpdateAgent(ctx context.Context, id string, in domain.AgentInput) (domain.Agent, error) {
	a, err := d.api.UpdateAgent(ctx, id, in)
	if err := d.settle(domain.ChangeEvent{Entity: domain.EntityAgents, Op: domain.OpUpdated, ID: id}, "Agent updated", err); err != nil {
		return domain.Agent{}, err
	}
	return a, nil
}

// CreateMeeting creates a meeting.
func (d *Dispatcher) CreateMeeting(ctx context.Context, in domain.MeetingInput) (domain.Meeting, error) {
	m, err := d.api.CreateMeeting(ctx, in)
	if err := d.settle(domain.ChangeEvent{Entity: domain.EntityMeetings, Op: domain.OpCreated, ID: m.ID}, "Meeting created", err); err != nil {
		return domain.Meeting{}, err
	}
	return m, nil
}

// UpdateMeeting updates the meeting with id.
func (d *Dispatcher) UpdateMeeting(ctx context.Context, id string, in domain.MeetingInput) (domain.Meeting, error) {
	m, err := d.api.UpdateMeeting(ctx, id, in)
	if err := d.settle(domain.ChangeEvent{Entity: domain.EntityMeetings, Op: domain.OpUpdated, ID: id}, "Meeting updated", err); err != nil {
		return domain.Meeting{}, err
	}
	return m, nil
}

func (d *Dispatcher) settle(ev domain.ChangeEvent, success string, err error) error {
	if err != nil {
		d.log.Debug().Err(err).
			Str("entity", string(ev.Entity)).
			Str("op", string(ev.Op)).
			Msg("mutation failed")
		d.notify.Error(Message(err))
		if domain.IsKind(err, domain.KindPlanLimit) {
			d.nav.Navigate(UpgradePath)
		}
		return err
	}
	keys := Invalidate(d.cache, ev)
	d.log.Debug().
		Str("entity", string(ev.Entity)).
		Str("op", string(ev.Op)).
		Str("id", ev.ID).
		Int("invalidated", len(keys)).
		Msg("mutation settled")
	d.notify.Success(success)
	return nil
}

// Message is the text shown to the user for err.
func Message(err error) string {
	var de *domain.Error
	switch {
	case errors.As(err, &de):
		return de.Error()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Request cancelled"
	default:
		return domain.Internal(err).Error()
	}
}
