// Package meetings implements the meeting procedures.
package meetings

import (
	"context"
	"errors"
	"fmt"

	"github.com/meetai/meetai/internal/domain"
	"github.com/meetai/meetai/internal/filter"
	"github.com/meetai/meetai/internal/hooks"
	"github.com/meetai/meetai/internal/logging"
	"github.com/meetai/meetai/internal/store"
)

// Quota reports how many meetings a user may own. store.Unlimited lifts the
// cap.
type Quota interface {
	MeetingLimit(ctx context.Context, userID string) (int, error)
}

// Service validates, authorizes and persists meetings.
type Service struct {
	store  *store.MeetingStore
	agents *store.AgentStore
	quota  Quota
	hooks  *hooks.Manager
	log    *logging.Logger
}

// NewService creates a meeting service.
func NewService(st *store.MeetingStore, agents *store.AgentStore, quota Quota, h *hooks.Manager, log *logging.Logger) *Service {
	return &Service{store: st, agents: agents, quota: quota, hooks: h, log: log.Sub("meetings")}
}

// GetMany returns one page of the user's meetings matching f.
func (s *Service) GetMany(ctx context.Context, userID string, f filter.Filter) (domain.ListResult[domain.MeetingListItem], error) {
	f = f.Normalize()
	page, err := s.store.List(ctx, store.ListQuery{
		UserID:  userID,
		Search:  f.Search,
		Status:  string(f.Status),
		AgentID: f.AgentID,
		Limit:   f.PageSize,
		Offset:  f.Offset(),
	})
	if err != nil {
		return domain.ListResult[domain.MeetingListItem]{}, domain.Internal(fmt.Errorf("list meetings: %w", err))
	}
	return domain.NewListResult(page.Items, page.Total, f.PageSize), nil
}

// GetOne returns a single meeting the user owns.
func (s *Service) GetOne(ctx context.Context, userID, id string) (domain.MeetingListItem, error) {
	item, err := s.store.Get(ctx, userID, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.MeetingListItem{}, domain.NotFound("Meeting")
	}
	if err != nil {
		return domain.MeetingListItem{}, domain.Internal(fmt.Errorf("get meeting: %w", err))
	}
	return item, nil
}

// Create schedules a meeting with one of the user's agents, subject to the
// free tier allowance. The status of the input is ignored.
func (s *Service) Create(ctx context.Context, userID string, in domain.MeetingInput) (domain.Meeting, error) {
	in.Status = ""
	if err := in.Validate(); err != nil {
		return domain.Meeting{}, err
	}
	if err := s.checkAgent(ctx, userID, in.AgentID); err != nil {
		return domain.Meeting{}, err
	}
	limit, err := s.quota.MeetingLimit(ctx, userID)
	if err != nil {
		return domain.Meeting{}, err
	}
	m, err := s.store.CreateWithin(ctx, userID, in, limit)
	if errors.Is(err, store.ErrLimitReached) {
		return domain.Meeting{}, domain.PlanLimit(domain.FreeMeetingsUsedUp)
	}
	if err != nil {
		return domain.Meeting{}, domain.Internal(fmt.Errorf("create meeting: %w", err))
	}
	s.log.Info().Str("user", userID).Str("meeting", m.ID).Msg("meeting created")
	s.hooks.Emit(ctx, hooks.Payload{Event: hooks.EventMeetingCreated, UserID: userID, ID: m.ID})
	return m, nil
}

// Update edits a meeting the user owns. A non-empty status moves the
// meeting to that status.
func (s *Service) Update(ctx context.Context, userID, id string, in domain.MeetingInput) (domain.Meeting, error) {
	if id == "" {
		return domain.Meeting{}, domain.Validation(map[string]string{"id": "Id is required"})
	}
	if err := in.Validate(); err != nil {
		return domain.Meeting{}, err
	}
	if err := s.checkAgent(ctx, userID, in.AgentID); err != nil {
		return domain.Meeting{}, err
	}
	m, err := s.store.Update(ctx, userID, id, in)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Meeting{}, domain.NotFound("Meeting")
	}
	if err != nil {
		return domain.Meeting{}, domain.Internal(fmt.Errorf("update meeting: %w", err))
	}
	s.hooks.Emit(ctx, hooks.Payload{Event: hooks.EventMeetingUpdated, UserID: userID, ID: m.ID})
	return m, nil
}

func (s *Service) checkAgent(ctx context.Context, userID, agentID string) error {
	_, err := s.agents.Get(ctx, userID, agentID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Validation(map[string]string{"agentId": "Agent not found"})
	}
	if err != nil {
		return domain.Internal(fmt.Errorf("get agent: %w", err))
	}
	return nil
}
