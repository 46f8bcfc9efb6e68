// Package agents implements the agent procedures.
package agents

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

// Quota reports how many agents a user may own. store.Unlimited lifts the
// cap.
type Quota interface {
	AgentLimit(ctx context.Context, userID string) (int, error)
}

// Service validates, authorizes and persists agents.
type Service struct {
	store *store.AgentStore
	quota Quota
	hooks *hooks.Manager
	log   *logging.Logger
}

// NewService creates an agent service.
func NewService(st *store.AgentStore, quota Quota, h *hooks.Manager, log *logging.Logger) *Service {
	return &Service{store: st, quota: quota, hooks: h, log: log.Sub("agents")}
}

// GetMany returns one page of the user's agents matching f.
func (s *Service) GetMany(ctx context.Context, userID string, f filter.Filter) (domain.ListResult[domain.AgentListItem], error) {
	f = f.Normalize()
	page, err := s.store.List(ctx, store.ListQuery{
		UserID: userID,
		Search: f.Search,
		Limit:  f.PageSize,
		Offset: f.Offset(),
	})
	if err != nil {
		return domain.ListResult[domain.AgentListItem]{}, domain.Internal(fmt.Errorf("list agents: %w", err))
	}
	return domain.NewListResult(page.Items, page.Total, f.PageSize), nil
}

// GetOne returns a single agent the user owns.
func (s *Service) GetOne(ctx context.Context, userID, id string) (domain.AgentListItem, error) {
	item, err := s.store.Get(ctx, userID, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.AgentListItem{}, domain.NotFound("Agent")
	}
	if err != nil {
		return domain.AgentListItem{}, domain.Internal(fmt.Errorf("get agent: %w", err))
	}
	return item, nil
}

// Create adds an agent, subject to the free tier allowance.
func (s *Service) Create(ctx context.Context, userID string, in domain.AgentInput) (domain.Agent, error) {
	if err := in.Validate(); err != nil {
		return domain.Agent{}, err
	}
	limit, err := s.quota.AgentLimit(ctx, userID)
	if err != nil {
		return domain.Agent{}, err
	}
	a, err := s.store.CreateWithin(ctx, userID, in, limit)
	if errors.Is(err, store.ErrLimitReached) {
		return domain.Agent{}, domain.PlanLimit(domain.FreeAgentsUsedUp)
	}
	if err != nil {
		return domain.Agent{}, domain.Internal(fmt.Errorf("create agent: %w", err))
	}
	s.log.Info().Str("user", userID).Str("agent", a.ID).Msg("agent created")
	s.hooks.Emit(ctx, hooks.Payload{Event: hooks.EventAgentCreated, UserID: userID, ID: a.ID})
	return a, nil
}

// Update edits an agent the user owns.
func (s *Service) Update(ctx context.Context, userID, id string, in domain.AgentInput) (domain.Agent, error) {
	if id == "" {
		return domain.Agent{}, domain.Validation(map[string]string{"id": "Id is required"})
	}
	if err := in.Validate(); err != nil {
		return domain.Agent{}, err
	}
	a, err := s.store.Update(ctx, userID, id, in)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Agent{}, domain.NotFound("Agent")
	}
	if err != nil {
		return domain.Agent{}, domain.Internal(fmt.Errorf("update agent: %w", err))
	}
	s.hooks.Emit(ctx, hooks.Payload{Event: hooks.EventAgentUpdated, UserID: userID, ID: a.ID})
	return a, nil
}
