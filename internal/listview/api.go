// Package listview keeps terminal list views of agents and meetings in
// sync with the server.
//
// A Fetcher reads pages and entities through the query cache. A Dispatcher
// runs create and update procedures and, once they succeed, invalidates the
// cache entries the mutation made stale so the next read goes to the
// server. Table and Pager render a page; View tracks whether a page is
// loading, loaded or failed.
package listview

import (
	"context"

	"github.com/meetai/meetai/internal/domain"
	"github.com/meetai/meetai/internal/filter"
)

// API is the subset of the procedure client the list layer uses.
type API interface {
	ListAgents(ctx context.Context, f filter.Filter) (domain.ListResult[domain.AgentListItem], error)
	GetAgent(ctx context.Context, id string) (domain.AgentListItem, error)
	CreateAgent(ctx context.Context, in domain.AgentInput) (domain.Agent, error)
	UpdateAgent(ctx context.Context, id string, in domain.AgentInput) (domain.Agent, error)

	ListMeetings(ctx context.Context, f filter.Filter) (domain.ListResult[domain.MeetingListItem], error)
	GetMeeting(ctx context.Context, id string) (domain.MeetingListItem, error)
	CreateMeeting(ctx context.Context, in domain.MeetingInput) (domain.Meeting, error)
	UpdateMeeting(ctx context.Context, id string, in domain.MeetingInput) (domain.Meeting, error)

	FreeUsage(ctx context.Context) (*domain.FreeUsage, error)
	Products(ctx context.Context) ([]domain.Product, error)
	CurrentSubscription(ctx context.Context) (*domain.Product, error)
}
