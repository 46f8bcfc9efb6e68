package listview

import (
	"context"

	"github.com/meetai/meetai/internal/domain"
	"github.com/meetai/meetai/internal/filter"
	"github.com/meetai/meetai/internal/query"
)

// Fetcher reads through the query cache. Every read populates the cache
// entry for its key.
type Fetcher struct {
	api   API
	cache *query.Client
}

// NewFetcher creates a fetcher backed by api and cache.
func NewFetcher(api API, cache *query.Client) *Fetcher {
	return &Fetcher{api: api, cache: cache}
}

// Cache returns the query cache the fetcher reads through.
func (f *Fetcher) Cache() *query.Client { return f.cache }

// Agents returns one page of the caller's agents.
func (f *Fetcher) Agents(ctx context.Context, flt filter.Filter) (domain.ListResult[domain.AgentListItem], error) {
	flt = flt.Scoped(domain.EntityAgents).Normalize()
	return query.Fetch(ctx, f.cache, query.ListKey(domain.EntityAgents, flt),
		func(ctx context.Context) (domain.ListResult[domain.AgentListItem], error) {
			return f.api.ListAgents(ctx, flt)
		})
}

// Meetings returns one page of the caller's meetings.
func (f *Fetcher) Meetings(ctx context.Context, flt filter.Filter) (domain.ListResult[domain.MeetingListItem], error) {
	flt = flt.Scoped(domain.EntityMeetings).Normalize()
	return query.Fetch(ctx, f.cache, query.ListKey(domain.EntityMeetings, flt),
		func(ctx context.Context) (domain.ListResult[domain.MeetingListItem], error) {
			return f.api.ListMeetings(ctx, flt)
		})
}

// Agent returns one agent.
func (f *Fetcher) Agent(ctx context.Context, id string) (domain.AgentListItem, error) {
	return query.Fetch(ctx, f.cache, query.OneKey(domain.EntityAgents, id),
		func(ctx context.Context) (domain.AgentListItem, error) {
			return f.api.GetAgent(ctx, id)
		})
}

// Meeting returns one meeting.
func (f *Fetcher) Meeting(ctx context.Context, id string) (domain.MeetingListItem, error) {
	return query.Fetch(ctx, f.cache, query.OneKey(domain.EntityMeetings, id),
		func(ctx context.Context) (domain.MeetingListItem, error) {
			return f.api.GetMeeting(ctx, id)
		})
}

// Usage returns the free tier usage, or nil for premium users.
func (f *Fetcher) Usage(ctx context.Context) (*domain.FreeUsage, error) {
	return query.Fetch(ctx, f.cache, query.PremiumKey(query.ScopeUsage), f.api.FreeUsage)
}

// Products returns the plan catalog.
func (f *Fetcher) Products(ctx context.Context) ([]domain.Product, error) {
	return query.Fetch(ctx, f.cache, query.PremiumKey(query.ScopeProducts), f.api.Products)
}

// Subscription returns the product of the active subscription, or nil.
func (f *Fetcher) Subscription(ctx context.Context) (*domain.Product, error) {
	return query.Fetch(ctx, f.cache, query.PremiumKey(query.ScopeSubscription), f.api.CurrentSubscription)
}
