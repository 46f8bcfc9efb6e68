package listview

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/meetai/meetai/internal/domain"
	"github.com/meetai/meetai/internal/filter"
	"github.com/meetai/meetai/internal/logging"
	"github.com/meetai/meetai/internal/query"
)

func testLog() *logging.Logger { return logging.New(nil, "silent") }

func newCache() *query.Client { return query.New(query.NewMemoryStore(), testLog()) }

// fakeAPI is an in-memory backend for a single user.
type fakeAPI struct {
	mu       sync.Mutex
	agents   []domain.AgentListItem
	meetings []domain.MeetingListItem
	calls    map[string]int
	nextID   int

	maxMeetings int
	failWith    error
	products    []domain.Product
	current     *domain.Product
	usage       *domain.FreeUsage
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{calls: map[string]int{}, maxMeetings: -1}
}

func (f *fakeAPI) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAPI) record(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
	return f.failWith
}

func (f *fakeAPI) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func page[T any](items []T, flt filter.Filter, match func(T) bool) domain.ListResult[T] {
	var hits []T
	for _, it := range items {
		if match(it) {
			hits = append(hits, it)
		}
	}
	flt = flt.Normalize()
	total := len(hits)
	lo := min(flt.Offset(), total)
	hi := min(lo+flt.PageSize, total)
	return domain.NewListResult(append([]T(nil), hits[lo:hi]...), total, flt.PageSize)
}

func (f *fakeAPI) ListAgents(_ context.Context, flt filter.Filter) (domain.ListResult[domain.AgentListItem], error) {
	if err := f.record("agents.getMany"); err != nil {
		return domain.ListResult[domain.AgentListItem]{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return page(f.agents, flt, func(a domain.AgentListItem) bool {
		return strings.Contains(strings.ToLower(a.Name), strings.ToLower(flt.Search))
	}), nil
}

func (f *fakeAPI) GetAgent(_ context.Context, id string) (domain.AgentListItem, error) {
	if err := f.record("agents.getOne"); err != nil {
		return domain.AgentListItem{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.agents {
		if a.ID == id {
			return a, nil
		}
	}
	return domain.AgentListItem{}, domain.NotFound("Agent")
}

func (f *fakeAPI) CreateAgent(_ context.Context, in domain.AgentInput) (domain.Agent, error) {
	if err := f.record("agents.create"); err != nil {
		return domain.Agent{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	a := domain.Agent{ID: f.id("agent"), Name: in.Name, Instructions: in.Instructions, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	f.agents = append(f.agents, domain.AgentListItem{Agent: a})
	return a, nil
}

func (f *fakeAPI) UpdateAgent(_ context.Context, id string, in domain.AgentInput) (domain.Agent, error) {
	if err := f.record("agents.update"); err != nil {
		return domain.Agent{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, a := range f.agents {
		if a.ID == id {
			f.agents[i].Name, f.agents[i].Instructions = in.Name, in.Instructions
			return f.agents[i].Agent, nil
		}
	}
	return domain.Agent{}, domain.NotFound("Agent")
}

func (f *fakeAPI) ListMeetings(_ context.Context, flt filter.Filter) (domain.ListResult[domain.MeetingListItem], error) {
	if err := f.record("meetings.getMany"); err != nil {
		return domain.ListResult[domain.MeetingListItem]{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return page(f.meetings, flt, func(m domain.MeetingListItem) bool {
		return strings.Contains(strings.ToLower(m.Name), strings.ToLower(flt.Search)) &&
			(flt.Status == "" || m.Status == flt.Status) &&
			(flt.AgentID == "" || m.AgentID == flt.AgentID)
	}), nil
}

func (f *fakeAPI) GetMeeting(_ context.Context, id string) (domain.MeetingListItem, error) {
	if err := f.record("meetings.getOne"); err != nil {
		return domain.MeetingListItem{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.meetings {
		if m.ID == id {
			return m, nil
		}
	}
	return domain.MeetingListItem{}, domain.NotFound("Meeting")
}

func (f *fakeAPI) CreateMeeting(_ context.Context, in domain.MeetingInput) (domain.Meeting, error) {
	if err := f.record("meetings.create"); err != nil {
		return domain.Meeting{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.maxMeetings >= 0 && len(f.meetings) >= f.maxMeetings {
		return domain.Meeting{}, domain.PlanLimit("You have reached the maximum number of free meetings")
	}
	m := domain.Meeting{ID: f.id("meeting"), Name: in.Name, AgentID: in.AgentID, Status: domain.MeetingUpcoming}
	f.meetings = append(f.meetings, domain.MeetingListItem{Meeting: m})
	return m, nil
}

func (f *fakeAPI) UpdateMeeting(_ context.Context, id string, in domain.MeetingInput) (domain.Meeting, error) {
	if err := f.record("meetings.update"); err != nil {
		return domain.Meeting{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, m := range f.meetings {
		if m.ID == id {
			f.meetings[i].Name, f.meetings[i].AgentID = in.Name, in.AgentID
			if in.Status != "" {
				f.meetings[i].Status = in.Status
			}
			return f.meetings[i].Meeting, nil
		}
	}
	return domain.Meeting{}, domain.NotFound("Meeting")
}

func (f *fakeAPI) FreeUsage(context.Context) (*domain.FreeUsage, error) {
	if err := f.record("premium.getFreeUsage"); err != nil {
		return nil, err
	}
	return f.usage, nil
}

func (f *fakeAPI) Products(context.Context) ([]domain.Product, error) {
	if err := f.record("premium.getProducts"); err != nil {
		return nil, err
	}
	return f.products, nil
}

func (f *fakeAPI) CurrentSubscription(context.Context) (*domain.Product, error) {
	if err := f.record("premium.getCurrentSubscription"); err != nil {
		return nil, err
	}
	return f.current, nil
}

// recorder captures navigation and notifications.
type recorder struct {
	mu        sync.Mutex
	paths     []string
	successes []string
	errors    []string
}

func (r *recorder) Navigate(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
}

func (r *recorder) Success(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.successes = append(r.successes, msg)
}

func (r *recorder) Error(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, msg)
}
