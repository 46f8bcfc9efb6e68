package domain

// EntityKind names one of the list-synchronized collections.
type EntityKind string

const (
	EntityAgents   EntityKind = "agents"
	EntityMeetings EntityKind = "meetings"
	EntityPremium  EntityKind = "premium"
)

// ListResult is one page of a filtered collection.
type ListResult[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewListResult builds a page, computing TotalPages from total and pageSize.
// A nil items slice is normalized to empty so it encodes as [].
func NewListResult[T any](items []T, total, pageSize int) ListResult[T] {
	if items == nil {
		items = []T{}
	}
	return ListResult[T]{Items: items, Total: total, TotalPages: TotalPages(total, pageSize)}
}

// TotalPages is ceil(total / pageSize); zero when there is nothing to show.
func TotalPages(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// ChangeOp is the kind of mutation a ChangeEvent reports.
type ChangeOp string

const (
	OpCreated ChangeOp = "created"
	OpUpdated ChangeOp = "updated"
)

// ChangeEvent is pushed to a user's connected clients after a mutation.
type ChangeEvent struct {
	Entity EntityKind `json:"entity"`
	Op     ChangeOp   `json:"op"`
	ID     string     `json:"id"`
	UserID string     `json:"-"`
}
