package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/meetai/meetai/internal/domain"
)

// AgentStore persists agents. Every read and write is scoped to one user.
type AgentStore struct {
	db *DB
}

// NewAgentStore creates an agent store using the given database.
func NewAgentStore(db *DB) *AgentStore {
	return &AgentStore{db: db}
}

const agentColumns = `a.id, a.name, a.instructions, a.user_id, a.created_at, a.updated_at,
	(SELECT COUNT(*) FROM meetings m WHERE m.agent_id = a.id) AS meeting_count`

// Create inserts an agent owned by userID.
func (s *AgentStore) Create(ctx context.Context, userID string, in domain.AgentInput) (domain.Agent, error) {
	return s.CreateWithin(ctx, userID, in, Unlimited)
}

// CreateWithin inserts an agent unless userID already owns limit agents, in
// which case it returns ErrLimitReached. The count and the insert are one
// statement, so concurrent creates cannot overshoot the limit.
func (s *AgentStore) CreateWithin(ctx context.Context, userID string, in domain.AgentInput, limit int) (domain.Agent, error) {
	now := s.db.timestamp()
	a := domain.Agent{
		ID:           uuid.New().String(),
		Name:         strings.TrimSpace(in.Name),
		Instructions: strings.TrimSpace(in.Instructions),
		UserID:       userID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	res, err := s.db.sql.ExecContext(ctx,
		`INSERT INTO agents (id, name, instructions, user_id, created_at, updated_at)
		 SELECT ?, ?, ?, ?, ?, ?
		 WHERE ? < 0 OR (SELECT COUNT(*) FROM agents WHERE user_id = ?) < ?`,
		a.ID, a.Name, a.Instructions, a.UserID, formatTime(now), formatTime(now),
		limit, userID, limit,
	)
	if err != nil {
		return domain.Agent{}, fmt.Errorf("insert agent: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return domain.Agent{}, fmt.Errorf("insert agent: %w", err)
	} else if n == 0 {
		return domain.Agent{}, ErrLimitReached
	}
	return a, nil
}

// Update replaces the editable fields of an agent the user owns.
func (s *AgentStore) Update(ctx context.Context, userID, id string, in domain.AgentInput) (domain.Agent, error) {
	res, err := s.db.sql.ExecContext(ctx,
		`UPDATE agents SET name = ?, instructions = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		strings.TrimSpace(in.Name), strings.TrimSpace(in.Instructions), formatTime(s.db.timestamp()), id, userID,
	)
	if err != nil {
		return domain.Agent{}, fmt.Errorf("update agent: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Agent{}, ErrNotFound
	}
	item, err := s.Get(ctx, userID, id)
	if err != nil {
		return domain.Agent{}, err
	}
	return item.Agent, nil
}

// Get returns one agent with its meeting count.
func (s *AgentStore) Get(ctx context.Context, userID, id string) (domain.AgentListItem, error) {
	row := s.db.sql.QueryRowContext(ctx,
		`SELECT `+agentColumns+` FROM agents a WHERE a.id = ? AND a.user_id = ?`, id, userID)
	item, err := scanAgent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.AgentListItem{}, ErrNotFound
	}
	return item, err
}

// List returns one page of the user's agents, newest first.
func (s *AgentStore) List(ctx context.Context, q ListQuery) (Page[domain.AgentListItem], error) {
	where := `a.user_id = ?`
	args := []any{q.UserID}
	if q.Search != "" {
		where += ` AND a.name LIKE ? ESCAPE '\'`
		args = append(args, likePattern(q.Search))
	}

	var total int
	if err := s.db.sql.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM agents a WHERE `+where, args...).Scan(&total); err != nil {
		return Page[domain.AgentListItem]{}, fmt.Errorf("count agents: %w", err)
	}

	rows, err := s.db.sql.QueryContext(ctx,
		`SELECT `+agentColumns+` FROM agents a WHERE `+where+`
		 ORDER BY a.created_at DESC, a.id DESC LIMIT ? OFFSET ?`,
		append(args, q.Limit, q.Offset)...)
	if err != nil {
		return Page[domain.AgentListItem]{}, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	items := []domain.AgentListItem{}
	for rows.Next() {
		item, err := scanAgent(rows)
		if err != nil {
			return Page[domain.AgentListItem]{}, err
		}
		items = append(items, item)
	}
	return Page[domain.AgentListItem]{Items: items, Total: total}, rows.Err()
}

// Count returns how many agents the user owns.
func (s *AgentStore) Count(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.sql.QueryRowContext(ctx, `SELECT COUNT(*) FROM agents WHERE user_id = ?`, userID).Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAgent(r scanner) (domain.AgentListItem, error) {
	var item domain.AgentListItem
	var createdAt, updatedAt string
	if err := r.Scan(&item.ID, &item.Name, &item.Instructions, &item.UserID,
		&createdAt, &updatedAt, &item.MeetingCount); err != nil {
		return domain.AgentListItem{}, err
	}
	item.CreatedAt = parseTime(createdAt)
	item.UpdatedAt = parseTime(updatedAt)
	return item, nil
}
