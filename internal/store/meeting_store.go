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

// MeetingStore persists meetings. Every read and write is scoped to one user.
type MeetingStore struct {
	db *DB
}

// NewMeetingStore creates a meeting store using the given database.
func NewMeetingStore(db *DB) *MeetingStore {
	return &MeetingStore{db: db}
}

const meetingColumns = `m.id, m.name, m.agent_id, m.user_id, m.status, m.started_at, m.ended_at,
	m.created_at, m.updated_at, a.name`

const meetingFrom = ` FROM meetings m JOIN agents a ON a.id = m.agent_id`

// Create inserts a meeting owned by userID. New meetings are upcoming.
// The caller checks that the agent belongs to the user.
func (s *MeetingStore) Create(ctx context.Context, userID string, in domain.MeetingInput) (domain.Meeting, error) {
	return s.CreateWithin(ctx, userID, in, Unlimited)
}

// CreateWithin inserts a meeting unless userID already owns limit meetings,
// in which case it returns ErrLimitReached. The count and the insert are one
// statement.
func (s *MeetingStore) CreateWithin(ctx context.Context, userID string, in domain.MeetingInput, limit int) (domain.Meeting, error) {
	now := s.db.timestamp()
	m := domain.Meeting{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(in.Name),
		AgentID:   in.AgentID,
		UserID:    userID,
		Status:    domain.MeetingUpcoming,
		CreatedAt: now,
		UpdatedAt: now,
	}
	res, err := s.db.sql.ExecContext(ctx,
		`INSERT INTO meetings (id, name, agent_id, user_id, status, created_at, updated_at)
		 SELECT ?, ?, ?, ?, ?, ?, ?
		 WHERE ? < 0 OR (SELECT COUNT(*) FROM meetings WHERE user_id = ?) < ?`,
		m.ID, m.Name, m.AgentID, m.UserID, string(m.Status), formatTime(now), formatTime(now),
		limit, userID, limit,
	)
	if err != nil {
		return domain.Meeting{}, fmt.Errorf("insert meeting: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return domain.Meeting{}, fmt.Errorf("insert meeting: %w", err)
	} else if n == 0 {
		return domain.Meeting{}, ErrLimitReached
	}
	return m, nil
}

// Update replaces the editable fields of a meeting the user owns. An empty
// status leaves the status unchanged. Moving to active stamps started_at and
// moving to completed stamps ended_at, each only once.
func (s *MeetingStore) Update(ctx context.Context, userID, id string, in domain.MeetingInput) (domain.Meeting, error) {
	now := formatTime(s.db.timestamp())
	res, err := s.db.sql.ExecContext(ctx,
		`UPDATE meetings SET
		   name = ?,
		   agent_id = ?,
		   status = COALESCE(NULLIF(?, ''), status),
		   started_at = CASE WHEN ? IN ('active', 'completed', 'processing') AND started_at IS NULL THEN ? ELSE started_at END,
		   ended_at = CASE WHEN ? IN ('completed', 'processing') AND ended_at IS NULL THEN ? ELSE ended_at END,
		   updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		strings.TrimSpace(in.Name), in.AgentID,
		string(in.Status),
		string(in.Status), now,
		string(in.Status), now,
		now, id, userID,
	)
	if err != nil {
		return domain.Meeting{}, fmt.Errorf("update meeting: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Meeting{}, ErrNotFound
	}
	item, err := s.Get(ctx, userID, id)
	if err != nil {
		return domain.Meeting{}, err
	}
	return item.Meeting, nil
}

// Get returns one meeting with its agent's name.
func (s *MeetingStore) Get(ctx context.Context, userID, id string) (domain.MeetingListItem, error) {
	row := s.db.sql.QueryRowContext(ctx,
		`SELECT `+meetingColumns+meetingFrom+` WHERE m.id = ? AND m.user_id = ?`, id, userID)
	item, err := scanMeeting(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.MeetingListItem{}, ErrNotFound
	}
	return item, err
}

// List returns one page of the user's meetings, newest first.
func (s *MeetingStore) List(ctx context.Context, q ListQuery) (Page[domain.MeetingListItem], error) {
	where := `m.user_id = ?`
	args := []any{q.UserID}
	if q.Search != "" {
		where += ` AND m.name LIKE ? ESCAPE '\'`
		args = append(args, likePattern(q.Search))
	}
	if q.Status != "" {
		where += ` AND m.status = ?`
		args = append(args, q.Status)
	}
	if q.AgentID != "" {
		where += ` AND m.agent_id = ?`
		args = append(args, q.AgentID)
	}

	var total int
	if err := s.db.sql.QueryRowContext(ctx,
		`SELECT COUNT(*)`+meetingFrom+` WHERE `+where, args...).Scan(&total); err != nil {
		return Page[domain.MeetingListItem]{}, fmt.Errorf("count meetings: %w", err)
	}

	rows, err := s.db.sql.QueryContext(ctx,
		`SELECT `+meetingColumns+meetingFrom+` WHERE `+where+`
		 ORDER BY m.created_at DESC, m.id DESC LIMIT ? OFFSET ?`,
		append(args, q.Limit, q.Offset)...)
	if err != nil {
		return Page[domain.MeetingListItem]{}, fmt.Errorf("list meetings: %w", err)
	}
	defer rows.Close()

	items := []domain.MeetingListItem{}
	for rows.Next() {
		item, err := scanMeeting(rows)
		if err != nil {
			return Page[domain.MeetingListItem]{}, err
		}
		items = append(items, item)
	}
	return Page[domain.MeetingListItem]{Items: items, Total: total}, rows.Err()
}

// Count returns how many meetings the user owns.
func (s *MeetingStore) Count(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.sql.QueryRowContext(ctx, `SELECT COUNT(*) FROM meetings WHERE user_id = ?`, userID).Scan(&n)
	return n, err
}

func scanMeeting(r scanner) (domain.MeetingListItem, error) {
	var item domain.MeetingListItem
	var status, createdAt, updatedAt string
	var startedAt, endedAt sql.NullString
	if err := r.Scan(&item.ID, &item.Name, &item.AgentID, &item.UserID, &status,
		&startedAt, &endedAt, &createdAt, &updatedAt, &item.AgentName); err != nil {
		return domain.MeetingListItem{}, err
	}
	item.Status = domain.MeetingStatus(status)
	item.StartedAt = timePtr(startedAt)
	item.EndedAt = timePtr(endedAt)
	item.CreatedAt = parseTime(createdAt)
	item.UpdatedAt = parseTime(updatedAt)
	item.DurationSeconds = int64(item.Duration().Seconds())
	return item, nil
}
