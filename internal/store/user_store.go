package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/meetai/meetai/internal/domain"
)

// UserRecord is a user together with its password hash.
type UserRecord struct {
	domain.User
	PasswordHash string
}

// UserStore persists accounts.
type UserStore struct {
	db *DB
}

// NewUserStore creates a user store using the given database.
func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

// Create inserts a new user. Emails are stored lower-cased; a second
// account with the same email returns ErrDuplicate.
func (s *UserStore) Create(ctx context.Context, name, email, passwordHash string) (domain.User, error) {
	u := domain.User{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(name),
		Email:     normalizeEmail(email),
		CreatedAt: s.db.timestamp(),
	}

	_, err := s.db.sql.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, passwordHash, formatTime(u.CreatedAt),
	)
	if isUniqueViolation(err) {
		return domain.User{}, ErrDuplicate
	}
	if err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// Get returns a user by ID.
func (s *UserStore) Get(ctx context.Context, id string) (domain.User, error) {
	rec, err := s.scan(s.db.sql.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, created_at FROM users WHERE id = ?`, id))
	return rec.User, err
}

// GetByEmail returns a user and its password hash by email.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (UserRecord, error) {
	return s.scan(s.db.sql.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, created_at FROM users WHERE email = ?`, normalizeEmail(email)))
}

func (s *UserStore) scan(row *sql.Row) (UserRecord, error) {
	var rec UserRecord
	var createdAt string
	err := row.Scan(&rec.ID, &rec.Name, &rec.Email, &rec.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return UserRecord{}, ErrNotFound
	}
	if err != nil {
		return UserRecord{}, err
	}
	rec.CreatedAt = parseTime(createdAt)
	return rec, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
