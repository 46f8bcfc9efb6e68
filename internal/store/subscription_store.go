package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/meetai/meetai/internal/domain"
)

// SubscriptionStore persists each user's billing state.
type SubscriptionStore struct {
	db *DB
}

// NewSubscriptionStore creates a subscription store using the given database.
func NewSubscriptionStore(db *DB) *SubscriptionStore {
	return &SubscriptionStore{db: db}
}

// Upsert records the latest subscription state for a user.
func (s *SubscriptionStore) Upsert(ctx context.Context, sub domain.Subscription) (domain.Subscription, error) {
	sub.UpdatedAt = s.db.timestamp()
	_, err := s.db.sql.ExecContext(ctx,
		`INSERT INTO subscriptions (user_id, product_id, status, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   product_id = excluded.product_id,
		   status = excluded.status,
		   updated_at = excluded.updated_at`,
		sub.UserID, sub.ProductID, string(sub.Status), formatTime(sub.UpdatedAt),
	)
	if err != nil {
		return domain.Subscription{}, err
	}
	return sub, nil
}

// Get returns the stored subscription for a user regardless of status.
func (s *SubscriptionStore) Get(ctx context.Context, userID string) (domain.Subscription, error) {
	var sub domain.Subscription
	var status, updatedAt string
	err := s.db.sql.QueryRowContext(ctx,
		`SELECT user_id, product_id, status, updated_at FROM subscriptions WHERE user_id = ?`, userID,
	).Scan(&sub.UserID, &sub.ProductID, &status, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Subscription{}, ErrNotFound
	}
	if err != nil {
		return domain.Subscription{}, err
	}
	sub.Status = domain.SubscriptionStatus(status)
	sub.UpdatedAt = parseTime(updatedAt)
	return sub, nil
}

// Active returns the user's subscription when it is active.
func (s *SubscriptionStore) Active(ctx context.Context, userID string) (domain.Subscription, bool, error) {
	sub, err := s.Get(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return domain.Subscription{}, false, nil
	}
	if err != nil {
		return domain.Subscription{}, false, err
	}
	if sub.Status != domain.SubscriptionActive {
		return sub, false, nil
	}
	return sub, true, nil
}
