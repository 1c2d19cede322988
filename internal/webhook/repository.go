package webhook

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for subscription persistence.
type Repository interface {
	Create(ctx context.Context, sub *Subscription) error
	ListByHive(ctx context.Context, hiveID string) ([]Subscription, error)
	DeleteByHive(ctx context.Context, hiveID string) (int64, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewRepository creates a new SQLite-backed subscription repository.
func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create registers a subscription. The ID is generated if empty.
func (r *SQLiteRepository) Create(ctx context.Context, sub *Subscription) error {
	if sub.PostURL == "" {
		return ErrMissingPostURL
	}
	if sub.ID == "" {
		sub.ID = "sub-" + uuid.NewString()[:8]
	}

	now := time.Now().UTC().Format(time.RFC3339)
	sub.CreatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO subscriptions (id, hive_id, post_url, created_at) VALUES (?, ?, ?, ?)`,
		sub.ID, sub.HiveID, sub.PostURL, now,
	)
	if err != nil {
		return fmt.Errorf("creating subscription: %w", err)
	}

	return nil
}

// ListByHive returns all subscriptions registered for a hive.
func (r *SQLiteRepository) ListByHive(ctx context.Context, hiveID string) ([]Subscription, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, hive_id, post_url, created_at FROM subscriptions
		 WHERE hive_id = ? ORDER BY created_at ASC`, hiveID)
	if err != nil {
		return nil, fmt.Errorf("listing subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []Subscription
	for rows.Next() {
		var sub Subscription
		var createdAt string
		if err := rows.Scan(&sub.ID, &sub.HiveID, &sub.PostURL, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning subscription: %w", err)
		}
		sub.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating subscriptions: %w", err)
	}

	if subs == nil {
		subs = []Subscription{}
	}
	return subs, nil
}

// DeleteByHive removes every subscription for a hive and reports how
// many were removed. Deleting when none exist is not an error.
func (r *SQLiteRepository) DeleteByHive(ctx context.Context, hiveID string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM subscriptions WHERE hive_id = ?`, hiveID)
	if err != nil {
		return 0, fmt.Errorf("deleting subscriptions: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted subscriptions: %w", err)
	}
	return count, nil
}
