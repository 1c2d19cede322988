package hive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for hive persistence.
type Repository interface {
	Create(ctx context.Context, h *Hive) error
	GetByID(ctx context.Context, id string) (*Hive, error)
	List(ctx context.Context) ([]Hive, error)
	Update(ctx context.Context, h *Hive) error
	Delete(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewRepository creates a new SQLite-backed hive repository.
func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a new hive. The ID is generated if empty.
func (r *SQLiteRepository) Create(ctx context.Context, h *Hive) error {
	if err := h.Validate(); err != nil {
		return err
	}
	if h.ID == "" {
		h.ID = "hive-" + uuid.NewString()[:8]
	}

	now := time.Now().UTC().Format(time.RFC3339)
	h.CreatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled
	h.UpdatedAt = h.CreatedAt

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO hives (id, name, location, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		h.ID, h.Name, nullString(h.Location), now, now,
	)
	if err != nil {
		return fmt.Errorf("creating hive: %w", err)
	}

	return nil
}

// GetByID retrieves a hive by its unique ID.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Hive, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, name, location, created_at, updated_at FROM hives WHERE id = ?", id)

	h, err := scanHive(row)
	if err != nil {
		return nil, err
	}
	return h, nil
}

// List returns all hives ordered by creation date.
func (r *SQLiteRepository) List(ctx context.Context) ([]Hive, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, location, created_at, updated_at FROM hives ORDER BY created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("listing hives: %w", err)
	}
	defer rows.Close()

	var hives []Hive
	for rows.Next() {
		h, err := scanHive(rows)
		if err != nil {
			return nil, err
		}
		hives = append(hives, *h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating hives: %w", err)
	}

	if hives == nil {
		hives = []Hive{}
	}
	return hives, nil
}

// Update modifies a hive's name and location.
func (r *SQLiteRepository) Update(ctx context.Context, h *Hive) error {
	if err := h.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	h.UpdatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled

	result, err := r.db.ExecContext(ctx,
		"UPDATE hives SET name = ?, location = ?, updated_at = ? WHERE id = ?",
		h.Name, nullString(h.Location), now, h.ID,
	)
	if err != nil {
		return fmt.Errorf("updating hive: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrHiveNotFound
	}
	return nil
}

// Delete removes a hive by ID. Statuses and harvests referencing the
// hive are removed by the schema's cascade; webhook subscriptions are
// intentionally left in place (they reference, not own, the hive).
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM hives WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting hive: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrHiveNotFound
	}
	return nil
}

// scanner is an interface for sql.Row and sql.Rows Scan methods.
type scanner interface {
	Scan(dest ...any) error
}

// scanHive scans a hive from a row or rows.
func scanHive(s scanner) (*Hive, error) {
	var h Hive
	var location sql.NullString
	var createdAt, updatedAt string

	err := s.Scan(&h.ID, &h.Name, &location, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrHiveNotFound
		}
		return nil, fmt.Errorf("scanning hive: %w", err)
	}

	if location.Valid {
		h.Location = location.String
	}
	h.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	h.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled

	return &h, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
