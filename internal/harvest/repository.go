package harvest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for harvest persistence.
type Repository interface {
	Create(ctx context.Context, h *Harvest) error
	GetByID(ctx context.Context, id string) (*Harvest, error)
	ListByHive(ctx context.Context, hiveID string) ([]Harvest, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewRepository creates a new SQLite-backed harvest repository.
func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a new harvest record. The ID is generated if empty.
func (r *SQLiteRepository) Create(ctx context.Context, h *Harvest) error {
	if err := h.Validate(); err != nil {
		return err
	}
	if h.ID == "" {
		h.ID = "hrv-" + uuid.NewString()[:8]
	}

	now := time.Now().UTC().Format(time.RFC3339)
	h.CreatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO harvests (id, hive_id, amount, created_at) VALUES (?, ?, ?, ?)`,
		h.ID, h.HiveID, h.Amount, now,
	)
	if err != nil {
		return fmt.Errorf("creating harvest: %w", err)
	}

	return nil
}

// GetByID retrieves a harvest record by its unique ID.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Harvest, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, hive_id, amount, created_at FROM harvests WHERE id = ?`, id)

	h, err := scanHarvest(row)
	if err != nil {
		return nil, err
	}
	return h, nil
}

// ListByHive returns all harvest records for a hive, newest first.
func (r *SQLiteRepository) ListByHive(ctx context.Context, hiveID string) ([]Harvest, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, hive_id, amount, created_at FROM harvests
		 WHERE hive_id = ? ORDER BY created_at DESC`, hiveID)
	if err != nil {
		return nil, fmt.Errorf("listing harvests: %w", err)
	}
	defer rows.Close()

	var harvests []Harvest
	for rows.Next() {
		h, err := scanHarvest(rows)
		if err != nil {
			return nil, err
		}
		harvests = append(harvests, *h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating harvests: %w", err)
	}

	if harvests == nil {
		harvests = []Harvest{}
	}
	return harvests, nil
}

// scanner is an interface for sql.Row and sql.Rows Scan methods.
type scanner interface {
	Scan(dest ...any) error
}

// scanHarvest scans a harvest record from a row or rows.
func scanHarvest(s scanner) (*Harvest, error) {
	var h Harvest
	var createdAt string

	err := s.Scan(&h.ID, &h.HiveID, &h.Amount, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrHarvestNotFound
		}
		return nil, fmt.Errorf("scanning harvest: %w", err)
	}

	h.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	return &h, nil
}
