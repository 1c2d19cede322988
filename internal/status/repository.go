package status

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Point is a single (timestamp, value) sample from one sensor series.
type Point struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Repository defines the interface for status reading persistence.
type Repository interface {
	Create(ctx context.Context, s *Status) error
	GetByID(ctx context.Context, id string) (*Status, error)
	ListByHive(ctx context.Context, hiveID string) ([]Status, error)
	ListMetric(ctx context.Context, hiveID string, metric Metric, from, to *time.Time) ([]Point, error)
	LatestMetric(ctx context.Context, hiveID string, metric Metric) (*Point, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewRepository creates a new SQLite-backed status repository.
func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a new status reading. The ID is generated if empty,
// and the timestamp defaults to now. A reading must carry at least one
// sensor value.
func (r *SQLiteRepository) Create(ctx context.Context, s *Status) error {
	if s.Humidity == nil && s.Weight == nil && s.Temperature == nil && s.HiveFlow == nil {
		return ErrEmptyReading
	}
	if s.ID == "" {
		s.ID = "sts-" + uuid.NewString()[:8]
	}
	if s.Timestamp.IsZero() {
		s.Timestamp = time.Now().UTC()
	}

	now := time.Now().UTC().Format(time.RFC3339)
	s.CreatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO statuses (id, hive_id, humidity, weight, temperature, hive_flow, timestamp, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.HiveID, nullFloat(s.Humidity), nullFloat(s.Weight),
		nullFloat(s.Temperature), nullFloat(s.HiveFlow),
		s.Timestamp.UTC().Format(time.RFC3339), now,
	)
	if err != nil {
		return fmt.Errorf("creating status: %w", err)
	}

	return nil
}

// GetByID retrieves a status reading by its unique ID.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Status, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, hive_id, humidity, weight, temperature, hive_flow, timestamp, created_at
		 FROM statuses WHERE id = ?`, id)

	s, err := scanStatus(row)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ListByHive returns all status readings for a hive ordered by timestamp.
func (r *SQLiteRepository) ListByHive(ctx context.Context, hiveID string) ([]Status, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, hive_id, humidity, weight, temperature, hive_flow, timestamp, created_at
		 FROM statuses WHERE hive_id = ? ORDER BY timestamp ASC`, hiveID)
	if err != nil {
		return nil, fmt.Errorf("listing statuses: %w", err)
	}
	defer rows.Close()

	var statuses []Status
	for rows.Next() {
		s, err := scanStatus(rows)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating statuses: %w", err)
	}

	if statuses == nil {
		statuses = []Status{}
	}
	return statuses, nil
}

// ListMetric returns one sensor series for a hive, restricted to
// readings that carry a value for the metric, optionally bounded by
// from/to (inclusive).
func (r *SQLiteRepository) ListMetric(ctx context.Context, hiveID string, metric Metric, from, to *time.Time) ([]Point, error) {
	column, ok := metric.column()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMetric, metric)
	}

	query := fmt.Sprintf(
		"SELECT id, timestamp, %s FROM statuses WHERE hive_id = ? AND %s IS NOT NULL",
		column, column)
	args := []any{hiveID}

	if from != nil {
		query += " AND timestamp >= ?"
		args = append(args, from.UTC().Format(time.RFC3339))
	}
	if to != nil {
		query += " AND timestamp <= ?"
		args = append(args, to.UTC().Format(time.RFC3339))
	}
	query += " ORDER BY timestamp ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s series: %w", metric, err)
	}
	defer rows.Close()

	var points []Point
	for rows.Next() {
		p, err := scanPoint(rows)
		if err != nil {
			return nil, err
		}
		points = append(points, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s series: %w", metric, err)
	}

	if points == nil {
		points = []Point{}
	}
	return points, nil
}

// LatestMetric returns the most recent sample of one sensor series for
// a hive, or ErrStatusNotFound if the series is empty.
func (r *SQLiteRepository) LatestMetric(ctx context.Context, hiveID string, metric Metric) (*Point, error) {
	column, ok := metric.column()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMetric, metric)
	}

	query := fmt.Sprintf(
		`SELECT id, timestamp, %s FROM statuses
		 WHERE hive_id = ? AND %s IS NOT NULL
		 ORDER BY timestamp DESC LIMIT 1`,
		column, column)

	row := r.db.QueryRowContext(ctx, query, hiveID)
	p, err := scanPoint(row)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// scanner is an interface for sql.Row and sql.Rows Scan methods.
type scanner interface {
	Scan(dest ...any) error
}

// scanStatus scans a status reading from a row or rows.
func scanStatus(s scanner) (*Status, error) {
	var st Status
	var humidity, weight, temperature, hiveFlow sql.NullFloat64
	var timestamp, createdAt string

	err := s.Scan(&st.ID, &st.HiveID, &humidity, &weight, &temperature, &hiveFlow,
		&timestamp, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStatusNotFound
		}
		return nil, fmt.Errorf("scanning status: %w", err)
	}

	st.Humidity = floatPtr(humidity)
	st.Weight = floatPtr(weight)
	st.Temperature = floatPtr(temperature)
	st.HiveFlow = floatPtr(hiveFlow)
	st.Timestamp, _ = time.Parse(time.RFC3339, timestamp) //nolint:errcheck // format is controlled
	st.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled

	return &st, nil
}

// scanPoint scans a single series sample from a row or rows.
func scanPoint(s scanner) (*Point, error) {
	var p Point
	var timestamp string

	err := s.Scan(&p.ID, &timestamp, &p.Value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStatusNotFound
		}
		return nil, fmt.Errorf("scanning series point: %w", err)
	}

	p.Timestamp, _ = time.Parse(time.RFC3339, timestamp) //nolint:errcheck // format is controlled
	return &p, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
