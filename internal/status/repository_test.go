package status

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the statuses table.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	// Every pooled connection gets its own :memory: database, so keep
	// the pool at one to share the schema across goroutines.
	db.SetMaxOpenConns(1)

	schema := `
		CREATE TABLE statuses (
			id TEXT PRIMARY KEY,
			hive_id TEXT NOT NULL,
			humidity REAL,
			weight REAL,
			temperature REAL,
			hive_flow REAL,
			timestamp TEXT NOT NULL,
			created_at TEXT NOT NULL
		) STRICT;
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func ptr(v float64) *float64 { return &v }

func storeReading(t *testing.T, repo *SQLiteRepository, hiveID string, ts time.Time, temp *float64, hum *float64) *Status {
	t.Helper()

	s := &Status{
		HiveID:      hiveID,
		Temperature: temp,
		Humidity:    hum,
		Timestamp:   ts,
	}
	if err := repo.Create(context.Background(), s); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return s
}

func TestStatusCreateAndGet(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	s := &Status{
		HiveID:      "hive-001",
		Humidity:    ptr(55.2),
		Weight:      ptr(32.7),
		Temperature: ptr(34.1),
	}
	if err := repo.Create(context.Background(), s); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if s.ID == "" {
		t.Fatal("Create did not assign an ID")
	}
	if s.Timestamp.IsZero() {
		t.Fatal("Create did not default the timestamp")
	}

	got, err := repo.GetByID(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Humidity == nil || *got.Humidity != 55.2 {
		t.Errorf("humidity: got %v, want 55.2", got.Humidity)
	}
	if got.HiveFlow != nil {
		t.Errorf("hive flow: got %v, want nil", got.HiveFlow)
	}
}

func TestStatusCreateEmptyReading(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	err := repo.Create(context.Background(), &Status{HiveID: "hive-001"})
	if !errors.Is(err, ErrEmptyReading) {
		t.Fatalf("expected ErrEmptyReading, got %v", err)
	}
}

func TestStatusListByHive(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	base := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	storeReading(t, repo, "hive-001", base, ptr(33.0), nil)
	storeReading(t, repo, "hive-001", base.Add(time.Hour), ptr(34.0), nil)
	storeReading(t, repo, "hive-002", base, ptr(30.0), nil)

	statuses, err := repo.ListByHive(context.Background(), "hive-001")
	if err != nil {
		t.Fatalf("ListByHive: %v", err)
	}
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	if !statuses[0].Timestamp.Before(statuses[1].Timestamp) {
		t.Error("statuses not ordered by timestamp")
	}
}

func TestListMetricFiltersAndBounds(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	storeReading(t, repo, "hive-001", base, ptr(30.0), nil)
	storeReading(t, repo, "hive-001", base.Add(1*time.Hour), ptr(31.0), ptr(60.0))
	storeReading(t, repo, "hive-001", base.Add(2*time.Hour), nil, ptr(62.0))
	storeReading(t, repo, "hive-001", base.Add(3*time.Hour), ptr(33.0), nil)

	// Full temperature series skips the humidity-only reading.
	points, err := repo.ListMetric(context.Background(), "hive-001", MetricTemperature, nil, nil)
	if err != nil {
		t.Fatalf("ListMetric: %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("expected 3 temperature points, got %d", len(points))
	}
	if points[0].Value != 30.0 || points[2].Value != 33.0 {
		t.Errorf("unexpected series values: %v", points)
	}

	// Bounded window is inclusive on both ends.
	from := base.Add(1 * time.Hour)
	to := base.Add(3 * time.Hour)
	points, err = repo.ListMetric(context.Background(), "hive-001", MetricTemperature, &from, &to)
	if err != nil {
		t.Fatalf("ListMetric bounded: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 points in window, got %d", len(points))
	}
	if points[0].Value != 31.0 || points[1].Value != 33.0 {
		t.Errorf("unexpected window values: %v", points)
	}
}

func TestListMetricEmptySeries(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	points, err := repo.ListMetric(context.Background(), "hive-001", MetricWeight, nil, nil)
	if err != nil {
		t.Fatalf("ListMetric: %v", err)
	}
	if len(points) != 0 {
		t.Fatalf("expected empty series, got %d points", len(points))
	}
}

func TestListMetricInvalidMetric(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	if _, err := repo.ListMetric(context.Background(), "hive-001", Metric("voltage"), nil, nil); !errors.Is(err, ErrInvalidMetric) {
		t.Fatalf("expected ErrInvalidMetric, got %v", err)
	}
}

func TestLatestMetric(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	storeReading(t, repo, "hive-001", base, ptr(30.0), nil)
	storeReading(t, repo, "hive-001", base.Add(time.Hour), ptr(31.5), nil)

	point, err := repo.LatestMetric(context.Background(), "hive-001", MetricTemperature)
	if err != nil {
		t.Fatalf("LatestMetric: %v", err)
	}
	if point.Value != 31.5 {
		t.Errorf("latest value: got %v, want 31.5", point.Value)
	}

	if _, err := repo.LatestMetric(context.Background(), "hive-001", MetricHiveFlow); !errors.Is(err, ErrStatusNotFound) {
		t.Fatalf("expected ErrStatusNotFound for empty series, got %v", err)
	}
}
