package harvest

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the harvests table.
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
		CREATE TABLE harvests (
			id TEXT PRIMARY KEY,
			hive_id TEXT NOT NULL,
			amount REAL NOT NULL,
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

func TestHarvestCreateAndGet(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	h := &Harvest{HiveID: "hive-001", Amount: 12.5}
	if err := repo.Create(context.Background(), h); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if h.ID == "" {
		t.Fatal("Create did not assign an ID")
	}

	got, err := repo.GetByID(context.Background(), h.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Amount != 12.5 {
		t.Errorf("amount: got %v, want 12.5", got.Amount)
	}
	if got.HiveID != "hive-001" {
		t.Errorf("hive ID: got %q, want %q", got.HiveID, "hive-001")
	}
}

func TestHarvestCreateRequiresPositiveAmount(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	for _, amount := range []float64{0, -3.5} {
		err := repo.Create(context.Background(), &Harvest{HiveID: "hive-001", Amount: amount})
		if !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("amount %v: expected ErrInvalidAmount, got %v", amount, err)
		}
	}
}

func TestHarvestGetNotFound(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	if _, err := repo.GetByID(context.Background(), "hrv-missing"); !errors.Is(err, ErrHarvestNotFound) {
		t.Fatalf("expected ErrHarvestNotFound, got %v", err)
	}
}

func TestHarvestListByHive(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	for _, amount := range []float64{5, 7.5, 10} {
		if err := repo.Create(context.Background(), &Harvest{HiveID: "hive-001", Amount: amount}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	if err := repo.Create(context.Background(), &Harvest{HiveID: "hive-002", Amount: 1}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	harvests, err := repo.ListByHive(context.Background(), "hive-001")
	if err != nil {
		t.Fatalf("ListByHive: %v", err)
	}
	if len(harvests) != 3 {
		t.Fatalf("expected 3 harvests, got %d", len(harvests))
	}

	empty, err := repo.ListByHive(context.Background(), "hive-none")
	if err != nil {
		t.Fatalf("ListByHive empty: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected no harvests, got %d", len(empty))
	}
}
