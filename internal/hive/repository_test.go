package hive

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the hives table.
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
		CREATE TABLE hives (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			location TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
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

func TestHiveCreateAndGet(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	h := &Hive{Name: "North Field", Location: "behind the barn"}
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
	if got.Name != "North Field" {
		t.Errorf("name: got %q, want %q", got.Name, "North Field")
	}
	if got.Location != "behind the barn" {
		t.Errorf("location: got %q, want %q", got.Location, "behind the barn")
	}
}

func TestHiveCreateRequiresName(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	if err := repo.Create(context.Background(), &Hive{}); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
}

func TestHiveList(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	for _, name := range []string{"Alpha", "Beta", "Gamma"} {
		if err := repo.Create(context.Background(), &Hive{Name: name}); err != nil {
			t.Fatalf("Create %q: %v", name, err)
		}
	}

	hives, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(hives) != 3 {
		t.Fatalf("expected 3 hives, got %d", len(hives))
	}
}

func TestHiveUpdate(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	h := &Hive{Name: "Old Name"}
	if err := repo.Create(context.Background(), h); err != nil {
		t.Fatalf("Create: %v", err)
	}

	h.Name = "New Name"
	h.Location = "orchard"
	if err := repo.Update(context.Background(), h); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := repo.GetByID(context.Background(), h.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "New Name" || got.Location != "orchard" {
		t.Errorf("got %q/%q, want %q/%q", got.Name, got.Location, "New Name", "orchard")
	}
}

func TestHiveDelete(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	h := &Hive{Name: "Doomed"}
	if err := repo.Create(context.Background(), h); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := repo.Delete(context.Background(), h.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := repo.GetByID(context.Background(), h.ID); !errors.Is(err, ErrHiveNotFound) {
		t.Fatalf("expected ErrHiveNotFound after delete, got %v", err)
	}
}

func TestHiveDeleteMissing(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	if err := repo.Delete(context.Background(), "hive-missing"); !errors.Is(err, ErrHiveNotFound) {
		t.Fatalf("expected ErrHiveNotFound, got %v", err)
	}
}
