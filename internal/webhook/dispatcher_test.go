package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sc222rb/beehive-core/internal/infrastructure/logging"
)

// subscriberRecorder is one fake webhook endpoint.
type subscriberRecorder struct {
	server *httptest.Server
	hits   atomic.Int64
	events chan Event
	status int
}

func newSubscriberRecorder(t *testing.T, status int) *subscriberRecorder {
	t.Helper()

	rec := &subscriberRecorder{
		events: make(chan Event, 10),
		status: status,
	}
	rec.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.hits.Add(1)

		if r.Method != http.MethodPost {
			t.Errorf("subscriber got method %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("subscriber got content type %q, want application/json", ct)
		}

		var event Event
		if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
			t.Errorf("subscriber got undecodable body: %v", err)
		} else {
			rec.events <- event
		}

		w.WriteHeader(rec.status)
	}))
	t.Cleanup(rec.server.Close)

	return rec
}

func (r *subscriberRecorder) waitEvent(t *testing.T) Event {
	t.Helper()

	select {
	case event := <-r.events:
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for webhook delivery")
		return Event{}
	}
}

func newTestDispatcher(t *testing.T, repo Repository) *Dispatcher {
	t.Helper()
	return NewDispatcher(repo, 2*time.Second, logging.Default())
}

func TestNotifyFanOut(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	// B fails with a 500; A and C must still be delivered to.
	a := newSubscriberRecorder(t, http.StatusOK)
	b := newSubscriberRecorder(t, http.StatusInternalServerError)
	c := newSubscriberRecorder(t, http.StatusOK)

	for _, rec := range []*subscriberRecorder{a, b, c} {
		sub := &Subscription{HiveID: "hive-001", PostURL: rec.server.URL}
		if err := repo.Create(context.Background(), sub); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	payload := map[string]any{"id": "hrv-001", "harvest": 12.5}
	newTestDispatcher(t, repo).Notify(context.Background(), "hive-001", payload)

	for name, rec := range map[string]*subscriberRecorder{"A": a, "B": b, "C": c} {
		if hits := rec.hits.Load(); hits != 1 {
			t.Errorf("subscriber %s: got %d deliveries, want exactly 1", name, hits)
		}
		event := rec.waitEvent(t)
		if event.EventType != EventNewHarvest {
			t.Errorf("subscriber %s: event type %q, want %q", name, event.EventType, EventNewHarvest)
		}
		if event.Data == nil {
			t.Errorf("subscriber %s: event data missing", name)
		}
	}
}

func TestNotifyNoSubscribers(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	rec := newSubscriberRecorder(t, http.StatusOK)
	sub := &Subscription{HiveID: "hive-other", PostURL: rec.server.URL}
	if err := repo.Create(context.Background(), sub); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// hive-001 has no subscriptions; dispatch completes silently.
	newTestDispatcher(t, repo).Notify(context.Background(), "hive-001", map[string]any{"id": "hrv-001"})

	if hits := rec.hits.Load(); hits != 0 {
		t.Errorf("unrelated subscriber received %d deliveries, want 0", hits)
	}
}

func TestNotifyUnreachableSubscriber(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	down := newSubscriberRecorder(t, http.StatusOK)
	downURL := down.server.URL
	down.server.Close()

	up := newSubscriberRecorder(t, http.StatusOK)

	for _, url := range []string{downURL, up.server.URL} {
		if err := repo.Create(context.Background(), &Subscription{HiveID: "hive-001", PostURL: url}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	newTestDispatcher(t, repo).Notify(context.Background(), "hive-001", map[string]any{"id": "hrv-001"})

	if hits := up.hits.Load(); hits != 1 {
		t.Errorf("reachable subscriber: got %d deliveries, want 1", hits)
	}
}

// failingRepository always errors on ListByHive.
type failingRepository struct{}

func (failingRepository) Create(context.Context, *Subscription) error { return nil }
func (failingRepository) ListByHive(context.Context, string) ([]Subscription, error) {
	return nil, fmt.Errorf("storage offline")
}
func (failingRepository) DeleteByHive(context.Context, string) (int64, error) { return 0, nil }

func TestNotifyListFailureAborts(t *testing.T) {
	// A listing failure must not panic or retry; it logs and returns.
	newTestDispatcher(t, failingRepository{}).Notify(context.Background(), "hive-001", nil)
}
