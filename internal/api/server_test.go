package api

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sc222rb/beehive-core/internal/auth"
	"github.com/sc222rb/beehive-core/internal/harvest"
	"github.com/sc222rb/beehive-core/internal/hive"
	"github.com/sc222rb/beehive-core/internal/infrastructure/config"
	"github.com/sc222rb/beehive-core/internal/infrastructure/logging"
	"github.com/sc222rb/beehive-core/internal/status"
	"github.com/sc222rb/beehive-core/internal/webhook"
)

const testSecret = "test-secret-key-at-least-32-characters-long"

// setupTestDB creates an in-memory SQLite database with the full schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	// Every pooled connection gets its own :memory: database, so keep
	// the pool at one to share the schema across goroutines.
	db.SetMaxOpenConns(1)

	schema := `
		CREATE TABLE users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		) STRICT;

		CREATE TABLE hives (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			location TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		) STRICT;

		CREATE TABLE statuses (
			id TEXT PRIMARY KEY,
			hive_id TEXT NOT NULL,
			humidity REAL,
			weight REAL,
			temperature REAL,
			hive_flow REAL,
			timestamp TEXT NOT NULL,
			created_at TEXT NOT NULL,
			FOREIGN KEY (hive_id) REFERENCES hives(id) ON DELETE CASCADE
		) STRICT;

		CREATE TABLE harvests (
			id TEXT PRIMARY KEY,
			hive_id TEXT NOT NULL,
			amount REAL NOT NULL,
			created_at TEXT NOT NULL,
			FOREIGN KEY (hive_id) REFERENCES hives(id) ON DELETE CASCADE
		) STRICT;

		CREATE TABLE subscriptions (
			id TEXT PRIMARY KEY,
			hive_id TEXT NOT NULL,
			post_url TEXT NOT NULL,
			created_at TEXT NOT NULL
		) STRICT;
	`

	if _, execErr := db.Exec(schema); execErr != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", execErr)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// testServer creates a Server backed by in-memory SQLite.
func testServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()

	db := setupTestDB(t)
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")

	subscriptionRepo := webhook.NewRepository(db)
	dispatcher := webhook.NewDispatcher(subscriptionRepo, 2*time.Second, log)

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host: "127.0.0.1",
			Port: 0,
			Timeouts: config.APITimeoutConfig{
				Read:  5,
				Write: 5,
				Idle:  5,
			},
		},
		Security: config.SecurityConfig{
			JWT: config.JWTConfig{
				Secret:          testSecret,
				AccessTokenLife: "3600",
			},
		},
		Logger:        log,
		Users:         auth.NewUserRepository(db),
		Hives:         hive.NewRepository(db),
		Statuses:      status.NewRepository(db),
		Harvests:      harvest.NewRepository(db),
		Subscriptions: subscriptionRepo,
		Dispatcher:    dispatcher,
		Version:       "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	return srv, srv.buildRouter()
}

// bearerToken issues a valid access token for a synthetic user.
func bearerToken(t *testing.T) string {
	t.Helper()

	token, err := auth.EncodeUser(&auth.User{ID: "usr-test0001", Username: "tester"}, testSecret, "3600")
	if err != nil {
		t.Fatalf("EncodeUser: %v", err)
	}
	return "Bearer " + token
}

func doRequest(t *testing.T, router http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response %q: %v", w.Body.String(), err)
	}
	return resp
}

// createTestHive registers a hive through the API and returns its ID.
func createTestHive(t *testing.T, router http.Handler, token string) string {
	t.Helper()

	w := doRequest(t, router, http.MethodPost, "/api/v1/hives", token, `{"name":"North Field"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create hive: status %d, body %s", w.Code, w.Body.String())
	}
	id, _ := decodeBody(t, w)["id"].(string)
	if id == "" {
		t.Fatal("create hive: no id in response")
	}
	return id
}

func TestHealth(t *testing.T) {
	_, router := testServer(t)

	w := doRequest(t, router, http.MethodGet, "/api/v1/health", "", "")
	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want %d", w.Code, http.StatusOK)
	}

	resp := decodeBody(t, w)
	if resp["status"] != "ok" {
		t.Errorf("health body = %v", resp)
	}
}

func TestAuthGateRejections(t *testing.T) {
	srv, _ := testServer(t)

	// The gate must reject before the downstream handler runs.
	invoked := false
	gate := srv.authMiddleware(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		invoked = true
	}))

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"wrong scheme", "Basic dXNlcjpwYXNz"},
		{"lowercase bearer", "bearer sometoken"},
		{"bearer without token", "Bearer"},
		{"garbage token", "Bearer not.a.token"},
		{"wrong secret", mustSign(t, "another-secret-key-32-characters-xx")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			invoked = false

			req := httptest.NewRequest(http.MethodGet, "/api/v1/hives", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			gate.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
			if invoked {
				t.Error("downstream handler was invoked")
			}

			// The body must not reveal which check failed.
			resp := decodeBody(t, w)
			if resp["message"] != unauthorizedMessage {
				t.Errorf("message = %q, want uniform %q", resp["message"], unauthorizedMessage)
			}
		})
	}
}

func TestAuthGatePassesIdentityDownstream(t *testing.T) {
	srv, _ := testServer(t)

	var got *auth.Identity
	gate := srv.authMiddleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = IdentityFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/hives", nil)
	req.Header.Set("Authorization", bearerToken(t))
	w := httptest.NewRecorder()
	gate.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got == nil {
		t.Fatal("downstream handler saw no identity")
	}
	if got.ID != "usr-test0001" || got.Username != "tester" {
		t.Errorf("identity = %+v", got)
	}
}

// mustSign returns a Bearer header for a token signed with the given secret.
func mustSign(t *testing.T, secret string) string {
	t.Helper()

	token, err := auth.EncodeUser(&auth.User{ID: "usr-x", Username: "x"}, secret, "3600")
	if err != nil {
		t.Fatalf("EncodeUser: %v", err)
	}
	return "Bearer " + token
}

func TestRegisterValidation(t *testing.T) {
	_, router := testServer(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"valid", `{"username":"beekeeper","password":"a long enough password"}`, http.StatusCreated},
		{"duplicate", `{"username":"beekeeper","password":"a long enough password"}`, http.StatusConflict},
		{"bad username", `{"username":"1bee","password":"a long enough password"}`, http.StatusBadRequest},
		{"short password", `{"username":"another","password":"short"}`, http.StatusBadRequest},
		{"malformed body", `{"username":`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		w := doRequest(t, router, http.MethodPost, "/api/v1/auth/register", "", tt.body)
		if w.Code != tt.want {
			t.Errorf("%s: status = %d, want %d (body %s)", tt.name, w.Code, tt.want, w.Body.String())
		}
	}
}

func TestRegisterNeverLeaksHash(t *testing.T) {
	_, router := testServer(t)

	w := doRequest(t, router, http.MethodPost, "/api/v1/auth/register", "",
		`{"username":"beekeeper","password":"a long enough password"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("register: status %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "password") || strings.Contains(w.Body.String(), "hash") {
		t.Errorf("register response leaks credential material: %s", w.Body.String())
	}
}

func TestLoginFlow(t *testing.T) {
	_, router := testServer(t)

	w := doRequest(t, router, http.MethodPost, "/api/v1/auth/register", "",
		`{"username":"beekeeper","password":"a long enough password"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("register: status %d", w.Code)
	}

	// Unknown user and wrong password produce the same 401.
	for _, body := range []string{
		`{"username":"nobody","password":"a long enough password"}`,
		`{"username":"beekeeper","password":"not the password!"}`,
	} {
		w = doRequest(t, router, http.MethodPost, "/api/v1/auth/login", "", body)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("login failure: status = %d, want 401", w.Code)
		}
	}

	w = doRequest(t, router, http.MethodPost, "/api/v1/auth/login", "",
		`{"username":"beekeeper","password":"a long enough password"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("login: status %d, body %s", w.Code, w.Body.String())
	}

	token, _ := decodeBody(t, w)["access_token"].(string)
	if token == "" {
		t.Fatal("login response missing access_token")
	}

	// The token works on protected routes.
	w = doRequest(t, router, http.MethodGet, "/api/v1/hives", "Bearer "+token, "")
	if w.Code != http.StatusOK {
		t.Errorf("authenticated list hives: status = %d, want 200", w.Code)
	}
}

func TestHiveCRUD(t *testing.T) {
	_, router := testServer(t)
	token := bearerToken(t)

	id := createTestHive(t, router, token)

	w := doRequest(t, router, http.MethodGet, "/api/v1/hives/"+id, token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get hive: status %d", w.Code)
	}
	if decodeBody(t, w)["name"] != "North Field" {
		t.Errorf("get hive body: %s", w.Body.String())
	}

	w = doRequest(t, router, http.MethodPut, "/api/v1/hives/"+id, token,
		`{"name":"South Field","location":"orchard"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("update hive: status %d", w.Code)
	}

	w = doRequest(t, router, http.MethodPost, "/api/v1/hives", token, `{"location":"nameless"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("create hive without name: status = %d, want 400", w.Code)
	}

	w = doRequest(t, router, http.MethodDelete, "/api/v1/hives/"+id, token, "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete hive: status %d", w.Code)
	}

	w = doRequest(t, router, http.MethodGet, "/api/v1/hives/"+id, token, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("get deleted hive: status = %d, want 404", w.Code)
	}
}

func TestNestedRoutesUnknownHive(t *testing.T) {
	_, router := testServer(t)
	token := bearerToken(t)

	paths := []string{
		"/api/v1/hives/hive-missing/statuses",
		"/api/v1/hives/hive-missing/harvests",
		"/api/v1/hives/hive-missing/harvests/webhooks",
	}
	for _, path := range paths {
		w := doRequest(t, router, http.MethodGet, path, token, "")
		if w.Code != http.StatusNotFound {
			t.Errorf("%s: status = %d, want 404", path, w.Code)
		}
	}
}

func TestStatusEndpoints(t *testing.T) {
	_, router := testServer(t)
	token := bearerToken(t)
	id := createTestHive(t, router, token)

	w := doRequest(t, router, http.MethodPost, "/api/v1/hives/"+id+"/statuses", token,
		`{"temperature":34.5,"humidity":55.0,"timestamp":"2026-06-01T12:00:00Z"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status: status %d, body %s", w.Code, w.Body.String())
	}
	statusID, _ := decodeBody(t, w)["id"].(string)

	w = doRequest(t, router, http.MethodPost, "/api/v1/hives/"+id+"/statuses", token, `{}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty reading: status = %d, want 400", w.Code)
	}

	w = doRequest(t, router, http.MethodGet, "/api/v1/hives/"+id+"/statuses", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("list statuses: status %d", w.Code)
	}

	w = doRequest(t, router, http.MethodGet, "/api/v1/hives/"+id+"/statuses/"+statusID, token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get status: status %d", w.Code)
	}

	// Series with data.
	w = doRequest(t, router, http.MethodGet, "/api/v1/hives/"+id+"/statuses/temperature", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("temperature series: status %d, body %s", w.Code, w.Body.String())
	}
	resp := decodeBody(t, w)
	if resp["count"] != float64(1) {
		t.Errorf("temperature series count: %v", resp["count"])
	}

	// Empty series is a 404.
	w = doRequest(t, router, http.MethodGet, "/api/v1/hives/"+id+"/statuses/weight", token, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("empty weight series: status = %d, want 404", w.Code)
	}

	// Out-of-window series is a 404.
	w = doRequest(t, router, http.MethodGet,
		"/api/v1/hives/"+id+"/statuses/temperature?from=2027-01-01T00:00:00Z", token, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("out-of-window series: status = %d, want 404", w.Code)
	}

	// Malformed bound is a 400.
	w = doRequest(t, router, http.MethodGet,
		"/api/v1/hives/"+id+"/statuses/temperature?from=yesterday", token, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("malformed from: status = %d, want 400", w.Code)
	}
}

func TestLatestStatusSnapshot(t *testing.T) {
	_, router := testServer(t)
	token := bearerToken(t)
	id := createTestHive(t, router, token)

	// A hive with no readings has no snapshot.
	w := doRequest(t, router, http.MethodGet, "/api/v1/hives/"+id+"/statuses/latest", token, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("latest without readings: status = %d, want 404", w.Code)
	}

	for _, body := range []string{
		`{"temperature":30.0,"timestamp":"2026-06-01T12:00:00Z"}`,
		`{"temperature":34.5,"humidity":55.0,"timestamp":"2026-06-02T12:00:00Z"}`,
	} {
		w = doRequest(t, router, http.MethodPost, "/api/v1/hives/"+id+"/statuses", token, body)
		if w.Code != http.StatusCreated {
			t.Fatalf("create status: status %d, body %s", w.Code, w.Body.String())
		}
	}

	w = doRequest(t, router, http.MethodGet, "/api/v1/hives/"+id+"/statuses/latest", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("latest: status %d, body %s", w.Code, w.Body.String())
	}

	resp := decodeBody(t, w)
	temperature, ok := resp["temperature"].(map[string]any)
	if !ok {
		t.Fatalf("snapshot missing temperature: %s", w.Body.String())
	}
	if temperature["value"] != 34.5 {
		t.Errorf("latest temperature = %v, want 34.5", temperature["value"])
	}
	if _, ok := resp["humidity"]; !ok {
		t.Errorf("snapshot missing humidity: %s", w.Body.String())
	}
	if _, ok := resp["weight"]; ok {
		t.Errorf("snapshot reports weight the hive never sent: %s", w.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := testServer(t)
	srv.cfg.CORS.AllowedOrigins = []string{"https://app.example.com"}

	reached := false
	handler := srv.corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	}))

	// Preflight from an allowed origin short-circuits with 204.
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/hives", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("allowed preflight: status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("allowed preflight: Access-Control-Allow-Origin = %q", got)
	}
	if reached {
		t.Error("allowed preflight reached the handler")
	}

	// A disallowed origin gets no CORS headers and no 204.
	reached = false
	req = httptest.NewRequest(http.MethodOptions, "/api/v1/hives", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code == http.StatusNoContent {
		t.Error("disallowed preflight: got 204")
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("disallowed preflight: Access-Control-Allow-Origin = %q", got)
	}
	if !reached {
		t.Error("disallowed preflight never reached the router")
	}
}

func TestWebhookEndpoints(t *testing.T) {
	_, router := testServer(t)
	token := bearerToken(t)
	id := createTestHive(t, router, token)

	base := "/api/v1/hives/" + id + "/harvests/webhooks"

	w := doRequest(t, router, http.MethodPost, base, token, `{}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("subscribe without postUrl: status = %d, want 400", w.Code)
	}

	w = doRequest(t, router, http.MethodPost, base, token, `{"postUrl":"https://example.com/hook"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("subscribe: status %d, body %s", w.Code, w.Body.String())
	}

	w = doRequest(t, router, http.MethodGet, base, token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("list webhooks: status %d", w.Code)
	}
	if decodeBody(t, w)["count"] != float64(1) {
		t.Errorf("webhook count: %s", w.Body.String())
	}

	// Unsubscribe is idempotent.
	for i := 0; i < 2; i++ {
		w = doRequest(t, router, http.MethodDelete, base, token, "")
		if w.Code != http.StatusNoContent {
			t.Errorf("unsubscribe #%d: status = %d, want 204", i+1, w.Code)
		}
	}
}

func TestHarvestCreateDispatchesWebhooks(t *testing.T) {
	_, router := testServer(t)
	token := bearerToken(t)
	id := createTestHive(t, router, token)

	received := make(chan map[string]any, 1)
	subscriber := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var event map[string]any
		if err := json.NewDecoder(r.Body).Decode(&event); err == nil {
			received <- event
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(subscriber.Close)

	w := doRequest(t, router, http.MethodPost, "/api/v1/hives/"+id+"/harvests/webhooks", token,
		`{"postUrl":"`+subscriber.URL+`"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("subscribe: status %d", w.Code)
	}

	w = doRequest(t, router, http.MethodPost, "/api/v1/hives/"+id+"/harvests", token, `{"harvest":12.5}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create harvest: status %d, body %s", w.Code, w.Body.String())
	}

	select {
	case event := <-received:
		if event["eventType"] != "new_harvest" {
			t.Errorf("event type: %v", event["eventType"])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for webhook delivery")
	}

	w = doRequest(t, router, http.MethodPost, "/api/v1/hives/"+id+"/harvests", token, `{"harvest":0}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("zero harvest: status = %d, want 400", w.Code)
	}

	w = doRequest(t, router, http.MethodGet, "/api/v1/hives/"+id+"/harvests", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("list harvests: status %d", w.Code)
	}
	if decodeBody(t, w)["count"] != float64(1) {
		t.Errorf("harvest count: %s", w.Body.String())
	}
}
