// Package api provides the HTTP REST API for the beehive telemetry
// backend.
//
// It exposes account registration and login, hive registry operations,
// sensor status readings, harvest events, and per-hive webhook
// subscriptions.
//
// The server follows the same lifecycle pattern as the other
// infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sc222rb/beehive-core/internal/auth"
	"github.com/sc222rb/beehive-core/internal/harvest"
	"github.com/sc222rb/beehive-core/internal/hive"
	"github.com/sc222rb/beehive-core/internal/infrastructure/config"
	"github.com/sc222rb/beehive-core/internal/infrastructure/influxdb"
	"github.com/sc222rb/beehive-core/internal/infrastructure/logging"
	"github.com/sc222rb/beehive-core/internal/status"
	"github.com/sc222rb/beehive-core/internal/webhook"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// UserStore is the account access the API needs. Satisfied by
// auth.SQLiteUserRepository.
type UserStore interface {
	Create(ctx context.Context, user *auth.User) error
	Authenticate(ctx context.Context, username, password string) (*auth.User, error)
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config        config.APIConfig
	Security      config.SecurityConfig
	Logger        *logging.Logger
	Users         UserStore
	Hives         hive.Repository
	Statuses      status.Repository
	Harvests      harvest.Repository
	Subscriptions webhook.Repository
	Dispatcher    *webhook.Dispatcher

	// Mirror is the optional InfluxDB time-series mirror; nil when
	// disabled.
	Mirror *influxdb.Client

	Production bool
	Version    string
}

// Server is the HTTP API server.
//
// It manages the HTTP listener, routes, and middleware. The server is
// created with New() and started with Start().
type Server struct {
	cfg           config.APIConfig
	secCfg        config.SecurityConfig
	logger        *logging.Logger
	users         UserStore
	hives         hive.Repository
	statuses      status.Repository
	harvests      harvest.Repository
	subscriptions webhook.Repository
	dispatcher    *webhook.Dispatcher
	mirror        *influxdb.Client
	production    bool
	version       string
	server        *http.Server
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Users == nil {
		return nil, fmt.Errorf("user store is required")
	}
	if deps.Hives == nil {
		return nil, fmt.Errorf("hive repository is required")
	}
	if deps.Statuses == nil {
		return nil, fmt.Errorf("status repository is required")
	}
	if deps.Harvests == nil {
		return nil, fmt.Errorf("harvest repository is required")
	}
	if deps.Subscriptions == nil {
		return nil, fmt.Errorf("subscription repository is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if deps.Security.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT secret is required")
	}

	return &Server{
		cfg:           deps.Config,
		secCfg:        deps.Security,
		logger:        deps.Logger,
		users:         deps.Users,
		hives:         deps.Hives,
		statuses:      deps.Statuses,
		harvests:      deps.Harvests,
		subscriptions: deps.Subscriptions,
		dispatcher:    deps.Dispatcher,
		mirror:        deps.Mirror,
		production:    deps.Production,
		version:       deps.Version,
	}, nil
}

// Start begins listening for HTTP connections.
//
// It builds the router and launches the HTTP listener in a background
// goroutine. The server can be stopped with Close().
func (s *Server) Start(_ context.Context) error {
	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
