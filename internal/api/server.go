// Package api provides the HTTP REST API and WebSocket server for IDC Core.
//
// It exposes authentication, asset and server inventory, monitoring,
// alerting, ticket, and dashboard endpoints to the admin console, plus a
// WebSocket channel for real-time telemetry fan-out.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/grayrack/idc-core/internal/alerting"
	"github.com/grayrack/idc-core/internal/auth"
	"github.com/grayrack/idc-core/internal/infrastructure/config"
	"github.com/grayrack/idc-core/internal/infrastructure/logging"
	"github.com/grayrack/idc-core/internal/inventory"
	"github.com/grayrack/idc-core/internal/monitor"
	"github.com/grayrack/idc-core/internal/ticket"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config      *config.Config
	Logger      *logging.Logger
	DB          *sql.DB
	Users       auth.UserRepository
	Tokens      *auth.TokenService
	Servers     inventory.ServerRepository
	Groups      inventory.GroupRepository
	Assets      inventory.AssetRepository
	Monitors    monitor.Repository
	Rules       alerting.RuleRepository
	Alerts      alerting.HistoryRepository
	Tickets     ticket.Repository
	ExternalHub *Hub // If set, the server uses this hub instead of creating its own
	Version     string
}

// Server is the HTTP API server for IDC Core.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg         *config.Config
	logger      *logging.Logger
	db          *sql.DB
	users       auth.UserRepository
	tokens      *auth.TokenService
	servers     inventory.ServerRepository
	groups      inventory.GroupRepository
	assets      inventory.AssetRepository
	monitors    monitor.Repository
	rules       alerting.RuleRepository
	alerts      alerting.HistoryRepository
	tickets     ticket.Repository
	version     string
	server      *http.Server
	hub         *Hub
	externalHub bool               // true if hub was injected externally
	limiter     *rateLimiter       // nil when rate limiting is disabled
	cancel      context.CancelFunc // cancels background goroutines on Close()
	started     time.Time
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if deps.Tokens == nil {
		return nil, fmt.Errorf("token service is required")
	}

	s := &Server{
		cfg:      deps.Config,
		logger:   deps.Logger,
		db:       deps.DB,
		users:    deps.Users,
		tokens:   deps.Tokens,
		servers:  deps.Servers,
		groups:   deps.Groups,
		assets:   deps.Assets,
		monitors: deps.Monitors,
		rules:    deps.Rules,
		alerts:   deps.Alerts,
		tickets:  deps.Tickets,
		version:  deps.Version,
	}

	// Use an externally-provided hub when the telemetry pipeline also needs
	// it for broadcasting outside the request path.
	if deps.ExternalHub != nil {
		s.hub = deps.ExternalHub
		s.externalHub = true
	}

	if deps.Config.Security.RateLimit.Enabled {
		s.limiter = newRateLimiter(
			deps.Config.Security.RateLimit.Window(),
			deps.Config.Security.RateLimit.MaxRequests,
		)
	}

	return s, nil
}

// Hub returns the server's WebSocket hub. It is non-nil only after Start()
// unless an external hub was injected.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub, and launches the HTTP
// listener in a background goroutine. The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	// Internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.hub == nil {
		s.hub = NewHub(s.cfg.WebSocket, s.logger)
		go s.hub.Run(srvCtx)
	}

	if s.limiter != nil {
		go s.limiter.cleanupLoop(srvCtx)
	}

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       s.cfg.GetReadTimeout(),
		ReadHeaderTimeout: s.cfg.GetReadTimeout(),
		WriteTimeout:      s.cfg.GetWriteTimeout(),
		IdleTimeout:       s.cfg.GetIdleTimeout(),
	}
	s.started = time.Now()

	go func() {
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	s.logger.Info("API server started", "address", s.server.Addr)
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

	// Stop background goroutines (hub, rate-limiter cleanup).
	if s.cancel != nil {
		s.cancel()
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
