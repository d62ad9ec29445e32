package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)
	r.Use(s.rateLimitMiddleware)

	// Health check (no auth required)
	r.Get("/health", s.handleHealth)

	// WebSocket: authenticated-or-not, token via header or query param.
	// Mounted at the configured path (default /api/ws).
	wsPath := s.cfg.WebSocket.Path
	if wsPath == "" {
		wsPath = defaultWebSocketPath
	}
	r.With(s.optionalAuth).Get(wsPath, s.handleWebSocket)

	r.Route("/api", func(r chi.Router) {
		// Auth endpoints (no auth required)
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/refresh", s.handleRefresh)
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/reset-password", s.handleResetPassword)

		// Logout reads the bearer token when present but never rejects.
		r.With(s.optionalAuth).Post("/auth/logout", s.handleLogout)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Get("/auth/me", s.handleMe)
			r.Put("/auth/profile", s.handleUpdateProfile)
			r.Put("/auth/password", s.handleChangePassword)

			// System metrics (runtime, ws, db)
			r.Get("/system/metrics", s.handleSystemMetrics)

			// User administration
			r.Route("/users", func(r chi.Router) {
				r.Use(s.requireAdmin)
				r.Get("/", s.handleListUsers)
				r.Post("/", s.handleCreateUser)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetUser)
					r.Put("/", s.handleUpdateUser)
					r.Delete("/", s.handleDeleteUser)
					r.Put("/password", s.handleAdminResetPassword)
				})
			})

			// Server inventory
			r.Route("/servers", func(r chi.Router) {
				r.Get("/", s.handleListServers)
				r.Post("/", s.handleCreateServer)
				r.Get("/stats", s.handleServerStats)
				r.Post("/batch-delete", s.handleBatchDeleteServers)

				r.Route("/groups", func(r chi.Router) {
					r.Get("/", s.handleListGroups)
					r.Post("/", s.handleCreateGroup)
					r.Delete("/{id}", s.handleDeleteGroup)
				})

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetServer)
					r.Put("/", s.handleUpdateServer)
					r.Delete("/", s.handleDeleteServer)
				})
			})

			// Alert rules and history
			r.Route("/alerts", func(r chi.Router) {
				r.Route("/rules", func(r chi.Router) {
					r.Get("/", s.handleListRules)
					r.Post("/", s.handleCreateRule)
					r.Route("/{id}", func(r chi.Router) {
						r.Get("/", s.handleGetRule)
						r.Put("/", s.handleUpdateRule)
						r.Delete("/", s.handleDeleteRule)
						r.Patch("/toggle", s.handleToggleRule)
					})
				})

				r.Route("/history", func(r chi.Router) {
					r.Get("/", s.handleListAlerts)
					r.Get("/stats", s.handleAlertStats)
					r.Get("/trend", s.handleAlertTrend)
					r.Post("/batch-resolve", s.handleBatchResolveAlerts)
					r.Route("/{id}", func(r chi.Router) {
						r.Get("/", s.handleGetAlert)
						r.Delete("/", s.handleDeleteAlert)
						r.Patch("/resolve", s.handleResolveAlert)
					})
				})
			})

			// Monitoring samples
			r.Route("/monitors", func(r chi.Router) {
				r.Get("/stats", s.handleMonitorStats)
				r.Get("/trend", s.handleMonitorTrend)
				r.Post("/batch-latest", s.handleBatchLatest)
				r.Get("/{serverId}", s.handleListSamples)
				r.Get("/{serverId}/latest", s.handleLatestSample)
				r.Get("/{serverId}/export", s.handleExportSamples)
			})

			// Dashboard aggregates
			r.Route("/dashboard", func(r chi.Router) {
				r.Get("/stats", s.handleDashboardStats)
				r.Get("/server-status", s.handleDashboardServerStatus)
				r.Get("/resource-trend", s.handleDashboardResourceTrend)
				r.Get("/network-trend", s.handleDashboardNetworkTrend)
				r.Get("/recent-alerts", s.handleDashboardRecentAlerts)
				r.Get("/top-resource-usage", s.handleDashboardTopUsage)
				r.Get("/alert-trend", s.handleDashboardAlertTrend)
			})

			// Tickets
			r.Route("/tickets", func(r chi.Router) {
				r.Get("/", s.handleListTickets)
				r.Post("/", s.handleCreateTicket)
				r.Get("/stats", s.handleTicketStats)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetTicket)
					r.Put("/", s.handleUpdateTicket)
					r.Delete("/", s.handleDeleteTicket)
				})
			})

			// Assets
			r.Route("/assets", func(r chi.Router) {
				r.Get("/", s.handleListAssets)
				r.Post("/", s.handleCreateAsset)
				r.Get("/stats", s.handleAssetStats)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetAsset)
					r.Put("/", s.handleUpdateAsset)
					r.Delete("/", s.handleDeleteAsset)
				})
			})
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
