package api

import (
	"net/http"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/grayrack/idc-core/internal/alerting"
	"github.com/grayrack/idc-core/internal/inventory"
	"github.com/grayrack/idc-core/internal/monitor"
	"github.com/grayrack/idc-core/internal/ticket"
)

const (
	defaultRecentAlerts = 5
	defaultTopUsage     = 5
	maxTopUsage         = 20
)

// dashboardStats is the combined overview returned by the dashboard
// landing endpoint. Each section is computed independently.
type dashboardStats struct {
	Servers *inventory.ServerStats `json:"servers"`
	Alerts  *alerting.HistoryStats `json:"alerts"`
	Tickets *ticket.Stats          `json:"tickets"`
	Assets  *inventory.AssetStats  `json:"assets"`
}

// topUsageEntry ranks one server by its latest reading of a metric.
type topUsageEntry struct {
	ServerID string  `json:"serverId"`
	Hostname string  `json:"hostname,omitempty"`
	Value    float64 `json:"value"`
}

// handleDashboardStats fans out the four aggregate queries concurrently
// and fails the whole response if any section fails.
func (s *Server) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	var stats dashboardStats

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		stats.Servers, err = s.servers.Stats(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		stats.Alerts, err = s.alerts.Stats(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		stats.Tickets, err = s.tickets.Stats(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		stats.Assets, err = s.assets.Stats(ctx)
		return err
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("dashboard stats failed", "error", err)
		writeInternalError(w, "failed to compute dashboard stats")
		return
	}

	writeSuccess(w, stats)
}

// handleDashboardServerStatus returns the online/offline/maintenance breakdown
// used by the dashboard status donut.
func (s *Server) handleDashboardServerStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.servers.Stats(r.Context())
	if err != nil {
		s.logger.Error("server status failed", "error", err)
		writeInternalError(w, "failed to compute server status")
		return
	}

	writeSuccess(w, stats)
}

// handleDashboardResourceTrend returns fleet-wide CPU/memory/disk averages over a
// lookback window for the dashboard resource chart.
func (s *Server) handleDashboardResourceTrend(w http.ResponseWriter, r *http.Request) {
	points, err := s.monitors.Trend(r.Context(), "", dashboardRange(r))
	if err != nil {
		s.logger.Error("resource trend failed", "error", err)
		writeInternalError(w, "failed to compute resource trend")
		return
	}

	writeSuccess(w, points)
}

// handleDashboardNetworkTrend returns fleet-wide network in/out averages. It
// shares the monitoring trend query; the client picks the network
// series out of each point.
func (s *Server) handleDashboardNetworkTrend(w http.ResponseWriter, r *http.Request) {
	points, err := s.monitors.Trend(r.Context(), "", dashboardRange(r))
	if err != nil {
		s.logger.Error("network trend failed", "error", err)
		writeInternalError(w, "failed to compute network trend")
		return
	}

	writeSuccess(w, points)
}

// handleDashboardRecentAlerts returns the newest alert records for the dashboard
// feed. The limit query caps the count and defaults to 5.
func (s *Server) handleDashboardRecentAlerts(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit")
	if limit <= 0 {
		limit = defaultRecentAlerts
	}

	alerts, err := s.alerts.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("recent alerts failed", "error", err)
		writeInternalError(w, "failed to list recent alerts")
		return
	}

	writeSuccess(w, alerts)
}

// handleDashboardTopUsage ranks servers by their latest reading of one
// metric (cpu, memory or disk; default cpu), highest first.
func (s *Server) handleDashboardTopUsage(w http.ResponseWriter, r *http.Request) {
	metric := r.URL.Query().Get("metric")
	if metric == "" {
		metric = "cpu"
	}
	if metric != "cpu" && metric != "memory" && metric != "disk" {
		writeBadRequest(w, "invalid metric, expected one of: cpu, memory, disk")
		return
	}

	limit := queryInt(r, "limit")
	if limit <= 0 {
		limit = defaultTopUsage
	}
	if limit > maxTopUsage {
		limit = maxTopUsage
	}

	samples, err := s.monitors.LatestPerServer(r.Context())
	if err != nil {
		s.logger.Error("top resource usage failed", "error", err)
		writeInternalError(w, "failed to rank resource usage")
		return
	}

	entries := make([]topUsageEntry, 0, len(samples))
	for i := range samples {
		sm := &samples[i]
		var value float64
		switch metric {
		case "memory":
			value = sm.MemoryUsage
		case "disk":
			value = sm.DiskUsage
		default:
			value = sm.CPUUsage
		}
		entries = append(entries, topUsageEntry{ServerID: sm.ServerID, Value: value})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Value > entries[j].Value })
	if len(entries) > limit {
		entries = entries[:limit]
	}

	// Resolve hostnames for the short ranked list only. A server deleted
	// since its last sample simply keeps an empty hostname.
	for i := range entries {
		srv, err := s.servers.GetByID(r.Context(), entries[i].ServerID)
		if err != nil {
			continue
		}
		entries[i].Hostname = srv.Hostname
	}

	writeSuccess(w, entries)
}

// handleDashboardAlertTrend returns per-day alert counts by severity for the
// dashboard alert chart.
func (s *Server) handleDashboardAlertTrend(w http.ResponseWriter, r *http.Request) {
	points, err := s.alerts.Trend(r.Context())
	if err != nil {
		s.logger.Error("alert trend failed", "error", err)
		writeInternalError(w, "failed to compute alert trend")
		return
	}

	writeSuccess(w, points)
}

// dashboardRange reads an optional range query, defaulting to 24h.
func dashboardRange(r *http.Request) monitor.TrendRange {
	switch tr := monitor.TrendRange(r.URL.Query().Get("range")); tr {
	case monitor.Range1h, monitor.Range24h, monitor.Range7d, monitor.Range30d:
		return tr
	default:
		return monitor.Range24h
	}
}
