package api

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/grayrack/idc-core/internal/monitor"
)

type batchLatestRequest struct {
	ServerIDs []string `json:"serverIds"`
}

// handleListSamples returns a paginated page of monitoring samples for
// one server, optionally bounded by startTime/endTime (RFC 3339).
// Sample pages default to 100 rows, not the inventory default of 10.
func (s *Server) handleListSamples(w http.ResponseWriter, r *http.Request) {
	page, pageSize := monitor.NormalisePage(queryInt(r, "page"), queryInt(r, "pageSize"))
	filter := monitor.SampleFilter{
		ServerID:  chi.URLParam(r, "serverId"),
		StartTime: queryTime(r, "startTime"),
		EndTime:   queryTime(r, "endTime"),
		Page:      page,
		PageSize:  pageSize,
	}

	samples, total, err := s.monitors.ListByServer(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing samples failed", "error", err, "server_id", filter.ServerID)
		writeInternalError(w, "failed to list monitoring data")
		return
	}

	writeList(w, samples, total, filter.Page, filter.PageSize)
}

// handleLatestSample returns the most recent sample for one server.
func (s *Server) handleLatestSample(w http.ResponseWriter, r *http.Request) {
	serverID := chi.URLParam(r, "serverId")

	sample, err := s.monitors.Latest(r.Context(), serverID)
	if err != nil {
		if errors.Is(err, monitor.ErrNoSamples) {
			writeNotFound(w, "no monitoring data for server")
			return
		}
		s.logger.Error("fetching latest sample failed", "error", err, "server_id", serverID)
		writeInternalError(w, "failed to fetch monitoring data")
		return
	}

	writeSuccess(w, sample)
}

// handleBatchLatest returns the most recent sample per requested server,
// keyed by server ID. Servers with no data are absent from the map.
func (s *Server) handleBatchLatest(w http.ResponseWriter, r *http.Request) {
	var req batchLatestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if len(req.ServerIDs) == 0 {
		writeBadRequest(w, "serverIds is required")
		return
	}

	latest, err := s.monitors.BatchLatest(r.Context(), req.ServerIDs)
	if err != nil {
		s.logger.Error("batch latest failed", "error", err)
		writeInternalError(w, "failed to fetch monitoring data")
		return
	}

	writeSuccess(w, latest)
}

// handleMonitorStats aggregates recent samples. An optional serverId
// query narrows the window to one server, otherwise the whole fleet.
func (s *Server) handleMonitorStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.monitors.Stats(r.Context(), r.URL.Query().Get("serverId"))
	if err != nil {
		s.logger.Error("monitor stats failed", "error", err)
		writeInternalError(w, "failed to compute monitoring stats")
		return
	}

	writeSuccess(w, stats)
}

// handleMonitorTrend returns bucketed averages over a lookback window.
// The range query accepts 1h, 24h, 7d or 30d and defaults to 24h.
func (s *Server) handleMonitorTrend(w http.ResponseWriter, r *http.Request) {
	trendRange := monitor.TrendRange(r.URL.Query().Get("range"))
	switch trendRange {
	case "", monitor.Range1h, monitor.Range24h, monitor.Range7d, monitor.Range30d:
	default:
		writeBadRequest(w, "invalid range, expected one of: 1h, 24h, 7d, 30d")
		return
	}
	if trendRange == "" {
		trendRange = monitor.Range24h
	}

	points, err := s.monitors.Trend(r.Context(), r.URL.Query().Get("serverId"), trendRange)
	if err != nil {
		s.logger.Error("monitor trend failed", "error", err)
		writeInternalError(w, "failed to compute monitoring trend")
		return
	}

	writeSuccess(w, points)
}

// handleExportSamples streams a server's samples as CSV, bounded by the
// same optional startTime/endTime filters as the list endpoint. Export
// ignores pagination and returns the full matching range.
func (s *Server) handleExportSamples(w http.ResponseWriter, r *http.Request) {
	serverID := chi.URLParam(r, "serverId")
	filter := monitor.SampleFilter{
		ServerID:  serverID,
		StartTime: queryTime(r, "startTime"),
		EndTime:   queryTime(r, "endTime"),
		Page:      1,
		PageSize:  exportPageSize,
	}

	samples, _, err := s.monitors.ListByServer(r.Context(), filter)
	if err != nil {
		s.logger.Error("exporting samples failed", "error", err, "server_id", serverID)
		writeInternalError(w, "failed to export monitoring data")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "monitor-"+serverID+".csv"))

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"timestamp", "server_id", "cpu_usage", "memory_usage",
		"disk_usage", "network_in", "network_out", "temperature", "power_usage"})

	for i := range samples {
		sm := &samples[i]
		record := []string{
			sm.Timestamp.UTC().Format(time.RFC3339),
			sm.ServerID,
			formatFloat(sm.CPUUsage),
			formatFloat(sm.MemoryUsage),
			formatFloat(sm.DiskUsage),
			formatFloat(sm.NetworkIn),
			formatFloat(sm.NetworkOut),
			formatOptFloat(sm.Temperature),
			formatOptFloat(sm.PowerUsage),
		}
		if err := cw.Write(record); err != nil {
			s.logger.Error("writing csv record failed", "error", err)
			return
		}
	}
	cw.Flush()
}

// exportPageSize bounds a CSV export to a single large page.
const exportPageSize = 10000

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

func formatOptFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return formatFloat(*f)
}
