package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/grayrack/idc-core/internal/alerting"
)

type createRuleRequest struct {
	Name      string            `json:"name"`
	Metric    alerting.Metric   `json:"metric"`
	Threshold float64           `json:"threshold"`
	Operator  alerting.Operator `json:"operator"`
	Duration  int               `json:"duration"`
	Enabled   *bool             `json:"enabled,omitempty"`
}

// handleListRules returns a paginated rule listing.
func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page")
	pageSize := queryInt(r, "pageSize")

	rules, total, err := s.rules.List(r.Context(), page, pageSize)
	if err != nil {
		s.logger.Error("list rules failed", "error", err)
		writeInternalError(w, "failed to list alert rules")
		return
	}

	page, pageSize = pageOrDefault(page, pageSize)
	writeList(w, rules, total, page, pageSize)
}

// handleCreateRule creates a new alert rule.
func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var req createRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if req.Name == "" {
		writeBadRequest(w, "name is required")
		return
	}
	if !alerting.IsValidMetric(req.Metric) {
		writeBadRequest(w, "invalid metric")
		return
	}
	if !alerting.IsValidOperator(req.Operator) {
		writeBadRequest(w, "invalid operator: must be >, <, >=, <=, or ==")
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	rule := &alerting.Rule{
		Name:      req.Name,
		Metric:    req.Metric,
		Threshold: req.Threshold,
		Operator:  req.Operator,
		Duration:  req.Duration,
		Enabled:   enabled,
	}
	if err := s.rules.Create(r.Context(), rule); err != nil {
		s.logger.Error("create rule failed", "error", err)
		writeInternalError(w, "failed to create alert rule")
		return
	}

	s.logger.Info("alert rule created", "rule_id", rule.ID, "metric", string(rule.Metric))
	writeSuccess(w, map[string]string{"id": rule.ID})
}

// handleGetRule returns a single rule by ID.
func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rule, err := s.rules.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, alerting.ErrRuleNotFound) {
			writeNotFound(w, "alert rule not found")
			return
		}
		s.logger.Error("get rule failed", "error", err)
		writeInternalError(w, "failed to get alert rule")
		return
	}

	writeSuccess(w, rule)
}

// handleUpdateRule applies a partial update to a rule. Updating a missing
// ID succeeds with null data per the console contract.
func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var update alerting.RuleUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if update.Metric != nil && !alerting.IsValidMetric(*update.Metric) {
		writeBadRequest(w, "invalid metric")
		return
	}
	if update.Operator != nil && !alerting.IsValidOperator(*update.Operator) {
		writeBadRequest(w, "invalid operator: must be >, <, >=, <=, or ==")
		return
	}

	rule, err := s.rules.Update(r.Context(), id, update)
	if err != nil {
		s.logger.Error("update rule failed", "error", err)
		writeInternalError(w, "failed to update alert rule")
		return
	}

	writeSuccess(w, rule)
}

// handleToggleRule flips a rule's enabled flag.
func (s *Server) handleToggleRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rule, err := s.rules.Toggle(r.Context(), id)
	if err != nil {
		if errors.Is(err, alerting.ErrRuleNotFound) {
			writeNotFound(w, "alert rule not found")
			return
		}
		s.logger.Error("toggle rule failed", "error", err)
		writeInternalError(w, "failed to toggle alert rule")
		return
	}

	writeSuccess(w, rule)
}

// handleDeleteRule removes a rule. Idempotent.
func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.rules.Delete(r.Context(), id); err != nil {
		s.logger.Error("delete rule failed", "error", err)
		writeInternalError(w, "failed to delete alert rule")
		return
	}

	writeSuccess(w, nil)
}

// handleListAlerts returns a filtered, paginated alert history listing.
func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	filter := alerting.HistoryFilter{
		Level:    alerting.Level(r.URL.Query().Get("level")),
		Status:   alerting.HistoryStatus(r.URL.Query().Get("status")),
		ServerID: r.URL.Query().Get("serverId"),
		Page:     queryInt(r, "page"),
		PageSize: queryInt(r, "pageSize"),
	}
	filter.StartTime = queryTime(r, "startTime")
	filter.EndTime = queryTime(r, "endTime")

	alerts, total, err := s.alerts.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("list alerts failed", "error", err)
		writeInternalError(w, "failed to list alerts")
		return
	}

	page, pageSize := pageOrDefault(filter.Page, filter.PageSize)
	writeList(w, alerts, total, page, pageSize)
}

// handleGetAlert returns a single alert by ID.
func (s *Server) handleGetAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	alert, err := s.alerts.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, alerting.ErrAlertNotFound) {
			writeNotFound(w, "alert not found")
			return
		}
		s.logger.Error("get alert failed", "error", err)
		writeInternalError(w, "failed to get alert")
		return
	}

	writeSuccess(w, alert)
}

// handleResolveAlert marks an alert resolved.
func (s *Server) handleResolveAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	alert, err := s.alerts.Resolve(r.Context(), id)
	if err != nil {
		if errors.Is(err, alerting.ErrAlertNotFound) {
			writeNotFound(w, "alert not found")
			return
		}
		s.logger.Error("resolve alert failed", "error", err)
		writeInternalError(w, "failed to resolve alert")
		return
	}

	writeSuccess(w, alert)
}

// handleBatchResolveAlerts resolves alerts sequentially, best-effort.
// Missing IDs are skipped; earlier resolutions stand.
func (s *Server) handleBatchResolveAlerts(w http.ResponseWriter, r *http.Request) {
	var req batchIDsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if len(req.IDs) == 0 {
		writeBadRequest(w, "ids is required")
		return
	}

	resolved, err := s.alerts.BatchResolve(r.Context(), req.IDs)
	if err != nil {
		s.logger.Error("batch resolve failed", "resolved", resolved, "error", err)
		writeInternalError(w, "batch resolve failed partway through")
		return
	}

	writeSuccess(w, map[string]int{"resolved": resolved})
}

// handleDeleteAlert removes an alert history entry. Idempotent.
func (s *Server) handleDeleteAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.alerts.Delete(r.Context(), id); err != nil {
		s.logger.Error("delete alert failed", "error", err)
		writeInternalError(w, "failed to delete alert")
		return
	}

	writeSuccess(w, nil)
}

// handleAlertStats returns 24h alert counts by level plus the unresolved
// backlog.
func (s *Server) handleAlertStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.alerts.Stats(r.Context())
	if err != nil {
		s.logger.Error("alert stats failed", "error", err)
		writeInternalError(w, "failed to load alert stats")
		return
	}

	writeSuccess(w, stats)
}

// handleAlertTrend returns per-day alert counts over the last week.
func (s *Server) handleAlertTrend(w http.ResponseWriter, r *http.Request) {
	points, err := s.alerts.Trend(r.Context())
	if err != nil {
		s.logger.Error("alert trend failed", "error", err)
		writeInternalError(w, "failed to load alert trend")
		return
	}

	writeSuccess(w, points)
}

// queryTime parses an RFC3339 query parameter, returning the zero time
// when absent or malformed.
func queryTime(r *http.Request, key string) time.Time {
	v := r.URL.Query().Get(key)
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}
	}
	return t
}
