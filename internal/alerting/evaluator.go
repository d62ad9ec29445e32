package alerting

import (
	"context"
	"fmt"
	"log/slog"
)

// criticalFactor is how far past a threshold a reading must land before a
// triggered alert escalates from warning to critical. A rule exceeded by
// 20% or more of its threshold is considered critical.
const criticalFactor = 0.2

// Notifier receives alerts as they are triggered, typically to fan them
// out over websocket connections.
type Notifier interface {
	NotifyAlert(alert *History)
}

// Evaluator checks incoming metric readings against enabled alert rules
// and records triggered alerts.
type Evaluator struct {
	rules    RuleRepository
	history  HistoryRepository
	notifier Notifier
	logger   *slog.Logger
}

// NewEvaluator creates an alert evaluator. notifier may be nil.
func NewEvaluator(rules RuleRepository, history HistoryRepository, notifier Notifier, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{
		rules:    rules,
		history:  history,
		notifier: notifier,
		logger:   logger,
	}
}

// Evaluate checks a server's metric readings against all enabled rules and
// returns any newly triggered alerts. A rule that is already in triggered
// state for this server is suppressed until the existing alert is
// resolved. Metrics absent from values (such as temperature on servers
// without sensors) are skipped.
func (e *Evaluator) Evaluate(ctx context.Context, serverID string, values map[Metric]float64) ([]History, error) {
	rules, err := e.rules.ListEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading enabled rules: %w", err)
	}

	triggered := []History{}
	for _, rule := range rules {
		value, ok := values[rule.Metric]
		if !ok {
			continue
		}
		if !rule.Operator.Compare(value, rule.Threshold) {
			continue
		}

		exists, err := e.history.HasUnresolved(ctx, rule.ID, serverID)
		if err != nil {
			return triggered, fmt.Errorf("checking duplicate alert: %w", err)
		}
		if exists {
			continue
		}

		alert := &History{
			RuleID:   rule.ID,
			ServerID: serverID,
			Level:    deriveLevel(rule, value),
			Message: fmt.Sprintf("%s: %s %s %.2f (current: %.2f)",
				rule.Name, rule.Metric, rule.Operator, rule.Threshold, value),
			Status: StatusTriggered,
			Value:  value,
		}
		if err := e.history.Create(ctx, alert); err != nil {
			return triggered, fmt.Errorf("recording alert: %w", err)
		}

		e.logger.Warn("alert triggered",
			"rule_id", rule.ID,
			"server_id", serverID,
			"metric", string(rule.Metric),
			"level", string(alert.Level),
			"value", value,
			"threshold", rule.Threshold,
		)

		if e.notifier != nil {
			e.notifier.NotifyAlert(alert)
		}
		triggered = append(triggered, *alert)
	}

	return triggered, nil
}

// deriveLevel grades a triggered rule by how far the reading overshoots
// the threshold. Equality rules never escalate past warning.
func deriveLevel(rule Rule, value float64) Level {
	if rule.Threshold == 0 {
		return LevelWarning
	}

	switch rule.Operator {
	case OpGreater, OpGreaterEqual:
		if value >= rule.Threshold*(1+criticalFactor) {
			return LevelCritical
		}
	case OpLess, OpLessEqual:
		if value <= rule.Threshold*(1-criticalFactor) {
			return LevelCritical
		}
	}
	return LevelWarning
}
