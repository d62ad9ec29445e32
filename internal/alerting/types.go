package alerting

import (
	"errors"
	"time"
)

// Metric names an observable quantity alert rules can watch.
type Metric string

const (
	MetricCPU         Metric = "cpu_usage"
	MetricMemory      Metric = "memory_usage"
	MetricDisk        Metric = "disk_usage"
	MetricNetworkIn   Metric = "network_in"
	MetricNetworkOut  Metric = "network_out"
	MetricTemperature Metric = "temperature"
)

// IsValidMetric returns true for a recognised rule metric.
func IsValidMetric(m Metric) bool {
	switch m {
	case MetricCPU, MetricMemory, MetricDisk, MetricNetworkIn, MetricNetworkOut, MetricTemperature:
		return true
	}
	return false
}

// Operator is the comparison an alert rule applies to a metric value.
type Operator string

const (
	OpGreater      Operator = ">"
	OpLess         Operator = "<"
	OpGreaterEqual Operator = ">="
	OpLessEqual    Operator = "<="
	OpEqual        Operator = "=="
)

// IsValidOperator returns true for a recognised comparison operator.
func IsValidOperator(op Operator) bool {
	switch op {
	case OpGreater, OpLess, OpGreaterEqual, OpLessEqual, OpEqual:
		return true
	}
	return false
}

// Compare applies the operator to a metric value and threshold.
func (op Operator) Compare(value, threshold float64) bool {
	switch op {
	case OpGreater:
		return value > threshold
	case OpLess:
		return value < threshold
	case OpGreaterEqual:
		return value >= threshold
	case OpLessEqual:
		return value <= threshold
	case OpEqual:
		return value == threshold
	}
	return false
}

// Rule defines a threshold check evaluated against incoming samples.
type Rule struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Metric    Metric    `json:"metric"`
	Threshold float64   `json:"threshold"`
	Operator  Operator  `json:"operator"`
	Duration  int       `json:"duration"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
}

// RuleUpdate carries a partial update to a rule. Nil fields are left
// unchanged.
type RuleUpdate struct {
	Name      *string   `json:"name,omitempty"`
	Metric    *Metric   `json:"metric,omitempty"`
	Threshold *float64  `json:"threshold,omitempty"`
	Operator  *Operator `json:"operator,omitempty"`
	Duration  *int      `json:"duration,omitempty"`
	Enabled   *bool     `json:"enabled,omitempty"`
}

// Level is an alert severity.
type Level string

const (
	LevelInfo     Level = "info"
	LevelWarning  Level = "warning"
	LevelCritical Level = "critical"
)

// IsValidLevel returns true for a recognised severity.
func IsValidLevel(l Level) bool {
	switch l {
	case LevelInfo, LevelWarning, LevelCritical:
		return true
	}
	return false
}

// HistoryStatus is the lifecycle state of a triggered alert.
type HistoryStatus string

const (
	StatusTriggered HistoryStatus = "triggered"
	StatusResolved  HistoryStatus = "resolved"
)

// History is one triggered alert occurrence.
type History struct {
	ID         string        `json:"id"`
	RuleID     string        `json:"rule_id,omitempty"`
	ServerID   string        `json:"server_id,omitempty"`
	Level      Level         `json:"alert_level"`
	Message    string        `json:"message"`
	Status     HistoryStatus `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
	ResolvedAt *time.Time    `json:"resolved_at,omitempty"`

	// Joined display fields, populated on listings.
	RuleName string `json:"rule_name,omitempty"`
	Hostname string `json:"hostname,omitempty"`

	// Value is the metric reading that triggered the alert. Set on newly
	// triggered alerts only, not persisted.
	Value float64 `json:"value,omitempty"`
}

// HistoryFilter narrows a paginated alert history listing.
type HistoryFilter struct {
	Level     Level
	Status    HistoryStatus
	ServerID  string
	StartTime time.Time
	EndTime   time.Time

	Page     int
	PageSize int
}

// HistoryStats summarises alerts over the last 24 hours.
type HistoryStats struct {
	Total      int `json:"total"`
	Info       int `json:"info"`
	Warning    int `json:"warning"`
	Critical   int `json:"critical"`
	Unresolved int `json:"unresolved"`
}

// TrendPoint is a per-day alert count split by severity.
type TrendPoint struct {
	Date     string `json:"date"`
	Info     int    `json:"info"`
	Warning  int    `json:"warning"`
	Critical int    `json:"critical"`
}

// Sentinel errors for alerting operations.
var (
	ErrRuleNotFound  = errors.New("alert rule not found")
	ErrAlertNotFound = errors.New("alert not found")
)
