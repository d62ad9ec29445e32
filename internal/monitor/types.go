package monitor

import (
	"errors"
	"time"
)

// Sample is a single monitoring reading for a server.
//
// Percent metrics (CPU, memory, disk) are 0-100. Network rates are in
// Mbps. Temperature (°C) and power (W) are optional agent extras.
type Sample struct {
	ID          int64     `json:"id,omitempty"`
	ServerID    string    `json:"serverId"`
	CPUUsage    float64   `json:"cpuUsage"`
	MemoryUsage float64   `json:"memoryUsage"`
	DiskUsage   float64   `json:"diskUsage"`
	NetworkIn   float64   `json:"networkIn"`
	NetworkOut  float64   `json:"networkOut"`
	Temperature *float64  `json:"temperature,omitempty"`
	PowerUsage  *float64  `json:"powerUsage,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// SampleFilter narrows a paginated sample listing for one server.
type SampleFilter struct {
	ServerID  string
	StartTime time.Time
	EndTime   time.Time

	Page     int
	PageSize int
}

// Stats holds aggregate metrics over a time window.
type Stats struct {
	AvgCPU         float64 `json:"avg_cpu"`
	AvgMemory      float64 `json:"avg_memory"`
	AvgDisk        float64 `json:"avg_disk"`
	TotalNetIn     float64 `json:"total_net_in"`
	TotalNetOut    float64 `json:"total_net_out"`
	SampleCount    int     `json:"sample_count"`
	ServersCovered int     `json:"servers_covered"`
}

// TrendPoint is one bucketed average in a trend series.
type TrendPoint struct {
	Bucket    string  `json:"bucket"`
	AvgCPU    float64 `json:"avg_cpu"`
	AvgMemory float64 `json:"avg_memory"`
	AvgDisk   float64 `json:"avg_disk"`
	AvgNetIn  float64 `json:"avg_net_in"`
	AvgNetOut float64 `json:"avg_net_out"`
}

// TrendRange selects the window and bucket size for trend queries.
type TrendRange string

const (
	Range1h  TrendRange = "1h"
	Range24h TrendRange = "24h"
	Range7d  TrendRange = "7d"
	Range30d TrendRange = "30d"
)

// Window returns the lookback duration for a trend range. Unknown ranges
// fall back to 24 hours.
func (r TrendRange) Window() time.Duration {
	switch r {
	case Range1h:
		return time.Hour
	case Range7d:
		return 7 * 24 * time.Hour
	case Range30d:
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// bucketFormat returns the strftime format used to group samples for a
// trend range: minutes for 1h, hours for 24h, days for longer windows.
func (r TrendRange) bucketFormat() string {
	switch r {
	case Range1h:
		return "%Y-%m-%dT%H:%M"
	case Range24h:
		return "%Y-%m-%dT%H:00"
	default:
		return "%Y-%m-%d"
	}
}

// ErrNoSamples indicates no monitoring data exists for the query.
var ErrNoSamples = errors.New("no monitoring samples")
