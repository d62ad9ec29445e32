package inventory

import (
	"errors"
	"time"
)

// ServerStatus represents a server's operational state.
type ServerStatus string

const (
	StatusOnline      ServerStatus = "online"
	StatusOffline     ServerStatus = "offline"
	StatusMaintenance ServerStatus = "maintenance"
)

// ValidServerStatuses is the set of recognised server states.
var ValidServerStatuses = []ServerStatus{StatusOnline, StatusOffline, StatusMaintenance}

// IsValidServerStatus returns true for a recognised server state.
func IsValidServerStatus(s ServerStatus) bool {
	for _, v := range ValidServerStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Server represents a physical or virtual machine under management.
type Server struct {
	ID          string       `json:"id"`
	Hostname    string       `json:"hostname"`
	IPAddress   string       `json:"ip_address"`
	GroupID     string       `json:"group_id,omitempty"`
	Status      ServerStatus `json:"status"`
	OS          string       `json:"os,omitempty"`
	CPUCores    int          `json:"cpu_cores,omitempty"`
	MemoryGB    int          `json:"memory_gb,omitempty"`
	DiskGB      int          `json:"disk_gb,omitempty"`
	Location    string       `json:"location,omitempty"`
	Description string       `json:"description,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// ServerUpdate carries a partial update to a server. Nil fields are
// left unchanged.
type ServerUpdate struct {
	Hostname    *string       `json:"hostname,omitempty"`
	IPAddress   *string       `json:"ip_address,omitempty"`
	GroupID     *string       `json:"group_id,omitempty"`
	Status      *ServerStatus `json:"status,omitempty"`
	OS          *string       `json:"os,omitempty"`
	CPUCores    *int          `json:"cpu_cores,omitempty"`
	MemoryGB    *int          `json:"memory_gb,omitempty"`
	DiskGB      *int          `json:"disk_gb,omitempty"`
	Location    *string       `json:"location,omitempty"`
	Description *string       `json:"description,omitempty"`
}

// ServerFilter narrows a paginated server listing.
type ServerFilter struct {
	// Keyword matches hostname or IP address substrings.
	Keyword string
	Status  ServerStatus
	GroupID string

	Page     int
	PageSize int
}

// ServerStats summarises the server fleet by status.
type ServerStats struct {
	Total       int `json:"total"`
	Online      int `json:"online"`
	Offline     int `json:"offline"`
	Maintenance int `json:"maintenance"`
}

// ServerGroup is a named collection of servers.
type ServerGroup struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ServerCount int       `json:"server_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// AssetType classifies a managed data-centre asset.
type AssetType string

const (
	AssetRack      AssetType = "rack"
	AssetBandwidth AssetType = "bandwidth"
	AssetIP        AssetType = "ip"
	AssetHardware  AssetType = "hardware"
)

// IsValidAssetType returns true for a recognised asset type.
func IsValidAssetType(t AssetType) bool {
	switch t {
	case AssetRack, AssetBandwidth, AssetIP, AssetHardware:
		return true
	}
	return false
}

// AssetStatus represents an asset's allocation state.
type AssetStatus string

const (
	AssetAvailable AssetStatus = "available"
	AssetInUse     AssetStatus = "in_use"
	AssetReserved  AssetStatus = "reserved"
	AssetRetired   AssetStatus = "retired"
)

// IsValidAssetStatus returns true for a recognised allocation state.
func IsValidAssetStatus(s AssetStatus) bool {
	switch s {
	case AssetAvailable, AssetInUse, AssetReserved, AssetRetired:
		return true
	}
	return false
}

// Asset represents a rack, IP block, bandwidth allocation or hardware item.
type Asset struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Type        AssetType   `json:"type"`
	Status      AssetStatus `json:"status"`
	Value       string      `json:"value,omitempty"`
	Description string      `json:"description,omitempty"`
	Location    string      `json:"location,omitempty"`
	ServerID    string      `json:"server_id,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// AssetUpdate carries a partial update to an asset. Nil fields are
// left unchanged.
type AssetUpdate struct {
	Name        *string      `json:"name,omitempty"`
	Type        *AssetType   `json:"type,omitempty"`
	Status      *AssetStatus `json:"status,omitempty"`
	Value       *string      `json:"value,omitempty"`
	Description *string      `json:"description,omitempty"`
	Location    *string      `json:"location,omitempty"`
	ServerID    *string      `json:"server_id,omitempty"`
}

// AssetFilter narrows a paginated asset listing.
type AssetFilter struct {
	// Keyword matches name or value substrings.
	Keyword string
	Type    AssetType
	Status  AssetStatus

	Page     int
	PageSize int
}

// AssetStats summarises asset utilisation by type.
type AssetStats struct {
	RacksTotal     int `json:"racks_total"`
	RacksInUse     int `json:"racks_in_use"`
	IPsTotal       int `json:"ips_total"`
	IPsInUse       int `json:"ips_in_use"`
	BandwidthTotal int `json:"bandwidth_total"`
	BandwidthInUse int `json:"bandwidth_in_use"`
}

// Sentinel errors for inventory operations.
var (
	ErrServerNotFound  = errors.New("server not found")
	ErrGroupNotFound   = errors.New("server group not found")
	ErrGroupNameExists = errors.New("server group name already exists")
	ErrAssetNotFound   = errors.New("asset not found")
)
