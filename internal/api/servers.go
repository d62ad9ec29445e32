package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/grayrack/idc-core/internal/inventory"
)

type createServerRequest struct {
	Hostname    string                 `json:"hostname"`
	IPAddress   string                 `json:"ip_address"`
	GroupID     string                 `json:"group_id"`
	Status      inventory.ServerStatus `json:"status"`
	OS          string                 `json:"os"`
	CPUCores    int                    `json:"cpu_cores"`
	MemoryGB    int                    `json:"memory_gb"`
	DiskGB      int                    `json:"disk_gb"`
	Location    string                 `json:"location"`
	Description string                 `json:"description"`
}

type batchIDsRequest struct {
	IDs []string `json:"ids"`
}

type createGroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// handleListServers returns a filtered, paginated server listing.
func (s *Server) handleListServers(w http.ResponseWriter, r *http.Request) {
	filter := inventory.ServerFilter{
		Keyword:  r.URL.Query().Get("keyword"),
		Status:   inventory.ServerStatus(r.URL.Query().Get("status")),
		GroupID:  r.URL.Query().Get("groupId"),
		Page:     queryInt(r, "page"),
		PageSize: queryInt(r, "pageSize"),
	}

	servers, total, err := s.servers.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("list servers failed", "error", err)
		writeInternalError(w, "failed to list servers")
		return
	}

	page, pageSize := pageOrDefault(filter.Page, filter.PageSize)
	writeList(w, servers, total, page, pageSize)
}

// handleCreateServer registers a new server.
func (s *Server) handleCreateServer(w http.ResponseWriter, r *http.Request) {
	var req createServerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if req.Hostname == "" || req.IPAddress == "" {
		writeBadRequest(w, "hostname and ip_address are required")
		return
	}
	if req.Status != "" && !inventory.IsValidServerStatus(req.Status) {
		writeBadRequest(w, "invalid status: must be online, offline, or maintenance")
		return
	}

	server := &inventory.Server{
		Hostname:    req.Hostname,
		IPAddress:   req.IPAddress,
		GroupID:     req.GroupID,
		Status:      req.Status,
		OS:          req.OS,
		CPUCores:    req.CPUCores,
		MemoryGB:    req.MemoryGB,
		DiskGB:      req.DiskGB,
		Location:    req.Location,
		Description: req.Description,
	}

	if err := s.servers.Create(r.Context(), server); err != nil {
		s.logger.Error("create server failed", "error", err)
		writeInternalError(w, "failed to create server")
		return
	}

	s.logger.Info("server created", "server_id", server.ID, "hostname", server.Hostname)
	writeSuccess(w, map[string]string{"id": server.ID})
}

// handleGetServer returns a single server by ID.
func (s *Server) handleGetServer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	server, err := s.servers.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, inventory.ErrServerNotFound) {
			writeNotFound(w, "server not found")
			return
		}
		s.logger.Error("get server failed", "error", err)
		writeInternalError(w, "failed to get server")
		return
	}

	writeSuccess(w, server)
}

// handleUpdateServer applies a partial update to a server. Updating a
// missing ID succeeds with null data per the console contract.
func (s *Server) handleUpdateServer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var update inventory.ServerUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if update.Status != nil && !inventory.IsValidServerStatus(*update.Status) {
		writeBadRequest(w, "invalid status: must be online, offline, or maintenance")
		return
	}

	server, err := s.servers.Update(r.Context(), id, update)
	if err != nil {
		s.logger.Error("update server failed", "error", err)
		writeInternalError(w, "failed to update server")
		return
	}

	writeSuccess(w, server)
}

// handleDeleteServer removes a server. Idempotent.
func (s *Server) handleDeleteServer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.servers.Delete(r.Context(), id); err != nil {
		s.logger.Error("delete server failed", "error", err)
		writeInternalError(w, "failed to delete server")
		return
	}

	writeSuccess(w, nil)
}

// handleBatchDeleteServers deletes servers sequentially, best-effort.
func (s *Server) handleBatchDeleteServers(w http.ResponseWriter, r *http.Request) {
	var req batchIDsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if len(req.IDs) == 0 {
		writeBadRequest(w, "ids is required")
		return
	}

	deleted, err := s.servers.BatchDelete(r.Context(), req.IDs)
	if err != nil {
		// Partial success: prior deletions stand, per the batch contract.
		s.logger.Error("batch delete servers failed", "deleted", deleted, "error", err)
		writeInternalError(w, "batch delete failed partway through")
		return
	}

	writeSuccess(w, map[string]int{"deleted": deleted})
}

// handleServerStats returns server counts by status.
func (s *Server) handleServerStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.servers.Stats(r.Context())
	if err != nil {
		s.logger.Error("server stats failed", "error", err)
		writeInternalError(w, "failed to load server stats")
		return
	}

	writeSuccess(w, stats)
}

// handleListGroups returns all server groups with member counts.
func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.groups.List(r.Context())
	if err != nil {
		s.logger.Error("list groups failed", "error", err)
		writeInternalError(w, "failed to list groups")
		return
	}

	writeSuccess(w, groups)
}

// handleCreateGroup creates a new server group.
func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Name == "" {
		writeBadRequest(w, "name is required")
		return
	}

	group := &inventory.ServerGroup{
		Name:        req.Name,
		Description: req.Description,
	}
	if err := s.groups.Create(r.Context(), group); err != nil {
		if errors.Is(err, inventory.ErrGroupNameExists) {
			writeBadRequest(w, "group name already exists")
			return
		}
		s.logger.Error("create group failed", "error", err)
		writeInternalError(w, "failed to create group")
		return
	}

	s.logger.Info("server group created", "group_id", group.ID, "name", group.Name)
	writeSuccess(w, map[string]string{"id": group.ID})
}

// handleDeleteGroup removes a group; member servers are detached, not
// deleted. Idempotent.
func (s *Server) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.groups.Delete(r.Context(), id); err != nil {
		s.logger.Error("delete group failed", "error", err)
		writeInternalError(w, "failed to delete group")
		return
	}

	writeSuccess(w, nil)
}
