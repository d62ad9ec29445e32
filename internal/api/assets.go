package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/grayrack/idc-core/internal/inventory"
)

type createAssetRequest struct {
	Name        string                `json:"name"`
	Type        inventory.AssetType   `json:"type"`
	Status      inventory.AssetStatus `json:"status"`
	Value       string                `json:"value"`
	Description string                `json:"description"`
	Location    string                `json:"location"`
	ServerID    string                `json:"server_id"`
}

// handleListAssets returns a filtered, paginated asset listing.
func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	filter := inventory.AssetFilter{
		Keyword:  r.URL.Query().Get("keyword"),
		Type:     inventory.AssetType(r.URL.Query().Get("type")),
		Status:   inventory.AssetStatus(r.URL.Query().Get("status")),
		Page:     queryInt(r, "page"),
		PageSize: queryInt(r, "pageSize"),
	}

	assets, total, err := s.assets.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("list assets failed", "error", err)
		writeInternalError(w, "failed to list assets")
		return
	}

	page, pageSize := pageOrDefault(filter.Page, filter.PageSize)
	writeList(w, assets, total, page, pageSize)
}

// handleCreateAsset registers a new asset.
func (s *Server) handleCreateAsset(w http.ResponseWriter, r *http.Request) {
	var req createAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if req.Name == "" || req.Type == "" {
		writeBadRequest(w, "name and type are required")
		return
	}
	if !inventory.IsValidAssetType(req.Type) {
		writeBadRequest(w, "invalid type: must be rack, bandwidth, ip, or hardware")
		return
	}
	if req.Status != "" && !inventory.IsValidAssetStatus(req.Status) {
		writeBadRequest(w, "invalid status: must be available, in_use, reserved, or retired")
		return
	}

	asset := &inventory.Asset{
		Name:        req.Name,
		Type:        req.Type,
		Status:      req.Status,
		Value:       req.Value,
		Description: req.Description,
		Location:    req.Location,
		ServerID:    req.ServerID,
	}

	if err := s.assets.Create(r.Context(), asset); err != nil {
		s.logger.Error("create asset failed", "error", err)
		writeInternalError(w, "failed to create asset")
		return
	}

	s.logger.Info("asset created", "asset_id", asset.ID, "name", asset.Name, "type", string(asset.Type))
	writeSuccess(w, map[string]string{"id": asset.ID})
}

// handleGetAsset returns a single asset by ID.
func (s *Server) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	asset, err := s.assets.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, inventory.ErrAssetNotFound) {
			writeNotFound(w, "asset not found")
			return
		}
		s.logger.Error("get asset failed", "error", err)
		writeInternalError(w, "failed to get asset")
		return
	}

	writeSuccess(w, asset)
}

// handleUpdateAsset applies a partial update to an asset. Updating a
// missing ID succeeds with null data per the console contract.
func (s *Server) handleUpdateAsset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var update inventory.AssetUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if update.Type != nil && !inventory.IsValidAssetType(*update.Type) {
		writeBadRequest(w, "invalid type: must be rack, bandwidth, ip, or hardware")
		return
	}
	if update.Status != nil && !inventory.IsValidAssetStatus(*update.Status) {
		writeBadRequest(w, "invalid status: must be available, in_use, reserved, or retired")
		return
	}

	asset, err := s.assets.Update(r.Context(), id, update)
	if err != nil {
		s.logger.Error("update asset failed", "error", err)
		writeInternalError(w, "failed to update asset")
		return
	}

	writeSuccess(w, asset)
}

// handleDeleteAsset removes an asset. Idempotent.
func (s *Server) handleDeleteAsset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.assets.Delete(r.Context(), id); err != nil {
		s.logger.Error("delete asset failed", "error", err)
		writeInternalError(w, "failed to delete asset")
		return
	}

	writeSuccess(w, nil)
}

// handleAssetStats returns capacity utilisation by asset class.
func (s *Server) handleAssetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.assets.Stats(r.Context())
	if err != nil {
		s.logger.Error("asset stats failed", "error", err)
		writeInternalError(w, "failed to load asset stats")
		return
	}

	writeSuccess(w, stats)
}
