package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/grayrack/idc-core/internal/ticket"
)

type createTicketRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Type        ticket.Type     `json:"type"`
	Priority    ticket.Priority `json:"priority"`
	AssigneeID  string          `json:"assignee_id"`
}

// handleListTickets returns a filtered, paginated ticket listing.
func (s *Server) handleListTickets(w http.ResponseWriter, r *http.Request) {
	filter := ticket.Filter{
		Keyword:  r.URL.Query().Get("keyword"),
		Type:     ticket.Type(r.URL.Query().Get("type")),
		Priority: ticket.Priority(r.URL.Query().Get("priority")),
		Status:   ticket.Status(r.URL.Query().Get("status")),
		Page:     queryInt(r, "page"),
		PageSize: queryInt(r, "pageSize"),
	}

	tickets, total, err := s.tickets.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("list tickets failed", "error", err)
		writeInternalError(w, "failed to list tickets")
		return
	}

	page, pageSize := pageOrDefault(filter.Page, filter.PageSize)
	writeList(w, tickets, total, page, pageSize)
}

// handleCreateTicket raises a new ticket. The caller becomes the
// requester.
func (s *Server) handleCreateTicket(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())

	var req createTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if req.Title == "" || req.Type == "" {
		writeBadRequest(w, "title and type are required")
		return
	}
	if !ticket.IsValidType(req.Type) {
		writeBadRequest(w, "invalid type: must be incident, request, or maintenance")
		return
	}
	if req.Priority != "" && !ticket.IsValidPriority(req.Priority) {
		writeBadRequest(w, "invalid priority: must be low, medium, high, or urgent")
		return
	}

	t := &ticket.Ticket{
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
		Priority:    req.Priority,
		RequesterID: identity.UserID,
		AssigneeID:  req.AssigneeID,
	}
	if req.AssigneeID != "" {
		t.Status = ticket.StatusAssigned
	}

	if err := s.tickets.Create(r.Context(), t); err != nil {
		s.logger.Error("create ticket failed", "error", err)
		writeInternalError(w, "failed to create ticket")
		return
	}

	s.logger.Info("ticket created", "ticket_id", t.ID, "type", string(t.Type),
		"priority", string(t.Priority), "requester", identity.UserID)
	writeSuccess(w, map[string]string{"id": t.ID})
}

// handleGetTicket returns a single ticket by ID.
func (s *Server) handleGetTicket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	t, err := s.tickets.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ticket.ErrTicketNotFound) {
			writeNotFound(w, "ticket not found")
			return
		}
		s.logger.Error("get ticket failed", "error", err)
		writeInternalError(w, "failed to get ticket")
		return
	}

	writeSuccess(w, t)
}

// handleUpdateTicket applies a partial update. Status transitions into
// resolved or closed stamp resolved_at. Updating a missing ID succeeds
// with null data per the console contract.
func (s *Server) handleUpdateTicket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var update ticket.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if update.Type != nil && !ticket.IsValidType(*update.Type) {
		writeBadRequest(w, "invalid type: must be incident, request, or maintenance")
		return
	}
	if update.Priority != nil && !ticket.IsValidPriority(*update.Priority) {
		writeBadRequest(w, "invalid priority: must be low, medium, high, or urgent")
		return
	}
	if update.Status != nil && !ticket.IsValidStatus(*update.Status) {
		writeBadRequest(w, "invalid status")
		return
	}

	t, err := s.tickets.Update(r.Context(), id, update)
	if err != nil {
		s.logger.Error("update ticket failed", "error", err)
		writeInternalError(w, "failed to update ticket")
		return
	}

	writeSuccess(w, t)
}

// handleDeleteTicket removes a ticket. Idempotent.
func (s *Server) handleDeleteTicket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.tickets.Delete(r.Context(), id); err != nil {
		s.logger.Error("delete ticket failed", "error", err)
		writeInternalError(w, "failed to delete ticket")
		return
	}

	writeSuccess(w, nil)
}

// handleTicketStats summarises the ticket queue.
func (s *Server) handleTicketStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.tickets.Stats(r.Context())
	if err != nil {
		s.logger.Error("ticket stats failed", "error", err)
		writeInternalError(w, "failed to load ticket stats")
		return
	}

	writeSuccess(w, stats)
}
