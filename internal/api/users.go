package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/grayrack/idc-core/internal/auth"
)

type createUserRequest struct {
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     auth.Role   `json:"role"`
	Status   auth.Status `json:"status"`
}

type adminResetPasswordRequest struct {
	Password string `json:"password"`
}

// handleListUsers returns a paginated user listing with optional keyword
// filter.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	filter := auth.UserFilter{
		Keyword:  r.URL.Query().Get("keyword"),
		Page:     queryInt(r, "page"),
		PageSize: queryInt(r, "pageSize"),
	}

	users, total, err := s.users.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("list users failed", "error", err)
		writeInternalError(w, "failed to list users")
		return
	}

	page, pageSize := pageOrDefault(filter.Page, filter.PageSize)
	writeList(w, users, total, page, pageSize)
}

// handleCreateUser creates a new user account.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if req.Username == "" || req.Password == "" {
		writeBadRequest(w, "username and password are required")
		return
	}
	if !auth.IsValidUsername(req.Username) {
		writeBadRequest(w, "invalid username")
		return
	}
	if len(req.Password) < minPasswordLength {
		writeBadRequest(w, "password must be at least 8 characters")
		return
	}
	if req.Role != "" && !auth.IsValidRole(req.Role) {
		writeBadRequest(w, "invalid role: must be admin, operator, or viewer")
		return
	}
	if req.Status != "" && !auth.IsValidStatus(req.Status) {
		writeBadRequest(w, "invalid status: must be active, inactive, or locked")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("hash password failed", "error", err)
		writeInternalError(w, "failed to create user")
		return
	}

	user := &auth.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         req.Role,
		Status:       req.Status,
	}

	if err := s.users.Create(r.Context(), user); err != nil {
		if errors.Is(err, auth.ErrUsernameExists) {
			writeBadRequest(w, "username already exists")
			return
		}
		s.logger.Error("create user failed", "error", err)
		writeInternalError(w, "failed to create user")
		return
	}

	identity := identityFromContext(r.Context())
	s.logger.Info("user created", "user_id", user.ID, "username", user.Username,
		"role", string(user.Role), "created_by", identity.UserID)

	writeSuccess(w, map[string]string{"id": user.ID})
}

// handleGetUser returns a single user by ID.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	user, err := s.users.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		s.logger.Error("get user failed", "error", err)
		writeInternalError(w, "failed to get user")
		return
	}

	writeSuccess(w, user)
}

// handleUpdateUser modifies a user's mutable fields.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	identity := identityFromContext(r.Context())

	var update auth.UserUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if update.Role != nil && !auth.IsValidRole(*update.Role) {
		writeBadRequest(w, "invalid role: must be admin, operator, or viewer")
		return
	}
	if update.Status != nil && !auth.IsValidStatus(*update.Status) {
		writeBadRequest(w, "invalid status: must be active, inactive, or locked")
		return
	}

	// Self-protection: an admin cannot demote or disable their own account.
	if id == identity.UserID {
		if update.Role != nil && *update.Role != identity.Role {
			writeForbidden(w, "cannot change your own role")
			return
		}
		if update.Status != nil && *update.Status != auth.StatusActive {
			writeForbidden(w, "cannot disable your own account")
			return
		}
	}

	user, err := s.users.Update(r.Context(), id, update)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		s.logger.Error("update user failed", "error", err)
		writeInternalError(w, "failed to update user")
		return
	}

	s.logger.Info("user updated", "user_id", id, "updated_by", identity.UserID)
	writeSuccess(w, user)
}

// handleDeleteUser removes a user account.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	identity := identityFromContext(r.Context())

	if id == identity.UserID {
		writeForbidden(w, "cannot delete your own account")
		return
	}

	if err := s.users.Delete(r.Context(), id); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		s.logger.Error("delete user failed", "error", err)
		writeInternalError(w, "failed to delete user")
		return
	}

	s.logger.Info("user deleted", "user_id", id, "deleted_by", identity.UserID)
	writeSuccess(w, nil)
}

// handleAdminResetPassword sets a new password for a user without
// knowledge of the current one.
func (s *Server) handleAdminResetPassword(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	identity := identityFromContext(r.Context())

	var req adminResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if len(req.Password) < minPasswordLength {
		writeBadRequest(w, "password must be at least 8 characters")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("hash password failed", "error", err)
		writeInternalError(w, "failed to reset password")
		return
	}

	if err := s.users.UpdatePassword(r.Context(), id, hash); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		s.logger.Error("admin password reset failed", "error", err)
		writeInternalError(w, "failed to reset password")
		return
	}

	s.logger.Info("password reset by admin", "user_id", id, "reset_by", identity.UserID)
	writeSuccess(w, nil)
}

// queryInt parses an integer query parameter, returning 0 when absent or
// malformed so repository defaults apply.
func queryInt(r *http.Request, key string) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

// pageOrDefault mirrors the repository pagination defaults for echoing
// back in list envelopes.
func pageOrDefault(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	return page, pageSize
}
