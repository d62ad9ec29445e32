package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/grayrack/idc-core/internal/auth"
)

// lastLoginTimeout bounds the best-effort asynchronous last_login write.
const lastLoginTimeout = 5 * time.Second

// minPasswordLength is the minimum accepted password length.
const minPasswordLength = 8

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updateProfileRequest struct {
	Email *string `json:"email,omitempty"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// handleLogin authenticates a user and returns the identity plus a fresh
// token pair.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeBadRequest(w, "username and password are required")
		return
	}

	user, err := s.users.GetByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeUnauthorized(w, "invalid credentials")
			return
		}
		s.logger.Error("login lookup failed", "error", err)
		writeInternalError(w, "login failed")
		return
	}

	if user.Status != auth.StatusActive {
		writeUnauthorized(w, "account is disabled")
		return
	}

	ok, err := auth.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil || !ok {
		writeUnauthorized(w, "invalid credentials")
		return
	}

	pair, err := s.tokens.GenerateTokenPair(user)
	if err != nil {
		s.logger.Error("token generation failed", "error", err)
		writeInternalError(w, "login failed")
		return
	}

	// Best-effort async last_login update; never blocks the response.
	go func(userID string) {
		ctx, cancel := context.WithTimeout(context.Background(), lastLoginTimeout)
		defer cancel()
		if err := s.users.UpdateLastLogin(ctx, userID, time.Now()); err != nil {
			s.logger.Warn("last_login update failed", "user_id", userID, "error", err)
		}
	}(user.ID)

	s.logger.Info("user logged in", "user_id", user.ID, "username", user.Username)

	writeSuccess(w, map[string]any{
		"user":   user,
		"tokens": pair,
	})
}

// handleLogout revokes the caller's access token. Always succeeds from the
// caller's perspective, even without a token.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := bearerToken(r); token != "" {
		s.tokens.RevokeAccessToken(token)
		if identity := identityFromContext(r.Context()); identity != nil {
			s.logger.Info("user logged out", "user_id", identity.UserID)
		}
	}
	writeSuccess(w, nil)
}

// handleRefresh exchanges a valid refresh token for a brand-new token
// pair. Refresh tokens stay multi-use until their natural expiry.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.RefreshToken == "" {
		writeUnauthorized(w, "refresh token is required")
		return
	}

	userID, err := s.tokens.ParseRefreshToken(req.RefreshToken)
	if err != nil {
		writeUnauthorized(w, "invalid refresh token")
		return
	}

	user, err := s.users.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeUnauthorized(w, "invalid refresh token")
			return
		}
		s.logger.Error("refresh lookup failed", "error", err)
		writeInternalError(w, "refresh failed")
		return
	}

	if user.Status != auth.StatusActive {
		writeUnauthorized(w, "account is disabled")
		return
	}

	pair, err := s.tokens.GenerateTokenPair(user)
	if err != nil {
		s.logger.Error("token generation failed", "error", err)
		writeInternalError(w, "refresh failed")
		return
	}

	writeSuccess(w, map[string]any{"tokens": pair})
}

// handleRegister creates a new viewer account.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
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

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("hash password failed", "error", err)
		writeInternalError(w, "registration failed")
		return
	}

	user := &auth.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         auth.RoleViewer,
		Status:       auth.StatusActive,
	}

	if err := s.users.Create(r.Context(), user); err != nil {
		if errors.Is(err, auth.ErrUsernameExists) {
			writeBadRequest(w, "username already exists")
			return
		}
		s.logger.Error("create user failed", "error", err)
		writeInternalError(w, "registration failed")
		return
	}

	s.logger.Info("user registered", "user_id", user.ID, "username", user.Username)
	writeSuccess(w, map[string]string{"id": user.ID})
}

// handleMe returns the current authenticated identity.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())

	user, err := s.users.GetByID(r.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeUnauthorized(w, "Invalid token")
			return
		}
		s.logger.Error("me lookup failed", "error", err)
		writeInternalError(w, "failed to load profile")
		return
	}

	writeSuccess(w, user)
}

// handleUpdateProfile updates the caller's own mutable profile fields.
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	user, err := s.users.Update(r.Context(), identity.UserID, auth.UserUpdate{
		Email: req.Email,
	})
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeUnauthorized(w, "Invalid token")
			return
		}
		s.logger.Error("profile update failed", "error", err)
		writeInternalError(w, "failed to update profile")
		return
	}

	writeSuccess(w, user)
}

// handleChangePassword replaces the caller's password after verifying the
// current one.
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if len(req.NewPassword) < minPasswordLength {
		writeBadRequest(w, "password must be at least 8 characters")
		return
	}

	user, err := s.users.GetByID(r.Context(), identity.UserID)
	if err != nil {
		s.logger.Error("password change lookup failed", "error", err)
		writeInternalError(w, "failed to change password")
		return
	}

	ok, err := auth.VerifyPassword(req.OldPassword, user.PasswordHash)
	if err != nil || !ok {
		writeBadRequest(w, "current password is incorrect")
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		s.logger.Error("hash password failed", "error", err)
		writeInternalError(w, "failed to change password")
		return
	}

	if err := s.users.UpdatePassword(r.Context(), user.ID, hash); err != nil {
		s.logger.Error("password update failed", "error", err)
		writeInternalError(w, "failed to change password")
		return
	}

	s.logger.Info("password changed", "user_id", user.ID)
	writeSuccess(w, nil)
}

// handleResetPassword acknowledges a password reset request. Delivery of
// reset links is an external mail concern; the endpoint accepts the
// request so the console flow completes.
func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Email == "" {
		writeBadRequest(w, "email is required")
		return
	}

	s.logger.Info("password reset requested", "email", req.Email)
	writeSuccess(w, map[string]string{"status": "reset request accepted"})
}
