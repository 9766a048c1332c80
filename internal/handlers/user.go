// internal/handlers/user.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/inkguess/inkguess/internal/auth"
	"github.com/inkguess/inkguess/internal/database"
	"github.com/inkguess/inkguess/internal/models"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

// setSessionCookie mirrors the token into an HttpOnly cookie so browser
// clients and the WebSocket upgrade authenticate the same way.
func setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    token,
		HttpOnly: true,
		Path:     "/",
		MaxAge:   auth.TOKEN_EXPIRE_TIME_SEC,
	})
}

// SessionHandler issues a guest session for a display name without touching
// the database. Party rooms only need a stable username.
func (s *Server) SessionHandler(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}
	username := strings.TrimSpace(req.Username)
	if username == "" {
		http.Error(w, "username is required", http.StatusBadRequest)
		return
	}

	token, err := auth.CreateSession(username)
	if err != nil {
		s.Logger.WithError(err).Error("failed to create guest session")
		http.Error(w, "failed to create session", http.StatusInternalServerError)
		return
	}

	setSessionCookie(w, token)
	writeJSON(w, sessionResponse{Token: token, Username: username})
}

// RegisterHandler creates a persistent account. Requires a database.
func (s *Server) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	if !database.Connected() {
		http.Error(w, "accounts are unavailable without a database", http.StatusServiceUnavailable)
		return
	}

	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		http.Error(w, "username and password are required", http.StatusBadRequest)
		return
	}

	user := models.User{Username: strings.TrimSpace(req.Username), Password: req.Password}
	if err := database.CreateUser(r.Context(), &user); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			http.Error(w, "username already exists", http.StatusConflict)
			return
		}
		s.Logger.WithError(err).Error("failed to create user")
		http.Error(w, "error creating user", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	writeJSON(w, user)
}

// LoginHandler authenticates an account and issues a session token.
func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if !database.Connected() {
		http.Error(w, "accounts are unavailable without a database", http.StatusServiceUnavailable)
		return
	}

	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}

	token, err := database.AuthenticateUser(r.Context(), req.Username, req.Password)
	if err != nil {
		s.Logger.WithError(err).Warn("failed login attempt")
		http.Error(w, "authentication failed", http.StatusForbidden)
		return
	}

	setSessionCookie(w, token)
	writeJSON(w, sessionResponse{Token: token, Username: req.Username})
}
