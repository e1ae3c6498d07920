package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	appI18n "github.com/pvidal/quizmark/internal/i18n"
)

type loginRequest struct {
	Password string `json:"password" validate:"required"`
}

// handleLogin exchanges the admin password for an API token.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if len(h.adminHash) == 0 {
		writeError(w, http.StatusNotFound, "admin access is disabled")
		return
	}

	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := bcrypt.CompareHashAndPassword(h.adminHash, []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, appI18n.T(r.Context(), "LoginError"))
		return
	}

	token, err := h.store.CreateAuthToken()
	if err != nil {
		slog.Error("create auth token failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// requireAuth checks for a valid bearer token on admin endpoints.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		authToken, err := h.store.GetAuthToken(token)
		if err != nil {
			slog.Error("get auth token failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if authToken == nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		next.ServeHTTP(w, r)
	})
}
