package handlers

import (
	"net/http"

	"github.com/diagnosis/institute-portal/services/portal/internal/domain"
)

// SetPassword lets a student or faculty member choose a password once.
func (h *Handlers) SetPassword(role domain.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req domain.SetPasswordRequest
		if !decode(w, r, &req) {
			return
		}

		if err := h.authService.SetPassword(r.Context(), role, &req); err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "Password set successfully",
		})
	}
}

func (h *Handlers) Login(role domain.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req domain.LoginRequest
		if !decode(w, r, &req) {
			return
		}

		resp, err := h.authService.Login(r.Context(), role, &req)
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// SetPasswordVerified requires a verified challenge issued for the same email.
func (h *Handlers) SetPasswordVerified(role domain.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req domain.SetPasswordRequest
		if !decode(w, r, &req) {
			return
		}

		if err := h.authService.SetPasswordWithChallenge(r.Context(), getClaims(r), role, &req); err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "Password set successfully",
		})
	}
}

func (h *Handlers) LoginVerified(role domain.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req domain.LoginRequest
		if !decode(w, r, &req) {
			return
		}

		resp, err := h.authService.LoginWithChallenge(r.Context(), getClaims(r), role, &req)
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
