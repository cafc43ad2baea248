package handlers

import (
	"net/http"

	"github.com/diagnosis/institute-portal/services/portal/internal/domain"
)

// AdminSendOTP handles admin OTP issuance. For login the password is checked first.
func (h *Handlers) AdminSendOTP(w http.ResponseWriter, r *http.Request) {
	var req domain.AdminSendOTPRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.authService.AdminSendOTP(r.Context(), &req); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"msg":     "OTP sent successfully",
	})
}

// AdminLogin exchanges password and OTP for a session token
func (h *Handlers) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.AdminLoginRequest
	if !decode(w, r, &req) {
		return
	}

	resp, err := h.authService.AdminLogin(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) AdminChangePassword(w http.ResponseWriter, r *http.Request) {
	var req domain.ChangePasswordRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.authService.ChangePassword(r.Context(), domain.RoleAdmin, &req); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Password changed successfully",
	})
}

func (h *Handlers) AdminChangeEmail(w http.ResponseWriter, r *http.Request) {
	var req domain.ChangeEmailRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.authService.ChangeEmail(r.Context(), domain.RoleAdmin, &req); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Email changed successfully",
	})
}

func (h *Handlers) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateAdminRequest
	if !decode(w, r, &req) {
		return
	}

	user, err := h.authService.CreateAdmin(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"user":    user,
	})
}
