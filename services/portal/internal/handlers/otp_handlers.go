package handlers

import (
	"net/http"

	"github.com/diagnosis/institute-portal/services/portal/internal/domain"
)

// SendOTP issues a verification code and returns a pending challenge token.
func (h *Handlers) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req domain.SendOTPRequest
	if !decode(w, r, &req) {
		return
	}

	token, err := h.authService.SendOTP(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"message":   "OTP sent successfully",
		"authToken": token,
	})
}

// VerifyOTP requires the pending challenge from SendOTP.
func (h *Handlers) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyOTPRequest
	if !decode(w, r, &req) {
		return
	}

	token, err := h.authService.VerifyOTP(r.Context(), getClaims(r), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"message":   "OTP verified successfully",
		"authToken": token,
	})
}

func (h *Handlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req domain.ResetPasswordRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.authService.ResetPassword(r.Context(), getClaims(r), &req); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Password reset successfully",
	})
}

// ResetPasswordAs only accepts challenges issued for role.
func (h *Handlers) ResetPasswordAs(role domain.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if claims := getClaims(r); claims == nil || claims.Role != role.String() {
			writeError(w, r, domain.ErrInvalidToken)
			return
		}
		h.ResetPassword(w, r)
	}
}
