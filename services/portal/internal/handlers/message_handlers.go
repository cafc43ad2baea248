package handlers

import (
	"net/http"

	"github.com/diagnosis/institute-portal/services/portal/internal/domain"
)

func (h *Handlers) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req domain.SendMessageRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.messageService.SendToStudent(r.Context(), &req); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"msg":     "Message sent to student successfully!",
	})
}

func (h *Handlers) CreateNotification(w http.ResponseWriter, r *http.Request) {
	var req domain.NotificationRequest
	if !decode(w, r, &req) {
		return
	}

	n, err := h.messageService.CreateNotification(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"msg":      "Notification has been saved successfully",
		"savedMsg": n,
	})
}

// FetchNotifications is gated by the shared access code, not a token.
func (h *Handlers) FetchNotifications(w http.ResponseWriter, r *http.Request) {
	var req domain.FetchNotificationsRequest
	if !decode(w, r, &req) {
		return
	}

	list, err := h.messageService.ListNotifications(r.Context(), req.AccessCode)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"notifications": list,
	})
}
