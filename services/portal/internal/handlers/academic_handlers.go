package handlers

import (
	"net/http"

	"github.com/diagnosis/institute-portal/services/portal/internal/domain"
	"github.com/go-chi/chi/v5"
)

func (h *Handlers) StudentProfile(w http.ResponseWriter, r *http.Request) {
	id, err := sessionUserID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	student, err := h.academic.StudentProfile(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "student": student})
}

// StudentAttendance returns the caller's present and absent counts
func (h *Handlers) StudentAttendance(w http.ResponseWriter, r *http.Request) {
	id, err := sessionUserID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	summary, err := h.academic.StudentAttendance(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"presentCount": summary.PresentCount,
		"absentCount":  summary.AbsentCount,
	})
}

func (h *Handlers) FacultyProfile(w http.ResponseWriter, r *http.Request) {
	id, err := sessionUserID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	faculty, err := h.academic.FacultyProfile(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "faculty": faculty})
}

func (h *Handlers) CourseStudents(w http.ResponseWriter, r *http.Request) {
	id, err := sessionUserID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	students, err := h.academic.CourseStudents(r.Context(), id, chi.URLParam(r, "course"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "students": students})
}

func (h *Handlers) MarkAttendance(w http.ResponseWriter, r *http.Request) {
	id, err := sessionUserID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req domain.AttendanceRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := h.academic.MarkAttendance(r.Context(), id, chi.URLParam(r, "course"), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Attendance updated successfully",
		"updated": result,
	})
}
