package handlers

import (
	"net/http"

	"github.com/diagnosis/institute-portal/pkg/auth"
	"github.com/diagnosis/institute-portal/services/portal/internal/domain"
	"github.com/go-chi/chi/v5"
)

// Middlewares are applied to groups of routes by Routes.
type Middlewares struct {
	// Idempotent wraps the payment mutations
	Idempotent func(http.Handler) http.Handler
	// Throttled wraps endpoints that accept passwords or OTPs without a session
	Throttled func(http.Handler) http.Handler
}

func passthrough(next http.Handler) http.Handler { return next }

// Routes mounts the API under r.
func (h *Handlers) Routes(r chi.Router, m Middlewares) {
	idempotent, throttled := m.Idempotent, m.Throttled
	if idempotent == nil {
		idempotent = passthrough
	}
	if throttled == nil {
		throttled = passthrough
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(throttled)
				r.Post("/sendotp", h.AdminSendOTP)
				r.Post("/login", h.AdminLogin)
				r.Post("/changepassword", h.AdminChangePassword)
				r.Post("/changeemail", h.AdminChangeEmail)
			})
			r.With(h.RequireSession(domain.RoleAdmin)).Post("/createadmin", h.CreateAdmin)
		})

		r.Route("/otp", func(r chi.Router) {
			r.With(throttled).Post("/sendotp", h.SendOTP)
			r.With(throttled, h.RequireChallenge(auth.StagePending)).Post("/verifyotp", h.VerifyOTP)
			r.With(h.RequireChallenge(auth.StageVerified)).Post("/reset-password", h.ResetPassword)
		})

		r.Route("/students", func(r chi.Router) {
			r.With(throttled).Post("/set-password", h.SetPassword(domain.RoleStudent))
			r.With(throttled).Post("/login", h.Login(domain.RoleStudent))

			r.Group(func(r chi.Router) {
				r.Use(h.RequireSession(domain.RoleStudent))
				r.Get("/profile", h.StudentProfile)
				r.Get("/attendance", h.StudentAttendance)
			})

			r.Group(func(r chi.Router) {
				r.Use(h.RequireSession(domain.RoleAdmin))
				r.Use(idempotent)
				r.Post("/manual-payment", h.ManualPayment)
				r.Post("/{id}/charge", h.ChargeFees)
			})
		})

		r.Route("/faculty", func(r chi.Router) {
			// Faculty credentials are only reachable through a verified OTP challenge.
			r.Group(func(r chi.Router) {
				r.Use(throttled)
				r.Use(h.RequireChallenge(auth.StageVerified))
				r.Post("/set-password", h.SetPasswordVerified(domain.RoleFaculty))
				r.Post("/login", h.LoginVerified(domain.RoleFaculty))
				r.Post("/reset-password", h.ResetPasswordAs(domain.RoleFaculty))
			})

			r.Group(func(r chi.Router) {
				r.Use(h.RequireSession(domain.RoleFaculty))
				r.Get("/profile", h.FacultyProfile)
				r.Get("/courses/{course}/students", h.CourseStudents)
				r.Post("/courses/{course}/attendance", h.MarkAttendance)
			})
		})

		r.Route("/fees", func(r chi.Router) {
			r.Use(h.RequireSession(domain.RoleStudent))
			r.Get("/", h.GetFees)
			r.With(idempotent).Post("/initiate-payment", h.InitiatePayment)
			r.With(idempotent).Post("/verify-payment", h.VerifyPayment)
		})

		r.Route("/send-message", func(r chi.Router) {
			r.Use(h.RequireSession(domain.RoleAdmin))
			r.Post("/", h.SendMessage)
			r.Post("/notification", h.CreateNotification)
		})

		r.With(throttled).Post("/handle-students/fetchnotification", h.FetchNotifications)
	})
}
