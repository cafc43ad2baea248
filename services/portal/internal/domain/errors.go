package domain

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindAuth
	KindAuthorization
	KindNotFound
	KindConflict
	KindDomain
	KindRateLimited
	KindInternal
)

// Error is returned by every portal operation that fails for a reason the
// caller can act on. Status overrides the kind's default HTTP status.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Status  int
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}
	switch e.Kind {
	case KindValidation, KindDomain:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Validation builds a 400 error for malformed input.
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Code: "INVALID_INPUT", Message: message}
}

// AsError extracts the *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

var (
	ErrUserNotFound     = &Error{Kind: KindNotFound, Code: "USER_NOT_FOUND", Message: "User not found"}
	ErrStudentNotFound  = &Error{Kind: KindNotFound, Code: "STUDENT_NOT_FOUND", Message: "Student not found"}
	ErrFacultyNotFound  = &Error{Kind: KindNotFound, Code: "FACULTY_NOT_FOUND", Message: "Faculty not found"}
	ErrNotCourseFaculty = &Error{Kind: KindAuthorization, Code: "COURSE_FORBIDDEN", Message: "You do not teach this course"}

	ErrOTPNotFound = &Error{Kind: KindDomain, Code: "OTP_NOT_FOUND", Message: "OTP not found or already used", Status: http.StatusUnauthorized}
	ErrOTPExpired  = &Error{Kind: KindDomain, Code: "OTP_EXPIRED", Message: "OTP has expired", Status: http.StatusUnauthorized}
	ErrOTPMismatch = &Error{Kind: KindDomain, Code: "OTP_MISMATCH", Message: "Invalid OTP", Status: http.StatusUnauthorized}

	ErrInvalidCredentials = &Error{Kind: KindAuth, Code: "INVALID_CREDENTIALS", Message: "Invalid credentials"}
	ErrInvalidToken       = &Error{Kind: KindAuth, Code: "INVALID_TOKEN", Message: "Invalid or expired token"}
	ErrMissingToken       = &Error{Kind: KindAuth, Code: "UNAUTHORIZED", Message: "Please authenticate using a valid token"}
	ErrForbidden          = &Error{Kind: KindAuthorization, Code: "FORBIDDEN", Message: "Access denied"}

	ErrPasswordAlreadySet = &Error{Kind: KindConflict, Code: "PASSWORD_ALREADY_SET", Message: "Password already set", Status: http.StatusBadRequest}
	ErrEmailTaken         = &Error{Kind: KindConflict, Code: "EMAIL_EXISTS", Message: "Email already registered"}

	ErrInvalidAmount         = &Error{Kind: KindValidation, Code: "INVALID_AMOUNT", Message: "Amount must be a positive number"}
	ErrInsufficientDue       = &Error{Kind: KindDomain, Code: "AMOUNT_EXCEEDS_DUE", Message: "Amount exceeds due balance"}
	ErrSignatureMismatch     = &Error{Kind: KindDomain, Code: "INVALID_SIGNATURE", Message: "Invalid signature"}
	ErrPaymentAlreadyApplied = &Error{Kind: KindConflict, Code: "PAYMENT_ALREADY_APPLIED", Message: "Payment already applied"}

	ErrNotificationFailure = &Error{Kind: KindInternal, Code: "NOTIFICATION_FAILED", Message: "Failed to send notification"}
	ErrTooManyRequests     = &Error{Kind: KindRateLimited, Code: "RATE_LIMIT_EXCEEDED", Message: "Too many requests. Please try again later."}
	ErrInvalidAccessCode   = &Error{Kind: KindAuthorization, Code: "INVALID_ACCESS_CODE", Message: "Invalid access code"}
)
