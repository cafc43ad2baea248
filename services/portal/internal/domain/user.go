package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Role is the closed set of account kinds. Each role lives in its own collection.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
	RoleFaculty Role = "faculty"
)

// ParseRole accepts the userType strings clients send ("Admin", "student", ...).
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleStudent:
		return RoleStudent, nil
	case RoleFaculty:
		return RoleFaculty, nil
	}
	return "", Validation(fmt.Sprintf("invalid user type %q", s))
}

func (r Role) String() string {
	return string(r)
}

// Title is the capitalised form clients send as userType.
func (r Role) Title() string {
	if r == "" {
		return ""
	}
	return strings.ToUpper(string(r[:1])) + string(r[1:])
}

func (r Role) Collection() string {
	switch r {
	case RoleAdmin:
		return "admins"
	case RoleStudent:
		return "students"
	case RoleFaculty:
		return "faculties"
	}
	return ""
}

func (r Role) MinPasswordLength() int {
	if r == RoleAdmin {
		return 5
	}
	return 6
}

type User struct {
	ID           bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string        `bson:"name" json:"name"`
	Email        string        `bson:"email" json:"email"`
	PasswordHash string        `bson:"password,omitempty" json:"-"`
	Role         Role          `bson:"-" json:"role"`
	CreatedAt    time.Time     `bson:"date,omitempty" json:"created_at"`
}

func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

type LoginResponse struct {
	Success   bool   `json:"success"`
	AuthToken string `json:"authToken"`
	Role      Role   `json:"role"`
	ID        string `json:"id"`
	ExpiresIn int64  `json:"expires_in"`
}

type SetPasswordRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AdminSendOTPRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Title    string `json:"title"`
	Purpose  string `json:"purpose"`
}

type AdminLoginRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	OTP      OTPCode `json:"otp"`
}

type ChangePasswordRequest struct {
	Email       string  `json:"email"`
	NewPassword string  `json:"newPassword"`
	OTP         OTPCode `json:"otp"`
}

type ChangeEmailRequest struct {
	Email    string  `json:"email"`
	NewEmail string  `json:"newEmail"`
	OTP      OTPCode `json:"otp"`
}

type CreateAdminRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SendOTPRequest struct {
	Email    string `json:"email"`
	UserType string `json:"userType"`
}

type VerifyOTPRequest struct {
	Email    string  `json:"email"`
	UserType string  `json:"userType"`
	OTP      OTPCode `json:"otp"`
}

type ResetPasswordRequest struct {
	NewPassword string `json:"newPassword"`
}

// Validation methods
func (r *SetPasswordRequest) Validate(role Role) error {
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	return validatePassword(r.Password, role)
}

func (r *LoginRequest) Validate() error {
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	if r.Password == "" {
		return Validation("password cannot be blank")
	}
	return nil
}

func (r *AdminSendOTPRequest) Validate() error {
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	if r.Purpose == PurposeLogin && r.Password == "" {
		return Validation("password cannot be blank")
	}
	if _, err := ParsePurpose(r.Purpose); err != nil {
		return err
	}
	return nil
}

func (r *AdminLoginRequest) Validate() error {
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	if r.Password == "" {
		return Validation("password cannot be blank")
	}
	return r.OTP.Validate()
}

func (r *ChangePasswordRequest) Validate(role Role) error {
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	if err := validatePassword(r.NewPassword, role); err != nil {
		return err
	}
	return r.OTP.Validate()
}

func (r *ChangeEmailRequest) Validate() error {
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	if err := validateEmail(r.NewEmail); err != nil {
		return err
	}
	return r.OTP.Validate()
}

func (r *CreateAdminRequest) Validate() error {
	if len(strings.TrimSpace(r.Name)) < 3 {
		return Validation("name must be at least 3 characters")
	}
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	return validatePassword(r.Password, RoleAdmin)
}

func (r *SendOTPRequest) Validate() (Role, error) {
	if err := validateEmail(r.Email); err != nil {
		return "", err
	}
	return ParseRole(r.UserType)
}

func (r *VerifyOTPRequest) Validate() (Role, error) {
	if err := validateEmail(r.Email); err != nil {
		return "", err
	}
	role, err := ParseRole(r.UserType)
	if err != nil {
		return "", err
	}
	return role, r.OTP.Validate()
}

// Normalize methods
func (r *SetPasswordRequest) Normalize() {
	r.Email = normalizeEmail(r.Email)
}

func (r *LoginRequest) Normalize() {
	r.Email = normalizeEmail(r.Email)
}

func (r *AdminSendOTPRequest) Normalize() {
	r.Email = normalizeEmail(r.Email)
	r.Title = strings.TrimSpace(r.Title)
	r.Purpose = strings.TrimSpace(r.Purpose)
	if r.Purpose == "" {
		r.Purpose = PurposeLogin
	}
}

func (r *AdminLoginRequest) Normalize() {
	r.Email = normalizeEmail(r.Email)
}

func (r *ChangePasswordRequest) Normalize() {
	r.Email = normalizeEmail(r.Email)
}

func (r *ChangeEmailRequest) Normalize() {
	r.Email = normalizeEmail(r.Email)
	r.NewEmail = normalizeEmail(r.NewEmail)
}

func (r *CreateAdminRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = normalizeEmail(r.Email)
}

func (r *SendOTPRequest) Normalize() {
	r.Email = normalizeEmail(r.Email)
}

func (r *VerifyOTPRequest) Normalize() {
	r.Email = normalizeEmail(r.Email)
}

// Helper functions
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return Validation("email is required")
	}
	if !emailRegex.MatchString(email) {
		return Validation("enter a valid email")
	}
	return nil
}

// ValidatePassword applies the per-role minimum length.
func ValidatePassword(password string, role Role) error {
	return validatePassword(password, role)
}

func validatePassword(password string, role Role) error {
	if min := role.MinPasswordLength(); len(password) < min {
		return Validation(fmt.Sprintf("password must be at least %d characters", min))
	}
	return nil
}
