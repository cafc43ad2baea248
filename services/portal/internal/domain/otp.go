package domain

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// OTP purposes
const (
	PurposeLogin          = "login"
	PurposeChangePassword = "change_password"
	PurposeChangeEmail    = "change_email"
	PurposeVerification   = "verification"
)

const (
	OTPMin = 100000
	OTPMax = 999999
)

func ParsePurpose(s string) (string, error) {
	switch s {
	case PurposeLogin, PurposeChangePassword, PurposeChangeEmail, PurposeVerification:
		return s, nil
	}
	return "", Validation(fmt.Sprintf("invalid purpose %q", s))
}

// OTPSubject is the email subject line used when no title is supplied.
func OTPSubject(purpose string) string {
	switch purpose {
	case PurposeLogin:
		return "Your login verification code"
	case PurposeChangePassword:
		return "Password change verification code"
	case PurposeChangeEmail:
		return "Email change verification code"
	default:
		return "Your verification code"
	}
}

type OTPRecord struct {
	ID        bson.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    bson.ObjectID `bson:"userId" json:"user_id"`
	Role      Role          `bson:"role" json:"role"`
	Purpose   string        `bson:"purpose" json:"purpose"`
	Code      int           `bson:"code" json:"-"`
	CreatedAt time.Time     `bson:"createdAt" json:"created_at"`
	ExpiresAt time.Time     `bson:"expiresAt" json:"expires_at"`
}

func (o *OTPRecord) IsExpired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}

// VerifiedOTP identifies the user whose code was just consumed.
type VerifiedOTP struct {
	UserID bson.ObjectID
	Role   Role
	Email  string
}

// GenerateOTP returns a code uniformly distributed over [OTPMin, OTPMax].
func GenerateOTP() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(OTPMax-OTPMin+1))
	if err != nil {
		return 0, err
	}
	return OTPMin + int(n.Int64()), nil
}

var otpRegex = regexp.MustCompile(`^\d{6}$`)

// OTPCode is a submitted code. Clients send it either as a JSON number or a string.
type OTPCode string

func (c *OTPCode) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = OTPCode(strings.TrimSpace(s))
		return nil
	}
	if string(data) == "null" {
		*c = ""
		return nil
	}
	*c = OTPCode(data)
	return nil
}

func (c OTPCode) Validate() error {
	if c == "" {
		return Validation("otp is required")
	}
	if !otpRegex.MatchString(string(c)) {
		return Validation("otp must be 6 digits")
	}
	return nil
}

func (c OTPCode) Int() int {
	n, _ := strconv.Atoi(string(c))
	return n
}
