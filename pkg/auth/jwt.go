package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	KindSession   = "session"
	KindChallenge = "challenge"

	StagePending  = "pending"
	StageVerified = "verified"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is carried by both session and challenge tokens. Session tokens set
// Sub and Role; challenge tokens set Email, Role, Purpose and Stage.
type Claims struct {
	Sub     string `json:"id,omitempty"`
	Email   string `json:"email,omitempty"`
	Role    string `json:"role,omitempty"`
	Purpose string `json:"purpose,omitempty"`
	Stage   string `json:"stage,omitempty"`
	Kind    string `json:"kind"`
	jwt.RegisteredClaims
}

func (c *Claims) IsSession() bool {
	return c.Kind == KindSession
}

func (c *Claims) IsChallenge(stage string) bool {
	return c.Kind == KindChallenge && c.Stage == stage
}

type Options struct {
	Secret               string
	Audience             string
	SessionTTL           time.Duration
	PendingChallengeTTL  time.Duration
	VerifiedChallengeTTL time.Duration
}

// Issuer signs and verifies HS256 tokens. Verification is stateless: signature,
// audience and expiry only.
type Issuer struct {
	secret   []byte
	audience string
	session  time.Duration
	pending  time.Duration
	verified time.Duration
	now      func() time.Time
}

func NewIssuer(opts Options) *Issuer {
	return &Issuer{
		secret:   []byte(opts.Secret),
		audience: opts.Audience,
		session:  opts.SessionTTL,
		pending:  opts.PendingChallengeTTL,
		verified: opts.VerifiedChallengeTTL,
		now:      time.Now,
	}
}

// WithClock returns a copy of the issuer using now as its time source.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	cp := *i
	cp.now = now
	return &cp
}

func (i *Issuer) SessionTTL() time.Duration {
	return i.session
}

func (i *Issuer) IssueSession(userID, role string) (string, error) {
	return i.sign(Claims{
		Sub:  userID,
		Role: role,
		Kind: KindSession,
	}, i.session)
}

func (i *Issuer) IssueChallenge(email, role, purpose, stage string) (string, error) {
	ttl := i.pending
	if stage == StageVerified {
		ttl = i.verified
	}
	return i.sign(Claims{
		Email:   email,
		Role:    role,
		Purpose: purpose,
		Stage:   stage,
		Kind:    KindChallenge,
	}, ttl)
}

func (i *Issuer) sign(claims Claims, ttl time.Duration) (string, error) {
	now := i.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		Audience:  []string{i.audience},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(i.audience),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	if claims, ok := tok.Claims.(*Claims); ok && tok.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}
