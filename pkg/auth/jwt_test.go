package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIssuer() *Issuer {
	return NewIssuer(Options{
		Secret:               "test-secret",
		Audience:             "institute-portal",
		SessionTTL:           24 * time.Hour,
		PendingChallengeTTL:  5 * time.Minute,
		VerifiedChallengeTTL: 30 * time.Minute,
	})
}

func TestIssueSession_RoundTrip(t *testing.T) {
	iss := newTestIssuer()

	token, err := iss.IssueSession("64b7f0c2a1b2c3d4e5f60718", "student")
	require.NoError(t, err)

	claims, err := iss.Verify(token)
	require.NoError(t, err)
	assert.True(t, claims.IsSession())
	assert.Equal(t, "64b7f0c2a1b2c3d4e5f60718", claims.Sub)
	assert.Equal(t, "student", claims.Role)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestIssueChallenge_StageTTL(t *testing.T) {
	iss := newTestIssuer()

	pending, err := iss.IssueChallenge("a@b.com", "student", "verification", StagePending)
	require.NoError(t, err)
	verified, err := iss.IssueChallenge("a@b.com", "student", "verification", StageVerified)
	require.NoError(t, err)

	pc, err := iss.Verify(pending)
	require.NoError(t, err)
	vc, err := iss.Verify(verified)
	require.NoError(t, err)

	assert.True(t, pc.IsChallenge(StagePending))
	assert.False(t, pc.IsChallenge(StageVerified))
	assert.True(t, vc.IsChallenge(StageVerified))
	assert.Equal(t, 5*time.Minute, pc.ExpiresAt.Sub(pc.IssuedAt.Time))
	assert.Equal(t, 30*time.Minute, vc.ExpiresAt.Sub(vc.IssuedAt.Time))
}

func TestVerify_Expired(t *testing.T) {
	past := time.Now().Add(-48 * time.Hour)
	token, err := newTestIssuer().WithClock(func() time.Time { return past }).IssueSession("id", "admin")
	require.NoError(t, err)

	_, err = newTestIssuer().Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_WrongSecret(t *testing.T) {
	token, err := newTestIssuer().IssueSession("id", "admin")
	require.NoError(t, err)

	other := NewIssuer(Options{Secret: "other", Audience: "institute-portal", SessionTTL: time.Hour})
	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_WrongAudience(t *testing.T) {
	token, err := newTestIssuer().IssueSession("id", "admin")
	require.NoError(t, err)

	other := NewIssuer(Options{Secret: "test-secret", Audience: "someone-else", SessionTTL: time.Hour})
	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	claims := Claims{Sub: "id", Role: "admin", Kind: KindSession, RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		Audience:  []string{"institute-portal"},
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = newTestIssuer().Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Garbage(t *testing.T) {
	_, err := newTestIssuer().Verify("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
