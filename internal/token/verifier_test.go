package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

const testSecret = "tracking-secret"

func signedToken(t *testing.T, claims TrackingClaims, secret string) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	assert.NoError(t, err)
	return raw
}

func validClaims() TrackingClaims {
	return TrackingClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		SessionID:   "sess-1",
		UserID:      "user-1",
		CampaignID:  "cmp-1",
		WorkspaceID: "ws-1",
		ProjectID:   "proj-1",
	}
}

func TestVerifier_ValidToken(t *testing.T) {
	v := NewVerifier(testSecret)

	claims, err := v.Verify(signedToken(t, validClaims(), testSecret))

	assert.NoError(t, err)
	assert.Equal(t, "sess-1", claims.SessionID)
	assert.Equal(t, "cmp-1", claims.CampaignID)
}

func TestVerifier_WrongSecret(t *testing.T) {
	v := NewVerifier(testSecret)

	_, err := v.Verify(signedToken(t, validClaims(), "other-secret"))

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifier_ExpiredToken(t *testing.T) {
	v := NewVerifier(testSecret)
	claims := validClaims()
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))

	_, err := v.Verify(signedToken(t, claims, testSecret))

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifier_MissingIdentityClaims(t *testing.T) {
	v := NewVerifier(testSecret)
	claims := validClaims()
	claims.SessionID = ""

	_, err := v.Verify(signedToken(t, claims, testSecret))

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifier_EmptyToken(t *testing.T) {
	v := NewVerifier(testSecret)

	_, err := v.Verify("   ")

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifier_WrongAlgorithmRejected(t *testing.T) {
	v := NewVerifier(testSecret)
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, validClaims()).SignedString(jwt.UnsafeAllowNoneSignatureType)
	assert.NoError(t, err)

	_, err = v.Verify(raw)

	assert.ErrorIs(t, err, ErrInvalidToken)
}
