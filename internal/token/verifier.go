// Package token verifies the signed cross-domain tracking tokens that
// external-track callbacks carry in place of first-party cookies.
package token

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid tracking token")

// TrackingClaims is the session identity a tracking token asserts.
type TrackingClaims struct {
	jwt.RegisteredClaims
	SessionID       string `json:"session_id"`
	UserID          string `json:"user_id"`
	CampaignID      string `json:"campaign_id"`
	WorkspaceID     string `json:"workspace_id"`
	ProjectID       string `json:"project_id"`
	LandingPageID   string `json:"landing_page_id,omitempty"`
	ABTestID        string `json:"ab_test_id,omitempty"`
	ABTestVariantID string `json:"ab_test_variant_id,omitempty"`
	Environment     string `json:"environment,omitempty"`
}

// Verifier checks HS256 tracking tokens minted by the link builder.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates the token and requires the session and
// campaign identity claims to be present.
func (v *Verifier) Verify(raw string) (*TrackingClaims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidToken
	}

	var claims TrackingClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if claims.SessionID == "" || claims.CampaignID == "" {
		return nil, fmt.Errorf("%w: missing identity claims", ErrInvalidToken)
	}
	return &claims, nil
}
