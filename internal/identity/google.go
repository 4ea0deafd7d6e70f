package identity

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/idtoken"
)

// GoogleClaims are the fields used from a verified Google ID token.
type GoogleClaims struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}

// GoogleVerifier checks a Google ID token.
type GoogleVerifier interface {
	Verify(ctx context.Context, rawToken string) (*GoogleClaims, error)
}

// IDTokenVerifier validates tokens against Google's published keys for one
// OAuth client id.
type IDTokenVerifier struct {
	Audience string
}

// Verify validates rawToken and extracts its claims.
func (v *IDTokenVerifier) Verify(ctx context.Context, rawToken string) (*GoogleClaims, error) {
	if v.Audience == "" {
		return nil, errors.New("google sign-in is not configured")
	}
	payload, err := idtoken.Validate(ctx, rawToken, v.Audience)
	if err != nil {
		return nil, &ErrInvalidToken{Cause: fmt.Errorf("google id token: %w", err)}
	}
	return claimsFromPayload(payload), nil
}

func claimsFromPayload(p *idtoken.Payload) *GoogleClaims {
	c := &GoogleClaims{Subject: p.Subject}
	if email, ok := p.Claims["email"].(string); ok {
		c.Email = email
	}
	if verified, ok := p.Claims["email_verified"].(bool); ok {
		c.EmailVerified = verified
	}
	if name, ok := p.Claims["name"].(string); ok {
		c.Name = name
	}
	return c
}
