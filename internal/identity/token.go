package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/minehubyt/Anand-Pandey/internal/config"
)

// Claims are the session token claims.
type Claims struct {
	UserID      string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"name,omitempty"`
	Role        Role   `json:"role"`
	jwt.RegisteredClaims
}

// Identity rebuilds the identity carried by the token.
func (c *Claims) Identity() *Identity {
	return &Identity{UID: c.UserID, Email: c.Email, DisplayName: c.DisplayName, Role: c.Role}
}

// TokenService issues and validates HS256 session tokens.
type TokenService struct {
	config *config.JWTConfig
	now    func() time.Time
}

// NewTokenService creates a TokenService.
func NewTokenService(cfg *config.JWTConfig) *TokenService {
	return &TokenService{config: cfg, now: time.Now}
}

// Expiration is the lifetime of issued tokens.
func (s *TokenService) Expiration() time.Duration {
	return time.Duration(s.config.ExpirationHours) * time.Hour
}

// GenerateToken signs a token for id.
func (s *TokenService) GenerateToken(id *Identity) (string, error) {
	now := s.now()
	claims := &Claims{
		UserID:      id.UID,
		Email:       id.Email,
		DisplayName: id.DisplayName,
		Role:        id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.Expiration())),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken verifies tokenString and returns its claims.
func (s *TokenService) ValidateToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, &ErrInvalidToken{Cause: errors.New("token string is empty")}
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, &ErrInvalidToken{Cause: fmt.Errorf("token expired: %w", err)}
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, &ErrInvalidToken{Cause: fmt.Errorf("invalid token signature: %w", err)}
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, &ErrInvalidToken{Cause: fmt.Errorf("malformed token: %w", err)}
		}
		return nil, &ErrInvalidToken{Cause: fmt.Errorf("failed to parse token: %w", err)}
	}
	if !token.Valid {
		return nil, &ErrInvalidToken{Cause: errors.New("token is not valid")}
	}
	return claims, nil
}
