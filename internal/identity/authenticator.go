package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/minehubyt/Anand-Pandey/internal/config"
	"github.com/minehubyt/Anand-Pandey/internal/content"
)

// ProfileStore persists user profiles. *content.Service implements it.
type ProfileStore interface {
	GetUserProfile(ctx context.Context, uid string) (*content.UserProfile, error)
	GetUserByEmail(ctx context.Context, email string) (*content.UserProfile, error)
	SaveUserProfile(ctx context.Context, p content.UserProfile) error
}

// RegisterRequest creates a password account.
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	DisplayName string `json:"displayName" validate:"required"`
	// Role may be applicant or general; admin cannot be self-assigned.
	Role Role `json:"role,omitempty" validate:"omitempty,oneof=applicant general"`
}

// Authenticator signs users in with a password or a Google ID token.
type Authenticator struct {
	profiles   ProfileStore
	passwords  *config.PasswordConfig
	google     GoogleVerifier
	adminEmail string
	log        *zap.Logger
	now        func() time.Time
}

// NewAuthenticator creates an Authenticator. google may be nil when federated
// sign-in is disabled.
func NewAuthenticator(profiles ProfileStore, passwords *config.PasswordConfig, google GoogleVerifier, adminEmail string, logger *zap.Logger) *Authenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authenticator{
		profiles:   profiles,
		passwords:  passwords,
		google:     google,
		adminEmail: adminEmail,
		log:        logger,
		now:        time.Now,
	}
}

// AdminEmail is the bootstrap admin address.
func (a *Authenticator) AdminEmail() string {
	return a.adminEmail
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a password account.
func (a *Authenticator) Register(ctx context.Context, req RegisterRequest) (*Identity, error) {
	email := normalizeEmail(req.Email)
	existing, err := a.profiles.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email existence: %w", err)
	}
	if existing != nil {
		return nil, &ErrEmailAlreadyExists{Email: email}
	}

	hash, err := a.passwords.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	role := req.Role
	if role == "" || role == RoleAdmin {
		role = RoleGeneral
	}
	profile := content.UserProfile{
		UID:          uuid.NewString(),
		Email:        email,
		DisplayName:  strings.TrimSpace(req.DisplayName),
		Role:         string(role),
		PasswordHash: hash,
		CreatedAt:    a.now().UTC().Format(time.RFC3339),
	}
	if err := a.profiles.SaveUserProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	a.log.Info("registered user", zap.String("uid", profile.UID))
	return fromProfile(&profile, a.adminEmail), nil
}

// SignInWithPassword verifies email and password.
func (a *Authenticator) SignInWithPassword(ctx context.Context, email, password string) (*Identity, error) {
	profile, err := a.profiles.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	if profile == nil || profile.PasswordHash == "" {
		return nil, &ErrInvalidCredentials{}
	}
	if !a.passwords.VerifyPassword(password, profile.PasswordHash) {
		return nil, &ErrInvalidCredentials{}
	}
	return fromProfile(profile, a.adminEmail), nil
}

// SignInWithGoogle verifies a Google ID token, creating a profile on first
// sign-in. An existing password account with the same verified email is
// reused.
func (a *Authenticator) SignInWithGoogle(ctx context.Context, rawToken string) (*Identity, error) {
	if a.google == nil {
		return nil, &ErrInvalidToken{Cause: errors.New("google sign-in is disabled")}
	}
	claims, err := a.google.Verify(ctx, rawToken)
	if err != nil {
		return nil, err
	}
	if claims.Email == "" || !claims.EmailVerified {
		return nil, &ErrInvalidToken{Cause: errors.New("google account email is not verified")}
	}
	email := normalizeEmail(claims.Email)

	profile, err := a.profiles.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	if profile != nil {
		return fromProfile(profile, a.adminEmail), nil
	}

	profile = &content.UserProfile{
		UID:         claims.Subject,
		Email:       email,
		DisplayName: claims.Name,
		Role:        string(RoleGeneral),
		CreatedAt:   a.now().UTC().Format(time.RFC3339),
	}
	if err := a.profiles.SaveUserProfile(ctx, *profile); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	a.log.Info("created profile from google sign-in", zap.String("uid", profile.UID))
	return fromProfile(profile, a.adminEmail), nil
}

// Lookup reloads uid's identity so role changes take effect without a new
// sign-in.
func (a *Authenticator) Lookup(ctx context.Context, uid string) (*Identity, error) {
	profile, err := a.profiles.GetUserProfile(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if profile == nil {
		return nil, &ErrUserNotFound{UID: uid}
	}
	return fromProfile(profile, a.adminEmail), nil
}

// SetRole changes a user's stored role. The bootstrap admin stays admin
// regardless.
func (a *Authenticator) SetRole(ctx context.Context, uid string, role Role) (*Identity, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("invalid role: %q", role)
	}
	profile, err := a.profiles.GetUserProfile(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if profile == nil {
		return nil, &ErrUserNotFound{UID: uid}
	}
	profile.Role = string(role)
	if err := a.profiles.SaveUserProfile(ctx, *profile); err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}
	return fromProfile(profile, a.adminEmail), nil
}
