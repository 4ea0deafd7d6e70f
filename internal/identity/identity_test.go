package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/minehubyt/Anand-Pandey/internal/config"
	"github.com/minehubyt/Anand-Pandey/internal/content"
	"github.com/minehubyt/Anand-Pandey/internal/docstore"
)

const testAdminEmail = "admin@anandpandey.in"

// fakeGoogle returns fixed claims for known tokens.
type fakeGoogle struct {
	tokens map[string]*GoogleClaims
}

func (f *fakeGoogle) Verify(_ context.Context, raw string) (*GoogleClaims, error) {
	c, ok := f.tokens[raw]
	if !ok {
		return nil, &ErrInvalidToken{Cause: errors.New("unknown token")}
	}
	return c, nil
}

func newTestAuthenticator(t *testing.T, google GoogleVerifier) (*Authenticator, *content.Service) {
	t.Helper()
	store := docstore.NewMemory()
	t.Cleanup(func() { _ = store.Close() })
	svc := content.NewService(store)
	passwords := &config.PasswordConfig{BcryptCost: bcrypt.MinCost}
	return NewAuthenticator(svc, passwords, google, testAdminEmail, nil), svc
}

func TestResolveRole(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		profile *content.UserProfile
		want    Role
	}{
		{name: "bootstrap admin without profile", email: testAdminEmail, want: RoleAdmin},
		{name: "bootstrap admin case-insensitive", email: " Admin@AnandPandey.in ", want: RoleAdmin},
		{name: "bootstrap admin overrides stored role", email: testAdminEmail, profile: &content.UserProfile{Role: "general"}, want: RoleAdmin},
		{name: "stored admin role", email: "partner@example.com", profile: &content.UserProfile{Role: "admin"}, want: RoleAdmin},
		{name: "stored applicant role", email: "a@example.com", profile: &content.UserProfile{Role: "applicant"}, want: RoleApplicant},
		{name: "no profile", email: "a@example.com", want: RoleGeneral},
		{name: "unknown stored role", email: "a@example.com", profile: &content.UserProfile{Role: "superuser"}, want: RoleGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveRole(tt.email, testAdminEmail, tt.profile))
		})
	}
	assert.Equal(t, RoleGeneral, ResolveRole(testAdminEmail, "", nil), "no bootstrap email configured")
}

func TestRegisterAndSignIn(t *testing.T) {
	ctx := context.Background()
	auth, svc := newTestAuthenticator(t, nil)

	id, err := auth.Register(ctx, RegisterRequest{Email: " Asha@Example.com ", Password: "correct horse", DisplayName: "Asha", Role: RoleApplicant})
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", id.Email)
	assert.Equal(t, RoleApplicant, id.Role)

	profile, err := svc.GetUserProfile(ctx, id.UID)
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.NotEqual(t, "correct horse", profile.PasswordHash)

	_, err = auth.Register(ctx, RegisterRequest{Email: "asha@example.com", Password: "another one", DisplayName: "A"})
	var exists *ErrEmailAlreadyExists
	require.ErrorAs(t, err, &exists)

	signedIn, err := auth.SignInWithPassword(ctx, "ASHA@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, id.UID, signedIn.UID)

	_, err = auth.SignInWithPassword(ctx, "asha@example.com", "wrong")
	var invalid *ErrInvalidCredentials
	require.ErrorAs(t, err, &invalid)

	_, err = auth.SignInWithPassword(ctx, "nobody@example.com", "whatever")
	require.ErrorAs(t, err, &invalid)
}

func TestRegister_CannotSelfAssignAdmin(t *testing.T) {
	ctx := context.Background()
	auth, _ := newTestAuthenticator(t, nil)

	id, err := auth.Register(ctx, RegisterRequest{Email: "x@example.com", Password: "password1", DisplayName: "X", Role: RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, RoleGeneral, id.Role)

	admin, err := auth.Register(ctx, RegisterRequest{Email: testAdminEmail, Password: "password1", DisplayName: "Admin"})
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin(), "bootstrap email is admin from the first sign-in")
}

func TestSignInWithGoogle(t *testing.T) {
	ctx := context.Background()
	google := &fakeGoogle{tokens: map[string]*GoogleClaims{
		"new-user":   {Subject: "g-1", Email: "new@example.com", EmailVerified: true, Name: "New"},
		"unverified": {Subject: "g-2", Email: "u@example.com", EmailVerified: false},
		"existing":   {Subject: "g-3", Email: "asha@example.com", EmailVerified: true},
	}}
	auth, svc := newTestAuthenticator(t, google)

	id, err := auth.SignInWithGoogle(ctx, "new-user")
	require.NoError(t, err)
	assert.Equal(t, "g-1", id.UID)
	assert.Equal(t, RoleGeneral, id.Role)
	stored, err := svc.GetUserProfile(ctx, "g-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Empty(t, stored.PasswordHash)

	again, err := auth.SignInWithGoogle(ctx, "new-user")
	require.NoError(t, err)
	assert.Equal(t, id.UID, again.UID)

	registered, err := auth.Register(ctx, RegisterRequest{Email: "asha@example.com", Password: "password1", DisplayName: "Asha"})
	require.NoError(t, err)
	linked, err := auth.SignInWithGoogle(ctx, "existing")
	require.NoError(t, err)
	assert.Equal(t, registered.UID, linked.UID)

	var invalid *ErrInvalidToken
	_, err = auth.SignInWithGoogle(ctx, "unverified")
	require.ErrorAs(t, err, &invalid)
	_, err = auth.SignInWithGoogle(ctx, "forged")
	require.ErrorAs(t, err, &invalid)

	// Password sign-in is refused for a Google-only account.
	_, err = auth.SignInWithPassword(ctx, "new@example.com", "")
	var creds *ErrInvalidCredentials
	require.ErrorAs(t, err, &creds)
}

func TestSignInWithGoogle_Disabled(t *testing.T) {
	auth, _ := newTestAuthenticator(t, nil)
	_, err := auth.SignInWithGoogle(context.Background(), "anything")
	var invalid *ErrInvalidToken
	require.ErrorAs(t, err, &invalid)
}

func TestLookupAndSetRole(t *testing.T) {
	ctx := context.Background()
	auth, _ := newTestAuthenticator(t, nil)

	id, err := auth.Register(ctx, RegisterRequest{Email: "p@example.com", Password: "password1", DisplayName: "P"})
	require.NoError(t, err)

	promoted, err := auth.SetRole(ctx, id.UID, RoleAdmin)
	require.NoError(t, err)
	assert.True(t, promoted.IsAdmin())

	looked, err := auth.Lookup(ctx, id.UID)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, looked.Role)

	_, err = auth.SetRole(ctx, id.UID, Role("owner"))
	assert.Error(t, err)

	var notFound *ErrUserNotFound
	_, err = auth.Lookup(ctx, "missing")
	require.ErrorAs(t, err, &notFound)
}

func TestTokenService_RoundTrip(t *testing.T) {
	svc := NewTokenService(&config.JWTConfig{Secret: "test-secret", ExpirationHours: 24})
	id := &Identity{UID: "u1", Email: "a@example.com", DisplayName: "A", Role: RoleApplicant}

	token, err := svc.GenerateToken(id)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, id, claims.Identity())
	assert.Equal(t, "u1", claims.Subject)
}

func TestTokenService_Rejects(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := NewTokenService(&config.JWTConfig{Secret: "test-secret", ExpirationHours: 1})
	svc.now = func() time.Time { return now }

	token, err := svc.GenerateToken(&Identity{UID: "u1", Role: RoleGeneral})
	require.NoError(t, err)

	other := NewTokenService(&config.JWTConfig{Secret: "other-secret", ExpirationHours: 1})
	other.now = svc.now

	tests := []struct {
		name  string
		svc   *TokenService
		token string
		at    time.Time
	}{
		{name: "empty", svc: svc, token: "", at: now},
		{name: "malformed", svc: svc, token: "not.a.jwt", at: now},
		{name: "wrong secret", svc: other, token: token, at: now},
		{name: "expired", svc: svc, token: token, at: now.Add(2 * time.Hour)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			at := tt.at
			tt.svc.now = func() time.Time { return at }
			_, err := tt.svc.ValidateToken(tt.token)
			var invalid *ErrInvalidToken
			require.ErrorAs(t, err, &invalid)
		})
	}
}

func TestSession_Observers(t *testing.T) {
	s := NewSession()

	var events []*Identity
	unsubscribe := s.Subscribe(func(id *Identity) { events = append(events, id) })

	require.Len(t, events, 1)
	assert.Nil(t, events[0], "subscribe emits the current state immediately")

	alice := &Identity{UID: "a", Role: RoleGeneral}
	s.SignIn(alice)
	s.SignOut()
	s.SignOut()

	require.Len(t, events, 3)
	assert.Equal(t, alice, events[1])
	assert.Nil(t, events[2])

	unsubscribe()
	unsubscribe()
	s.SignIn(alice)
	assert.Len(t, events, 3)
	assert.Equal(t, alice, s.Current())
}
