// Package identity signs visitors in, derives their role and publishes the
// current auth state to observers.
package identity

import (
	"strings"

	"github.com/minehubyt/Anand-Pandey/internal/content"
)

// Role controls access to protected views.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleApplicant Role = "applicant"
	RoleGeneral   Role = "general"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleApplicant, RoleGeneral:
		return true
	}
	return false
}

// Identity is an authenticated user.
type Identity struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Role        Role   `json:"role"`
}

// IsAdmin reports whether the identity may use the admin portal.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}

// ResolveRole derives the role for email. The bootstrap admin email is
// always admin; otherwise the profile's role applies, and a missing or
// unrecognised profile role means general.
func ResolveRole(email, bootstrapAdmin string, profile *content.UserProfile) Role {
	if bootstrapAdmin != "" && strings.EqualFold(strings.TrimSpace(email), strings.TrimSpace(bootstrapAdmin)) {
		return RoleAdmin
	}
	if profile == nil {
		return RoleGeneral
	}
	if r := Role(profile.Role); r.Valid() {
		return r
	}
	return RoleGeneral
}

func fromProfile(p *content.UserProfile, bootstrapAdmin string) *Identity {
	return &Identity{
		UID:         p.UID,
		Email:       p.Email,
		DisplayName: p.DisplayName,
		Role:        ResolveRole(p.Email, bootstrapAdmin, p),
	}
}
