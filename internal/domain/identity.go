package domain

import "time"

// Role distinguishes storefront customers from back-office operators.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole returns the Role for s, or false when s is not a known role.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleUser, RoleAdmin:
		return Role(s), true
	}
	return "", false
}

// AuthProvider records which credential system owns an identity. Local
// identities carry a usable bcrypt hash; federated identities do not.
type AuthProvider string

const (
	ProviderLocal  AuthProvider = "local"
	ProviderGoogle AuthProvider = "google"
)

// DefaultAvatarURL is assigned when registration carries no image.
const DefaultAvatarURL = "/uploads/default-avatar.png"

// Identity is a user or admin account. Handles are unique per role, so
// the same handle may exist once as a user and once as an admin.
type Identity struct {
	ID           string       `json:"id"`
	FullName     string       `json:"full_name"`
	Handle       string       `json:"handle"`
	Email        string       `json:"email"`
	Mobile       string       `json:"mobile,omitempty"`
	PasswordHash string       `json:"-"`
	AvatarURL    string       `json:"avatar_url"`
	Role         Role         `json:"role"`
	AuthProvider AuthProvider `json:"auth_provider"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// IsFederated reports whether the identity is owned by an external
// provider. Federated identities cannot prove a local password.
func (i *Identity) IsFederated() bool {
	return i.AuthProvider != ProviderLocal
}

// IsAdmin reports whether the identity holds the admin role.
func (i *Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}
