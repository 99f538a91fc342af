package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/princebhatt03/UrbanCart/internal/domain"
	apperrors "github.com/princebhatt03/UrbanCart/pkg/errors"
)

// tokenIssuer is the iss claim stamped on every token.
const tokenIssuer = "urbancart"

// Claims carried by session tokens. The token proves who the caller was
// at issue time; the access-control middleware re-resolves the identity
// from the store on every request.
type Claims struct {
	UserID string `json:"uid"`
	Handle string `json:"handle"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// JWTManager issues and verifies HMAC-signed session tokens. Federated
// identities get a longer TTL than local ones.
type JWTManager struct {
	secret       []byte
	localTTL     time.Duration
	federatedTTL time.Duration
}

// NewJWTManager creates a JWT manager with the given signing secret and
// per-provider token lifetimes.
func NewJWTManager(secret string, localTTL, federatedTTL time.Duration) *JWTManager {
	return &JWTManager{
		secret:       []byte(secret),
		localTTL:     localTTL,
		federatedTTL: federatedTTL,
	}
}

// Issue signs a new token for the identity. Called on login and again
// after every profile-mutating operation so claims never go stale.
func (m *JWTManager) Issue(identity *domain.Identity) (string, error) {
	ttl := m.localTTL
	if identity.IsFederated() {
		ttl = m.federatedTTL
	}

	now := time.Now().UTC()
	claims := &Claims{
		UserID: identity.ID,
		Handle: identity.Handle,
		Email:  identity.Email,
		Role:   string(identity.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// Verify parses and validates a token, returning its claims.
func (m *JWTManager) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.Unauthorized("token has expired")
		}
		return nil, apperrors.Unauthorized("invalid token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, apperrors.Unauthorized("invalid token claims")
	}

	return claims, nil
}
