package service

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/golang-jwt/jwt/v5"

	"github.com/sumire/pumpplanner/internal/domain"
)

// UserStore defines the user data access interface consumed by AuthService.
type UserStore interface {
	FindByID(ctx context.Context, orgID, id string) (*domain.User, error)
}

// AuthConfig holds token configuration.
type AuthConfig struct {
	JWTSecret string
	AccessTTL time.Duration
}

// AuthService validates the access tokens issued by the identity provider.
type AuthService struct {
	users     UserStore
	jwtSecret []byte
	accessTTL time.Duration
	now       func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(users UserStore, cfg AuthConfig) *AuthService {
	ttl := cfg.AccessTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &AuthService{
		users:     users,
		jwtSecret: []byte(cfg.JWTSecret),
		accessTTL: ttl,
		now:       time.Now,
	}
}

// accessClaims is the payload of an access token.
type accessClaims struct {
	OrganizationID string   `json:"org"`
	Roles          []string `json:"roles"`
	Type           string   `json:"type"`
	jwt.RegisteredClaims
}

// ValidateToken validates a JWT access token and returns the identity it asserts.
func (s *AuthService) ValidateToken(tokenString string) (*domain.Identity, error) {
	var claims accessClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Newf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "parse token"), domain.ErrUnauthorized)
	}
	if !token.Valid || claims.Type != "access" {
		return nil, domain.ErrUnauthorized
	}
	if claims.Subject == "" || claims.OrganizationID == "" {
		return nil, domain.ErrUnauthorized
	}

	id := &domain.Identity{
		UserID:         claims.Subject,
		OrganizationID: claims.OrganizationID,
		Roles:          make([]domain.Role, 0, len(claims.Roles)),
	}
	for _, r := range claims.Roles {
		id.Roles = append(id.Roles, domain.Role(r))
	}
	return id, nil
}

// IssueAccessToken signs an access token for id. The identity provider owns
// issuance in production; the server uses this for tooling and tests.
func (s *AuthService) IssueAccessToken(id domain.Identity) (string, error) {
	now := s.now()
	roles := make([]string, 0, len(id.Roles))
	for _, r := range id.Roles {
		roles = append(roles, string(r))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims{
		OrganizationID: id.OrganizationID,
		Roles:          roles,
		Type:           "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	})
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", errors.Wrap(err, "sign access token")
	}
	return signed, nil
}

// GetUser retrieves the user row behind id.
func (s *AuthService) GetUser(ctx context.Context, id domain.Identity) (*domain.User, error) {
	return s.users.FindByID(ctx, id.OrganizationID, id.UserID)
}
