package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the JWT claims accepted from the identity provider. The
// subject is the user id.
type Claims struct {
	jwt.RegisteredClaims
	Name       string `json:"name,omitempty"`
	Role       string `json:"role"`
	EmployerID string `json:"employer_id,omitempty"`
	SiteID     string `json:"site_id,omitempty"`
}

// TokenVerifier validates HS256 bearer tokens.
type TokenVerifier struct {
	secret []byte
	issuer string
	parser *jwt.Parser
}

// NewTokenVerifier returns a verifier for tokens signed with secret. When
// issuer is non-empty the iss claim must match.
func NewTokenVerifier(secret, issuer string) (*TokenVerifier, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("jwt secret must be at least 32 bytes")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30 * time.Second),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	return &TokenVerifier{
		secret: []byte(secret),
		issuer: issuer,
		parser: jwt.NewParser(opts...),
	}, nil
}

// Verify parses raw and returns the carried identity.
func (v *TokenVerifier) Verify(raw string) (*SessionUser, error) {
	claims := &Claims{}
	token, err := v.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" || claims.Role == "" {
		return nil, errors.New("token missing subject or role")
	}
	return &SessionUser{
		ID:         claims.Subject,
		Name:       claims.Name,
		Role:       claims.Role,
		EmployerID: claims.EmployerID,
		SiteID:     claims.SiteID,
	}, nil
}

// Issue signs a token for u valid for ttl from now. Used by operator
// tooling and tests; production tokens come from the identity provider.
func (v *TokenVerifier) Issue(u *SessionUser, ttl time.Duration, now time.Time) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Name:       u.Name,
		Role:       u.Role,
		EmployerID: u.EmployerID,
		SiteID:     u.SiteID,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
