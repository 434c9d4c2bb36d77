package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"pharmline/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

// ErrUnauthenticated is returned for a missing or invalid credential.
// The HTTP layer maps it to 401.
var ErrUnauthenticated = errors.New("auth: unauthenticated")

// Identity is the resolver output: a stable caller identity plus display
// metadata, ready to be embedded in a call record.
type Identity struct {
	UID string

	// Identity is the telephony routing address derived from UID. Bounded and
	// sanitized so it is safe to embed in call routing metadata.
	Identity string

	CallerName string
	FirstName  string
	LastName   string
	Email      string
}

// Resolver verifies inbound bearer credentials and produces identities.
type Resolver struct {
	secret   []byte
	issuer   string
	audience string
}

func NewResolver(cfg config.AuthConfig) (*Resolver, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	return &Resolver{
		secret:   []byte(cfg.JWTSecret),
		issuer:   cfg.JWTIssuer,
		audience: cfg.JWTAudience,
	}, nil
}

// Resolve verifies the raw bearer token and returns the caller's identity.
// All verification failures collapse into ErrUnauthenticated; the cause is
// kept in the wrapped error for logs, not for clients.
func (r *Resolver) Resolve(tokenString string, now time.Time) (Identity, error) {
	var claims Claims

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if _, err := parser.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		return r.secret, nil
	}); err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	opts := []jwt.ParserOption{
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithLeeway(30 * time.Second), // clock skew tolerance
		jwt.WithExpirationRequired(),
	}
	if r.issuer != "" {
		opts = append(opts, jwt.WithIssuer(r.issuer))
	}
	if r.audience != "" {
		opts = append(opts, jwt.WithAudience(r.audience))
	}
	if err := jwt.NewValidator(opts...).Validate(claims.RegisteredClaims); err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	uid := claims.Subject
	if uid == "" {
		return Identity{}, fmt.Errorf("%w: sub missing", ErrUnauthenticated)
	}

	return Identity{
		UID:        uid,
		Identity:   RoutingIdentity(uid),
		CallerName: displayName(claims),
		FirstName:  claims.GivenName,
		LastName:   claims.FamilyName,
		Email:      claims.Email,
	}, nil
}

func displayName(c Claims) string {
	if c.Name != "" {
		return c.Name
	}
	if c.GivenName != "" || c.FamilyName != "" {
		return strings.TrimSpace(c.GivenName + " " + c.FamilyName)
	}
	return c.Email
}

const maxRoutingIdentityLen = 120

// RoutingIdentity derives the telephony routing address for a uid.
// Deterministic, restricted to [A-Za-z0-9_.-], and bounded so providers
// accept it as a client identity.
func RoutingIdentity(uid string) string {
	var b strings.Builder
	b.WriteString("user_")
	for _, r := range uid {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '_', r == '.', r == '-':
			b.WriteRune(r)
		}
		if b.Len() >= maxRoutingIdentityLen {
			break
		}
	}
	s := b.String()
	if len(s) > maxRoutingIdentityLen {
		s = s[:maxRoutingIdentityLen]
	}
	return s
}
