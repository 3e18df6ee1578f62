package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultIssuer   = "clientdesk"
	defaultTokenTTL = 24 * time.Hour
	minSecretLength = 16
)

// TokenConfig carries the signing key and token policy. It is fixed for the lifetime of a
// Tokens value; there is no runtime rotation.
type TokenConfig struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
	// Now overrides the clock. Nil means time.Now.
	Now func() time.Time
}

// Claims is the JWT payload issued to callers.
type Claims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies HS256 credentials.
type Tokens struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens validates cfg and returns a signer/verifier bound to it.
func NewTokens(cfg TokenConfig) (*Tokens, error) {
	if len(cfg.Secret) < minSecretLength {
		return nil, fmt.Errorf("auth: signing secret must be at least %d bytes", minSecretLength)
	}
	if cfg.TTL < 0 {
		return nil, errors.New("auth: token ttl must be positive")
	}
	t := &Tokens{
		secret: append([]byte(nil), cfg.Secret...),
		issuer: strings.TrimSpace(cfg.Issuer),
		ttl:    cfg.TTL,
		now:    cfg.Now,
	}
	if t.issuer == "" {
		t.issuer = defaultIssuer
	}
	if t.ttl == 0 {
		t.ttl = defaultTokenTTL
	}
	if t.now == nil {
		t.now = time.Now
	}
	return t, nil
}

// TTL returns the lifetime of issued tokens.
func (t *Tokens) TTL() time.Duration { return t.ttl }

// Sign issues a token asserting id. The expiry is returned alongside the token.
func (t *Tokens) Sign(id Identity) (string, time.Time, error) {
	if id.IsZero() {
		return "", time.Time{}, errors.New("auth: account id is required")
	}
	if !id.Role.Valid() {
		return "", time.Time{}, fmt.Errorf("auth: unknown role %q", id.Role)
	}
	now := t.now().UTC().Truncate(time.Second)
	expiresAt := now.Add(t.ttl)
	claims := Claims{
		Role: id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   id.AccountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks signature, method, issuer and expiry and returns the asserted identity.
// Every failure is reported as ErrUnauthenticated.
func (t *Tokens) Verify(token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ErrUnauthenticated
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Identity{}, ErrUnauthenticated
	}
	id := Identity{AccountID: strings.TrimSpace(claims.Subject), Role: claims.Role}
	if id.IsZero() || !id.Role.Valid() {
		return Identity{}, ErrUnauthenticated
	}
	return id, nil
}
