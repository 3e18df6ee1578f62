package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestTokens(t *testing.T, clock *fakeClock, ttl time.Duration) *Tokens {
	t.Helper()
	tokens, err := NewTokens(TokenConfig{Secret: testSecret, Issuer: "test", TTL: ttl, Now: clock.Now})
	if err != nil {
		t.Fatalf("NewTokens: %v", err)
	}
	return tokens
}

func TestSignVerifyRoundTrip(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	tokens := newTestTokens(t, clock, time.Hour)

	want := Identity{AccountID: "acc-1", Role: RoleCompanyUser}
	token, expiresAt, err := tokens.Sign(want)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !expiresAt.Equal(clock.t.Add(time.Hour)) {
		t.Fatalf("unexpected expiry %v", expiresAt)
	}

	clock.Advance(59 * time.Minute)
	got, err := tokens.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got != want {
		t.Fatalf("identity mismatch: got %+v want %+v", got, want)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	tokens := newTestTokens(t, clock, 2*time.Minute)

	token, _, err := tokens.Sign(Identity{AccountID: "acc-1", Role: RoleNormalUser})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	clock.Advance(2*time.Minute + time.Second)
	if _, err := tokens.Verify(token); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestVerifyRejectsForeignTokens(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	tokens := newTestTokens(t, clock, time.Hour)

	other, err := NewTokens(TokenConfig{Secret: []byte("another-secret-another-secret"), Issuer: "test", Now: clock.Now})
	if err != nil {
		t.Fatalf("NewTokens: %v", err)
	}
	foreign, _, err := other.Sign(Identity{AccountID: "acc-1", Role: RoleAdmin})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	otherIssuer, err := NewTokens(TokenConfig{Secret: testSecret, Issuer: "elsewhere", Now: clock.Now})
	if err != nil {
		t.Fatalf("NewTokens: %v", err)
	}
	wrongIssuer, _, err := otherIssuer.Sign(Identity{AccountID: "acc-1", Role: RoleAdmin})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		Role:             RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "acc-1", Issuer: "test", ExpiresAt: jwt.NewNumericDate(clock.t.Add(time.Hour))},
	})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}

	valid, _, err := tokens.Sign(Identity{AccountID: "acc-1", Role: RoleAdmin})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	tampered := valid[:strings.LastIndexByte(valid, '.')] + ".c2lnbmF0dXJl"

	for name, token := range map[string]string{
		"empty":         "",
		"garbage":       "not-a-jwt",
		"other secret":  foreign,
		"other issuer":  wrongIssuer,
		"alg none":      unsigned,
		"bad signature": tampered,
	} {
		if _, err := tokens.Verify(token); !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("%s: expected ErrUnauthenticated, got %v", name, err)
		}
	}
}

func TestNewTokensRequiresSecret(t *testing.T) {
	if _, err := NewTokens(TokenConfig{Secret: []byte("short")}); err == nil {
		t.Fatal("expected short secret to be rejected")
	}
	tokens, err := NewTokens(TokenConfig{Secret: testSecret})
	if err != nil {
		t.Fatalf("NewTokens: %v", err)
	}
	if tokens.TTL() != 24*time.Hour {
		t.Fatalf("unexpected default ttl %v", tokens.TTL())
	}
}

func TestSignRejectsUnknownRole(t *testing.T) {
	tokens := newTestTokens(t, &fakeClock{t: time.Now()}, time.Hour)
	if _, _, err := tokens.Sign(Identity{AccountID: "acc-1", Role: "root"}); err == nil {
		t.Fatal("expected unknown role to be rejected")
	}
}
