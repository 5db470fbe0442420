package auth

import (
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/idkeeper/internal/common"
	"github.com/dmitrijs2005/idkeeper/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestCodec(t *testing.T, secret string, opts ...Option) *Codec {
	t.Helper()
	c, err := NewCodec([]byte(secret), opts...)
	if err != nil {
		t.Fatalf("NewCodec error: %v", err)
	}
	return c
}

func TestSignAndVerify_Success(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t, "super-secret")
	roles := []models.Role{models.RoleGeneral, models.RoleHR}

	tok, err := c.Sign("user-123", "alice", roles, time.Hour)
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}

	claims, err := c.Verify(tok)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if claims.Subject != "user-123" || claims.UserName != "alice" {
		t.Fatalf("claims mismatch: %+v", claims)
	}
	if len(claims.Roles) != 2 || claims.Roles[0] != models.RoleGeneral || claims.Roles[1] != models.RoleHR {
		t.Fatalf("roles mismatch: %v", claims.Roles)
	}
	if claims.ID == "" {
		t.Fatalf("expected jti to be set")
	}
}

func TestVerify_ExpiresAfterTTL(t *testing.T) {
	t.Parallel()

	clock := &testClock{t: time.Unix(1_700_000_000, 0)}
	c := newTestCodec(t, "secret", WithClock(clock.Now))

	tok, err := c.Sign("u1", "bob", []models.Role{models.RoleGeneral}, 2*time.Hour)
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}

	clock.Advance(2*time.Hour - time.Second)
	if _, err := c.Verify(tok); err != nil {
		t.Fatalf("expected token to be valid before ttl, got %v", err)
	}

	clock.Advance(2 * time.Second)
	_, err = c.Verify(tok)
	if !errors.Is(err, common.ErrTokenExpired) {
		t.Fatalf("expected common.ErrTokenExpired, got %v", err)
	}
}

func TestVerify_NegativeTTLIsExpired(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t, "secret")
	tok, err := c.Sign("u1", "bob", nil, -1*time.Second)
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}
	if _, err := c.Verify(tok); !errors.Is(err, common.ErrTokenExpired) {
		t.Fatalf("expected common.ErrTokenExpired, got %v", err)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := newTestCodec(t, "right-secret").Sign("u2", "carol", nil, time.Hour)
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}

	_, err = newTestCodec(t, "wrong-secret").Verify(tok)
	if !errors.Is(err, common.ErrInvalidSignature) {
		t.Fatalf("expected common.ErrInvalidSignature, got %v", err)
	}
}

func TestVerify_TamperedPayloadByte(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t, "secret")
	tok, err := c.Sign("u3", "dave", []models.Role{models.RoleGeneral}, time.Hour)
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}
	parts := strings.Split(tok, ".")

	for i := range parts[1] {
		payload := []byte(parts[1])
		if payload[i] == 'A' {
			payload[i] = 'B'
		} else {
			payload[i] = 'A'
		}
		tampered := parts[0] + "." + string(payload) + "." + parts[2]

		claims, err := c.Verify(tampered)
		if claims != nil {
			t.Fatalf("byte %d: tampered token returned claims %+v", i, claims)
		}
		if !errors.Is(err, common.ErrInvalidSignature) {
			t.Fatalf("byte %d: expected common.ErrInvalidSignature, got %v", i, err)
		}
	}
}

func TestVerify_ElevatedRolesWithStaleSignature(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t, "secret")
	tok, _ := c.Sign("u4", "erin", []models.Role{models.RoleGeneral}, time.Hour)
	parts := strings.Split(tok, ".")

	raw, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	forged := strings.Replace(string(raw), `"General"`, `"Admin"`, 1)
	tampered := parts[0] + "." + base64.RawURLEncoding.EncodeToString([]byte(forged)) + "." + parts[2]

	if _, err := c.Verify(tampered); !errors.Is(err, common.ErrInvalidSignature) {
		t.Fatalf("expected common.ErrInvalidSignature, got %v", err)
	}
}

func TestVerify_MalformedString(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t, "k")
	for _, tok := range []string{"", "not-a-jwt", "a.b", "a.b.c.d", "a.b.", "...", "not.a.jwt!"} {
		if _, err := c.Verify(tok); !errors.Is(err, common.ErrMalformedToken) {
			t.Fatalf("%q: expected common.ErrMalformedToken, got %v", tok, err)
		}
	}
}

func TestVerify_UndecodablePayloadWithValidSignature(t *testing.T) {
	t.Parallel()

	secret := []byte("k")
	c := newTestCodec(t, string(secret))

	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	payload := base64.RawURLEncoding.EncodeToString([]byte(`not json`))
	sig, err := jwt.SigningMethodHS256.Sign(header+"."+payload, secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	tok := header + "." + payload + "." + base64.RawURLEncoding.EncodeToString(sig)

	if _, err := c.Verify(tok); !errors.Is(err, common.ErrMalformedToken) {
		t.Fatalf("expected common.ErrMalformedToken, got %v", err)
	}
}

func TestVerify_MissingExpIsMalformed(t *testing.T) {
	t.Parallel()

	secret := []byte("k")
	c := newTestCodec(t, string(secret))

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u1"}).SignedString(secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := c.Verify(tok); !errors.Is(err, common.ErrMalformedToken) {
		t.Fatalf("expected common.ErrMalformedToken, got %v", err)
	}
}

func TestVerify_OtherAlgorithmRejected(t *testing.T) {
	t.Parallel()

	secret := []byte("k")
	c := newTestCodec(t, string(secret))

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"sub": "u1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := c.Verify(tok); err == nil {
		t.Fatalf("expected HS512 token to be rejected")
	}
}

func TestSign_SameSecondTokensDiffer(t *testing.T) {
	t.Parallel()

	clock := &testClock{t: time.Unix(1_700_000_000, 0)}
	c := newTestCodec(t, "secret", WithClock(clock.Now))

	a, _ := c.Sign("u1", "alice", nil, time.Hour)
	b, _ := c.Sign("u1", "alice", nil, time.Hour)
	if a == b {
		t.Fatalf("expected distinct tokens within the same second")
	}
}

func TestVerify_PreviousSecretStillAccepted(t *testing.T) {
	t.Parallel()

	old := newTestCodec(t, "old-secret")
	tok, _ := old.Sign("u1", "alice", nil, time.Hour)

	rotated := newTestCodec(t, "new-secret", WithPreviousSecrets([]byte("old-secret")))
	if _, err := rotated.Verify(tok); err != nil {
		t.Fatalf("expected token signed with retired secret to verify, got %v", err)
	}

	fresh, _ := rotated.Sign("u1", "alice", nil, time.Hour)
	if _, err := old.Verify(fresh); !errors.Is(err, common.ErrInvalidSignature) {
		t.Fatalf("expected new tokens to be signed with the new secret, got %v", err)
	}
}

func TestNewCodec_EmptySecret(t *testing.T) {
	t.Parallel()

	if _, err := NewCodec(nil); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}

func TestSign_EmptySubject(t *testing.T) {
	t.Parallel()

	if _, err := newTestCodec(t, "k").Sign("", "alice", nil, time.Hour); err == nil {
		t.Fatalf("expected error for empty subject")
	}
}
