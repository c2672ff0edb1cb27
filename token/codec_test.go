package token

import (
	"crypto/ed25519"
	"crypto/rand"
	"strings"
	"testing"
	"time"
)

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := NewCodec(Config{
		Method:     MethodHS256,
		Secret:     []byte("test-secret-key-material"),
		Issuer:     "vexauth-test",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	return c
}

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	c := newTestCodec(t)

	refresh, rc, err := c.IssueRefresh("u-1", "a@x.com")
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}
	if rc.TokenType != TypeRefresh || rc.Subject != "u-1" {
		t.Fatalf("unexpected refresh claims: %+v", rc)
	}

	access, ac, err := c.IssueAccess("u-1", "a@x.com", c.Hash(refresh))
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	if ac.RefreshHash != c.Hash(refresh) {
		t.Fatalf("access claims missing refresh hash")
	}

	claims, ok := c.Verify(access, TypeAccess)
	if !ok {
		t.Fatalf("verify access failed")
	}
	if claims.Subject != "u-1" || claims.Email != "a@x.com" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if _, ok := c.Verify(refresh, TypeRefresh); !ok {
		t.Fatalf("verify refresh failed")
	}
}

func TestVerifyRejectsWrongType(t *testing.T) {
	c := newTestCodec(t)

	refresh, _, err := c.IssueRefresh("u-1", "a@x.com")
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}
	if _, ok := c.Verify(refresh, TypeAccess); ok {
		t.Fatalf("refresh token accepted as access token")
	}
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	c := newTestCodec(t)

	access, _, err := c.IssueAccess("u-1", "a@x.com", "")
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}

	parts := strings.Split(access, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape")
	}
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))
	if _, ok := c.Verify(tampered, TypeAccess); ok {
		t.Fatalf("tampered token accepted")
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	c, err := NewCodec(Config{
		Method:     MethodHS256,
		Secret:     []byte("test-secret-key-material"),
		AccessTTL:  time.Nanosecond,
		RefreshTTL: time.Hour,
	})
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}

	access, _, err := c.IssueAccess("u-1", "", "")
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, ok := c.Verify(access, TypeAccess); ok {
		t.Fatalf("expired token accepted")
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	c := newTestCodec(t)
	for _, raw := range []string{"", "garbage", "a.b.c", strings.Repeat("x", 4096)} {
		if _, ok := c.Verify(raw, TypeAccess); ok {
			t.Fatalf("garbage token %q accepted", raw)
		}
	}
}

func TestHashIsDeterministicAndOpaque(t *testing.T) {
	c := newTestCodec(t)

	access, _, err := c.IssueAccess("u-1", "a@x.com", "")
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}

	h1 := c.Hash(access)
	h2 := c.Hash(access)
	if h1 != h2 {
		t.Fatalf("hash not deterministic")
	}
	if len(h1) != 64 {
		t.Fatalf("expected sha256 hex digest, got %d chars", len(h1))
	}
	if strings.Contains(access, h1) {
		t.Fatalf("hash leaks token material")
	}
}

func TestTokensIssuedTogetherAreDistinct(t *testing.T) {
	c := newTestCodec(t)

	a, _, err := c.IssueRefresh("u-1", "a@x.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	b, _, err := c.IssueRefresh("u-1", "a@x.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if a == b {
		t.Fatalf("two refresh tokens issued in the same instant are identical")
	}
}

func TestNewCodecRejectsMissingKeys(t *testing.T) {
	if _, err := NewCodec(Config{Method: MethodHS256, AccessTTL: time.Minute, RefreshTTL: time.Hour}); err == nil {
		t.Fatalf("hs256 without secret accepted")
	}
	if _, err := NewCodec(Config{Method: MethodEd25519, AccessTTL: time.Minute, RefreshTTL: time.Hour}); err == nil {
		t.Fatalf("ed25519 without keys accepted")
	}
	if _, err := NewCodec(Config{Method: "rsa", Secret: []byte("x"), AccessTTL: time.Minute, RefreshTTL: time.Hour}); err == nil {
		t.Fatalf("unknown method accepted")
	}
}

func TestEd25519RoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	c, err := NewCodec(Config{
		Method:     MethodEd25519,
		PrivateKey: priv,
		PublicKey:  pub,
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	})
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}

	access, _, err := c.IssueAccess("u-1", "a@x.com", "")
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	if _, ok := c.Verify(access, TypeAccess); !ok {
		t.Fatalf("ed25519 verify failed")
	}
}
