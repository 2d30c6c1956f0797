package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/punchcard/punchcard/internal/model"
)

func newTestIssuer(t *testing.T, now time.Time) *TokenIssuer {
	t.Helper()
	issuer, err := NewTokenIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer failed: %v", err)
	}
	issuer.now = func() time.Time { return now }
	return issuer
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	now := time.Now()
	issuer := newTestIssuer(t, now)
	vendor := &model.Vendor{ID: "01JVENDOR", Email: "owner@shop.test"}

	token, expiresAt, err := issuer.Issue(vendor)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if !expiresAt.Equal(now.Add(time.Hour)) {
		t.Errorf("unexpected expiry %s", expiresAt)
	}

	auth, exp, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if auth.VendorID != vendor.ID || auth.Email != vendor.Email {
		t.Errorf("unexpected auth context: %+v", auth)
	}
	if auth.TokenID == "" {
		t.Error("expected token id")
	}
	if exp.Unix() != expiresAt.Unix() {
		t.Errorf("expected expiry %s, got %s", expiresAt, exp)
	}
}

func TestTokenIssuer_Expired(t *testing.T) {
	issued := time.Now().Add(-2 * time.Hour)
	issuer := newTestIssuer(t, issued)

	token, _, err := issuer.Issue(&model.Vendor{ID: "v1"})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	issuer.now = time.Now
	if _, _, err := issuer.Verify(token); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenIssuer_WrongSecret(t *testing.T) {
	issuer := newTestIssuer(t, time.Now())
	token, _, err := issuer.Issue(&model.Vendor{ID: "v1"})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	other, _ := NewTokenIssuer("another-secret", time.Hour)
	if _, _, err := other.Verify(token); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenIssuer_RejectsNoneAlgorithm(t *testing.T) {
	issuer := newTestIssuer(t, time.Now())

	claims := &VendorClaims{
		VendorID: "v1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}

	if _, _, err := issuer.Verify(unsigned); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenIssuer_Garbage(t *testing.T) {
	issuer := newTestIssuer(t, time.Now())

	for _, token := range []string{"", "abc", strings.Repeat("a.", 3)} {
		if _, _, err := issuer.Verify(token); err != ErrInvalidToken {
			t.Errorf("Verify(%q): expected ErrInvalidToken, got %v", token, err)
		}
	}
}

func TestNewTokenIssuer_EmptySecret(t *testing.T) {
	if _, err := NewTokenIssuer("", time.Hour); err != ErrEmptySecret {
		t.Errorf("expected ErrEmptySecret, got %v", err)
	}
}
