package jwt

import (
	"errors"
	"strings"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

var (
	testAccessSecret  = []byte("access-secret-access-secret-0123456789")
	testRefreshSecret = []byte("refresh-secret-refresh-secret-0123456789")
)

func newTestIssuer(t *testing.T, clock func() time.Time) *Issuer {
	t.Helper()
	iss, err := NewIssuer(Config{
		AccessSecret:  testAccessSecret,
		RefreshSecret: testRefreshSecret,
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		Issuer:        "authcore",
		Clock:         clock,
	})
	if err != nil {
		t.Fatalf("NewIssuer error: %v", err)
	}
	return iss
}

func TestNewIssuerRejectsSharedSecret(t *testing.T) {
	_, err := NewIssuer(Config{
		AccessSecret:  testAccessSecret,
		RefreshSecret: testAccessSecret,
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	})
	if err == nil {
		t.Fatal("expected identical secrets to be rejected")
	}
}

func TestNewIssuerRejectsShortSecret(t *testing.T) {
	_, err := NewIssuer(Config{
		AccessSecret:  []byte("short"),
		RefreshSecret: testRefreshSecret,
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	})
	if err == nil {
		t.Fatal("expected short secret to be rejected")
	}
}

func TestAccessRoundTrip(t *testing.T) {
	iss := newTestIssuer(t, nil)

	token, expiresAt, err := iss.IssueAccess("u1", "admin")
	if err != nil {
		t.Fatalf("IssueAccess error: %v", err)
	}
	if d := time.Until(expiresAt); d <= 14*time.Minute || d > 15*time.Minute {
		t.Fatalf("unexpected access expiry distance %v", d)
	}

	claims, err := iss.Verify(token, KindAccess)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if claims.Subject != "u1" || claims.Role != "admin" || claims.Kind != KindAccess {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestRefreshCarriesNoRole(t *testing.T) {
	iss := newTestIssuer(t, nil)

	token, expiresAt, err := iss.IssueRefresh("u1")
	if err != nil {
		t.Fatalf("IssueRefresh error: %v", err)
	}
	if d := time.Until(expiresAt); d <= 6*24*time.Hour {
		t.Fatalf("unexpected refresh expiry distance %v", d)
	}

	claims, err := iss.Verify(token, KindRefresh)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if claims.Subject != "u1" || claims.Role != "" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestVerifyRejectsKindConfusion(t *testing.T) {
	iss := newTestIssuer(t, nil)

	access, _, _ := iss.IssueAccess("u1", "user")
	refresh, _, _ := iss.IssueRefresh("u1")

	if _, err := iss.Verify(access, KindRefresh); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected access token to fail as refresh, got %v", err)
	}
	if _, err := iss.Verify(refresh, KindAccess); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected refresh token to fail as access, got %v", err)
	}
}

func TestVerifyRejectsRetaggedTokenSignedWithOtherSecret(t *testing.T) {
	iss := newTestIssuer(t, nil)

	claims := Claims{
		Kind: KindRefresh,
		RegisteredClaims: gjwt.RegisteredClaims{
			Subject:   "u1",
			Issuer:    "authcore",
			IssuedAt:  gjwt.NewNumericDate(time.Now()),
			ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	forged, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString(testAccessSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := iss.Verify(forged, KindRefresh); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifyExpired(t *testing.T) {
	issuedAt := time.Now().Add(-8 * 24 * time.Hour)
	old := newTestIssuer(t, func() time.Time { return issuedAt })
	token, _, err := old.IssueRefresh("u1")
	if err != nil {
		t.Fatalf("IssueRefresh error: %v", err)
	}

	current := newTestIssuer(t, nil)
	if _, err := current.Verify(token, KindRefresh); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestVerifyTampered(t *testing.T) {
	iss := newTestIssuer(t, nil)
	token, _, _ := iss.IssueAccess("u1", "user")

	parts := strings.Split(token, ".")
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	if _, err := iss.Verify(tampered, KindAccess); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifyMalformed(t *testing.T) {
	iss := newTestIssuer(t, nil)

	for _, input := range []string{"", "not.a.jwt", "abc"} {
		if _, err := iss.Verify(input, KindAccess); !errors.Is(err, ErrMalformed) {
			t.Fatalf("input %q: expected ErrMalformed, got %v", input, err)
		}
	}
}

func TestVerifyRejectsNoneAlgorithm(t *testing.T) {
	iss := newTestIssuer(t, nil)

	claims := Claims{Kind: KindAccess, RegisteredClaims: gjwt.RegisteredClaims{
		Subject:   "u1",
		IssuedAt:  gjwt.NewNumericDate(time.Now()),
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	unsigned, err := gjwt.NewWithClaims(gjwt.SigningMethodNone, claims).SignedString(gjwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none token: %v", err)
	}
	if _, err := iss.Verify(unsigned, KindAccess); err == nil {
		t.Fatal("expected alg=none token to be rejected")
	}
}

func TestVerifyWrongIssuer(t *testing.T) {
	iss := newTestIssuer(t, nil)
	other, err := NewIssuer(Config{
		AccessSecret:  testAccessSecret,
		RefreshSecret: testRefreshSecret,
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		Issuer:        "someone-else",
	})
	if err != nil {
		t.Fatalf("NewIssuer error: %v", err)
	}

	token, _, _ := other.IssueAccess("u1", "user")
	if _, err := iss.Verify(token, KindAccess); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected issuer mismatch to fail, got %v", err)
	}
}
