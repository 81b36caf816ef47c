package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTestVerifier(t *testing.T, issuer string) *JWTVerifier {
	t.Helper()
	v, err := NewJWTVerifier("test-secret", issuer)
	if err != nil {
		t.Fatalf("NewJWTVerifier failed: %v", err)
	}
	v.now = func() time.Time { return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC) }
	return v
}

func TestNewJWTVerifier_RequiresSecret(t *testing.T) {
	if _, err := NewJWTVerifier(" ", ""); err == nil {
		t.Error("Expected error for empty secret")
	}
}

func TestJWTVerifier_RoundTrip(t *testing.T) {
	v := newTestVerifier(t, "ludo")
	token, err := v.Issue(Identity{PlayerID: "ana", Name: "Ana", Role: "player"}, time.Hour)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	for _, cred := range []string{token, "Bearer " + token, "  " + token + " "} {
		id, err := v.Verify(context.Background(), cred)
		if err != nil {
			t.Fatalf("Verify(%q) failed: %v", cred[:10], err)
		}
		if id.PlayerID != "ana" || id.Name != "Ana" || id.Role != "player" {
			t.Errorf("Unexpected identity %+v", id)
		}
	}
}

func TestJWTVerifier_Rejections(t *testing.T) {
	v := newTestVerifier(t, "ludo")
	ctx := context.Background()

	expired, _ := v.Issue(Identity{PlayerID: "ana"}, -time.Minute)

	other := newTestVerifier(t, "someone-else")
	wrongIssuer, _ := other.Issue(Identity{PlayerID: "ana"}, time.Hour)

	forger, _ := NewJWTVerifier("other-secret", "ludo")
	forger.now = v.now
	forged, _ := forger.Issue(Identity{PlayerID: "ana"}, time.Hour)

	noSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    "ludo",
		ExpiresAt: jwt.NewNumericDate(v.now().Add(time.Hour)),
	}).SignedString([]byte("test-secret"))

	noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:  "ludo",
		Subject: "ana",
	}).SignedString([]byte("test-secret"))

	unsigned, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Issuer:    "ludo",
		Subject:   "ana",
		ExpiresAt: jwt.NewNumericDate(v.now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name string
		cred string
		want error
	}{
		{"empty", "", ErrMissingCredential},
		{"bearer only", "Bearer ", ErrMissingCredential},
		{"garbage", "not-a-token", ErrInvalidCredential},
		{"expired", expired, ErrExpiredCredential},
		{"wrong issuer", wrongIssuer, ErrInvalidCredential},
		{"wrong secret", forged, ErrInvalidCredential},
		{"no subject", noSubject, ErrInvalidCredential},
		{"no expiry", noExpiry, ErrInvalidCredential},
		{"alg none", unsigned, ErrInvalidCredential},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(ctx, tt.cred)
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestJWTVerifier_AnyIssuer(t *testing.T) {
	v := newTestVerifier(t, "")
	issuer := newTestVerifier(t, "whoever")
	token, _ := issuer.Issue(Identity{PlayerID: "bo"}, time.Hour)

	if _, err := v.Verify(context.Background(), token); err != nil {
		t.Errorf("Expected any issuer accepted, got %v", err)
	}
}

func TestStaticDirectory(t *testing.T) {
	d := NewStaticDirectory(map[string]string{"ana": "Ana"})
	ctx := context.Background()

	if n, err := d.DisplayName(ctx, "ana"); err != nil || n != "Ana" {
		t.Errorf("Expected Ana, got %q/%v", n, err)
	}
	if _, err := d.DisplayName(ctx, "bo"); !errors.Is(err, ErrUnknownPlayer) {
		t.Errorf("Expected ErrUnknownPlayer, got %v", err)
	}

	d.Remember(Identity{PlayerID: "bo", Name: "Bo"})
	d.Remember(Identity{PlayerID: "cy"})
	if n, _ := d.DisplayName(ctx, "bo"); n != "Bo" {
		t.Errorf("Expected remembered name, got %q", n)
	}
	if _, err := d.DisplayName(ctx, "cy"); err == nil {
		t.Error("Identities without a name must not be stored")
	}
}

func TestRememberingVerifier(t *testing.T) {
	v := newTestVerifier(t, "")
	d := NewStaticDirectory(nil)
	rv := RememberingVerifier{Verifier: v, Directory: d}

	token, _ := v.Issue(Identity{PlayerID: "ana", Name: "Ana"}, time.Hour)
	if _, err := rv.Verify(context.Background(), token); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if n, _ := d.DisplayName(context.Background(), "ana"); n != "Ana" {
		t.Errorf("Expected name remembered, got %q", n)
	}
	if _, err := rv.Verify(context.Background(), "junk"); err == nil {
		t.Error("Expected junk rejected")
	}
}
