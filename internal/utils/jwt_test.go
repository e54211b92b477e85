package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "unit-test-secret"

func TestAccessTokenRoundTrip(t *testing.T) {
	at, err := NewAccessToken(testSecret, 42, "ORGANIZER", 15)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}
	if at.Token == "" {
		t.Fatal("expected non-empty token")
	}
	if !at.Exp.After(time.Now()) {
		t.Errorf("expiry not in the future: %v", at.Exp)
	}

	tok, err := jwt.Parse(at.Token, func(tok *jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	if err != nil || !tok.Valid {
		t.Fatalf("parse issued token: %v", err)
	}
	claims := tok.Claims.(jwt.MapClaims)
	if sub, _ := claims["sub"].(float64); uint64(sub) != 42 {
		t.Errorf("sub: got %v, want 42", claims["sub"])
	}
	if role, _ := claims["role"].(string); role != "ORGANIZER" {
		t.Errorf("role: got %v, want ORGANIZER", claims["role"])
	}
}

func TestAccessTokenWrongSecret(t *testing.T) {
	at, err := NewAccessToken(testSecret, 1, "ATTENDEE", 15)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}
	tok, err := jwt.Parse(at.Token, func(tok *jwt.Token) (interface{}, error) {
		return []byte("some-other-secret"), nil
	})
	if err == nil && tok.Valid {
		t.Fatal("token validated under the wrong secret")
	}
}

func TestRefreshTokenHashing(t *testing.T) {
	rt, err := NewRefreshToken(30)
	if err != nil {
		t.Fatalf("NewRefreshToken: %v", err)
	}
	if len(rt.Raw) != 96 { // 48 random bytes, hex encoded
		t.Errorf("raw length: got %d, want 96", len(rt.Raw))
	}

	h1 := HashRefreshRaw(rt.Raw)
	h2 := HashRefreshRaw(rt.Raw)
	if h1 != h2 {
		t.Error("hashing is not deterministic")
	}
	if h1 == rt.Raw {
		t.Error("hash equals the raw token")
	}

	other, err := NewRefreshToken(30)
	if err != nil {
		t.Fatalf("NewRefreshToken: %v", err)
	}
	if HashRefreshRaw(other.Raw) == h1 {
		t.Error("distinct tokens hash identically")
	}
}
