package auth

import "testing"

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", 60)
	token, exp, err := tm.GenerateToken("admin-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if exp.IsZero() {
		t.Fatal("expected expiry")
	}

	claims, err := tm.ParseToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.AdminID != "admin-1" {
		t.Fatalf("expected admin-1, got %q", claims.AdminID)
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	tm := NewTokenManager("secret-a", 60)
	token, _, err := tm.GenerateToken("admin-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	other := NewTokenManager("secret-b", 60)
	if _, err := other.ParseToken(token); err == nil {
		t.Fatal("expected signature validation failure")
	}
}
