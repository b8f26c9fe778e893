package auth

import (
	"strings"
	"testing"
	"time"
)

const testSecret = "test-secret"

func TestHashAndVerifyPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
	}{
		{"simple", "password123"},
		{"unicode", "кофе☕пароль"},
		{"short", "a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := HashPassword(tt.password)
			if err != nil {
				t.Fatalf("HashPassword() error = %v", err)
			}
			if hash == tt.password {
				t.Error("HashPassword() returned plaintext")
			}
			if !VerifyPassword(hash, tt.password) {
				t.Error("VerifyPassword() rejected correct password")
			}
			if VerifyPassword(hash, tt.password+"x") {
				t.Error("VerifyPassword() accepted wrong password")
			}
		})
	}
}

func TestGenerateAndParseToken(t *testing.T) {
	token, err := GenerateToken("user-1", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.UserID != "user-1" {
		t.Errorf("claims.UserID = %q, want %q", claims.UserID, "user-1")
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, err := GenerateToken("user-1", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if _, err := ParseToken(token, "other-secret"); err == nil {
		t.Error("ParseToken() accepted token signed with a different secret")
	}
}

func TestParseToken_Expired(t *testing.T) {
	token, err := GenerateToken("user-1", testSecret, -time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if _, err := ParseToken(token, testSecret); err == nil {
		t.Error("ParseToken() accepted expired token")
	}
}

func TestParseToken_Garbage(t *testing.T) {
	for _, tok := range []string{"", "not-a-token", strings.Repeat("x", 400)} {
		if _, err := ParseToken(tok, testSecret); err == nil {
			t.Errorf("ParseToken(%q) accepted malformed token", tok)
		}
	}
}
