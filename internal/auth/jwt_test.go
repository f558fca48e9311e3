package auth

import (
	"strings"
	"testing"
	"time"

	"cosmos-server/internal/shared/config"
)

func configureAuth(t *testing.T) {
	t.Helper()
	prev := config.GlobalConfig
	config.GlobalConfig = &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:       "test-secret-test-secret-test-secret!",
			TokenExpiration: time.Hour,
		},
	}
	t.Cleanup(func() { config.GlobalConfig = prev })
}

func TestTokenRoundTrip(t *testing.T) {
	configureAuth(t)

	token, err := GenerateToken("user-42")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if claims.UserID != "user-42" {
		t.Fatalf("expected user-42, got %q", claims.UserID)
	}
}

func TestTamperedTokenRejected(t *testing.T) {
	configureAuth(t)

	token, err := GenerateToken("user-42")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %q", token)
	}
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	if _, err := ValidateToken(tampered); err == nil {
		t.Fatal("tampered signature should fail validation")
	}
}

func TestValidateWithoutSecretFails(t *testing.T) {
	prev := config.GlobalConfig
	config.GlobalConfig = nil
	t.Cleanup(func() { config.GlobalConfig = prev })

	if _, err := ValidateToken("whatever"); err == nil {
		t.Fatal("validation must fail without a configured secret")
	}
}
