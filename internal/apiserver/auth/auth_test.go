package auth

import (
	"strings"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{JWTSecret: "test-secret", AccessTokenTTL: time.Hour}
}

func TestTokenRoundTrip(t *testing.T) {
	cfg := testConfig()

	token, err := GenerateAccessToken(cfg, "a@x.com")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	claims, err := ParseToken(cfg, token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.Email != "a@x.com" {
		t.Errorf("Email = %q, want a@x.com", claims.Email)
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, _ := GenerateAccessToken(testConfig(), "a@x.com")

	other := Config{JWTSecret: "other-secret", AccessTokenTTL: time.Hour}
	if _, err := ParseToken(other, token); err == nil {
		t.Error("token signed with different secret must not verify")
	}
}

func TestParseToken_Tampered(t *testing.T) {
	cfg := testConfig()
	token, _ := GenerateAccessToken(cfg, "a@x.com")

	// 篡改 payload 段的一个字节
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token format: %q", token)
	}
	payload := []byte(parts[1])
	if payload[0] == 'A' {
		payload[0] = 'B'
	} else {
		payload[0] = 'A'
	}
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	if _, err := ParseToken(cfg, tampered); err == nil {
		t.Error("tampered token must not verify")
	}
}

func TestParseToken_Expired(t *testing.T) {
	cfg := Config{JWTSecret: "test-secret", AccessTokenTTL: -time.Minute}
	token, _ := GenerateAccessToken(cfg, "a@x.com")

	if _, err := ParseToken(testConfig(), token); err == nil {
		t.Error("expired token must not verify")
	}
}

func TestParseToken_Garbage(t *testing.T) {
	if _, err := ParseToken(testConfig(), "not-a-token"); err == nil {
		t.Error("malformed token must not verify")
	}
}
