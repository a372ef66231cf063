package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestIssueToken(t *testing.T) {
	cfg := Config{JWTSecret: "test-secret", AccessTokenTTL: time.Hour}
	h := NewHandler(cfg)

	req := httptest.NewRequest("POST", "/jwt", strings.NewReader(`{"email":"alice@example.com"}`))
	w := httptest.NewRecorder()
	h.IssueToken(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	// 返回的令牌必须可被同一密钥验证，且主体为请求中的 email
	claims, err := ParseToken(cfg, resp["token"])
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.Email != "alice@example.com" {
		t.Errorf("Email = %q, want alice@example.com", claims.Email)
	}
}

func TestIssueTokenMissingEmail(t *testing.T) {
	h := NewHandler(Config{JWTSecret: "test-secret", AccessTokenTTL: time.Hour})

	req := httptest.NewRequest("POST", "/jwt", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	h.IssueToken(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestIssueTokenBadBody(t *testing.T) {
	h := NewHandler(Config{JWTSecret: "test-secret", AccessTokenTTL: time.Hour})

	req := httptest.NewRequest("POST", "/jwt", strings.NewReader("not json"))
	w := httptest.NewRecorder()
	h.IssueToken(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
