package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sprache-server/internal/model"
)

// mockUserStore 模拟用户存储（仅实现 UserStore 接口）
type mockUserStore struct {
	users  map[string]*model.User
	getErr error
	reads  int
}

func (m *mockUserStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	m.reads++
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.users[email], nil
}

func bearer(t *testing.T, cfg Config, email string) string {
	t.Helper()
	token, err := GenerateAccessToken(cfg, email)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	return "Bearer " + token
}

func TestAuthenticated_MissingHeader(t *testing.T) {
	cfg := testConfig()
	called := false
	handler := Authenticated(cfg)(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	req := httptest.NewRequest("GET", "/booked", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if called {
		t.Error("handler must not execute without Authorization header")
	}

	var body map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["error"] != true || body["message"] != "Invalid access" {
		t.Errorf("body = %v, want {error:true, message:Invalid access}", body)
	}
}

func TestAuthenticated_BadHeader(t *testing.T) {
	cfg := testConfig()
	handler := Authenticated(cfg)(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not execute")
	})

	for _, header := range []string{
		"Basic abc",
		"Bearer",
		"Bearer not-a-token",
	} {
		req := httptest.NewRequest("GET", "/booked", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		handler(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("header %q: status = %d, want 401", header, rec.Code)
		}
	}
}

func TestAuthenticated_ExpiredToken(t *testing.T) {
	cfg := testConfig()
	expired := Config{JWTSecret: cfg.JWTSecret, AccessTokenTTL: -time.Minute}

	handler := Authenticated(cfg)(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not execute")
	})

	req := httptest.NewRequest("GET", "/booked", nil)
	req.Header.Set("Authorization", bearer(t, expired, "a@x.com"))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuthenticated_InjectsClaim(t *testing.T) {
	cfg := testConfig()
	var got *Claim
	handler := Authenticated(cfg)(func(w http.ResponseWriter, r *http.Request) {
		got = GetClaim(r.Context())
	})

	req := httptest.NewRequest("GET", "/booked", nil)
	req.Header.Set("Authorization", bearer(t, cfg, "a@x.com"))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got == nil || got.Email != "a@x.com" {
		t.Errorf("claim = %+v, want email a@x.com", got)
	}
}

func TestAdminOnly_NonAdmin(t *testing.T) {
	cfg := testConfig()
	store := &mockUserStore{users: map[string]*model.User{
		"s@x.com": {ID: "usr-1", Email: "s@x.com", Roles: []model.UserRole{model.UserRoleStudent}},
	}}

	handler := AdminOnly(cfg, store)(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not execute for non-admin")
	})

	req := httptest.NewRequest("GET", "/users", nil)
	req.Header.Set("Authorization", bearer(t, cfg, "s@x.com"))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}

	var body map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["message"] != "Forbidden access" {
		t.Errorf("message = %v, want Forbidden access", body["message"])
	}
}

func TestAdminOnly_UnknownUser(t *testing.T) {
	cfg := testConfig()
	store := &mockUserStore{users: map[string]*model.User{}}

	handler := AdminOnly(cfg, store)(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not execute")
	})

	req := httptest.NewRequest("GET", "/users", nil)
	req.Header.Set("Authorization", bearer(t, cfg, "ghost@x.com"))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestAdminOnly_Admin(t *testing.T) {
	cfg := testConfig()
	store := &mockUserStore{users: map[string]*model.User{
		"admin@x.com": {ID: "usr-1", Email: "admin@x.com", Roles: []model.UserRole{model.UserRoleAdmin}},
	}}

	called := false
	handler := AdminOnly(cfg, store)(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	req := httptest.NewRequest("GET", "/users", nil)
	req.Header.Set("Authorization", bearer(t, cfg, "admin@x.com"))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if !called {
		t.Error("handler must execute for admin")
	}
	if store.reads != 1 {
		t.Errorf("store reads = %d, want 1 (one role check per request)", store.reads)
	}
}

// TestAdminOnly_NoAuthSkipsRoleCheck 认证失败时不得触达存储层
func TestAdminOnly_NoAuthSkipsRoleCheck(t *testing.T) {
	cfg := testConfig()
	store := &mockUserStore{getErr: errors.New("must not be called")}

	handler := AdminOnly(cfg, store)(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not execute")
	})

	req := httptest.NewRequest("GET", "/users", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if store.reads != 0 {
		t.Errorf("store reads = %d, role check must not run without auth", store.reads)
	}
}

// TestAdminOnly_RevocationImmediate 每次请求重查角色，吊销立即生效
func TestAdminOnly_RevocationImmediate(t *testing.T) {
	cfg := testConfig()
	store := &mockUserStore{users: map[string]*model.User{
		"admin@x.com": {ID: "usr-1", Email: "admin@x.com", Roles: []model.UserRole{model.UserRoleAdmin}},
	}}

	handler := AdminOnly(cfg, store)(func(w http.ResponseWriter, r *http.Request) {})
	header := bearer(t, cfg, "admin@x.com")

	req := httptest.NewRequest("GET", "/users", nil)
	req.Header.Set("Authorization", header)
	rec := httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status before revocation = %d, want 200", rec.Code)
	}

	// 吊销角色后，同一个仍有效的令牌立即 403
	store.users["admin@x.com"].Roles = []model.UserRole{model.UserRoleStudent}

	req = httptest.NewRequest("GET", "/users", nil)
	req.Header.Set("Authorization", header)
	rec = httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status after revocation = %d, want 403", rec.Code)
	}
}
