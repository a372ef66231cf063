package auth

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"sprache-server/internal/model"
)

// UserStore 角色检查所需的最小存储接口
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

// Gate 路由级认证/授权门，包装单个 HandlerFunc
//
// 门是显式注入配置和存储的纯构造函数，不持有包级状态，
// 每个实例可独立测试。
type Gate func(http.HandlerFunc) http.HandlerFunc

// Authenticated 认证门
//
// 要求 Authorization: Bearer <token>，缺失、格式错误、签名无效
// 或过期一律 401。通过后将身份声明注入 context。
func Authenticated(cfg Config) Gate {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			claims, err := bearerClaims(cfg, r)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "Invalid access")
				return
			}
			ctx := WithClaim(r.Context(), &Claim{Email: claims.Email})
			next(w, r.WithContext(ctx))
		}
	}
}

// AdminOnly 管理员门
//
// 通过 Authenticated 组合构造，认证门必然先于角色检查执行，
// 顺序是结构保证而不是调用约定。每次请求都重查存储中的当前角色，
// 不做缓存，角色吊销在下一个请求立即生效。
func AdminOnly(cfg Config, store UserStore) Gate {
	authenticated := Authenticated(cfg)
	return func(next http.HandlerFunc) http.HandlerFunc {
		return authenticated(func(w http.ResponseWriter, r *http.Request) {
			claim := GetClaim(r.Context())
			user, err := store.GetUserByEmail(r.Context(), claim.Email)
			if err != nil {
				log.Printf("[auth] role lookup error for %s: %v", claim.Email, err)
				writeAuthError(w, http.StatusInternalServerError, "internal error")
				return
			}
			if user == nil || !user.IsAdmin() {
				writeAuthError(w, http.StatusForbidden, "Forbidden access")
				return
			}
			next(w, r)
		})
	}
}

// bearerClaims 从请求头提取并验证 Bearer Token
func bearerClaims(cfg Config, r *http.Request) (*Claims, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, errMissingHeader
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return nil, errMalformedHeader
	}
	return ParseToken(cfg, parts[1])
}

var (
	errMissingHeader   = &headerError{"missing authorization header"}
	errMalformedHeader = &headerError{"invalid authorization header"}
)

type headerError struct{ msg string }

func (e *headerError) Error() string { return e.msg }

// writeAuthError 认证/授权失败的结构化响应体
func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   true,
		"message": message,
	})
}
