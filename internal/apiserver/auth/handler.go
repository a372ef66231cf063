package auth

import (
	"encoding/json"
	"log"
	"net/http"
)

// Handler 令牌签发 HTTP 处理器
type Handler struct {
	cfg Config
}

// NewHandler 创建令牌处理器
func NewHandler(cfg Config) *Handler {
	return &Handler{cfg: cfg}
}

type tokenRequest struct {
	Email string `json:"email"`
}

// IssueToken 签发访问令牌
//
// 路由: POST /jwt
//
// 身份认证委托给客户端侧的身份提供方，本端只对提交的
// 身份载荷签发短时令牌。
func (h *Handler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	token, err := GenerateAccessToken(h.cfg, req.Email)
	if err != nil {
		log.Printf("[auth] GenerateAccessToken error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// ============================================================================
// 工具函数
// ============================================================================

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
