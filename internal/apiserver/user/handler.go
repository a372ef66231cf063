// Package user 用户领域 - 注册、角色查询与角色授予
package user

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"regexp"
	"time"

	"sprache-server/internal/apiserver/auth"
	"sprache-server/internal/model"
	"sprache-server/internal/storage"
)

// UserStore 用户存储接口
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	ListUsers(ctx context.Context) ([]*model.User, error)
	ListInstructors(ctx context.Context) ([]*model.User, error)
	GrantRole(ctx context.Context, id string, role model.UserRole, instructorEmail string) error
}

// Handler 用户领域 HTTP 处理器
type Handler struct {
	store UserStore
}

// NewHandler 创建用户处理器
func NewHandler(store UserStore) *Handler {
	return &Handler{store: store}
}

type registerRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Register 用户注册
//
// 路由: POST /users
//
// 按 email 幂等：重复注册不创建第二条记录，返回 200 和提示消息。
// 这是前端依赖的历史行为，不能改成 409。
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || !isValidEmail(req.Email) {
		writeError(w, http.StatusBadRequest, "valid email is required")
		return
	}

	existing, err := h.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		log.Printf("[user] GetUserByEmail error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if existing != nil {
		writeJSON(w, http.StatusOK, map[string]string{"message": "User already exist"})
		return
	}

	now := time.Now()
	user := &model.User{
		ID:        generateID("usr"),
		Email:     req.Email,
		Name:      req.Name,
		Roles:     []model.UserRole{model.UserRoleStudent},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.store.CreateUser(r.Context(), user); err != nil {
		// 并发注册同一邮箱时唯一索引兜底，命中时仍按幂等语义应答
		if errors.Is(err, storage.ErrDuplicate) {
			writeJSON(w, http.StatusOK, map[string]string{"message": "User already exist"})
			return
		}
		log.Printf("[user] CreateUser error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	log.Printf("[user] User registered: %s (%s)", user.Email, user.ID)
	writeJSON(w, http.StatusCreated, user)
}

// List 获取用户列表
//
// 路由: GET /users（仅管理员）
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		log.Printf("[user] ListUsers error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// ListInstructors 获取讲师列表
//
// 路由: GET /instructors
func (h *Handler) ListInstructors(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListInstructors(r.Context())
	if err != nil {
		log.Printf("[user] ListInstructors error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list instructors")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// CheckAdmin 自查管理员角色
//
// 路由: GET /users/admin/{email}
//
// 身份约束：调用者只能查询自己的角色。查询他人一律返回 false，
// 不泄露目标用户是否存在。
func (h *Handler) CheckAdmin(w http.ResponseWriter, r *http.Request) {
	h.checkRole(w, r, model.UserRoleAdmin, "admin")
}

// CheckInstructor 自查讲师角色
//
// 路由: GET /users/instructor/{email}
func (h *Handler) CheckInstructor(w http.ResponseWriter, r *http.Request) {
	h.checkRole(w, r, model.UserRoleInstructor, "instructor")
}

func (h *Handler) checkRole(w http.ResponseWriter, r *http.Request, role model.UserRole, field string) {
	email := r.PathValue("email")
	claim := auth.GetClaim(r.Context())

	if claim == nil || claim.Email != email {
		writeJSON(w, http.StatusOK, map[string]bool{field: false})
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), email)
	if err != nil {
		log.Printf("[user] GetUserByEmail error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{field: user != nil && user.HasRole(role)})
}

// GrantAdmin 授予管理员角色
//
// 路由: PATCH /users/admin/{id}（仅管理员）
func (h *Handler) GrantAdmin(w http.ResponseWriter, r *http.Request) {
	h.grantRole(w, r, model.UserRoleAdmin)
}

// GrantInstructor 授予讲师角色
//
// 路由: PATCH /users/instructor/{id}（仅管理员）
//
// 同时把目标用户自己的邮箱写入 instructor_email，供课程按讲师邮箱反查。
func (h *Handler) GrantInstructor(w http.ResponseWriter, r *http.Request) {
	h.grantRole(w, r, model.UserRoleInstructor)
}

func (h *Handler) grantRole(w http.ResponseWriter, r *http.Request, role model.UserRole) {
	id := r.PathValue("id")

	user, err := h.store.GetUserByID(r.Context(), id)
	if err != nil {
		log.Printf("[user] GetUserByID error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	if err := h.store.GrantRole(r.Context(), id, role, user.Email); err != nil {
		log.Printf("[user] GrantRole error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to grant role")
		return
	}

	updated, err := h.store.GetUserByID(r.Context(), id)
	if err != nil || updated == nil {
		log.Printf("[user] GetUserByID after grant error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	log.Printf("[user] Role %s granted to %s (%s)", role, updated.Email, id)
	writeJSON(w, http.StatusOK, updated)
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

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func isValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

func generateID(prefix string) string {
	b := make([]byte, 6)
	rand.Read(b)
	return prefix + "-" + hex.EncodeToString(b)
}
