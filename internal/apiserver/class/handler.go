// Package class 课程领域 - 目录查询与审核生命周期
package class

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"sprache-server/internal/model"
	"sprache-server/internal/storage"
)

// PopularLimit 热门课程返回数量
const PopularLimit = 6

// ClassStore 课程存储接口
type ClassStore interface {
	CreateClass(ctx context.Context, class *model.Class) error
	GetClass(ctx context.Context, id string) (*model.Class, error)
	ListClasses(ctx context.Context) ([]*model.Class, error)
	ListClassesByStatus(ctx context.Context, status model.ClassStatus) ([]*model.Class, error)
	PopularClasses(ctx context.Context, limit int) ([]*model.Class, error)
	SetClassStatus(ctx context.Context, id string, status model.ClassStatus, allowReversal bool) error
	SetClassFeedback(ctx context.Context, id, feedback string) error
	AdjustClassCounters(ctx context.Context, id string, seatDelta, enrollDelta int) error
}

// PopularCache 热门课程查询缓存（可选，nil 时直接回源）
type PopularCache interface {
	GetPopularClasses(ctx context.Context) ([]*model.Class, error)
	SetPopularClasses(ctx context.Context, classes []*model.Class) error
}

// Handler 课程领域 HTTP 处理器
type Handler struct {
	store ClassStore
	cache PopularCache
	// allowReversal 已决课程（approved/denied）是否允许再次迁移，
	// 见 configs 中的 catalog.allow_status_reversal
	allowReversal bool
}

// NewHandler 创建课程处理器
func NewHandler(store ClassStore, cache PopularCache, allowReversal bool) *Handler {
	return &Handler{store: store, cache: cache, allowReversal: allowReversal}
}

type submitRequest struct {
	Name            string  `json:"name"`
	Image           string  `json:"image"`
	InstructorName  string  `json:"instructor_name"`
	InstructorEmail string  `json:"instructor_email"`
	Price           float64 `json:"price"`
	AvailableSeats  int     `json:"available_seats"`
}

// Submit 讲师提交新课程
//
// 路由: POST /add-class
//
// 状态由服务端强制置为 pending，客户端提交的状态字段被忽略。
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.InstructorEmail == "" {
		writeError(w, http.StatusBadRequest, "name and instructor_email are required")
		return
	}
	if req.AvailableSeats < 0 || req.Price < 0 {
		writeError(w, http.StatusBadRequest, "available_seats and price must not be negative")
		return
	}

	now := time.Now()
	class := &model.Class{
		ID:              generateID("class"),
		Name:            req.Name,
		Image:           req.Image,
		InstructorName:  req.InstructorName,
		InstructorEmail: req.InstructorEmail,
		Price:           req.Price,
		AvailableSeats:  req.AvailableSeats,
		Status:          model.ClassStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := h.store.CreateClass(r.Context(), class); err != nil {
		log.Printf("[class] CreateClass error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create class")
		return
	}

	log.Printf("[class] Class submitted: %s by %s", class.ID, class.InstructorEmail)
	writeJSON(w, http.StatusCreated, class)
}

// List 获取全部课程（含 pending/denied，管理后台用）
//
// 路由: GET /classes
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	classes, err := h.store.ListClasses(r.Context())
	if err != nil {
		log.Printf("[class] ListClasses error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list classes")
		return
	}
	writeJSON(w, http.StatusOK, classes)
}

// ListApproved 获取已审核通过的课程
//
// 路由: GET /all-classes
func (h *Handler) ListApproved(w http.ResponseWriter, r *http.Request) {
	classes, err := h.store.ListClassesByStatus(r.Context(), model.ClassStatusApproved)
	if err != nil {
		log.Printf("[class] ListClassesByStatus error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list classes")
		return
	}
	writeJSON(w, http.StatusOK, classes)
}

// Popular 获取热门课程（approved 中按报名人数降序前 6）
//
// 路由: GET /popular
func (h *Handler) Popular(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.cache != nil {
		cached, err := h.cache.GetPopularClasses(ctx)
		if err != nil {
			// 缓存故障只降级，不影响请求
			log.Printf("[class] popular cache read error: %v", err)
		} else if cached != nil {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	classes, err := h.store.PopularClasses(ctx, PopularLimit)
	if err != nil {
		log.Printf("[class] PopularClasses error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list popular classes")
		return
	}

	if h.cache != nil {
		if err := h.cache.SetPopularClasses(ctx, classes); err != nil {
			log.Printf("[class] popular cache write error: %v", err)
		}
	}

	writeJSON(w, http.StatusOK, classes)
}

// Approve 审核通过课程
//
// 路由: PATCH /approve/{id}（仅管理员）
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, model.ClassStatusApproved)
}

// Deny 审核驳回课程
//
// 路由: PATCH /deny/{id}（仅管理员）
func (h *Handler) Deny(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, model.ClassStatusDenied)
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request, status model.ClassStatus) {
	id := r.PathValue("id")

	err := h.store.SetClassStatus(r.Context(), id, status, h.allowReversal)
	if errors.Is(err, storage.ErrNotFound) {
		// 守卫未命中：区分"不存在"与"已决"
		existing, getErr := h.store.GetClass(r.Context(), id)
		if getErr == nil && existing != nil {
			writeError(w, http.StatusConflict, "class already decided")
			return
		}
		writeError(w, http.StatusNotFound, "class not found")
		return
	}
	if err != nil {
		log.Printf("[class] SetClassStatus error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to update class status")
		return
	}

	log.Printf("[class] Class %s -> %s", id, status)
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": string(status)})
}

type feedbackRequest struct {
	Feedback string `json:"feedback"`
}

// AttachFeedback 附加审核反馈，不触碰状态
//
// 路由: PATCH /add-feedback/{id}（仅管理员）
func (h *Handler) AttachFeedback(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Feedback == "" {
		writeError(w, http.StatusBadRequest, "feedback is required")
		return
	}

	err := h.store.SetClassFeedback(r.Context(), id, req.Feedback)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "class not found")
		return
	}
	if err != nil {
		log.Printf("[class] SetClassFeedback error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to attach feedback")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"id": id, "feedback": req.Feedback})
}

// ReduceSeat 座位数原子递减
//
// 路由: PATCH /reduce-seat/{id}
//
// 单次 $inc 带 available_seats > 0 守卫，售罄返回 409。
func (h *Handler) ReduceSeat(w http.ResponseWriter, r *http.Request) {
	h.adjustCounters(w, r, -1, 0)
}

// IncreaseEnroll 报名数原子递增
//
// 路由: PATCH /increase-enroll/{id}
func (h *Handler) IncreaseEnroll(w http.ResponseWriter, r *http.Request) {
	h.adjustCounters(w, r, 0, 1)
}

func (h *Handler) adjustCounters(w http.ResponseWriter, r *http.Request, seatDelta, enrollDelta int) {
	id := r.PathValue("id")

	err := h.store.AdjustClassCounters(r.Context(), id, seatDelta, enrollDelta)
	switch {
	case errors.Is(err, storage.ErrNoSeats):
		writeError(w, http.StatusConflict, "no seats available")
		return
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "class not found")
		return
	case err != nil:
		log.Printf("[class] AdjustClassCounters error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to update counters")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"id": id})
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

func generateID(prefix string) string {
	b := make([]byte, 6)
	rand.Read(b)
	return prefix + "-" + hex.EncodeToString(b)
}
