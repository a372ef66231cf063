// Package enrollment 选课领域 - 预订、取消与支付记录
package enrollment

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"sprache-server/internal/apiserver/auth"
	"sprache-server/internal/model"
	"sprache-server/internal/payments"
	"sprache-server/internal/storage"
)

// EnrollmentStore 选课所需的存储接口（预订 + 支付 + 课程计数）
type EnrollmentStore interface {
	CreateBooking(ctx context.Context, booking *model.Booking) error
	GetBooking(ctx context.Context, id string) (*model.Booking, error)
	ListBookingsByEmail(ctx context.Context, email string) ([]*model.Booking, error)
	DeleteBooking(ctx context.Context, id string) error

	CreatePayment(ctx context.Context, payment *model.Payment) error
	ListPaymentsByEmail(ctx context.Context, email string) ([]*model.Payment, error)

	GetClass(ctx context.Context, id string) (*model.Class, error)
	AdjustClassCounters(ctx context.Context, id string, seatDelta, enrollDelta int) error
}

// Handler 选课领域 HTTP 处理器
type Handler struct {
	store   EnrollmentStore
	intents payments.IntentCreator
}

// NewHandler 创建选课处理器
func NewHandler(store EnrollmentStore, intents payments.IntentCreator) *Handler {
	return &Handler{store: store, intents: intents}
}

type bookRequest struct {
	ClassID string `json:"class_id"`
}

// Book 预订课程
//
// 路由: POST /booked
//
// 单请求内完成三步：守卫式座位递减 + 报名递增（一次原子更新）、
// 预订落库、落库失败时反向 $inc 补偿。座位不足返回 409，
// 不存在两个独立的客户端触发步骤。
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	claim := auth.GetClaim(r.Context())

	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ClassID == "" {
		writeError(w, http.StatusBadRequest, "class_id is required")
		return
	}

	class, err := h.store.GetClass(r.Context(), req.ClassID)
	if err != nil {
		log.Printf("[enrollment] GetClass error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if class == nil {
		writeError(w, http.StatusNotFound, "class not found")
		return
	}

	// 第一步：座位递减 + 报名递增，条件更新保证 available_seats 不为负
	err = h.store.AdjustClassCounters(r.Context(), req.ClassID, -1, 1)
	switch {
	case errors.Is(err, storage.ErrNoSeats):
		writeError(w, http.StatusConflict, "no seats available")
		return
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "class not found")
		return
	case err != nil:
		log.Printf("[enrollment] AdjustClassCounters error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to reserve seat")
		return
	}

	booking := &model.Booking{
		ID:             generateID("book"),
		Email:          claim.Email,
		ClassID:        class.ID,
		ClassName:      class.Name,
		InstructorName: class.InstructorName,
		Price:          class.Price,
		CreatedAt:      time.Now(),
	}

	// 第二步：预订落库，失败则补偿计数
	if err := h.store.CreateBooking(r.Context(), booking); err != nil {
		log.Printf("[enrollment] CreateBooking error: %v", err)
		if compErr := h.store.AdjustClassCounters(r.Context(), req.ClassID, 1, -1); compErr != nil {
			log.Printf("[enrollment] compensation failed for class %s: %v", req.ClassID, compErr)
		}
		writeError(w, http.StatusInternalServerError, "failed to create booking")
		return
	}

	log.Printf("[enrollment] Booking created: %s (%s -> %s)", booking.ID, booking.Email, class.ID)
	writeJSON(w, http.StatusCreated, booking)
}

// ListBookings 查询当前用户的预订
//
// 路由: GET /booked
func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	claim := auth.GetClaim(r.Context())

	bookings, err := h.store.ListBookingsByEmail(r.Context(), claim.Email)
	if err != nil {
		log.Printf("[enrollment] ListBookingsByEmail error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list bookings")
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

// CancelBooking 取消预订
//
// 路由: DELETE /delete-book/{id}
//
// id 即预订创建时返回的服务端标识符，没有第二套外部 ID。
// 取消时反向补偿座位/报名计数。
func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	claim := auth.GetClaim(r.Context())
	id := r.PathValue("id")

	booking, err := h.store.GetBooking(r.Context(), id)
	if err != nil {
		log.Printf("[enrollment] GetBooking error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if booking == nil {
		writeError(w, http.StatusNotFound, "booking not found")
		return
	}
	if booking.Email != claim.Email {
		writeError(w, http.StatusForbidden, "not your booking")
		return
	}

	if err := h.store.DeleteBooking(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "booking not found")
			return
		}
		log.Printf("[enrollment] DeleteBooking error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to delete booking")
		return
	}

	// 释放座位。课程可能已被删除（弱引用），未命中只记日志
	if err := h.store.AdjustClassCounters(r.Context(), booking.ClassID, 1, -1); err != nil {
		log.Printf("[enrollment] seat release failed for class %s: %v", booking.ClassID, err)
	}

	log.Printf("[enrollment] Booking cancelled: %s", id)
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "message": "booking deleted"})
}

type paymentIntentRequest struct {
	Price float64 `json:"price"`
}

// CreatePaymentIntent 创建支付意向
//
// 路由: POST /create-payment-intent
func (h *Handler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req paymentIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Price <= 0 {
		writeError(w, http.StatusBadRequest, "price must be positive")
		return
	}

	secret, err := h.intents.CreateIntent(r.Context(), req.Price)
	if err != nil {
		log.Printf("[enrollment] CreateIntent error: %v", err)
		writeError(w, http.StatusBadGateway, "payment processor error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"clientSecret": secret})
}

type recordPaymentRequest struct {
	Amount        float64 `json:"amount"`
	TransactionID string  `json:"transaction_id"`
	ClassID       string  `json:"class_id"`
	ClassName     string  `json:"class_name"`
}

// RecordPayment 记录已完成的支付（仅追加）
//
// 路由: POST /payments
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	claim := auth.GetClaim(r.Context())

	var req recordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}

	payment := &model.Payment{
		ID:            generateID("pay"),
		Email:         claim.Email,
		Amount:        req.Amount,
		TransactionID: req.TransactionID,
		ClassID:       req.ClassID,
		ClassName:     req.ClassName,
		CreatedAt:     time.Now(),
	}

	if err := h.store.CreatePayment(r.Context(), payment); err != nil {
		log.Printf("[enrollment] CreatePayment error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to record payment")
		return
	}

	log.Printf("[enrollment] Payment recorded: %s (%s, %.2f)", payment.ID, payment.Email, payment.Amount)
	writeJSON(w, http.StatusCreated, payment)
}

// PaymentHistory 查询当前用户的支付记录（最新在前）
//
// 路由: GET /payment-history, GET /enrolled
func (h *Handler) PaymentHistory(w http.ResponseWriter, r *http.Request) {
	claim := auth.GetClaim(r.Context())

	paymentList, err := h.store.ListPaymentsByEmail(r.Context(), claim.Email)
	if err != nil {
		log.Printf("[enrollment] ListPaymentsByEmail error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list payments")
		return
	}
	writeJSON(w, http.StatusOK, paymentList)
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
