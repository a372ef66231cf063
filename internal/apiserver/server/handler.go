// Package server 路由配置与核心基础设施
//
// 本文件定义 HTTP API 路由，将请求分发到各领域独立包。
// 所有路由的授权要求集中声明在一张策略表里（路由 → 能力），
// 领域 Handler 不感知认证细节。
package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"sprache-server/internal/apiserver/auth"
	"sprache-server/internal/apiserver/class"
	"sprache-server/internal/apiserver/enrollment"
	"sprache-server/internal/apiserver/user"
	"sprache-server/internal/model"
	"sprache-server/internal/payments"
	"sprache-server/internal/storage"
	"sprache-server/pkg/logging"
)

// capability 路由所需的最低访问能力
type capability int

const (
	capPublic        capability = iota // 无需认证
	capAuthenticated                   // 需要有效令牌
	capAdmin                           // 需要有效令牌 + admin 角色
)

// Handler API 处理器，聚合各领域依赖
type Handler struct {
	store   storage.PersistentStore
	cache   class.PopularCache // 可选，nil 时热门课程直接回源
	intents payments.IntentCreator
	authCfg auth.Config

	// allowReversal 已决课程是否允许再次审核
	allowReversal bool

	metrics *Metrics
	logger  *logging.Logger
}

// NewHandler 创建 Handler 实例
//
// 存储在此处统一包上可观测性装饰器，所有领域包经由它访问存储。
func NewHandler(store storage.PersistentStore, cache class.PopularCache, intents payments.IntentCreator, authCfg auth.Config, allowReversal bool) *Handler {
	metrics := NewMetrics("sprache")
	logger := logging.Default("api-server")
	return &Handler{
		store:         newInstrumentedStore(store, metrics, logger),
		cache:         cache,
		intents:       intents,
		authCfg:       authCfg,
		allowReversal: allowReversal,
		metrics:       metrics,
		logger:        logger,
	}
}

// StartMetricsRefresher 周期刷新课程状态分布指标，ctx 取消后退出
func (h *Handler) StartMetricsRefresher(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	h.refreshClassGauges(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.refreshClassGauges(ctx)
		}
	}
}

func (h *Handler) refreshClassGauges(ctx context.Context) {
	statuses := []model.ClassStatus{
		model.ClassStatusPending,
		model.ClassStatusApproved,
		model.ClassStatusDenied,
	}
	for _, status := range statuses {
		classes, err := h.store.ListClassesByStatus(ctx, status)
		if err != nil {
			log.Printf("[server] class gauge refresh error for %s: %v", status, err)
			continue
		}
		h.metrics.ClassesByStatus.WithLabelValues(string(status)).Set(float64(len(classes)))
	}
}

// Router 返回配置好的 HTTP 路由
//
// 路由规则：
//
// 公开:
//   - POST /jwt              - 签发访问令牌
//   - POST /users            - 注册用户（按 email 幂等）
//   - GET  /classes          - 全部课程
//   - GET  /all-classes      - 已审核课程
//   - GET  /popular          - 热门课程（前 6）
//   - GET  /instructors      - 讲师列表
//   - POST /add-class        - 讲师提交课程
//   - PATCH /reduce-seat/{id}, /increase-enroll/{id} - 原子计数调整
//
// 需认证:
//   - GET    /users/admin/{email}, /users/instructor/{email} - 角色自查
//   - POST   /booked, GET /booked, DELETE /delete-book/{id}  - 预订
//   - POST   /create-payment-intent, POST /payments          - 支付
//   - GET    /enrolled, /payment-history                     - 支付记录
//
// 仅管理员:
//   - GET   /users
//   - PATCH /users/admin/{id}, /users/instructor/{id}
//   - PATCH /approve/{id}, /deny/{id}, /add-feedback/{id}
func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	authHandler := auth.NewHandler(h.authCfg)
	userHandler := user.NewHandler(h.store)
	classHandler := class.NewHandler(h.store, h.cache, h.allowReversal)
	enrollHandler := enrollment.NewHandler(h.store, h.intents)

	// 授权策略表：每条路由在此声明所需能力，门在注册时统一包装
	routes := []struct {
		pattern string
		cap     capability
		fn      http.HandlerFunc
	}{
		// 令牌与注册
		{"POST /jwt", capPublic, authHandler.IssueToken},
		{"POST /users", capPublic, userHandler.Register},

		// 用户与角色
		{"GET /users", capAdmin, userHandler.List},
		{"GET /users/admin/{email}", capAuthenticated, userHandler.CheckAdmin},
		{"GET /users/instructor/{email}", capAuthenticated, userHandler.CheckInstructor},
		{"PATCH /users/admin/{id}", capAdmin, userHandler.GrantAdmin},
		{"PATCH /users/instructor/{id}", capAdmin, userHandler.GrantInstructor},
		{"GET /instructors", capPublic, userHandler.ListInstructors},

		// 课程目录
		{"GET /classes", capPublic, classHandler.List},
		{"GET /all-classes", capPublic, classHandler.ListApproved},
		{"GET /popular", capPublic, classHandler.Popular},
		{"POST /add-class", capPublic, classHandler.Submit},
		{"PATCH /approve/{id}", capAdmin, classHandler.Approve},
		{"PATCH /deny/{id}", capAdmin, classHandler.Deny},
		{"PATCH /add-feedback/{id}", capAdmin, classHandler.AttachFeedback},
		{"PATCH /reduce-seat/{id}", capPublic, classHandler.ReduceSeat},
		{"PATCH /increase-enroll/{id}", capPublic, classHandler.IncreaseEnroll},

		// 预订与支付
		{"POST /booked", capAuthenticated, enrollHandler.Book},
		{"GET /booked", capAuthenticated, enrollHandler.ListBookings},
		{"DELETE /delete-book/{id}", capAuthenticated, enrollHandler.CancelBooking},
		{"POST /create-payment-intent", capAuthenticated, enrollHandler.CreatePaymentIntent},
		{"POST /payments", capAuthenticated, enrollHandler.RecordPayment},
		{"GET /enrolled", capAuthenticated, enrollHandler.PaymentHistory},
		{"GET /payment-history", capAuthenticated, enrollHandler.PaymentHistory},
	}

	authenticated := auth.Authenticated(h.authCfg)
	adminOnly := auth.AdminOnly(h.authCfg, h.store)

	for _, rt := range routes {
		fn := rt.fn
		switch rt.cap {
		case capAuthenticated:
			fn = authenticated(fn)
		case capAdmin:
			fn = adminOnly(fn)
		}
		mux.HandleFunc(rt.pattern, fn)
	}

	// 健康检查与指标
	mux.HandleFunc("GET /health", h.Health)
	mux.Handle("GET /metrics", MetricsHandler())
	mux.HandleFunc("GET /{$}", h.Welcome)

	// 中间件链：指标 → 请求日志 → CORS
	handler := h.metrics.MetricsMiddleware(mux)
	handler = h.loggingMiddleware(handler)
	return corsMiddleware(handler)
}

// Health 健康检查接口
//
// 路由: GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// Welcome 根路由
func (h *Handler) Welcome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"message":"Welcome to the Sprache server!"}`))
}

// loggingMiddleware 结构化请求日志
func (h *Handler) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		h.logger.HTTPRequestLog(r.Method, r.URL.Path, wrapped.statusCode, time.Since(start), r.RemoteAddr)
	})
}

// corsMiddleware 添加 CORS 头支持跨域请求
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
