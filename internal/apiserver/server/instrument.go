// Package server 存储层可观测性装饰器
package server

import (
	"context"
	"time"

	"sprache-server/internal/model"
	"sprache-server/internal/storage"
	"sprache-server/pkg/logging"
)

// instrumentedStore 包装 PersistentStore，为每次存储调用记录
// 耗时指标与查询日志。领域包只见 storage 接口，感知不到装饰器。
type instrumentedStore struct {
	inner   storage.PersistentStore
	metrics *Metrics
	logger  *logging.Logger
}

func newInstrumentedStore(inner storage.PersistentStore, metrics *Metrics, logger *logging.Logger) *instrumentedStore {
	return &instrumentedStore{inner: inner, metrics: metrics, logger: logger}
}

// observe 记录单次存储调用。守卫未命中（ErrNotFound/ErrNoSeats 等）
// 也计入 error 状态，它们在存储视角同样是未生效的写入。
func (s *instrumentedStore) observe(operation, collection string, start time.Time, err error) {
	duration := time.Since(start)
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.DBQueriesTotal.WithLabelValues(operation, collection, status).Inc()
	s.metrics.DBQueryDuration.WithLabelValues(operation, collection).Observe(duration.Seconds())
	s.logger.DBQueryLog(operation, collection, duration, err)
}

// ============================================================================
// UserStore
// ============================================================================

func (s *instrumentedStore) CreateUser(ctx context.Context, user *model.User) error {
	start := time.Now()
	err := s.inner.CreateUser(ctx, user)
	s.observe("CreateUser", "users", start, err)
	return err
}

func (s *instrumentedStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	start := time.Now()
	user, err := s.inner.GetUserByEmail(ctx, email)
	s.observe("GetUserByEmail", "users", start, err)
	return user, err
}

func (s *instrumentedStore) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	start := time.Now()
	user, err := s.inner.GetUserByID(ctx, id)
	s.observe("GetUserByID", "users", start, err)
	return user, err
}

func (s *instrumentedStore) ListUsers(ctx context.Context) ([]*model.User, error) {
	start := time.Now()
	users, err := s.inner.ListUsers(ctx)
	s.observe("ListUsers", "users", start, err)
	return users, err
}

func (s *instrumentedStore) ListInstructors(ctx context.Context) ([]*model.User, error) {
	start := time.Now()
	users, err := s.inner.ListInstructors(ctx)
	s.observe("ListInstructors", "users", start, err)
	return users, err
}

func (s *instrumentedStore) GrantRole(ctx context.Context, id string, role model.UserRole, instructorEmail string) error {
	start := time.Now()
	err := s.inner.GrantRole(ctx, id, role, instructorEmail)
	s.observe("GrantRole", "users", start, err)
	return err
}

// ============================================================================
// ClassStore
// ============================================================================

func (s *instrumentedStore) CreateClass(ctx context.Context, class *model.Class) error {
	start := time.Now()
	err := s.inner.CreateClass(ctx, class)
	s.observe("CreateClass", "classes", start, err)
	return err
}

func (s *instrumentedStore) GetClass(ctx context.Context, id string) (*model.Class, error) {
	start := time.Now()
	class, err := s.inner.GetClass(ctx, id)
	s.observe("GetClass", "classes", start, err)
	return class, err
}

func (s *instrumentedStore) ListClasses(ctx context.Context) ([]*model.Class, error) {
	start := time.Now()
	classes, err := s.inner.ListClasses(ctx)
	s.observe("ListClasses", "classes", start, err)
	return classes, err
}

func (s *instrumentedStore) ListClassesByStatus(ctx context.Context, status model.ClassStatus) ([]*model.Class, error) {
	start := time.Now()
	classes, err := s.inner.ListClassesByStatus(ctx, status)
	s.observe("ListClassesByStatus", "classes", start, err)
	return classes, err
}

func (s *instrumentedStore) PopularClasses(ctx context.Context, limit int) ([]*model.Class, error) {
	start := time.Now()
	classes, err := s.inner.PopularClasses(ctx, limit)
	s.observe("PopularClasses", "classes", start, err)
	return classes, err
}

func (s *instrumentedStore) SetClassStatus(ctx context.Context, id string, status model.ClassStatus, allowReversal bool) error {
	start := time.Now()
	err := s.inner.SetClassStatus(ctx, id, status, allowReversal)
	s.observe("SetClassStatus", "classes", start, err)
	return err
}

func (s *instrumentedStore) SetClassFeedback(ctx context.Context, id, feedback string) error {
	start := time.Now()
	err := s.inner.SetClassFeedback(ctx, id, feedback)
	s.observe("SetClassFeedback", "classes", start, err)
	return err
}

func (s *instrumentedStore) AdjustClassCounters(ctx context.Context, id string, seatDelta, enrollDelta int) error {
	start := time.Now()
	err := s.inner.AdjustClassCounters(ctx, id, seatDelta, enrollDelta)
	s.observe("AdjustClassCounters", "classes", start, err)
	return err
}

// ============================================================================
// BookingStore
// ============================================================================

func (s *instrumentedStore) CreateBooking(ctx context.Context, booking *model.Booking) error {
	start := time.Now()
	err := s.inner.CreateBooking(ctx, booking)
	s.observe("CreateBooking", "bookings", start, err)
	return err
}

func (s *instrumentedStore) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	start := time.Now()
	booking, err := s.inner.GetBooking(ctx, id)
	s.observe("GetBooking", "bookings", start, err)
	return booking, err
}

func (s *instrumentedStore) ListBookingsByEmail(ctx context.Context, email string) ([]*model.Booking, error) {
	start := time.Now()
	bookings, err := s.inner.ListBookingsByEmail(ctx, email)
	s.observe("ListBookingsByEmail", "bookings", start, err)
	return bookings, err
}

func (s *instrumentedStore) DeleteBooking(ctx context.Context, id string) error {
	start := time.Now()
	err := s.inner.DeleteBooking(ctx, id)
	s.observe("DeleteBooking", "bookings", start, err)
	return err
}

// ============================================================================
// PaymentStore
// ============================================================================

func (s *instrumentedStore) CreatePayment(ctx context.Context, payment *model.Payment) error {
	start := time.Now()
	err := s.inner.CreatePayment(ctx, payment)
	s.observe("CreatePayment", "payments", start, err)
	return err
}

func (s *instrumentedStore) ListPaymentsByEmail(ctx context.Context, email string) ([]*model.Payment, error) {
	start := time.Now()
	paymentList, err := s.inner.ListPaymentsByEmail(ctx, email)
	s.observe("ListPaymentsByEmail", "payments", start, err)
	return paymentList, err
}

func (s *instrumentedStore) Close() error {
	return s.inner.Close()
}
