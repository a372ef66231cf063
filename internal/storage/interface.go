package storage

import (
	"context"

	"sprache-server/internal/model"
)

// UserStore 用户存储
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	ListUsers(ctx context.Context) ([]*model.User, error)
	ListInstructors(ctx context.Context) ([]*model.User, error)
	// GrantRole 为用户追加角色（$addToSet，重复授予为幂等操作）。
	// instructorEmail 仅在授予 instructor 角色时写入记录。
	GrantRole(ctx context.Context, id string, role model.UserRole, instructorEmail string) error
}

// ClassStore 课程存储
type ClassStore interface {
	CreateClass(ctx context.Context, class *model.Class) error
	GetClass(ctx context.Context, id string) (*model.Class, error)
	ListClasses(ctx context.Context) ([]*model.Class, error)
	ListClassesByStatus(ctx context.Context, status model.ClassStatus) ([]*model.Class, error)
	// PopularClasses 按报名人数降序返回 approved 课程
	PopularClasses(ctx context.Context, limit int) ([]*model.Class, error)
	// SetClassStatus 状态迁移。allowReversal=false 时仅允许从 pending 迁移，
	// 条件更新未命中返回 ErrNotFound。
	SetClassStatus(ctx context.Context, id string, status model.ClassStatus, allowReversal bool) error
	SetClassFeedback(ctx context.Context, id, feedback string) error
	// AdjustClassCounters 单次原子 $inc 调整座位/报名计数。
	// 递减方向带下界守卫（seatDelta < 0 时 available_seats > 0，
	// enrollDelta < 0 时 enrolled_students > 0），未命中返回 ErrNoSeats。
	AdjustClassCounters(ctx context.Context, id string, seatDelta, enrollDelta int) error
}

// BookingStore 预订存储
type BookingStore interface {
	CreateBooking(ctx context.Context, booking *model.Booking) error
	GetBooking(ctx context.Context, id string) (*model.Booking, error)
	ListBookingsByEmail(ctx context.Context, email string) ([]*model.Booking, error)
	DeleteBooking(ctx context.Context, id string) error
}

// PaymentStore 支付存储（仅追加）
type PaymentStore interface {
	CreatePayment(ctx context.Context, payment *model.Payment) error
	ListPaymentsByEmail(ctx context.Context, email string) ([]*model.Payment, error)
}

// PersistentStore 聚合所有领域存储接口
type PersistentStore interface {
	UserStore
	ClassStore
	BookingStore
	PaymentStore

	Close() error
}
