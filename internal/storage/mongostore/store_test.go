package mongostore

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"sprache-server/internal/model"
	"sprache-server/internal/storage"
)

// testStore 创建测试用 Store，使用独立数据库避免污染
func testStore(t *testing.T) *Store {
	t.Helper()

	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}

	dbName := "sprache_test"
	s, err := NewStore(uri, dbName)
	if err != nil {
		t.Skipf("MongoDB not available: %v", err)
	}

	// 清空测试数据库
	ctx := context.Background()
	if err := s.db.Drop(ctx); err != nil {
		t.Fatalf("Failed to drop test database: %v", err)
	}
	// 重新创建索引
	if err := s.ensureIndexes(ctx); err != nil {
		t.Fatalf("Failed to create indexes: %v", err)
	}

	t.Cleanup(func() {
		s.db.Drop(context.Background())
		s.Close()
	})

	return s
}

// Compile-time interface check
var _ storage.PersistentStore = (*Store)(nil)

func TestUserCRUD(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Millisecond)
	user := &model.User{
		ID:        "usr-001",
		Email:     "a@x.com",
		Name:      "Alice",
		Roles:     []model.UserRole{model.UserRoleStudent},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	// email 唯一索引：同邮箱二次插入必须失败
	dup := &model.User{ID: "usr-002", Email: "a@x.com", CreatedAt: now, UpdatedAt: now}
	if err := s.CreateUser(ctx, dup); !errors.Is(err, storage.ErrDuplicate) {
		t.Fatalf("CreateUser(duplicate email) error = %v, want ErrDuplicate", err)
	}

	got, err := s.GetUserByEmail(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if got == nil || got.ID != "usr-001" {
		t.Fatalf("GetUserByEmail = %+v, want usr-001", got)
	}

	// 不存在的用户返回 (nil, nil)
	missing, err := s.GetUserByEmail(ctx, "nobody@x.com")
	if err != nil || missing != nil {
		t.Errorf("GetUserByEmail(missing) = %v, %v, want nil, nil", missing, err)
	}
}

func TestGrantRole(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	now := time.Now()
	user := &model.User{
		ID:        "usr-010",
		Email:     "i@x.com",
		Roles:     []model.UserRole{model.UserRoleStudent},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	if err := s.GrantRole(ctx, "usr-010", model.UserRoleInstructor, "i@x.com"); err != nil {
		t.Fatalf("GrantRole: %v", err)
	}

	got, _ := s.GetUserByID(ctx, "usr-010")
	if !got.IsInstructor() {
		t.Error("user should hold instructor role after grant")
	}
	if got.InstructorEmail != "i@x.com" {
		t.Errorf("InstructorEmail = %q, want i@x.com", got.InstructorEmail)
	}

	// 重复授予幂等：角色集合不重复
	if err := s.GrantRole(ctx, "usr-010", model.UserRoleInstructor, "i@x.com"); err != nil {
		t.Fatalf("GrantRole(again): %v", err)
	}
	got, _ = s.GetUserByID(ctx, "usr-010")
	count := 0
	for _, r := range got.Roles {
		if r == model.UserRoleInstructor {
			count++
		}
	}
	if count != 1 {
		t.Errorf("instructor role appears %d times, want 1", count)
	}

	// 讲师列表
	instructors, err := s.ListInstructors(ctx)
	if err != nil {
		t.Fatalf("ListInstructors: %v", err)
	}
	if len(instructors) != 1 {
		t.Errorf("ListInstructors = %d users, want 1", len(instructors))
	}

	// 对不存在的用户授权
	if err := s.GrantRole(ctx, "usr-missing", model.UserRoleAdmin, ""); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GrantRole(missing) error = %v, want ErrNotFound", err)
	}
}

func TestClassLifecycle(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	now := time.Now()
	class := &model.Class{
		ID:              "class-001",
		Name:            "German A1",
		InstructorEmail: "i@x.com",
		Price:           49.9,
		AvailableSeats:  2,
		Status:          model.ClassStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.CreateClass(ctx, class); err != nil {
		t.Fatalf("CreateClass: %v", err)
	}

	// pending 课程不出现在 approved 列表
	approved, err := s.ListClassesByStatus(ctx, model.ClassStatusApproved)
	if err != nil {
		t.Fatalf("ListClassesByStatus: %v", err)
	}
	if len(approved) != 0 {
		t.Errorf("approved list = %d classes, want 0", len(approved))
	}

	// pending → approved
	if err := s.SetClassStatus(ctx, "class-001", model.ClassStatusApproved, false); err != nil {
		t.Fatalf("SetClassStatus: %v", err)
	}
	approved, _ = s.ListClassesByStatus(ctx, model.ClassStatusApproved)
	if len(approved) != 1 {
		t.Errorf("approved list = %d classes, want 1", len(approved))
	}

	// 已决课程在 allowReversal=false 下不可再迁移
	err = s.SetClassStatus(ctx, "class-001", model.ClassStatusDenied, false)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("SetClassStatus(decided) error = %v, want ErrNotFound", err)
	}

	// allowReversal=true 放开守卫
	if err := s.SetClassStatus(ctx, "class-001", model.ClassStatusDenied, true); err != nil {
		t.Errorf("SetClassStatus(reversal) error = %v", err)
	}

	// feedback 不触碰状态
	if err := s.SetClassFeedback(ctx, "class-001", "needs a syllabus"); err != nil {
		t.Fatalf("SetClassFeedback: %v", err)
	}
	got, _ := s.GetClass(ctx, "class-001")
	if got.Feedback != "needs a syllabus" {
		t.Errorf("Feedback = %q", got.Feedback)
	}
	if got.Status != model.ClassStatusDenied {
		t.Errorf("Status = %q, feedback must not change status", got.Status)
	}
}

func TestAdjustClassCounters(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	now := time.Now()
	class := &model.Class{
		ID:             "class-010",
		Name:           "German B2",
		AvailableSeats: 2,
		Status:         model.ClassStatusApproved,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.CreateClass(ctx, class); err != nil {
		t.Fatalf("CreateClass: %v", err)
	}

	if err := s.AdjustClassCounters(ctx, "class-010", -1, 1); err != nil {
		t.Fatalf("AdjustClassCounters: %v", err)
	}
	if err := s.AdjustClassCounters(ctx, "class-010", -1, 1); err != nil {
		t.Fatalf("AdjustClassCounters: %v", err)
	}

	// 座位用尽后守卫生效
	err := s.AdjustClassCounters(ctx, "class-010", -1, 1)
	if !errors.Is(err, storage.ErrNoSeats) {
		t.Fatalf("AdjustClassCounters(sold out) error = %v, want ErrNoSeats", err)
	}

	got, _ := s.GetClass(ctx, "class-010")
	if got.AvailableSeats != 0 {
		t.Errorf("AvailableSeats = %d, want 0", got.AvailableSeats)
	}
	if got.EnrolledStudents != 2 {
		t.Errorf("EnrolledStudents = %d, want 2", got.EnrolledStudents)
	}

	// 不存在的课程
	err = s.AdjustClassCounters(ctx, "class-missing", -1, 0)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("AdjustClassCounters(missing) error = %v, want ErrNotFound", err)
	}
}

// TestAdjustClassCounters_EnrollFloor 取消预订的反向补偿不得把报名数减到负值
func TestAdjustClassCounters_EnrollFloor(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	now := time.Now()
	class := &model.Class{
		ID:               "class-011",
		Name:             "Spanish A1",
		AvailableSeats:   5,
		EnrolledStudents: 0,
		Status:           model.ClassStatusApproved,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.CreateClass(ctx, class); err != nil {
		t.Fatalf("CreateClass: %v", err)
	}

	// 报名数为 0 时取消式补偿（+1 座位 / -1 报名）被守卫拦下
	err := s.AdjustClassCounters(ctx, "class-011", 1, -1)
	if !errors.Is(err, storage.ErrNoSeats) {
		t.Fatalf("AdjustClassCounters(enroll floor) error = %v, want ErrNoSeats", err)
	}

	got, _ := s.GetClass(ctx, "class-011")
	if got.AvailableSeats != 5 {
		t.Errorf("AvailableSeats = %d, want 5 (guard miss must not apply partial update)", got.AvailableSeats)
	}
	if got.EnrolledStudents != 0 {
		t.Errorf("EnrolledStudents = %d, want 0", got.EnrolledStudents)
	}

	// 有报名时补偿正常生效
	if err := s.AdjustClassCounters(ctx, "class-011", -1, 1); err != nil {
		t.Fatalf("AdjustClassCounters(book): %v", err)
	}
	if err := s.AdjustClassCounters(ctx, "class-011", 1, -1); err != nil {
		t.Fatalf("AdjustClassCounters(cancel): %v", err)
	}
	got, _ = s.GetClass(ctx, "class-011")
	if got.AvailableSeats != 5 || got.EnrolledStudents != 0 {
		t.Errorf("counters = (%d, %d), want (5, 0)", got.AvailableSeats, got.EnrolledStudents)
	}
}

// TestAdjustClassCounters_Concurrent 并发递减不得丢失更新，也不得减到负值
func TestAdjustClassCounters_Concurrent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	const seats = 10
	const attempts = 25

	now := time.Now()
	class := &model.Class{
		ID:             "class-020",
		Name:           "Popular Class",
		AvailableSeats: seats,
		Status:         model.ClassStatusApproved,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.CreateClass(ctx, class); err != nil {
		t.Fatalf("CreateClass: %v", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.AdjustClassCounters(ctx, "class-020", -1, 1); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != seats {
		t.Errorf("succeeded decrements = %d, want %d", succeeded, seats)
	}

	got, _ := s.GetClass(ctx, "class-020")
	if got.AvailableSeats != 0 {
		t.Errorf("AvailableSeats = %d, want 0", got.AvailableSeats)
	}
	if got.EnrolledStudents != seats {
		t.Errorf("EnrolledStudents = %d, want %d", got.EnrolledStudents, seats)
	}
}

func TestBookingCRUD(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	booking := &model.Booking{
		ID:        "book-001",
		Email:     "a@x.com",
		ClassID:   "class-001",
		Price:     49.9,
		CreatedAt: time.Now(),
	}
	if err := s.CreateBooking(ctx, booking); err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}

	list, err := s.ListBookingsByEmail(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("ListBookingsByEmail: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("bookings = %d, want 1", len(list))
	}

	if err := s.DeleteBooking(ctx, "book-001"); err != nil {
		t.Fatalf("DeleteBooking: %v", err)
	}
	if err := s.DeleteBooking(ctx, "book-001"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("DeleteBooking(again) error = %v, want ErrNotFound", err)
	}
}

func TestPaymentAppendOnly(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		p := &model.Payment{
			ID:        "pay-00" + string(rune('1'+i)),
			Email:     "a@x.com",
			Amount:    10.0 * float64(i+1),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.CreatePayment(ctx, p); err != nil {
			t.Fatalf("CreatePayment: %v", err)
		}
	}

	list, err := s.ListPaymentsByEmail(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("ListPaymentsByEmail: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("payments = %d, want 3", len(list))
	}
	// 最新在前
	if list[0].Amount != 30.0 {
		t.Errorf("first payment amount = %v, want 30 (newest first)", list[0].Amount)
	}
}
