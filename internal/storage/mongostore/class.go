package mongostore

import (
	"context"
	"errors"
	"time"

	"sprache-server/internal/model"
	"sprache-server/internal/storage"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ============================================================================
// ClassStore
// ============================================================================

func (s *Store) CreateClass(ctx context.Context, class *model.Class) error {
	return insertOne(ctx, s.col(ColClasses), class)
}

func (s *Store) GetClass(ctx context.Context, id string) (*model.Class, error) {
	return findOne[model.Class](ctx, s.col(ColClasses), bson.D{{Key: "_id", Value: id}})
}

func (s *Store) ListClasses(ctx context.Context) ([]*model.Class, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return findMany[model.Class](ctx, s.col(ColClasses), bson.D{}, opts)
}

func (s *Store) ListClassesByStatus(ctx context.Context, status model.ClassStatus) ([]*model.Class, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	filter := bson.D{{Key: "status", Value: status}}
	return findMany[model.Class](ctx, s.col(ColClasses), filter, opts)
}

// PopularClasses 按报名人数降序返回 approved 课程
func (s *Store) PopularClasses(ctx context.Context, limit int) ([]*model.Class, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "enrolled_students", Value: -1}}).
		SetLimit(int64(limit))
	filter := bson.D{{Key: "status", Value: model.ClassStatusApproved}}
	return findMany[model.Class](ctx, s.col(ColClasses), filter, opts)
}

// SetClassStatus 状态迁移
//
// allowReversal=false 时过滤条件限定 status=pending，已决课程不再改变；
// 未命中（课程不存在或守卫不满足）统一返回 ErrNotFound。
func (s *Store) SetClassStatus(ctx context.Context, id string, status model.ClassStatus, allowReversal bool) error {
	filter := bson.D{{Key: "_id", Value: id}}
	if !allowReversal {
		filter = append(filter, bson.E{Key: "status", Value: model.ClassStatusPending})
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "status", Value: status},
		{Key: "updated_at", Value: time.Now()},
	}}}
	return updateOne(ctx, s.col(ColClasses), filter, update)
}

// SetClassFeedback 写入反馈文本，不触碰状态
func (s *Store) SetClassFeedback(ctx context.Context, id, feedback string) error {
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "feedback", Value: feedback},
		{Key: "updated_at", Value: time.Now()},
	}}}
	return updateOne(ctx, s.col(ColClasses), bson.D{{Key: "_id", Value: id}}, update)
}

// AdjustClassCounters 单次原子 $inc 调整座位/报名计数
//
// 计数递减时过滤条件带下界守卫（available_seats > 0、
// enrolled_students > 0），防止并发预订或取消把计数减到负值。
// 守卫未命中时需要与"课程不存在"区分开，额外做一次存在性检查后
// 返回 ErrNoSeats。
func (s *Store) AdjustClassCounters(ctx context.Context, id string, seatDelta, enrollDelta int) error {
	filter := bson.D{{Key: "_id", Value: id}}
	if seatDelta < 0 {
		filter = append(filter, bson.E{Key: "available_seats", Value: bson.D{{Key: "$gt", Value: 0}}})
	}
	if enrollDelta < 0 {
		filter = append(filter, bson.E{Key: "enrolled_students", Value: bson.D{{Key: "$gt", Value: 0}}})
	}

	inc := bson.D{}
	if seatDelta != 0 {
		inc = append(inc, bson.E{Key: "available_seats", Value: seatDelta})
	}
	if enrollDelta != 0 {
		inc = append(inc, bson.E{Key: "enrolled_students", Value: enrollDelta})
	}
	update := bson.D{
		{Key: "$inc", Value: inc},
		{Key: "$set", Value: bson.D{{Key: "updated_at", Value: time.Now()}}},
	}

	err := updateOne(ctx, s.col(ColClasses), filter, update)
	if errors.Is(err, storage.ErrNotFound) && (seatDelta < 0 || enrollDelta < 0) {
		exists, existsErr := s.GetClass(ctx, id)
		if existsErr == nil && exists != nil {
			return storage.ErrNoSeats
		}
	}
	return err
}
