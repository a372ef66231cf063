package mongostore

import (
	"context"
	"time"

	"sprache-server/internal/model"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ============================================================================
// UserStore
// ============================================================================

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	return insertOne(ctx, s.col(ColUsers), user)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return findOne[model.User](ctx, s.col(ColUsers), bson.D{{Key: "email", Value: email}})
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return findOne[model.User](ctx, s.col(ColUsers), bson.D{{Key: "_id", Value: id}})
}

func (s *Store) ListUsers(ctx context.Context) ([]*model.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return findMany[model.User](ctx, s.col(ColUsers), bson.D{}, opts)
}

func (s *Store) ListInstructors(ctx context.Context) ([]*model.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	filter := bson.D{{Key: "roles", Value: model.UserRoleInstructor}}
	return findMany[model.User](ctx, s.col(ColUsers), filter, opts)
}

// GrantRole 追加角色。$addToSet 保证重复授予幂等。
// 授予 instructor 时写入 instructor_email，供课程反查。
func (s *Store) GrantRole(ctx context.Context, id string, role model.UserRole, instructorEmail string) error {
	set := bson.D{{Key: "updated_at", Value: time.Now()}}
	if role == model.UserRoleInstructor && instructorEmail != "" {
		set = append(set, bson.E{Key: "instructor_email", Value: instructorEmail})
	}
	update := bson.D{
		{Key: "$addToSet", Value: bson.D{{Key: "roles", Value: role}}},
		{Key: "$set", Value: set},
	}
	return updateOne(ctx, s.col(ColUsers), bson.D{{Key: "_id", Value: id}}, update)
}
