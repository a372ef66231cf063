package mongostore

import (
	"context"

	"sprache-server/internal/model"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ============================================================================
// PaymentStore（仅追加，无更新/删除操作）
// ============================================================================

func (s *Store) CreatePayment(ctx context.Context, payment *model.Payment) error {
	return insertOne(ctx, s.col(ColPayments), payment)
}

func (s *Store) ListPaymentsByEmail(ctx context.Context, email string) ([]*model.Payment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return findMany[model.Payment](ctx, s.col(ColPayments), bson.D{{Key: "email", Value: email}}, opts)
}
