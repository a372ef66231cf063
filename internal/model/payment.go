package model

import "time"

// Payment 支付记录（仅追加，不修改不删除）
type Payment struct {
	ID            string    `json:"id" bson:"_id"`
	Email         string    `json:"email" bson:"email"`
	Amount        float64   `json:"amount" bson:"amount"`
	TransactionID string    `json:"transaction_id,omitempty" bson:"transaction_id,omitempty"`
	ClassID       string    `json:"class_id,omitempty" bson:"class_id,omitempty"`
	ClassName     string    `json:"class_name,omitempty" bson:"class_name,omitempty"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
}
