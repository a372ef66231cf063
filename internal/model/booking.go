package model

import "time"

// Booking 选课预订
//
// 对 Class 是弱引用（按 class_id），课程删除不级联。
// ID 由服务端生成，创建和删除使用同一个标识符。
type Booking struct {
	ID             string    `json:"id" bson:"_id"`
	Email          string    `json:"email" bson:"email"`
	ClassID        string    `json:"class_id" bson:"class_id"`
	ClassName      string    `json:"class_name,omitempty" bson:"class_name,omitempty"`
	InstructorName string    `json:"instructor_name,omitempty" bson:"instructor_name,omitempty"`
	Price          float64   `json:"price" bson:"price"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
}
