package model

import "time"

// ClassStatus 课程审核状态
type ClassStatus string

const (
	ClassStatusPending  ClassStatus = "pending"
	ClassStatusApproved ClassStatus = "approved"
	ClassStatusDenied   ClassStatus = "denied"
)

// Valid 状态值是否合法
func (s ClassStatus) Valid() bool {
	switch s {
	case ClassStatusPending, ClassStatusApproved, ClassStatusDenied:
		return true
	}
	return false
}

// Decided 是否为终态（approved/denied）
func (s ClassStatus) Decided() bool {
	return s == ClassStatusApproved || s == ClassStatusDenied
}

// Class 课程
//
// 讲师提交后进入 pending，管理员 approve/deny 后对学生可见（仅 approved）。
// AvailableSeats/EnrolledStudents 只允许原子 $inc 更新，禁止读-改-写。
type Class struct {
	ID               string      `json:"id" bson:"_id"`
	Name             string      `json:"name" bson:"name"`
	Image            string      `json:"image,omitempty" bson:"image,omitempty"`
	InstructorName   string      `json:"instructor_name,omitempty" bson:"instructor_name,omitempty"`
	InstructorEmail  string      `json:"instructor_email" bson:"instructor_email"`
	Price            float64     `json:"price" bson:"price"`
	AvailableSeats   int         `json:"available_seats" bson:"available_seats"`
	EnrolledStudents int         `json:"enrolled_students" bson:"enrolled_students"`
	Status           ClassStatus `json:"status" bson:"status"`
	Feedback         string      `json:"feedback,omitempty" bson:"feedback,omitempty"`
	CreatedAt        time.Time   `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at" bson:"updated_at"`
}
