package model

import "time"

// UserRole 用户角色
//
// 角色为多值集合：一个用户可以同时是 instructor 和 admin。
// 用角色集合代替独立布尔字段，避免出现非法组合。
type UserRole string

const (
	UserRoleStudent    UserRole = "student"
	UserRoleInstructor UserRole = "instructor"
	UserRoleAdmin      UserRole = "admin"
)

// Valid 角色值是否合法
func (r UserRole) Valid() bool {
	switch r {
	case UserRoleStudent, UserRoleInstructor, UserRoleAdmin:
		return true
	}
	return false
}

// User 用户
type User struct {
	ID    string     `json:"id" bson:"_id"`
	Email string     `json:"email" bson:"email"`
	Name  string     `json:"name,omitempty" bson:"name,omitempty"`
	Roles []UserRole `json:"roles" bson:"roles"`
	// InstructorEmail 在授予 instructor 角色时写入，
	// 供课程按讲师邮箱反查使用
	InstructorEmail string    `json:"instructor_email,omitempty" bson:"instructor_email,omitempty"`
	CreatedAt       time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" bson:"updated_at"`
}

// HasRole 用户是否持有指定角色
func (u *User) HasRole(role UserRole) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin 是否为管理员
func (u *User) IsAdmin() bool {
	return u.HasRole(UserRoleAdmin)
}

// IsInstructor 是否为讲师
func (u *User) IsInstructor() bool {
	return u.HasRole(UserRoleInstructor)
}
