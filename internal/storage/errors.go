// Package storage 定义持久化存储层抽象接口
//
// 设计原则：依赖倒置 (DIP)
//   - 调用方只依赖接口，不知道具体实现
//   - 具体实现在子包中：mongostore/
//   - 初始化时通过依赖注入传入实现
package storage

import "errors"

var (
	// ErrNotFound 实体不存在
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate 唯一键冲突（重复 email / 重复 ID）
	ErrDuplicate = errors.New("duplicate: entity already exists")

	// ErrNoSeats 课程无剩余座位（条件更新未命中 available_seats > 0）
	ErrNoSeats = errors.New("no seats available")
)
