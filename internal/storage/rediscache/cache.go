// Package rediscache Redis 缓存实现
//
// 仅缓存读多写少的热门课程查询，TTL 到期自动失效，不做主动失效。
// Redis 不可用时上层直接回源 MongoDB，缓存是纯优化而非正确性依赖。
package rediscache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"sprache-server/internal/model"
)

const (
	// KeyPopularClasses 热门课程缓存键
	KeyPopularClasses = "sprache:popular_classes"

	// TTLPopularClasses 热门课程缓存有效期
	TTLPopularClasses = 30 * time.Second
)

// Cache Redis 缓存层
type Cache struct {
	client *redis.Client
}

// NewFromURL 从 URL 创建 Redis 缓存实例
func NewFromURL(redisURL string) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Printf("[Redis] Connected to %s", opts.Addr)
	return &Cache{client: client}, nil
}

// Close 关闭 Redis 连接
func (c *Cache) Close() error {
	return c.client.Close()
}

// GetPopularClasses 读取热门课程缓存，未命中返回 (nil, nil)
func (c *Cache) GetPopularClasses(ctx context.Context) ([]*model.Class, error) {
	data, err := c.client.Get(ctx, KeyPopularClasses).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var classes []*model.Class
	if err := json.Unmarshal([]byte(data), &classes); err != nil {
		return nil, err
	}
	return classes, nil
}

// SetPopularClasses 写入热门课程缓存
func (c *Cache) SetPopularClasses(ctx context.Context, classes []*model.Class) error {
	data, err := json.Marshal(classes)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, KeyPopularClasses, data, TTLPopularClasses).Err()
}
