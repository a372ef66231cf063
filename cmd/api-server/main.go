// Package main API Server 入口
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sprache-server/internal/apiserver/auth"
	"sprache-server/internal/apiserver/class"
	"sprache-server/internal/apiserver/server"
	"sprache-server/internal/config"
	"sprache-server/internal/payments"
	"sprache-server/internal/storage/mongostore"
	"sprache-server/internal/storage/rediscache"
)

func main() {
	// 加载配置（自动加载 .env，根据 APP_ENV 切换数据库）
	cfg := config.Load()

	log.Printf("Starting API Server... [env=%s]", cfg.Env)
	log.Printf("Config: %s", cfg.String())

	// 初始化 MongoDB（持久化业务数据）
	store, err := mongostore.NewStore(cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer store.Close()
	log.Println("Connected to MongoDB")

	// 初始化 Redis 缓存（可选，未配置时热门课程直接回源）
	var cache class.PopularCache
	if cfg.RedisURL != "" {
		redisCache, err := rediscache.NewFromURL(cfg.RedisURL)
		if err != nil {
			log.Printf("Redis unavailable, running without cache: %v", err)
		} else {
			defer redisCache.Close()
			cache = redisCache
			log.Println("Connected to Redis")
		}
	}

	// 初始化 Stripe 客户端
	intents := payments.NewStripeClient(cfg.StripeSecretKey, cfg.StripeCurrency)

	authCfg := auth.Config{
		JWTSecret:      cfg.JWTSecret,
		AccessTokenTTL: cfg.AccessTokenTTL,
	}

	h := server.NewHandler(store, cache, intents, authCfg, cfg.AllowStatusReversal)

	// 周期刷新课程状态分布指标
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.StartMetricsRefresher(ctx)

	srv := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      h.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 优雅关闭
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	log.Printf("API Server listening on :%s", cfg.APIPort)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}

	fmt.Println("Server stopped")
}
