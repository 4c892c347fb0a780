// Package main API Server 入口
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reminder/internal/apiserver/auth"
	"reminder/internal/apiserver/server"
	"reminder/internal/config"
	"reminder/internal/shared/cache"
	"reminder/internal/shared/cache/redis"
	"reminder/internal/shared/storage"
	"reminder/internal/shared/storage/mongostore"
	"reminder/pkg/logging"
)

func main() {
	configDir := flag.String("config", "", "配置文件目录（默认按 APP_ENV 搜索）")
	flag.Parse()
	if *configDir != "" {
		config.SetConfigDir(*configDir)
	}

	// 加载配置（.env + configs/{env}.yaml + 环境变量）
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("Starting API Server... [env=%s]", cfg.Env)
	log.Printf("Config: %s", cfg.String())

	logger := logging.New(logging.Config{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		Component: "api-server",
	})
	metrics := server.NewMetrics("reminder")

	// 初始化 MongoDB（用户与事件）
	mongo, err := mongostore.NewStore(cfg.DatabaseURL, cfg.DatabaseName)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer mongo.Close()
	log.Println("Connected to MongoDB")

	gw := storage.Instrument(mongo, server.NewQueryHook(metrics, logger))

	// 初始化 Redis（可选，仅用于令牌解析的用户缓存）
	var userCache cache.Cache
	if cfg.RedisURL != "" {
		rc, err := redis.NewStoreFromURL(cfg.RedisURL, cfg.UserCacheTTL)
		if err != nil {
			log.Printf("Redis unavailable, user cache disabled: %v", err)
		} else {
			defer rc.Close()
			userCache = rc
			log.Println("Connected to Redis")
		}
	}

	h, err := server.NewHandler(server.Deps{
		Gateway: gw,
		Cache:   userCache,
		Auth: auth.Config{
			JWTSecret:      cfg.Auth.JWTSecret,
			Algorithm:      cfg.Auth.Algorithm,
			AccessTokenTTL: cfg.Auth.AccessTokenTTL,
			LoginTokenTTL:  cfg.Auth.LoginTokenTTL,
			BcryptCost:     cfg.Auth.BcryptCost,
		},
		Metrics: metrics,
		Logger:  logger,
	})
	if err != nil {
		log.Fatalf("Failed to initialize handler: %v", err)
	}

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
