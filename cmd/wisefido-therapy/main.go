package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wisefido-therapy/internal/client"
	"wisefido-therapy/internal/config"
	httpapi "wisefido-therapy/internal/http"
	"wisefido-therapy/internal/logger"
	"wisefido-therapy/internal/service"
	"wisefido-therapy/internal/store"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "wisefido-therapy")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// 诊断侧信道：Redis 未启用时退化为进程内 KV
	var kv store.KV = store.NewMemoryKV()
	if cfg.RedisEnabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Warn("redis unavailable, falling back to in-memory diagnostics store", zap.Error(err))
		} else {
			kv = store.NewRedisKV(redisClient)
		}
	}

	actClient := client.NewACTClient(
		cfg.Upstream.HttpAddress,
		cfg.Upstream.APIToken,
		time.Duration(cfg.Upstream.TimeoutSeconds)*time.Second,
		log,
	)
	svc := service.NewTreatmentService(
		actClient,
		kv,
		log,
		cfg.Fetch.Concurrency,
		time.Duration(cfg.Fetch.DiagTTLSeconds)*time.Second,
	)

	router := httpapi.NewRouter(log)
	router.RegisterTreatmentRoutes(httpapi.NewTreatmentHandler(svc, log))

	server := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: router,
	}

	go func() {
		log.Info("wisefido-therapy listening",
			zap.String("addr", cfg.HTTP.Addr),
			zap.String("upstream", cfg.Upstream.HttpAddress),
			zap.Int("fetch_concurrency", cfg.Fetch.Concurrency),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}
