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

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"

	"catadmin/internal/caching"
	"catadmin/internal/config"
	"catadmin/internal/handlers"
	"catadmin/internal/jobs/background"
	"catadmin/internal/middleware"
	"catadmin/internal/repositories"
	"catadmin/internal/services"
	"catadmin/pkg/database"
)

func main() {
	cfg, err := config.Load(os.Getenv("CATADMIN_CONFIG"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ctx := context.Background()
	pool, err := database.Connect(ctx, databaseURL)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("connect redis: %v", err)
	}
	cache := caching.NewCacheService(redisClient)

	minioClient, err := minio.New(getEnv("MINIO_ENDPOINT", "localhost:9000"), &minio.Options{
		Creds:  credentials.NewStaticV4(os.Getenv("MINIO_ACCESS_KEY"), os.Getenv("MINIO_SECRET_KEY"), ""),
		Secure: os.Getenv("MINIO_USE_SSL") == "true",
	})
	if err != nil {
		log.Fatalf("connect minio: %v", err)
	}
	minioService := services.NewMinioService(minioClient)

	categoryRepo := repositories.NewCategoryRepository(pool)
	productRepo := repositories.NewProductRepository(pool)
	historyRepo := repositories.NewHistoryRepository(pool)
	bulkRepo := repositories.NewBulkOperationsRepository(pool)

	treeTTL := time.Duration(cfg.Cache.TreeTTLSeconds) * time.Second
	statsTTL := time.Duration(cfg.Cache.StatsTTLSeconds) * time.Second

	categoryService := services.NewCategoryService(pool, categoryRepo, productRepo, historyRepo, cache, treeTTL)
	productService := services.NewProductService(pool, productRepo, categoryRepo, historyRepo, cache)
	historyService := services.NewHistoryService(pool, historyRepo, categoryRepo, productRepo, bulkRepo, cache)
	bulkService := services.NewBulkService(pool, productRepo, categoryRepo, historyRepo, bulkRepo, cache,
		cfg.Import.ChunkSize, cfg.Import.PreviewRowLimit)
	statsService := services.NewStatsService(categoryRepo, productRepo, historyRepo, cache, minioService, statsTTL)

	scheduler, err := background.NewJobScheduler(categoryService, statsService)
	if err != nil {
		log.Fatalf("create scheduler: %v", err)
	}
	if err := scheduler.Start(); err != nil {
		log.Fatalf("start scheduler: %v", err)
	}
	defer scheduler.Stop()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())

	e.GET("/health", handlers.NewHealthHandler(pool).Health)

	v1 := e.Group("/v1", middleware.Version(), middleware.Actor())
	handlers.NewCategoryHandler(categoryService).RegisterRoutes(v1)
	handlers.NewProductHandler(productService).RegisterRoutes(v1)
	handlers.NewHistoryHandler(historyService).RegisterRoutes(v1)
	handlers.NewBulkHandler(bulkService).RegisterRoutes(v1)
	handlers.NewStatsHandler(statsService).RegisterRoutes(v1)

	port, err := config.PortOverride(os.Getenv("PORT"), cfg.Server.Port)
	if err != nil {
		log.Fatalf("resolve port: %v", err)
	}

	go func() {
		if err := e.Start(fmt.Sprintf(":%d", port)); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
