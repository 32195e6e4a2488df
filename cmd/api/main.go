package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	_ "github.com/livepoll/livepoll-backend/docs"
	"github.com/livepoll/livepoll-backend/internal/config"
	"github.com/livepoll/livepoll-backend/internal/database"
	"github.com/livepoll/livepoll-backend/internal/handler"
	"github.com/livepoll/livepoll-backend/internal/middleware"
	"github.com/livepoll/livepoll-backend/internal/migration"
	"github.com/livepoll/livepoll-backend/internal/repository"
	"github.com/livepoll/livepoll-backend/internal/routes"
	"github.com/livepoll/livepoll-backend/internal/service"
	"github.com/livepoll/livepoll-backend/internal/ws"
	pkgcache "github.com/livepoll/livepoll-backend/pkg/cache"
	"github.com/livepoll/livepoll-backend/pkg/jwt"
	pkglogger "github.com/livepoll/livepoll-backend/pkg/logger"
	pkgredis "github.com/livepoll/livepoll-backend/pkg/redis"
	pkgstorage "github.com/livepoll/livepoll-backend/pkg/storage"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           LivePoll API
// @version         1.0
// @description     Interactive live polling backend
//
// @host            localhost:8080
// @BasePath        /api
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Authorization header using the Bearer scheme. Example: "Bearer {token}"

func main() {
	dotenvFiles := config.LoadDotEnv()

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	pkglogger.InitStructured(env)
	pkglogger.Info("APP_ENV=%s, loaded env files: %v", env, dotenvFiles)

	// 설정 로드
	configPath := config.Path()
	pkglogger.Info("Loading config from: %s", configPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	config.LogResolved(cfg)
	gin.SetMode(cfg.Server.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// DB 연결 (재시도 포함)
	connector := database.NewConnector(cfg.Database, cfg.IsDevelopment())
	db, err := connector.Connect(ctx)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer connector.Close() //nolint:errcheck
	if err := migration.Run(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	// Redis 연결 (선택)
	var redisClient *goredis.Client
	if cfg.Redis.Host != "" {
		redisClient, err = pkgredis.NewClient(ctx, pkgredis.Options{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			pkglogger.Warn("Failed to connect to Redis: %v (continuing without Redis)", err)
			redisClient = nil
		} else {
			pkglogger.Info("Connected to Redis")
			defer redisClient.Close() //nolint:errcheck
		}
	}

	hub := ws.NewHub(redisClient)
	go hub.Run()
	defer hub.Stop()

	opts := []service.Option{
		service.WithNotifier(hub),
		service.WithCodeAttempts(cfg.Poll.CodeAttempts),
	}
	if cfg.Storage.Enabled {
		opts = append(opts, service.WithArchiver(pkgstorage.NewS3Client(pkgstorage.S3Config{
			Endpoint:        cfg.Storage.Endpoint,
			Region:          cfg.Storage.Region,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			SecretAccessKey: cfg.Storage.SecretAccessKey,
			Bucket:          cfg.Storage.Bucket,
			BasePath:        cfg.Storage.BasePath,
			ForcePathStyle:  cfg.Storage.ForcePathStyle,
			LinkExpiry:      time.Duration(cfg.Storage.LinkExpiryHours) * time.Hour,
		})))
	}

	pollRepo := repository.NewPollRepository(db)
	pollService := service.NewPollService(pollRepo, pkgcache.NewService(redisClient), opts...)
	sessionService := service.NewSessionService(pollRepo, opts...)
	jwtManager := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.ExpiresIn)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins(),
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", handler.AdminSessionHeader, middleware.RequestIDHeader},
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		ExposeHeaders:    []string{middleware.RequestIDHeader, "X-RateLimit-Remaining", "Content-Disposition"},
		MaxAge:           12 * time.Hour,
	}))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.InputSanitizer())
	router.Use(middleware.Metrics())
	router.Use(middleware.RequestLogger())

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Swagger UI
	mountDocs(router)

	// Health Check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "livepoll-backend",
			"time":    time.Now().Unix(),
		})
	})
	router.GET("/health/ready", func(c *gin.Context) {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := connector.Ping(pingCtx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": err.Error()})
			return
		}
		if sqlDB, err := db.DB(); err == nil {
			middleware.ObserveDBStats(sqlDB.Stats())
		}
		redisStatus := "disabled"
		if redisClient != nil {
			redisStatus = "ok"
			if err := redisClient.Ping(pingCtx).Err(); err != nil {
				redisStatus = err.Error()
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "database": "ok", "redis": redisStatus})
	})

	routes.Setup(router, routes.Handlers{
		Poll:    handler.NewPollHandler(pollService),
		Session: handler.NewSessionHandler(sessionService),
		WS:      handler.NewWSHandler(hub, pollService, cfg.CORS.AllowOrigins),
	}, jwtManager, redisClient, cfg.RateLimit)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		pkglogger.Info("Server starting on port %d", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	pkglogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		pkglogger.Error("Server forced to shutdown: %v", err)
	}
	pkglogger.Info("Server exited")
}

func mountDocs(router gin.IRoutes) {
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
