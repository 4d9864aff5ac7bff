package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"algohub/internal/common/cache"
	"algohub/internal/common/db"
	commonmw "algohub/internal/common/http/middleware"
	"algohub/internal/common/mq"
	"algohub/internal/common/storage"
	"algohub/internal/judge"
	problemRepo "algohub/internal/problem/repository"
	statsController "algohub/internal/stats/controller"
	statsRepo "algohub/internal/stats/repository"
	statsService "algohub/internal/stats/service"
	submissionController "algohub/internal/submission/controller"
	submissionRepo "algohub/internal/submission/repository"
	submissionService "algohub/internal/submission/service"
	"algohub/pkg/utils/logger"
	"algohub/pkg/utils/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultConfigPath = "configs/server.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	flag.Parse()

	appCfg, err := loadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		return
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	mysqlDB, err := db.NewMySQL(&appCfg.Database)
	if err != nil {
		logger.Error(context.Background(), "init database failed", zap.Error(err))
		return
	}
	defer func() {
		_ = mysqlDB.Close()
	}()

	redisCache, err := cache.NewRedisCacheWithConfig(&appCfg.Redis)
	if err != nil {
		logger.Error(context.Background(), "init redis failed", zap.Error(err))
		return
	}
	defer func() {
		_ = redisCache.Close()
	}()

	publisher, err := mq.NewKafkaPublisher(appCfg.Kafka)
	if err != nil {
		logger.Error(context.Background(), "init kafka failed", zap.Error(err))
		return
	}
	defer func() {
		_ = publisher.Close()
	}()

	objStorage, err := storage.NewMinIOStorage(appCfg.MinIO)
	if err != nil {
		logger.Error(context.Background(), "init minio failed", zap.Error(err))
		return
	}

	problems := problemRepo.NewProblemRepository(mysqlDB, redisCache)
	submissions := submissionRepo.NewSubmissionRepository(mysqlDB, redisCache)
	stats := statsService.NewStatsService(mysqlDB, statsRepo.NewStatsRepository(mysqlDB), problems)
	judgeClient := judge.NewClient(appCfg.Judge)

	pipeline, err := submissionService.NewSubmissionService(submissionService.Config{
		SubmissionRepo:  submissions,
		ProblemRepo:     problems,
		Judge:           judgeClient,
		Stats:           stats,
		Storage:         objStorage,
		Publisher:       publisher,
		Cache:           redisCache,
		SourceBucket:    appCfg.Submission.SourceBucket,
		SourceKeyPrefix: appCfg.Submission.SourceKeyPrefix,
		FinishedTopic:   appCfg.Submission.FinishedTopic,
		MaxCodeBytes:    appCfg.Submission.MaxCodeBytes,
		InFlightTTL:     appCfg.Submission.InFlightTTL,
		RateLimit:       appCfg.Submission.RateLimit,
		Timeouts:        appCfg.Submission.Timeouts,
	})
	if err != nil {
		logger.Error(context.Background(), "init submission service failed", zap.Error(err))
		return
	}

	httpServer := buildHTTPServer(appCfg, pipeline, stats, mysqlDB, redisCache)
	listener, err := net.Listen("tcp", appCfg.Server.Addr)
	if err != nil {
		logger.Error(context.Background(), "init http listener failed", zap.Error(err))
		return
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(context.Background(), "http server started", zap.String("addr", appCfg.Server.Addr))
		errCh <- httpServer.Serve(listener)
	}()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), "http server stopped", zap.Error(err))
		}
	case <-shutdownCtx.Done():
		logger.Info(context.Background(), "shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error(context.Background(), "http server shutdown failed", zap.Error(err))
	}
}

func buildHTTPServer(
	appCfg *AppConfig,
	pipeline *submissionService.SubmissionService,
	stats *statsService.StatsService,
	database db.Database,
	redisCache cache.Cache,
) *http.Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(commonmw.TraceContext())
	router.Use(requestLogger())

	router.GET("/health", healthHandler(database, redisCache))

	submissionCtl := submissionController.NewSubmissionController(pipeline)
	statsCtl := statsController.NewStatsController(stats)

	api := router.Group("/api/v1")
	api.GET("/leaderboard", statsCtl.Leaderboard)

	authed := api.Group("")
	authed.Use(commonmw.Auth(appCfg.Auth.JWTSecret, appCfg.Auth.JWTIssuer))
	authed.POST("/problems/:id/submit", submissionCtl.Submit)
	authed.POST("/problems/:id/run", submissionCtl.Run)
	authed.GET("/submissions", submissionCtl.List)
	authed.GET("/submissions/:id", submissionCtl.Get)
	authed.GET("/stats/me", statsCtl.Me)

	return &http.Server{
		Addr:         appCfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  appCfg.Server.ReadTimeout,
		WriteTimeout: appCfg.Server.WriteTimeout,
		IdleTimeout:  appCfg.Server.IdleTimeout,
	}
}

func healthHandler(database db.Database, redisCache cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := gin.H{"database": "up", "redis": "up"}
		healthy := true
		if err := database.Ping(ctx); err != nil {
			status["database"] = "down"
			healthy = false
		}
		if err := redisCache.Ping(ctx); err != nil {
			status["redis"] = "down"
			healthy = false
		}
		if !healthy {
			c.JSON(http.StatusServiceUnavailable, status)
			return
		}
		response.Success(c, status)
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		logger.Info(
			c.Request.Context(),
			"request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
