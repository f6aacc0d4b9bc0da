package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/learnhub/lms-backend/internal/cache"
	"github.com/learnhub/lms-backend/internal/catalog"
	"github.com/learnhub/lms-backend/internal/config"
	"github.com/learnhub/lms-backend/internal/database"
	"github.com/learnhub/lms-backend/internal/handler"
	"github.com/learnhub/lms-backend/internal/logger"
	"github.com/learnhub/lms-backend/internal/mailer"
	"github.com/learnhub/lms-backend/internal/metrics"
	"github.com/learnhub/lms-backend/internal/middleware"
	"github.com/learnhub/lms-backend/internal/queue"
	"github.com/learnhub/lms-backend/internal/repository"
	"github.com/learnhub/lms-backend/internal/router"
	"github.com/learnhub/lms-backend/internal/service"
	"github.com/learnhub/lms-backend/internal/validator"
	"github.com/learnhub/lms-backend/internal/worker"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration:\n%v\n", err)
		os.Exit(1)
	}

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Str("mail_provider", cfg.Mail.Provider).
		Bool("require_completion", cfg.Certificate.RequireCourseCompletion).
		Msg("Starting LMS quiz and certificate backend")

	// ─── Initialize Validator and Metrics ──────────────────────────────
	validator.Setup()
	metrics.Init()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Connect to MongoDB (LMS catalog, read-only) ───────────────────
	mongoClient, mongoDB, err := database.NewMongoDatabase(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.Warn().Err(err).Msg("MongoDB disconnect error")
		}
	}()

	// ─── Initialize Mail Transport ─────────────────────────────────────
	mail, err := mailer.New(cfg.Mail, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize mailer")
	}

	// ─── Initialize Repositories ───────────────────────────────────────
	quizRepo := repository.NewQuizRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)
	certificateRepo := repository.NewCertificateRepository(pool)
	outboxRepo := repository.NewOutboxRepository(pool)

	lmsCatalog := catalog.NewMongoCatalog(mongoDB)
	quizCache := cache.NewQuizCache(rdb, cfg.QuizCacheTTL)
	notificationQueue := queue.NewNotificationQueue(rdb)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg)
	quizService := service.NewQuizService(quizRepo, attemptRepo, lmsCatalog, quizCache, log)
	notificationService := service.NewNotificationService(
		outboxRepo, mail, notificationQueue, cfg.Certificate, cfg.Notification, log,
	)
	certificateService := service.NewCertificateService(
		certificateRepo, quizRepo, attemptRepo, outboxRepo, lmsCatalog,
		notificationService, cfg.Certificate, log,
	)

	// ─── Initialize Handlers ──────────────────────────────────────────
	deps := []handler.Dependency{
		{Name: "postgres", Ping: pool.Ping},
		{Name: "redis", Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
		{Name: "mongo", Ping: func(ctx context.Context) error { return mongoClient.Ping(ctx, readpref.Primary()) }},
	}
	handlers := &router.Handlers{
		Quiz:        handler.NewQuizHandler(quizService, log),
		Certificate: handler.NewCertificateHandler(certificateService, notificationService, log),
		System:      handler.NewSystemHandler(deps, notificationQueue, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	notificationWorker := worker.NewNotificationWorker(notificationQueue, notificationService, log)
	wg.Add(1)
	go func() {
		defer wg.Done()
		notificationWorker.Start(workerCtx)
	}()

	scheduler, err := worker.NewRetryScheduler(cfg.Notification.RetrySchedule, notificationService, log)
	if err != nil {
		log.Fatal().Err(err).Str("spec", cfg.Notification.RetrySchedule).Msg("Invalid NOTIFY_RETRY_SCHEDULE")
	}
	scheduler.Start()

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
	limiterStop := make(chan struct{})
	go limiter.Run(limiterStop)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, limiter, cfg, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the sweep, then let the worker finish its current delivery.
	scheduler.Stop()
	close(limiterStop)
	workerCancel()
	wg.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
