package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/learnhub/lms-backend/internal/config"
	"github.com/learnhub/lms-backend/internal/handler"
	"github.com/learnhub/lms-backend/internal/metrics"
	"github.com/learnhub/lms-backend/internal/middleware"
	"github.com/learnhub/lms-backend/internal/response"
	"github.com/learnhub/lms-backend/internal/service"
	"github.com/rs/zerolog"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Quiz        *handler.QuizHandler
	Certificate *handler.CertificateHandler
	System      *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	limiter *middleware.RateLimiter,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.RequestLogger(log.With().Str("component", "http").Logger()))
	router.Use(metrics.Middleware())

	// ─── Ops ───────────────────────────────────────────────────────────
	router.GET("/health", handlers.System.Health)
	router.GET("/metrics", metrics.Handler())

	api := router.Group("/api")
	api.Use(limiter.Middleware(), middleware.RequireAuth(authService))

	educatorOnly := middleware.RequireEducator()

	// ─── Quiz ──────────────────────────────────────────────────────────
	quiz := api.Group("/quiz")
	{
		// Student
		quiz.GET("/student/:courseId", handlers.Quiz.GetForStudent)
		quiz.POST("/submit", handlers.Quiz.Submit)
		quiz.GET("/results/:courseId", handlers.Quiz.Results)
		quiz.POST("/check-course-completion", handlers.Quiz.CheckCourseCompletion)

		// Educator
		quiz.POST("/create", educatorOnly, handlers.Quiz.Create)
		quiz.GET("/course/:courseId", educatorOnly, handlers.Quiz.GetForEducator)
		quiz.POST("/update", educatorOnly, handlers.Quiz.Update)
		quiz.POST("/delete", educatorOnly, handlers.Quiz.Delete)
		quiz.GET("/educator-courses", educatorOnly, handlers.Quiz.EducatorCourses)
	}

	// ─── Certificate ───────────────────────────────────────────────────
	certificate := api.Group("/certificate")
	{
		// Student
		certificate.POST("/apply", handlers.Certificate.Apply)
		certificate.GET("/status/:courseId", handlers.Certificate.Status)

		// Educator
		certificate.GET("/requests/:courseId", educatorOnly, handlers.Certificate.ListRequests)
		certificate.POST("/approve", educatorOnly, handlers.Certificate.Approve)
		certificate.POST("/reject", educatorOnly, handlers.Certificate.Reject)
		certificate.POST("/resend", educatorOnly, handlers.Certificate.Resend)
		certificate.GET("/stats", educatorOnly, handlers.Certificate.Stats)
		certificate.POST("/test-email", educatorOnly, handlers.Certificate.TestEmail)
	}

	// ─── System ────────────────────────────────────────────────────────
	api.GET("/system/status", educatorOnly, handlers.System.Status)

	return router
}
