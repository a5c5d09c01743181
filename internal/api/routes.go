package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"alcyxob/workout-engine/internal/service"
)

// RouterConfig holds the transport settings of the HTTP API.
type RouterConfig struct {
	JWTSecret      string
	AllowedOrigins []string
}

// NewRouter builds the gin engine with recovery, request logging, CORS and all routes.
func NewRouter(cfg RouterConfig, workouts service.WorkoutService, lifecycle service.LifecycleService, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type", IdempotencyHeader},
		MaxAge:       12 * time.Hour,
	}))

	SetupRoutes(router, cfg.JWTSecret, workouts, lifecycle, logger)
	return router
}

// SetupRoutes registers the health check and the workout API under /api/v1.
func SetupRoutes(router *gin.Engine, jwtSecret string, workouts service.WorkoutService, lifecycle service.LifecycleService, logger *zap.Logger) {
	handler := NewWorkoutHandler(workouts, lifecycle, logger)
	authMiddleware := AuthMiddleware(jwtSecret, logger)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		// --- Lifecycle ---
		protected.POST("/workouts/start", handler.StartWorkout)
		protected.GET("/workouts/active", handler.GetActiveWorkout)
		protected.POST("/workouts/:workoutId/complete", handler.CompleteWorkout)
		protected.POST("/workouts/:workoutId/cancel", handler.CancelWorkout)

		// --- Mutations ---
		protected.POST("/workouts/:workoutId/sets/log", handler.LogSet)
		protected.POST("/workouts/:workoutId/sets/complete-current", handler.CompleteCurrentSet)
		protected.POST("/workouts/:workoutId/patch", handler.PatchWorkout)
		protected.POST("/workouts/:workoutId/exercises", handler.AddExercise)
		protected.POST("/workouts/:workoutId/exercises/swap", handler.SwapExercise)
		protected.POST("/workouts/:workoutId/exercises/:instanceId/autofill", handler.AutofillExercise)
	}
}
