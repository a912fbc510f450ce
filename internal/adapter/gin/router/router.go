package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	"user-account-service/internal/adapter/gin/handler"
	"user-account-service/internal/adapter/gin/middleware"
)

const swaggerDocRoute = "/user.swagger.json"

// Pinger reports backing store readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SetupRouter configures and returns a Gin router with all routes and middleware
func SetupRouter(
	userHandler *handler.UserHandler,
	auth *middleware.AuthMiddleware,
	store Pinger,
	swaggerPath string,
	log *zap.Logger,
) *gin.Engine {
	if gin.Mode() == gin.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Logger(log))
	router.Use(middleware.Metrics())

	router.GET("/health", healthHandler(store))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", swaggerHandler(swaggerPath))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		users := v1.Group("/users")
		{
			users.POST("/register", userHandler.Register)
			users.POST("/auth", userHandler.Authenticate)

			protected := users.Group("", auth.RequireAuth())
			protected.GET("/profile", userHandler.GetProfile)
			protected.PUT("/profile", userHandler.UpdateProfile)
			protected.GET("/:id", userHandler.GetUser)
		}
	}

	return router
}

func healthHandler(store Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if store != nil {
			if err := store.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":  "unhealthy",
					"service": "user-account-service",
				})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "user-account-service",
		})
	}
}

func swaggerHandler(swaggerPath string) gin.HandlerFunc {
	ui := gin.WrapH(httpSwagger.Handler(
		httpSwagger.URL("/swagger" + swaggerDocRoute),
	))
	return func(c *gin.Context) {
		if c.Param("any") == swaggerDocRoute {
			c.File(swaggerPath)
			return
		}
		ui(c)
	}
}
