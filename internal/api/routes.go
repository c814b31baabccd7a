package api

import (
	"net/http"
	"time"

	"gymez/checkin-api/internal/domain"
	"gymez/checkin-api/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouteOptions carries the settings the HTTP layer needs from config.
type RouteOptions struct {
	JWTSecret          string
	AllowedOrigins     []string
	RadiusMeters       float64
	NearbyRadiusMeters float64
	MaxFixAge          time.Duration
	RateLimitPerMinute int
	RateLimitBurst     int
}

// Services groups the handlers' dependencies.
type Services struct {
	Auth     service.AuthService
	CheckIns service.CheckInService
	Rewards  service.RewardService
	Gyms     service.GymService
}

// NewRouter builds a gin engine with logging, recovery, CORS and all routes.
func NewRouter(log *zap.Logger, opts RouteOptions, svc Services) *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), ZapLogger(log), ZapRecovery(log))
	router.Use(cors.New(corsConfig(opts.AllowedOrigins)))
	SetupRoutes(router, opts, svc)
	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", requestIDHeader},
		ExposeHeaders:    []string{"Content-Length", requestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func SetupRoutes(router *gin.Engine, opts RouteOptions, svc Services) {
	authHandler := NewAuthHandler(svc.Auth)
	checkInHandler := NewCheckInHandler(svc.CheckIns, opts.RadiusMeters, opts.MaxFixAge)
	rewardHandler := NewRewardHandler(svc.Rewards)
	gymHandler := NewGymHandler(svc.Gyms, opts.NearbyRadiusMeters)

	authMiddleware := AuthMiddleware(opts.JWTSecret)
	attendanceLimit := NewRateLimiter(opts.RateLimitPerMinute, opts.RateLimitBurst).Middleware()

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}
		apiV1.GET("/rewards/tiers", rewardHandler.Tiers)
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", authHandler.Me)

		// --- Attendance ---
		checkInGroup := protected.Group("/checkins")
		{
			checkInGroup.POST("", attendanceLimit, checkInHandler.CheckIn)
			checkInGroup.POST("/checkout", attendanceLimit, checkInHandler.CheckOut)
			checkInGroup.GET("/active", checkInHandler.Active)
			checkInGroup.GET("/history", checkInHandler.History)
			checkInGroup.POST("/export", attendanceLimit, checkInHandler.Export)
		}

		// --- Rewards ---
		rewardGroup := protected.Group("/rewards")
		{
			rewardGroup.GET("/progress", rewardHandler.Progress)
			rewardGroup.POST("/redeem", rewardHandler.Redeem)
		}

		// --- Gyms ---
		gymGroup := protected.Group("/gyms")
		{
			gymGroup.GET("/nearby", gymHandler.Nearby)
			gymGroup.POST("/:gymId/register", gymHandler.Register)
			gymGroup.POST("", RoleMiddleware(domain.RoleAdmin), gymHandler.Create)
		}
	}
}
