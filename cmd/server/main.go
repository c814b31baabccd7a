package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gymez/checkin-api/internal/api"
	"gymez/checkin-api/internal/config"
	"gymez/checkin-api/internal/logger"
	"gymez/checkin-api/internal/repository/mongo"
	"gymez/checkin-api/internal/service"
	"gymez/checkin-api/internal/session"
	"gymez/checkin-api/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// @title GYMEZ Check-in API
// @version 1.0
// @description GPS-verified gym check-ins, workout sessions and monthly rewards.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}

	zlog, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("FATAL: Could not create logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()
	zlog.Info("starting GYMEZ check-in server")

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		zlog.Fatal("could not connect to MongoDB", zap.Error(err))
	}
	defer func() {
		zlog.Info("disconnecting MongoDB")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			zlog.Error("failed to disconnect MongoDB", zap.Error(err))
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		mongo.EnsureIndexes(ctx, appDB, zlog)
	}()

	// --- Active session store ---
	redisCtx, redisCancel := context.WithTimeout(context.Background(), 5*time.Second)
	redisClient, err := session.NewRedisClient(redisCtx, cfg.Redis)
	redisCancel()
	if err != nil {
		zlog.Fatal("could not connect to Redis", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}
	defer func() { _ = redisClient.Close() }()
	tracker := session.NewTracker(session.NewRedisStore(redisClient, cfg.Redis.KeyPrefix))

	// --- Initialize Storage ---
	var fileStorage storage.FileStorage
	if cfg.S3.BucketName != "" {
		fileStorage, err = storage.NewS3Storage(context.Background(), cfg.S3, zlog)
		if err != nil {
			zlog.Fatal("failed to initialize S3 storage", zap.Error(err))
		}
	} else {
		zlog.Warn("s3 bucket not configured, history export disabled")
	}

	// --- Initialize Repositories ---
	userRepo := mongo.NewMongoUserRepository(appDB)
	gymRepo := mongo.NewMongoGymRepository(appDB)
	userGymRepo := mongo.NewMongoUserGymRepository(appDB)
	checkInRepo := mongo.NewMongoCheckInRepository(appDB)
	rewardRepo := mongo.NewMongoMonthlyRewardRepository(appDB)

	// --- Initialize Services ---
	loc := cfg.CheckIn.Location()
	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration, zlog)
	gymService := service.NewGymService(gymRepo, userGymRepo, zlog)
	rewardService := service.NewRewardService(rewardRepo, loc, nil, zlog)
	resolver := service.DefaultGymResolver(gymRepo, userGymRepo, userRepo, cfg.CheckIn.NearbyRadiusMeters)
	checkInService := service.NewCheckInService(checkInRepo, resolver, tracker, rewardService, fileStorage, service.CheckInOptions{
		RadiusMeters:        cfg.CheckIn.RadiusMeters,
		MinVerifiedMinutes:  cfg.CheckIn.MinVerifiedMinutes,
		LocateTimeout:       cfg.CheckIn.LocateTimeout,
		Location:            loc,
		HistoryDefaultLimit: cfg.CheckIn.HistoryDefaultLimit,
	}, zlog)

	sweeper := service.NewSweeper(checkInRepo, tracker, cfg.Sweeper.MaxSessionAge, nil, zlog)
	if cfg.Sweeper.Enabled {
		if err := sweeper.Start(cfg.Sweeper.Schedule); err != nil {
			zlog.Fatal("invalid sweeper schedule", zap.String("schedule", cfg.Sweeper.Schedule), zap.Error(err))
		}
		defer sweeper.Stop()
	}

	// --- Initialize Gin Engine ---
	switch strings.ToLower(cfg.Server.Mode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	router := api.NewRouter(zlog, api.RouteOptions{
		JWTSecret:          cfg.JWT.Secret,
		AllowedOrigins:     cfg.CORS.AllowedOrigins,
		RadiusMeters:       cfg.CheckIn.RadiusMeters,
		NearbyRadiusMeters: cfg.CheckIn.NearbyRadiusMeters,
		MaxFixAge:          cfg.CheckIn.MaxFixAge,
		RateLimitPerMinute: cfg.RateLimit.PerMinute,
		RateLimitBurst:     cfg.RateLimit.Burst,
	}, api.Services{
		Auth:     authService,
		CheckIns: checkInService,
		Rewards:  rewardService,
		Gyms:     gymService,
	})

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		zlog.Info("server listening", zap.String("addr", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("ListenAndServe error", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info("shutting down server")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		zlog.Error("server forced to shutdown", zap.Error(err))
	}
	zlog.Info("server exiting")
}
