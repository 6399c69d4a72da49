package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"testhub_backend/internal/config"
	"testhub_backend/internal/controller"
	"testhub_backend/internal/repository"
	"testhub_backend/internal/service"
	"testhub_backend/pkg/database"
	"testhub_backend/pkg/logger"
	"testhub_backend/pkg/monitoring"
	"testhub_backend/pkg/security"
	"testhub_backend/pkg/tracing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client
}

type services struct {
	testHub *service.TestHubService
	history *service.HistoryService
}

type controllers struct {
	testHub  *controller.TestHubController
	guidance *controller.GuidanceController
	health   *controller.HealthController
}

func (a *App) initServices(repo *repository.TestSessionRepository, cfg *config.Config, rdb *redis.Client) *services {
	ai := service.NewAIService(cfg.AI)
	generator := service.NewAIGenerator(ai)
	judge := service.NewAIJudge(ai)
	strategies := service.NewStrategyRegistry(judge)

	var archiver *service.ArchiveService
	if cfg.Archive.Enabled {
		var err error
		archiver, err = service.NewArchiveService(cfg.Archive)
		if err != nil {
			logger.Log.Warn("archive storage unavailable, transcripts will not be uploaded", zap.Error(err))
			archiver = nil
		}
	}

	return &services{
		testHub: service.NewTestHubService(repo, generator, strategies, archiver, rdb),
		history: service.NewHistoryService(repo, generator, rdb),
	}
}

func (a *App) initControllers(s *services, db *gorm.DB) *controllers {
	return &controllers{
		testHub:  controller.NewTestHubController(s.testHub, s.history),
		guidance: controller.NewGuidanceController(s.history),
		health:   controller.NewHealthController(db),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 100000
	}
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(maxRequests, window))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repo := repository.NewTestSessionRepository(db)
	services := app.initServices(repo, cfg, rdb)
	controllers := app.initControllers(services, db)

	monitoring.Init()

	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		_, err := tracing.InitTracer("testhub", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, cfg)

	return app
}

// ReloadConfig swaps the runtime JWT secret and rate-limit knobs when the
// config file changes on disk.
func (a *App) ReloadConfig(cfg *config.Config) {
	a.Config.JWT = cfg.JWT
	a.Config.RateLimit = cfg.RateLimit
	a.Config.AI = cfg.AI
	logger.Log.Info("Configuration reloaded")
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
