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
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hoangtranvan/speaker-id-service/internal/adapter/handler"
	"github.com/hoangtranvan/speaker-id-service/internal/confirm"
	"github.com/hoangtranvan/speaker-id-service/internal/identify"
	"github.com/hoangtranvan/speaker-id-service/internal/providers"
	"github.com/hoangtranvan/speaker-id-service/internal/registry"
	"github.com/hoangtranvan/speaker-id-service/internal/sessionstore"
	"github.com/hoangtranvan/speaker-id-service/internal/singleflight"
	"github.com/hoangtranvan/speaker-id-service/internal/summary"
	"github.com/hoangtranvan/speaker-id-service/internal/vectorstore"
	pkgvalidator "github.com/hoangtranvan/speaker-id-service/pkg/validator"

	"github.com/hoangtranvan/speaker-id-service/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	e := echo.New()
	e.Validator = pkgvalidator.New()
	e.HideBanner = true
	e.HidePort = false

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} | ${status} | ${method} ${uri} | ${latency_human}\n",
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, "X-Device-ID"},
		AllowCredentials: true,
	}))

	log.Println("🔧 Initializing dependencies...")

	log.Println("📦 Connecting to vector store...")
	store, err := vectorstore.New(cfg.Store)
	if err != nil {
		log.Fatalf("Failed to connect to vector store: %v", err)
	}

	log.Println("🗂️  Initializing voiceprint registry...")
	reg := registry.New(store, cfg.Mirror.Path, logger)
	if err := reg.LoadMirror(); err != nil {
		logger.Warn("could not load local mirror, rebuilding from store", zap.Error(err))
	}
	if count, err := reg.SyncFromStore(context.Background()); err != nil {
		logger.Warn("initial mirror sync failed", zap.Error(err))
	} else {
		log.Printf("✅ Voiceprint registry synced: %d enrolled speakers", count)
	}

	log.Println("🗄️  Initializing session store...")
	sessions := sessionstore.New(time.Hour, logger)
	defer sessions.Close()

	log.Println("🤖 Initializing provider clients...")
	diarizer := providers.NewAssemblyAIDiarizer(cfg.Diarizer)
	summarizer := providers.NewGroqSummarizer(cfg.Summary)

	log.Println("🚦 Initializing single-flight limiter...")
	var limiter singleflight.Limiter
	if cfg.SingleFlight.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.SingleFlight.RedisAddr,
			Password: cfg.SingleFlight.RedisPassword,
			DB:       cfg.SingleFlight.RedisDB,
		})
		defer redisClient.Close()
		limiter = singleflight.NewRedisLimiter(redisClient)
		log.Printf("✅ Single-flight limiter backed by Redis at %s", cfg.SingleFlight.RedisAddr)
	} else {
		limiter = singleflight.NewMemoryLimiter()
		log.Println("⚠️  REDIS_ADDR not set, using in-process single-flight limiter")
	}

	workDir := os.TempDir()
	identifyJob := identify.New(diarizer, store, sessions, workDir, cfg.Worker.PoolSize, logger)
	confirmSvc := confirm.New(sessions, reg)
	summarySvc := summary.New(summarizer, sessions)

	log.Println("🚀 Initializing speaker handler...")
	speakerHandler := handler.NewSpeaker(reg, sessions, identifyJob, confirmSvc, summarySvc, limiter, workDir, logger)
	log.Println("✅ Speaker handler initialized successfully")

	log.Println("🛣️  Setting up routes...")
	router := handler.NewRouter(cfg, speakerHandler)
	router.Setup(e)

	go func() {
		addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
		log.Printf("🚀 Starting server on %s", addr)
		log.Printf("📝 Environment: %s", cfg.Server.Environment)
		log.Printf("🔗 Health check: http://%s/healthz", addr)

		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server stopped gracefully")
}
