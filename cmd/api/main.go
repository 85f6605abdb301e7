package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Uncodier/API-sub015/internal/cache"
	"github.com/Uncodier/API-sub015/internal/config"
	"github.com/Uncodier/API-sub015/internal/health"
	"github.com/Uncodier/API-sub015/internal/logger"
	"github.com/Uncodier/API-sub015/internal/monitoring"
	"github.com/Uncodier/API-sub015/internal/service"
	"github.com/Uncodier/API-sub015/internal/storage"
	"github.com/Uncodier/API-sub015/internal/storage/hybrid"
	"github.com/Uncodier/API-sub015/internal/storage/memory"
	"github.com/Uncodier/API-sub015/internal/storage/postgres"
	redisstore "github.com/Uncodier/API-sub015/internal/storage/redis"
	httptransport "github.com/Uncodier/API-sub015/internal/transport/http"
)

// main 是判重 HTTP 服务的程序入口（仅 HTTP API，不含 SMTP）。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 设置 Gin 模式（基于开发环境标志）
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	log := logger.New(cfg)
	log.Info("starting mailident api",
		zap.String("site_id", cfg.Site.SiteID),
		zap.String("email_address", cfg.Site.EmailAddress),
	)

	store, redisClient, err := buildStore(cfg, log)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize storage: %v", err))
	}
	defer store.Close()

	metrics := monitoring.NewMetrics()

	var healthChecker *health.HealthChecker
	if redisClient != nil {
		healthChecker = health.NewHealthChecker(store, redisClient, log)
	} else {
		healthChecker = health.NewHealthChecker(store, nil, log)
	}

	site := cfg.DomainSite()
	dedupService := service.NewDedupService(store, cfg.Thresholds(), metrics, log)
	tracker := service.NewProcessedObjectService(store, metrics, log)
	ingestService := service.NewIngestService(site, dedupService, tracker, store, metrics, log)

	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:        cfg,
		Site:          site,
		DedupService:  dedupService,
		IngestService: ingestService,
		Tracker:       tracker,
		HealthChecker: healthChecker,
		Metrics:       metrics,
		Logger:        log,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("starting HTTP server", zap.String("address", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received, gracefully shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}

	log.Info("server exited cleanly")
}

// buildStore 根据配置组装存储层，规则与综合服务一致。
func buildStore(cfg *config.Config, log *zap.Logger) (storage.Store, *redisstore.Client, error) {
	var base storage.Store
	var opts []hybrid.Option

	switch cfg.Database.Type {
	case "postgres":
		store, err := postgres.NewStore(cfg.Database.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		base = store

		client, err := postgres.NewClient(&cfg.Database, log)
		if err != nil {
			return nil, nil, fmt.Errorf("connect pgx pool: %w", err)
		}
		opts = append(opts, hybrid.WithLedger(postgres.NewLedger(client)))
		log.Info("using postgres storage with pgx ledger")
	case "mysql":
		store, err := postgres.NewMySQLStore(cfg.Database.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect mysql: %w", err)
		}
		base = store
		log.Info("using mysql storage")
	default:
		base = memory.NewStore()
		log.Info("using memory storage (development mode)")
	}

	var redisClient *redisstore.Client
	if cfg.Redis.Enabled {
		client, err := redisstore.New(&cfg.Redis, log)
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		redisClient = client
		opts = append(opts, hybrid.WithCache(redisstore.NewProcessedCache(client, 0)))
		log.Info("redis existence cache enabled", zap.String("address", cfg.Redis.Address))
	}

	// 进程内 L1 缓存挡掉同一批外部ID的重复查询
	opts = append(opts, hybrid.WithLocalCache(cache.NewExistenceCache(time.Hour)))

	return hybrid.NewStore(base, log, opts...), redisClient, nil
}
