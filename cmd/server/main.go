package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	gosmtp "github.com/emersion/go-smtp"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Uncodier/API-sub015/internal/cache"
	"github.com/Uncodier/API-sub015/internal/config"
	"github.com/Uncodier/API-sub015/internal/health"
	"github.com/Uncodier/API-sub015/internal/logger"
	"github.com/Uncodier/API-sub015/internal/monitoring"
	"github.com/Uncodier/API-sub015/internal/pool"
	"github.com/Uncodier/API-sub015/internal/service"
	"github.com/Uncodier/API-sub015/internal/smtp"
	"github.com/Uncodier/API-sub015/internal/storage"
	"github.com/Uncodier/API-sub015/internal/storage/hybrid"
	"github.com/Uncodier/API-sub015/internal/storage/memory"
	"github.com/Uncodier/API-sub015/internal/storage/postgres"
	redisstore "github.com/Uncodier/API-sub015/internal/storage/redis"
	httptransport "github.com/Uncodier/API-sub015/internal/transport/http"
)

// main 启动同时包含 HTTP API 与 SMTP 入口的综合服务。
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
	log.Info("starting mailident server",
		zap.String("site_id", cfg.Site.SiteID),
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
	)

	// 初始化存储层
	store, redisClient, err := initializeStorage(cfg, log)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize storage: %v", err))
	}
	defer store.Close()

	// 初始化监控系统（promauto 在构造时自动注册指标）
	metrics := monitoring.NewMetrics()

	// 初始化健康检查
	var healthChecker *health.HealthChecker
	if redisClient != nil {
		healthChecker = health.NewHealthChecker(store, redisClient, log)
	} else {
		healthChecker = health.NewHealthChecker(store, nil, log)
	}

	// 初始化服务层
	site := cfg.DomainSite()
	dedupService := service.NewDedupService(store, cfg.Thresholds(), metrics, log)
	tracker := service.NewProcessedObjectService(store, metrics, log)
	ingestService := service.NewIngestService(site, dedupService, tracker, store, metrics, log)

	// 创建 HTTP 服务器
	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
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

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// 信号处理
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	// HTTP 服务器 goroutine
	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	// SMTP 服务器（可选）
	var smtpServer *gosmtp.Server
	var workers *pool.WorkerPool
	if cfg.SMTP.Enabled {
		workers = pool.NewWorkerPool(8, 256, metrics, log)
		workers.Start(groupCtx)

		smtpBackend := smtp.NewBackend(site, ingestService, workers, cfg.SMTP.MaxMessageBytes, metrics, log)
		smtpServer = gosmtp.NewServer(smtpBackend)
		smtpServer.Addr = cfg.SMTP.BindAddr
		smtpServer.Domain = cfg.SMTP.Domain
		smtpServer.AllowInsecureAuth = cfg.Log.Development
		smtpServer.ReadTimeout = 10 * time.Second
		smtpServer.WriteTimeout = 10 * time.Second
		smtpServer.MaxMessageBytes = cfg.SMTP.MaxMessageBytes
		smtpServer.MaxRecipients = 50

		limiter := smtp.NewConnectionLimiter(100, 20)

		group.Go(func() error {
			log.Info("starting SMTP server",
				zap.String("address", cfg.SMTP.BindAddr),
				zap.String("domain", cfg.SMTP.Domain),
			)
			listener, err := net.Listen("tcp", cfg.SMTP.BindAddr)
			if err != nil {
				log.Error("SMTP listen error", zap.Error(err))
				return err
			}
			if err := smtpServer.Serve(smtp.NewLimitedListener(listener, limiter)); err != nil {
				log.Error("SMTP server error", zap.Error(err))
				return err
			}
			return nil
		})
	}

	// 优雅关闭 goroutine
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}

		if smtpServer != nil {
			if err := smtpServer.Close(); err != nil {
				log.Warn("SMTP server close warning", zap.Error(err))
			}
		}
		if workers != nil {
			workers.Stop()
		}

		log.Info("servers stopped")
		return nil
	})

	if err := group.Wait(); err != nil && err != context.Canceled {
		log.Fatal("server error", zap.Error(err))
	}

	log.Info("server exited cleanly")
}

// initializeStorage 根据配置组装存储层。
//
// 组合规则：
//   - 未配置数据库时使用内存存储（开发环境）
//   - postgres 时叠加 pgx 直连台账，处理记录写入走批量友好的快路径
//   - 启用 Redis 时叠加存在性缓存
func initializeStorage(cfg *config.Config, log *zap.Logger) (storage.Store, *redisstore.Client, error) {
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
