package httptransport

import (
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Uncodier/API-sub015/internal/config"
	"github.com/Uncodier/API-sub015/internal/domain"
	"github.com/Uncodier/API-sub015/internal/health"
	"github.com/Uncodier/API-sub015/internal/middleware"
	"github.com/Uncodier/API-sub015/internal/monitoring"
	"github.com/Uncodier/API-sub015/internal/service"
)

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config        *config.Config
	Site          *domain.SiteConfig
	DedupService  *service.DedupService
	IngestService *service.IngestService
	Tracker       *service.ProcessedObjectService
	HealthChecker *health.HealthChecker
	Metrics       *monitoring.Metrics
	Logger        *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RecoveryHandler(deps.Logger))
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.BodySizeLimit(10 * 1024 * 1024))

	if deps.Metrics != nil {
		router.Use(middleware.HTTPMetrics(deps.Metrics))
	}

	// CORS 配置
	corsConfig := gincors.Config{
		AllowOrigins:     deps.Config.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-API-Key"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	// 如果允许所有来源，则需清空凭证支持。
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowCredentials = false
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	handler := NewHandler(deps.Site, deps.DedupService, deps.IngestService, deps.Tracker, deps.Logger)
	apiKeyAuth := middleware.NewAPIKeyAuth(deps.Config.API.Keys)

	// 健康检查与指标
	if deps.HealthChecker != nil {
		router.GET("/live", gin.WrapF(deps.HealthChecker.LiveEndpoint))
		router.GET("/ready", gin.WrapF(deps.HealthChecker.ReadyEndpoint))
	}
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	api := router.Group("/api", apiKeyAuth.RequireAPIKey())
	{
		dedupRoutes := api.Group("/dedup")
		{
			dedupRoutes.POST("/check", handler.checkDuplication)
			dedupRoutes.POST("/fingerprint", handler.generateFingerprint)
		}

		api.POST("/ingest/email", handler.ingestEmail)
		api.POST("/processed/filter", handler.filterProcessed)
	}

	return router
}
