package health

import (
	"context"
	"net/http"
	"time"

	"github.com/heptiolabs/healthcheck"
	"go.uber.org/zap"

	"github.com/Uncodier/API-sub015/internal/storage"
)

// pinger 是可选的连接探活接口，Redis 客户端满足它。
type pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker 健康检查器
type HealthChecker struct {
	health healthcheck.Handler
	store  storage.Store
	logger *zap.Logger
}

// NewHealthChecker 创建健康检查器。redis 可为 nil（未启用缓存时）。
func NewHealthChecker(store storage.Store, redis pinger, logger *zap.Logger) *HealthChecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	hc := &HealthChecker{
		health: healthcheck.NewHandler(),
		store:  store,
		logger: logger,
	}

	// 存活检查只看进程本身；依赖故障降低的是就绪度
	hc.health.AddReadinessCheck("database", func() error {
		return hc.store.Health()
	})

	if redis != nil {
		hc.health.AddReadinessCheck("redis", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			return redis.Ping(ctx)
		})
	}

	hc.health.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(500))

	return hc
}

// LiveEndpoint 存活检查处理函数
func (hc *HealthChecker) LiveEndpoint(w http.ResponseWriter, r *http.Request) {
	hc.health.LiveEndpoint(w, r)
}

// ReadyEndpoint 就绪检查处理函数
func (hc *HealthChecker) ReadyEndpoint(w http.ResponseWriter, r *http.Request) {
	hc.health.ReadyEndpoint(w, r)
}
