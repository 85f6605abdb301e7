package hybrid

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/Uncodier/API-sub015/internal/cache"
	"github.com/Uncodier/API-sub015/internal/domain"
	"github.com/Uncodier/API-sub015/internal/storage"
	"github.com/Uncodier/API-sub015/internal/storage/redis"
)

// Store 组合基础存储、Redis 存在性缓存和可选的 pgx 台账直连。
// 邮件读写始终走基础存储；台账写入优先走 pgx 快速路径，
// 缓存仅在命中时短路查询，Redis 故障静默降级到数据库。
type Store struct {
	base   storage.Store
	ledger storage.ProcessedObjectRepository
	cache  *redis.ProcessedCache
	local  *cache.ExistenceCache
	log    *zap.Logger
}

// Option 配置混合存储的可选部件
type Option func(*Store)

// WithLedger 使用独立的台账实现（如 pgx 直连）替代基础存储的台账
func WithLedger(ledger storage.ProcessedObjectRepository) Option {
	return func(s *Store) { s.ledger = ledger }
}

// WithCache 启用 Redis 存在性缓存
func WithCache(cache *redis.ProcessedCache) Option {
	return func(s *Store) { s.cache = cache }
}

// WithLocalCache 启用进程内 L1 存在性缓存，挡在 Redis 与数据库前面
func WithLocalCache(local *cache.ExistenceCache) Option {
	return func(s *Store) { s.local = local }
}

// NewStore 创建混合存储实例
func NewStore(base storage.Store, log *zap.Logger, opts ...Option) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{
		base:   base,
		ledger: base,
		log:    log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ========== Message Repository ==========

func (s *Store) SaveMessage(ctx context.Context, message *domain.Message) error {
	return s.base.SaveMessage(ctx, message)
}

func (s *Store) GetMessage(ctx context.Context, id string) (*domain.Message, error) {
	return s.base.GetMessage(ctx, id)
}

func (s *Store) GetMessageByExternalID(ctx context.Context, siteID, externalID string) (*domain.Message, error) {
	return s.base.GetMessageByExternalID(ctx, siteID, externalID)
}

func (s *Store) RecentMessages(ctx context.Context, q storage.RecentMessagesQuery) ([]domain.Message, error) {
	return s.base.RecentMessages(ctx, q)
}

// ========== Processed Object Repository ==========

// InsertProcessedObject 写入台账并更新缓存。缓存写入失败只记日志，
// 台账才是事实来源。
func (s *Store) InsertProcessedObject(ctx context.Context, record *domain.ProcessedObject) error {
	err := s.ledger.InsertProcessedObject(ctx, record)
	if err != nil && !errors.Is(err, storage.ErrProcessedObjectExists) {
		return err
	}

	if s.local != nil {
		s.local.Mark(existenceKey(record.SiteID, record.ObjectType, record.ExternalID))
	}
	if s.cache != nil {
		if cacheErr := s.cache.MarkProcessed(ctx, record.SiteID, record.ObjectType, record.ExternalID); cacheErr != nil {
			s.log.Warn("failed to cache processed object",
				zap.String("external_id", record.ExternalID),
				zap.Error(cacheErr),
			)
		}
	}
	return err
}

// GetProcessedObject 获取台账记录。缓存只存存在性标志，完整记录
// 始终从数据库读取。
func (s *Store) GetProcessedObject(ctx context.Context, siteID, objectType, externalID string) (*domain.ProcessedObject, error) {
	return s.ledger.GetProcessedObject(ctx, siteID, objectType, externalID)
}

// ListProcessedObjects 批量查询。缓存命中的ID仍会查库获取完整记录，
// 但可以先剔除确定未处理的部分；这里直接透传，剔除逻辑在服务层。
func (s *Store) ListProcessedObjects(ctx context.Context, siteID, objectType string, externalIDs []string) ([]domain.ProcessedObject, error) {
	return s.ledger.ListProcessedObjects(ctx, siteID, objectType, externalIDs)
}

func (s *Store) UpdateProcessedObjectStatus(ctx context.Context, id string, status domain.ProcessedObjectStatus) error {
	return s.ledger.UpdateProcessedObjectStatus(ctx, id, status)
}

// ProcessedInCache 检查存在性缓存：先查进程内 L1，再查 Redis。
// 未启用任何缓存时总是返回未命中。
func (s *Store) ProcessedInCache(ctx context.Context, siteID, objectType, externalID string) bool {
	key := existenceKey(siteID, objectType, externalID)
	if s.local != nil && s.local.Contains(key) {
		return true
	}
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.IsProcessed(ctx, siteID, objectType, externalID)
	if err != nil {
		s.log.Warn("processed cache lookup failed", zap.Error(err))
		return false
	}
	if hit && s.local != nil {
		s.local.Mark(key)
	}
	return hit
}

func existenceKey(siteID, objectType, externalID string) string {
	return siteID + ":" + objectType + ":" + externalID
}

// Close 关闭基础存储
func (s *Store) Close() error {
	return s.base.Close()
}

// Health 检查基础存储健康状态
func (s *Store) Health() error {
	return s.base.Health()
}
