package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Uncodier/API-sub015/internal/domain"
	"github.com/Uncodier/API-sub015/internal/monitoring"
	"github.com/Uncodier/API-sub015/internal/storage"
)

// existenceCache 是台账存储可选实现的快速存在性检查。
// 混合存储在启用 Redis 时满足该接口。
type existenceCache interface {
	ProcessedInCache(ctx context.Context, siteID, objectType, externalID string) bool
}

// ProcessedObjectService 封装幂等处理台账的业务操作。
// 台账按 (site_id, object_type, external_id) 记录已完成处理的外部对象，
// 唯一性由存储层约束保证，重复标记是安全的无操作。
type ProcessedObjectService struct {
	repo    storage.ProcessedObjectRepository
	cache   existenceCache
	metrics *monitoring.Metrics
	log     *zap.Logger
}

// NewProcessedObjectService 创建台账业务服务。
func NewProcessedObjectService(repo storage.ProcessedObjectRepository, metrics *monitoring.Metrics, log *zap.Logger) *ProcessedObjectService {
	if log == nil {
		log = zap.NewNop()
	}
	svc := &ProcessedObjectService{
		repo:    repo,
		metrics: metrics,
		log:     log,
	}
	if cache, ok := repo.(existenceCache); ok {
		svc.cache = cache
	}
	return svc
}

// IsProcessed 检查某个外部对象是否已有台账记录。
// 缓存命中直接返回；未命中回落到数据库。
func (s *ProcessedObjectService) IsProcessed(ctx context.Context, siteID, externalID string) (bool, error) {
	if externalID == "" {
		return false, nil
	}

	if s.cache != nil && s.cache.ProcessedInCache(ctx, siteID, domain.ObjectTypeEmail, externalID) {
		if s.metrics != nil {
			s.metrics.ProcessedHits.WithLabelValues("cache").Inc()
		}
		return true, nil
	}

	_, err := s.repo.GetProcessedObject(ctx, siteID, domain.ObjectTypeEmail, externalID)
	if err != nil {
		if errors.Is(err, storage.ErrProcessedObjectNotFound) {
			return false, nil
		}
		return false, err
	}
	if s.metrics != nil {
		s.metrics.ProcessedHits.WithLabelValues("database").Inc()
	}
	return true, nil
}

// MarkProcessed 为外部对象写入台账记录。记录已存在时静默成功，
// 因此并发标记同一对象不会报错。
func (s *ProcessedObjectService) MarkProcessed(ctx context.Context, siteID, externalID string, metadata map[string]string) error {
	if externalID == "" {
		return nil
	}

	record := &domain.ProcessedObject{
		ID:         uuid.New().String(),
		SiteID:     siteID,
		ObjectType: domain.ObjectTypeEmail,
		ExternalID: externalID,
		Status:     domain.ProcessedStatusProcessed,
		Metadata:   metadata,
	}

	err := s.repo.InsertProcessedObject(ctx, record)
	if errors.Is(err, storage.ErrProcessedObjectExists) {
		s.log.Debug("processed object already recorded",
			zap.String("site_id", siteID),
			zap.String("external_id", externalID),
		)
		return nil
	}
	if err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.ProcessedInserted.Inc()
	}
	return nil
}

// MarkFailed 将已有台账记录标记为失败，供后续重试。
func (s *ProcessedObjectService) MarkFailed(ctx context.Context, siteID, externalID string) error {
	record, err := s.repo.GetProcessedObject(ctx, siteID, domain.ObjectTypeEmail, externalID)
	if err != nil {
		return err
	}
	return s.repo.UpdateProcessedObjectStatus(ctx, record.ID, domain.ProcessedStatusFailed)
}

// FilterUnprocessed 将一批外部ID分为未处理和已处理两组，
// 输入顺序在两组内保持不变。空ID直接丢弃。
func (s *ProcessedObjectService) FilterUnprocessed(ctx context.Context, siteID string, externalIDs []string) (unprocessed, alreadyProcessed []string, err error) {
	ids := make([]string, 0, len(externalIDs))
	for _, id := range externalIDs {
		if id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, nil, nil
	}

	records, err := s.repo.ListProcessedObjects(ctx, siteID, domain.ObjectTypeEmail, ids)
	if err != nil {
		return nil, nil, err
	}

	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		seen[r.ExternalID] = struct{}{}
	}

	for _, id := range ids {
		if _, ok := seen[id]; ok {
			alreadyProcessed = append(alreadyProcessed, id)
		} else {
			unprocessed = append(unprocessed, id)
		}
	}
	return unprocessed, alreadyProcessed, nil
}
