package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Uncodier/API-sub015/internal/dedup"
	"github.com/Uncodier/API-sub015/internal/domain"
	"github.com/Uncodier/API-sub015/internal/fingerprint"
	"github.com/Uncodier/API-sub015/internal/monitoring"
	"github.com/Uncodier/API-sub015/internal/storage"
)

// DedupService 封装重复判定的业务操作：生成指纹、拉取近期消息、
// 执行分层匹配。判定本身无副作用，存储故障时宽松放行（fail-open）
// 并把错误交给调用方记账。
type DedupService struct {
	resolver   *dedup.Resolver
	messages   storage.MessageRepository
	thresholds dedup.Thresholds
	metrics    *monitoring.Metrics
	log        *zap.Logger
}

// NewDedupService 创建重复判定服务。
func NewDedupService(messages storage.MessageRepository, thresholds dedup.Thresholds, metrics *monitoring.Metrics, log *zap.Logger) *DedupService {
	if log == nil {
		log = zap.NewNop()
	}
	if thresholds.RecentWindow <= 0 {
		thresholds = dedup.DefaultThresholds()
	}
	resolver := dedup.NewResolver(thresholds, log)
	if metrics != nil {
		resolver.SetPanicHook(func(domain.MatchReason) {
			metrics.DedupTierPanics.Inc()
		})
	}
	return &DedupService{
		resolver:   resolver,
		messages:   messages,
		thresholds: thresholds,
		metrics:    metrics,
		log:        log,
	}
}

// StableFingerprint 为邮件生成完整指纹。各字段独立降级：
// 缺字段的指纹分量为空串，对应匹配层随之跳过。
func (s *DedupService) StableFingerprint(email *domain.EmailRecord) domain.Fingerprint {
	fp := fingerprint.Generate(email)
	if s.metrics != nil {
		if fp.EnvelopeHash == "" {
			s.metrics.FingerprintsSkipped.WithLabelValues("envelope").Inc()
		}
		if fp.SemanticHash == "" {
			s.metrics.FingerprintsSkipped.WithLabelValues("semantic").Inc()
		}
	}
	return fp
}

// EnvelopeID 返回邮件的信封指纹，字段不全时为空串。
func (s *DedupService) EnvelopeID(email *domain.EmailRecord) string {
	return fingerprint.EnvelopeID(email)
}

// CheckDuplication 对一封来信执行完整的重复检查。
// 近期消息查询失败时返回未重复的判定和原始错误：吞掉一封真邮件
// 比存一封重复邮件代价更高，调用方可据错误决定是否降级处理。
func (s *DedupService) CheckDuplication(ctx context.Context, email *domain.EmailRecord, siteID, conversationID, leadID string) (domain.DuplicationDecision, error) {
	start := time.Now()
	fp := s.StableFingerprint(email)

	stored, err := s.messages.RecentMessages(ctx, storage.RecentMessagesQuery{
		SiteID:         siteID,
		ConversationID: conversationID,
		LeadID:         leadID,
		Limit:          s.thresholds.RecentWindow,
	})
	if err != nil {
		s.log.Error("recent messages query failed, allowing email through",
			zap.String("site_id", siteID),
			zap.Error(err),
		)
		if s.metrics != nil {
			s.metrics.ErrorsTotal.WithLabelValues("dedup").Inc()
		}
		return domain.NoDuplicate(), err
	}

	decision := s.resolver.Resolve(email, fp, stored)

	if s.metrics != nil {
		s.metrics.DedupChecksTotal.WithLabelValues(string(decision.Reason)).Inc()
		s.metrics.DedupCheckDuration.Observe(time.Since(start).Seconds())
		if decision.IsDuplicate {
			s.metrics.DedupDuplicates.WithLabelValues(string(decision.Confidence)).Inc()
		}
	}

	if decision.IsDuplicate {
		s.log.Info("duplicate email detected",
			zap.String("site_id", siteID),
			zap.String("reason", string(decision.Reason)),
			zap.String("confidence", string(decision.Confidence)),
			zap.String("existing_id", decision.ExistingID),
		)
	}

	return decision, nil
}
