package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Uncodier/API-sub015/internal/domain"
	"github.com/Uncodier/API-sub015/internal/match"
	"github.com/Uncodier/API-sub015/internal/monitoring"
	"github.com/Uncodier/API-sub015/internal/normalize"
	"github.com/Uncodier/API-sub015/internal/storage"
)

// 拒收原因，用于结果和指标标签
const (
	RejectCauseSelfSent      = "self_sent"
	RejectCauseAliasMismatch = "alias_mismatch"
)

// IngestResult 描述一次摄取的结果。三种互斥出口：
// 被拒收（Rejected）、判定为重复（Duplicate）、成功入库（Stored 非空）。
type IngestResult struct {
	Stored      *domain.Message            `json:"stored,omitempty"`
	Duplicate   bool                       `json:"duplicate"`
	Decision    domain.DuplicationDecision `json:"decision"`
	Rejected    bool                       `json:"rejected"`
	RejectCause string                     `json:"rejectCause,omitempty"`
}

// IngestInput 是一次摄取的输入。DestinationField 为空时从收件人
// 头部推导投递地址。
type IngestInput struct {
	Email            *domain.EmailRecord
	ConversationID   string
	LeadID           string
	DestinationField string
}

// IngestService 是邮件摄取的编排层：环路预防、别名校验、台账查重、
// 分层重复判定、持久化、落台账，各步骤按固定顺序执行。
type IngestService struct {
	site      *domain.SiteConfig
	ownership *match.OwnershipSets
	dedup     *DedupService
	tracker   *ProcessedObjectService
	messages  storage.MessageRepository
	metrics   *monitoring.Metrics
	log       *zap.Logger
}

// NewIngestService 创建摄取服务。
func NewIngestService(site *domain.SiteConfig, dedup *DedupService, tracker *ProcessedObjectService, messages storage.MessageRepository, metrics *monitoring.Metrics, log *zap.Logger) *IngestService {
	if log == nil {
		log = zap.NewNop()
	}
	return &IngestService{
		site:      site,
		ownership: match.BuildOwnership(site),
		dedup:     dedup,
		tracker:   tracker,
		messages:  messages,
		metrics:   metrics,
		log:       log,
	}
}

// Ingest 处理一封来信。重复和拒收都不是错误：返回的结果描述出口，
// error 只在存储故障等基础设施问题时非空。
func (s *IngestService) Ingest(ctx context.Context, in IngestInput) (*IngestResult, error) {
	email := in.Email
	if email == nil {
		return nil, fmt.Errorf("email is required")
	}
	siteID := s.site.SiteID
	from := normalize.Address(email.From)

	// 环路预防：站点自己发出的邮件回流时直接丢弃，
	// 助理地址发出的除外。
	flow := match.ClassifySiteOwnership(email, s.ownership)
	if flow.InboundFromOwned && !s.site.IsAssistantSender(from) {
		s.log.Warn("dropping self-sent email to prevent loop",
			zap.String("site_id", siteID),
			zap.String("from", from),
		)
		if s.metrics != nil {
			s.metrics.LoopsPrevented.Inc()
			s.metrics.EmailsRejected.WithLabelValues(RejectCauseSelfSent).Inc()
		}
		return &IngestResult{Rejected: true, RejectCause: RejectCauseSelfSent, Decision: domain.NoDuplicate()}, nil
	}

	// 别名校验：投递地址必须命中站点拥有的地址之一。
	// 助理发件人免校验（转发场景下投递头常被改写）。
	if !s.site.IsAssistantSender(from) {
		if !match.IsValidByAlias(email, in.DestinationField, s.site.OwnedAddresses()) {
			s.log.Info("email rejected by alias validation",
				zap.String("site_id", siteID),
				zap.String("from", from),
			)
			if s.metrics != nil {
				s.metrics.EmailsRejected.WithLabelValues(RejectCauseAliasMismatch).Inc()
			}
			return &IngestResult{Rejected: true, RejectCause: RejectCauseAliasMismatch, Decision: domain.NoDuplicate()}, nil
		}
	}

	// 台账查重：服务商消息ID已处理过则无需再判定。
	// 台账查询失败时宽松放行，交给后面的分层判定兜底。
	if email.MessageID != "" {
		processed, err := s.tracker.IsProcessed(ctx, siteID, email.MessageID)
		if err != nil {
			s.log.Error("ledger lookup failed, continuing with tier matching",
				zap.String("site_id", siteID),
				zap.Error(err),
			)
		} else if processed {
			return &IngestResult{
				Duplicate: true,
				Decision: domain.DuplicationDecision{
					IsDuplicate: true,
					Reason:      domain.MatchReasonExactID,
					Confidence:  domain.ConfidenceHigh,
				},
			}, nil
		}
	}

	// 分层重复判定。查询失败时 decision 已经是宽松放行的结果。
	decision, err := s.dedup.CheckDuplication(ctx, email, siteID, in.ConversationID, in.LeadID)
	if err == nil && decision.IsDuplicate {
		// 重复邮件也落台账，下次同ID来信走快速路径
		s.markProcessed(ctx, siteID, email.MessageID, map[string]string{"duplicate_of": decision.ExistingID})
		return &IngestResult{Duplicate: true, Decision: decision}, nil
	}

	fp := s.dedup.StableFingerprint(email)
	message := &domain.Message{
		ID:                  uuid.New().String(),
		SiteID:              siteID,
		ConversationID:      in.ConversationID,
		LeadID:              in.LeadID,
		ExternalID:          email.MessageID,
		FromAddress:         from,
		Recipient:           fp.RecipientNormalized,
		Subject:             email.Subject,
		SentAt:              email.Date,
		StableHash:          fp.EnvelopeHash,
		SemanticHash:        fp.SemanticHash,
		RecipientNormalized: fp.RecipientNormalized,
		SubjectNormalized:   fp.SubjectNormalized,
		TimeWindow:          fp.TimeWindow,
	}

	if err := s.messages.SaveMessage(ctx, message); err != nil {
		// 存储层唯一约束兜住了进程内判定漏掉的并发重复
		if errors.Is(err, storage.ErrMessageExists) {
			s.markProcessed(ctx, siteID, email.MessageID, nil)
			return &IngestResult{
				Duplicate: true,
				Decision: domain.DuplicationDecision{
					IsDuplicate: true,
					Reason:      domain.MatchReasonStableHash,
					Confidence:  domain.ConfidenceHigh,
				},
			}, nil
		}
		if s.metrics != nil {
			s.metrics.ErrorsTotal.WithLabelValues("ingest").Inc()
		}
		return nil, fmt.Errorf("failed to save message: %w", err)
	}

	s.markProcessed(ctx, siteID, email.MessageID, map[string]string{"message_id": message.ID})

	if s.metrics != nil {
		s.metrics.EmailsIngested.Inc()
	}
	s.log.Info("email ingested",
		zap.String("site_id", siteID),
		zap.String("message_id", message.ID),
		zap.String("external_id", message.ExternalID),
	)

	return &IngestResult{Stored: message, Decision: decision}, nil
}

// markProcessed 落台账，失败只记日志：台账缺一条记录的代价是
// 下次多走一遍分层判定，不值得让整个摄取失败。
func (s *IngestService) markProcessed(ctx context.Context, siteID, externalID string, metadata map[string]string) {
	if externalID == "" {
		return
	}
	if err := s.tracker.MarkProcessed(ctx, siteID, externalID, metadata); err != nil {
		s.log.Error("failed to record processed object",
			zap.String("site_id", siteID),
			zap.String("external_id", externalID),
			zap.Error(err),
		)
	}
}
