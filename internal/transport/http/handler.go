package httptransport

import (
	"net/mail"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Uncodier/API-sub015/internal/domain"
	"github.com/Uncodier/API-sub015/internal/service"
)

// Handler 聚合所有 HTTP 处理逻辑。
type Handler struct {
	site    *domain.SiteConfig
	dedup   *service.DedupService
	ingest  *service.IngestService
	tracker *service.ProcessedObjectService
	log     *zap.Logger
}

// NewHandler 创建 HTTP 处理器。
func NewHandler(site *domain.SiteConfig, dedup *service.DedupService, ingest *service.IngestService, tracker *service.ProcessedObjectService, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		site:    site,
		dedup:   dedup,
		ingest:  ingest,
		tracker: tracker,
		log:     log,
	}
}

// emailPayload 是邮件的线上表示。日期以字符串传输，
// 解析失败时按缺失处理而不是拒绝请求。
type emailPayload struct {
	MessageID string            `json:"messageId"`
	From      string            `json:"from"`
	To        []string          `json:"to"`
	ReplyTo   string            `json:"replyTo"`
	Subject   string            `json:"subject"`
	Date      string            `json:"date"`
	Text      string            `json:"text"`
	HTML      string            `json:"html"`
	Headers   map[string]string `json:"headers"`
}

// dateLayouts 是 RFC 5322 之外常见的邮件服务商日期格式。
var dateLayouts = []string{
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseDate 宽松解析日期。所有格式都失败时返回零值，
// 时间相关的匹配层会随之跳过，但邮件本身照常处理。
func parseDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	if t, err := mail.ParseDate(raw); err == nil {
		return t.UTC()
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func (p *emailPayload) toRecord() *domain.EmailRecord {
	headers := make(map[string]string, len(p.Headers))
	for k, v := range p.Headers {
		headers[strings.ToLower(k)] = v
	}
	return &domain.EmailRecord{
		MessageID: p.MessageID,
		From:      p.From,
		To:        p.To,
		ReplyTo:   p.ReplyTo,
		Subject:   p.Subject,
		Date:      parseDate(p.Date),
		Text:      p.Text,
		HTML:      p.HTML,
		Headers:   headers,
	}
}

// ========== 重复检查 ==========

type checkRequest struct {
	Email          *emailPayload `json:"email" binding:"required"`
	ConversationID string        `json:"conversationId"`
	LeadID         string        `json:"leadId"`
}

// checkDuplication 对一封邮件执行只读的重复判定，不产生任何写入。
func (h *Handler) checkDuplication(c *gin.Context) {
	var req checkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	email := req.Email.toRecord()
	decision, err := h.dedup.CheckDuplication(c.Request.Context(), email, h.site.SiteID, req.ConversationID, req.LeadID)
	if err != nil {
		// 宽松放行的判定结果仍然返回，但以 500 告知调用方判定降级
		h.log.Error("duplication check degraded", zap.Error(err))
		InternalError(c, MsgDedupCheckFailed)
		return
	}

	Success(c, decision)
}

// ========== 指纹生成 ==========

type fingerprintRequest struct {
	Email *emailPayload `json:"email" binding:"required"`
}

type fingerprintResponse struct {
	Fingerprint domain.Fingerprint `json:"fingerprint"`
	EnvelopeID  string             `json:"envelopeId,omitempty"`
}

// generateFingerprint 返回邮件的完整指纹，供调用方做离线比对。
func (h *Handler) generateFingerprint(c *gin.Context) {
	var req fingerprintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	email := req.Email.toRecord()
	Success(c, fingerprintResponse{
		Fingerprint: h.dedup.StableFingerprint(email),
		EnvelopeID:  h.dedup.EnvelopeID(email),
	})
}

// ========== 邮件摄取 ==========

type ingestRequest struct {
	Email            *emailPayload `json:"email" binding:"required"`
	ConversationID   string        `json:"conversationId"`
	LeadID           string        `json:"leadId"`
	DestinationField string        `json:"destinationField"`
}

// ingestEmail 执行完整的摄取编排：环路预防、别名校验、查重、入库。
func (h *Handler) ingestEmail(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	email := req.Email.toRecord()
	if len(email.To) == 0 && req.DestinationField == "" {
		UnprocessableEntity(c, MsgRecipientMissing)
		return
	}

	result, err := h.ingest.Ingest(c.Request.Context(), service.IngestInput{
		Email:            email,
		ConversationID:   req.ConversationID,
		LeadID:           req.LeadID,
		DestinationField: req.DestinationField,
	})
	if err != nil {
		h.log.Error("ingest failed", zap.Error(err))
		InternalError(c, MsgIngestFailed)
		return
	}

	if result.Stored != nil {
		Created(c, result)
		return
	}
	Success(c, result)
}

// ========== 批量过滤 ==========

type filterRequest struct {
	ExternalIDs []string `json:"externalIds" binding:"required"`
}

type filterResponse struct {
	Unprocessed      []string `json:"unprocessed"`
	AlreadyProcessed []string `json:"alreadyProcessed"`
}

// filterProcessed 将一批服务商消息ID分为未处理与已处理两组。
func (h *Handler) filterProcessed(c *gin.Context) {
	var req filterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	unprocessed, already, err := h.tracker.FilterUnprocessed(c.Request.Context(), h.site.SiteID, req.ExternalIDs)
	if err != nil {
		h.log.Error("filter unprocessed failed", zap.Error(err))
		InternalError(c, MsgFilterFailed)
		return
	}

	if unprocessed == nil {
		unprocessed = []string{}
	}
	if already == nil {
		already = []string{}
	}
	Success(c, filterResponse{Unprocessed: unprocessed, AlreadyProcessed: already})
}
