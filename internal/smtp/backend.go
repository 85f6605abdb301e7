package smtp

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	gosmtp "github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"github.com/Uncodier/API-sub015/internal/domain"
	"github.com/Uncodier/API-sub015/internal/monitoring"
	"github.com/Uncodier/API-sub015/internal/pool"
	"github.com/Uncodier/API-sub015/internal/service"
)

// Backend 实现 go-smtp 的 Backend 接口。
//
// 【安全说明】
// 这是一个只接收邮件的 SMTP 服务器（Receiving-Only SMTP Server）。
// 特性：
// - ✅ 只接收发送到站点主邮箱或别名的邮件
// - ✅ 严格验证收件人地址必须属于本站点
// - ❌ 不支持对外发送邮件（无邮件中继功能）
// - ❌ 不会成为垃圾邮件中继或开放中继
//
// 安全机制：
// 1. Rcpt() 方法严格验证收件人地址
// 2. 只有站点拥有的地址才能接收邮件
// 3. 外部地址一律返回 550 错误拒绝
type Backend struct {
	site            *domain.SiteConfig
	ingest          *service.IngestService
	workers         *pool.WorkerPool
	metrics         *monitoring.Metrics
	log             *zap.Logger
	maxMessageBytes int64
	owned           map[string]struct{}
}

// NewBackend 创建 SMTP Backend。workers 为 nil 时摄取在会话内同步执行。
func NewBackend(site *domain.SiteConfig, ingest *service.IngestService, workers *pool.WorkerPool, maxMessageBytes int64, metrics *monitoring.Metrics, log *zap.Logger) *Backend {
	if log == nil {
		log = zap.NewNop()
	}
	if maxMessageBytes <= 0 {
		maxMessageBytes = 10 << 20
	}

	owned := make(map[string]struct{})
	for _, addr := range site.OwnedAddresses() {
		owned[addr] = struct{}{}
	}

	return &Backend{
		site:            site,
		ingest:          ingest,
		workers:         workers,
		metrics:         metrics,
		log:             log,
		maxMessageBytes: maxMessageBytes,
		owned:           owned,
	}
}

// NewSession 创建新的 SMTP 会话。
func (b *Backend) NewSession(c *gosmtp.Conn) (gosmtp.Session, error) {
	return &session{backend: b}, nil
}

type session struct {
	backend     *Backend
	fromAddress string
	recipients  []string
}

// Mail 处理 MAIL 命令。
func (s *session) Mail(from string, opts *gosmtp.MailOptions) error {
	s.fromAddress = normalizeAddress(from)
	return nil
}

// Rcpt 处理 RCPT 命令。
//
// 【安全关键】此方法是防止邮件中继的核心。
// 只接受发送到站点主邮箱或别名的邮件，拒绝所有外部地址。
func (s *session) Rcpt(to string, _ *gosmtp.RcptOptions) error {
	addr := normalizeAddress(to)

	if !strings.Contains(addr, "@") {
		return &gosmtp.SMTPError{
			Code:         501,
			EnhancedCode: gosmtp.EnhancedCode{5, 1, 3},
			Message:      "invalid recipient address",
		}
	}

	if _, ok := s.backend.owned[addr]; !ok {
		return &gosmtp.SMTPError{
			Code:         550,
			EnhancedCode: gosmtp.EnhancedCode{5, 7, 1},
			Message:      "relay access denied - recipient not managed by this server",
		}
	}

	s.recipients = append(s.recipients, addr)
	return nil
}

// Data 处理邮件内容。解析后的邮件交给协程池异步摄取，
// 让 DATA 命令尽快返回 250；解析失败才在会话内报错。
func (s *session) Data(r io.Reader) error {
	rawBytes, err := io.ReadAll(io.LimitReader(r, s.backend.maxMessageBytes))
	if err != nil {
		return err
	}

	record, err := ParseEmail(rawBytes)
	if err != nil {
		return fmt.Errorf("parse email: %w", err)
	}

	// 信封发件人兜底：头部 From 缺失时用 MAIL FROM
	if record.From == "" {
		record.From = s.fromAddress
	}

	for _, rcpt := range s.recipients {
		input := service.IngestInput{
			Email:            record,
			DestinationField: rcpt,
		}

		if s.backend.workers != nil {
			s.backend.workers.Submit(func() {
				s.backend.runIngest(input)
			})
			continue
		}
		s.backend.runIngest(input)
	}

	return nil
}

func (b *Backend) runIngest(input service.IngestInput) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := b.ingest.Ingest(ctx, input)
	if err != nil {
		b.log.Error("smtp ingest failed",
			zap.String("message_id", input.Email.MessageID),
			zap.Error(err))
		if b.metrics != nil {
			b.metrics.ErrorsTotal.WithLabelValues("smtp").Inc()
		}
		return
	}

	b.log.Debug("smtp ingest finished",
		zap.String("message_id", input.Email.MessageID),
		zap.Bool("duplicate", result.Duplicate),
		zap.Bool("rejected", result.Rejected))
}

// AuthPlain 处理 PLAIN 认证（此处允许匿名）。
func (s *session) AuthPlain(username, password string) error {
	return nil
}

// Reset 重置状态。
func (s *session) Reset() {
	s.fromAddress = ""
	s.recipients = nil
}

// Logout 会话结束。
func (s *session) Logout() error {
	return nil
}

func normalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	addr = strings.Trim(addr, "<>")
	return strings.ToLower(addr)
}
