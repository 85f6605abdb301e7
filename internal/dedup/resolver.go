// Package dedup 实现分层重复判定：对一封新观察到的邮件，
// 在同会话/线索的有界近期消息窗口上按固定顺序评估多个匹配层，
// 首个命中者胜出。
package dedup

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Uncodier/API-sub015/internal/domain"
	"github.com/Uncodier/API-sub015/internal/normalize"
)

// Thresholds 收拢各匹配层的可调参数。
// 这些数值是观察到的默认值，不是契约的一部分。
type Thresholds struct {
	ExactTolerance    time.Duration // 保守精确匹配的时间戳容差
	TemporalProximity time.Duration // 收件人+时间接近层的窗口
	SemanticLookback  time.Duration // 语义匹配层的回看范围
	RecentWindow      int           // 参与比对的近期消息条数上限
}

// DefaultThresholds 返回默认参数。
func DefaultThresholds() Thresholds {
	return Thresholds{
		ExactTolerance:    60 * time.Second,
		TemporalProximity: 5 * time.Minute,
		SemanticLookback:  24 * time.Hour,
		RecentWindow:      50,
	}
}

// Resolver 按固定顺序执行各匹配层。进程内评估只读、无副作用，
// 可安全地在任意数量的并发工作协程上运行。
type Resolver struct {
	thresholds Thresholds
	log        *zap.Logger
	onPanic    func(reason domain.MatchReason)
}

// NewResolver 创建重复判定器。
func NewResolver(thresholds Thresholds, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	if thresholds.RecentWindow <= 0 {
		thresholds = DefaultThresholds()
	}
	return &Resolver{thresholds: thresholds, log: log}
}

// SetPanicHook 注册匹配层 panic 时的回调，用于记账。
func (r *Resolver) SetPanicHook(hook func(reason domain.MatchReason)) {
	r.onPanic = hook
}

// tier 是一个匹配层：谓词 + 命中时的原因与置信度。
// 用固定表驱动而不是嵌套条件，保证层序可审计、可单独测试。
type tier struct {
	reason     domain.MatchReason
	confidence domain.Confidence
	match      func(in *input, msg *domain.Message) bool
}

// input 是各层共享的预计算输入。
type input struct {
	email      *domain.EmailRecord
	fp         domain.Fingerprint
	thresholds Thresholds
}

// Resolve 对照已存消息窗口评估各层并返回判定。
// 任一层缺少必要字段时跳过该层（绝不视为命中）；
// 任一层评估出现意外错误时该层按未命中处理（fail open），
// 保证瞬时故障不会阻断正常邮件入库。
func (r *Resolver) Resolve(email *domain.EmailRecord, fp domain.Fingerprint, stored []domain.Message) domain.DuplicationDecision {
	in := &input{email: email, fp: fp, thresholds: r.thresholds}

	if len(stored) > r.thresholds.RecentWindow {
		stored = stored[:r.thresholds.RecentWindow]
	}

	for _, t := range tiers {
		if id, ok := r.evaluate(t, in, stored); ok {
			return domain.DuplicationDecision{
				IsDuplicate: true,
				Reason:      t.reason,
				Confidence:  t.confidence,
				ExistingID:  id,
			}
		}
	}

	return domain.NoDuplicate()
}

// evaluate 在单层上遍历消息窗口，带 panic 防护。
func (r *Resolver) evaluate(t tier, in *input, stored []domain.Message) (existingID string, matched bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Warn("dedup tier evaluation failed, treating as no match",
				zap.String("reason", string(t.reason)),
				zap.String("panic", fmt.Sprint(rec)),
			)
			if r.onPanic != nil {
				r.onPanic(t.reason)
			}
			existingID, matched = "", false
		}
	}()

	for i := range stored {
		if t.match(in, &stored[i]) {
			return stored[i].ID, true
		}
	}
	return "", false
}

// tiers 是按优先级排列的匹配层。顺序即语义，调整须谨慎。
var tiers = []tier{
	{
		reason:     domain.MatchReasonExactID,
		confidence: domain.ConfidenceHigh,
		match:      matchExactID,
	},
	{
		reason:     domain.MatchReasonExactConservative,
		confidence: domain.ConfidenceHigh,
		match:      matchExactConservative,
	},
	{
		reason:     domain.MatchReasonRecipientTemporal,
		confidence: domain.ConfidenceMedium,
		match:      matchRecipientTemporal,
	},
	{
		reason:     domain.MatchReasonStableHash,
		confidence: domain.ConfidenceHigh,
		match:      matchStableHash,
	},
	{
		reason:     domain.MatchReasonSemanticContent,
		confidence: domain.ConfidenceMedium,
		match:      matchSemanticContent,
	},
	{
		reason:     domain.MatchReasonSubjectRecipientTimeWindow,
		confidence: domain.ConfidenceMedium,
		match:      matchSubjectRecipientTimeWindow,
	},
}

// matchExactID 层1：服务商消息ID完全一致。
func matchExactID(in *input, msg *domain.Message) bool {
	if in.email.MessageID == "" || msg.ExternalID == "" {
		return false
	}
	return in.email.MessageID == msg.ExternalID
}

// matchExactConservative 层2：规范化主题+收件人一致，时间戳在秒级容差内。
func matchExactConservative(in *input, msg *domain.Message) bool {
	if in.fp.SubjectNormalized == "" || in.fp.RecipientNormalized == "" {
		return false
	}
	if in.email.Date.IsZero() || msg.SentAt.IsZero() {
		return false
	}
	if msg.SubjectNormalized != in.fp.SubjectNormalized || msg.RecipientNormalized != in.fp.RecipientNormalized {
		return false
	}
	return absDelta(in.email.Date, msg.SentAt) <= in.thresholds.ExactTolerance
}

// matchRecipientTemporal 层3：收件人一致且时间在分钟级接近窗口内。
func matchRecipientTemporal(in *input, msg *domain.Message) bool {
	if in.fp.RecipientNormalized == "" || msg.RecipientNormalized == "" {
		return false
	}
	if in.email.Date.IsZero() || msg.SentAt.IsZero() {
		return false
	}
	if msg.RecipientNormalized != in.fp.RecipientNormalized {
		return false
	}
	return absDelta(in.email.Date, msg.SentAt) <= in.thresholds.TemporalProximity
}

// matchStableHash 层4：已存消息的信封指纹与新邮件一致。
func matchStableHash(in *input, msg *domain.Message) bool {
	if in.fp.EnvelopeHash == "" || msg.StableHash == "" {
		return false
	}
	return msg.StableHash == in.fp.EnvelopeHash
}

// matchSemanticContent 层5：收件人一致且语义指纹一致，限定在有界回看范围内。
func matchSemanticContent(in *input, msg *domain.Message) bool {
	if in.fp.SemanticHash == "" || msg.SemanticHash == "" {
		return false
	}
	if in.fp.RecipientNormalized == "" || msg.RecipientNormalized != in.fp.RecipientNormalized {
		return false
	}
	if msg.SemanticHash != in.fp.SemanticHash {
		return false
	}

	// 回看基准优先取新邮件的时间戳，缺失时退化为当前时间
	ref := in.email.Date
	if ref.IsZero() {
		ref = time.Now().UTC()
	}
	if msg.SentAt.IsZero() {
		return false
	}
	return absDelta(ref, msg.SentAt) <= in.thresholds.SemanticLookback
}

// matchSubjectRecipientTimeWindow 层6：主题+收件人一致且落在相邻小时窗口内。
func matchSubjectRecipientTimeWindow(in *input, msg *domain.Message) bool {
	if in.fp.SubjectNormalized == "" || in.fp.RecipientNormalized == "" {
		return false
	}
	if in.email.Date.IsZero() || msg.SentAt.IsZero() {
		return false
	}
	if msg.SubjectNormalized != in.fp.SubjectNormalized || msg.RecipientNormalized != in.fp.RecipientNormalized {
		return false
	}

	window := normalize.HourWindow(msg.SentAt)
	for _, w := range normalize.AdjacentHourWindows(in.email.Date) {
		if w == window {
			return true
		}
	}
	return false
}

func absDelta(a, b time.Time) time.Duration {
	d := a.Sub(b)
	if d < 0 {
		return -d
	}
	return d
}
