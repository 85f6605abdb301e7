// Package fingerprint 从邮件记录派生稳定指纹。
// 信封指纹覆盖"谁在什么时候给谁发了什么主题"，语义指纹覆盖正文内容。
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/Uncodier/API-sub015/internal/domain"
	"github.com/Uncodier/API-sub015/internal/normalize"
)

// EnvelopeID 基于（收件人、发件人、主题、天级时间窗口）生成稳定的信封指纹，
// 格式为 env-<sha256hex>-<yyyymmdd>，前缀便于调试与存储过滤。
// 任一必要字段缺失时返回空串，调用方应跳过对应匹配层而不是报错。
func EnvelopeID(email *domain.EmailRecord) string {
	if email == nil || email.Date.IsZero() {
		return ""
	}

	recipient := normalize.Address(email.PrimaryRecipient())
	sender := normalize.Address(email.From)
	subject := normalize.Subject(email.Subject)

	// 提取结果不含 @ 说明没有可用地址
	if !strings.Contains(recipient, "@") || !strings.Contains(sender, "@") || subject == "" {
		return ""
	}

	stableElements := recipient + ":" + subject + ":" + normalize.DayWindow(email.Date)
	sum := sha256.Sum256([]byte(stableElements))

	return "env-" + hex.EncodeToString(sum[:]) + "-" + email.Date.UTC().Format("20060102")
}

// Generate 计算一封邮件的完整指纹。各字段独立降级：
// 缺失的输入只让对应指纹为空，不影响其余字段。
func Generate(email *domain.EmailRecord) domain.Fingerprint {
	fp := domain.Fingerprint{
		RecipientNormalized: normalize.Address(email.PrimaryRecipient()),
		SubjectNormalized:   normalize.Subject(email.Subject),
		EnvelopeHash:        EnvelopeID(email),
		SemanticHash:        SemanticHash(email),
	}
	if !email.Date.IsZero() {
		fp.TimeWindow = normalize.DayWindow(email.Date)
	}
	return fp
}
