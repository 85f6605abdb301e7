package domain

import (
	"strings"
	"time"
)

// EmailRecord 表示从任意来源（轮询、Webhook、代理发送）观察到的一封邮件。
// 一旦构造完成即视为不可变；引擎只读取它，不做任何修改。
type EmailRecord struct {
	MessageID string            `json:"messageId,omitempty"` // 邮件服务商提供的消息ID，可能缺失
	From      string            `json:"from"`
	To        []string          `json:"to"`
	ReplyTo   string            `json:"replyTo,omitempty"`
	Subject   string            `json:"subject"`
	Date      time.Time         `json:"date,omitempty"` // 零值表示缺失或无法解析
	Text      string            `json:"text,omitempty"`
	HTML      string            `json:"html,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"` // 原始头部，键为小写
}

// PrimaryRecipient 返回第一个收件人字段（可能是逗号分隔列表或显示名格式）。
func (e *EmailRecord) PrimaryRecipient() string {
	for _, to := range e.To {
		if strings.TrimSpace(to) != "" {
			return to
		}
	}
	return ""
}

// Header 按小写键读取原始头部，不存在时返回空串。
func (e *EmailRecord) Header(name string) string {
	if e.Headers == nil {
		return ""
	}
	return e.Headers[strings.ToLower(name)]
}

// Body 返回用于语义指纹的正文：优先纯文本，其次 HTML。
func (e *EmailRecord) Body() string {
	if e.Text != "" {
		return e.Text
	}
	return e.HTML
}
