package domain

// Fingerprint 表示一封邮件的稳定指纹。
// 它是 EmailRecord 的纯函数结果，不单独持久化，
// 而是作为元数据字段随消息一起写入存储（写入后只读）。
type Fingerprint struct {
	EnvelopeHash        string `json:"envelopeHash,omitempty"` // env-<hex>-<yyyymmdd>，必要字段缺失时为空
	SemanticHash        string `json:"semanticHash,omitempty"` // sem-<hex>，正文无有效关键词时为空
	TimeWindow          string `json:"timeWindow,omitempty"`   // 天级时间窗口 YYYY-MM-DD
	RecipientNormalized string `json:"recipientNormalized"`
	SubjectNormalized   string `json:"subjectNormalized"`
}
