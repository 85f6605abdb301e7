package domain

import "time"

// Message 表示一封已持久化的邮件消息。
// 指纹元数据字段（StableHash、SemanticHash、RecipientNormalized、
// SubjectNormalized、TimeWindow）在写入时一次性填充，之后只读。
type Message struct {
	ID             string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	SiteID         string `json:"siteId" gorm:"type:varchar(36);index;not null"`
	ConversationID string `json:"conversationId,omitempty" gorm:"type:varchar(36);index"`
	LeadID         string `json:"leadId,omitempty" gorm:"type:varchar(36);index"`
	// ExternalID 是邮件服务商的消息ID，同站点内唯一（为空时不参与约束）
	ExternalID  string    `json:"externalId,omitempty" gorm:"type:varchar(255);index:idx_messages_external"`
	FromAddress string    `json:"from" gorm:"type:varchar(255)"`
	Recipient   string    `json:"recipient" gorm:"type:varchar(255)"`
	Subject     string    `json:"subject" gorm:"type:varchar(500)"`
	SentAt      time.Time `json:"sentAt"`
	// 指纹元数据（写入后只读）
	StableHash          string `json:"stableHash,omitempty" gorm:"type:varchar(128);index:idx_messages_stable_hash"`
	SemanticHash        string `json:"semanticHash,omitempty" gorm:"type:varchar(128);index:idx_messages_semantic_hash"`
	RecipientNormalized string `json:"recipientNormalized" gorm:"type:varchar(255);index"`
	SubjectNormalized   string `json:"subjectNormalized" gorm:"type:varchar(255)"`
	TimeWindow          string `json:"timeWindow,omitempty" gorm:"type:varchar(16)"`
	CreatedAt           time.Time `json:"createdAt"`
}

// TableName 指定 GORM 表名。
func (Message) TableName() string {
	return "email_messages"
}
