package storage

import (
	"context"
	"errors"

	"github.com/Uncodier/API-sub015/internal/domain"
)

var (
	// ErrMessageNotFound 消息不存在
	ErrMessageNotFound = errors.New("message not found")
	// ErrMessageExists 唯一约束冲突：同一逻辑邮件已被其他写入方入库。
	// 调用方必须把它等同于一次阳性重复判定，而不是用户可见的失败。
	ErrMessageExists = errors.New("message already stored")
	// ErrProcessedObjectNotFound 处理台账记录不存在
	ErrProcessedObjectNotFound = errors.New("processed object not found")
	// ErrProcessedObjectExists 唯一约束冲突：另一写入方已记录该外部ID。
	// 同样等同于幂等的重复信号。
	ErrProcessedObjectExists = errors.New("processed object already recorded")
)

// RecentMessagesQuery 限定重复比对的近期消息窗口。
// ConversationID/LeadID 为空时只按站点过滤。
type RecentMessagesQuery struct {
	SiteID         string
	ConversationID string
	LeadID         string
	Limit          int
}

// MessageRepository 定义消息数据存取操作。
// SaveMessage 必须把存储层的唯一约束冲突翻译为 ErrMessageExists。
type MessageRepository interface {
	SaveMessage(ctx context.Context, message *domain.Message) error
	GetMessage(ctx context.Context, id string) (*domain.Message, error)
	GetMessageByExternalID(ctx context.Context, siteID, externalID string) (*domain.Message, error)
	RecentMessages(ctx context.Context, q RecentMessagesQuery) ([]domain.Message, error)
}

// ProcessedObjectRepository 定义幂等处理台账的存取操作。
// InsertProcessedObject 在 (site_id, object_type, external_id) 冲突时
// 必须返回 ErrProcessedObjectExists。记录从不删除，只更新状态。
type ProcessedObjectRepository interface {
	InsertProcessedObject(ctx context.Context, record *domain.ProcessedObject) error
	GetProcessedObject(ctx context.Context, siteID, objectType, externalID string) (*domain.ProcessedObject, error)
	ListProcessedObjects(ctx context.Context, siteID, objectType string, externalIDs []string) ([]domain.ProcessedObject, error)
	UpdateProcessedObjectStatus(ctx context.Context, id string, status domain.ProcessedObjectStatus) error
}

// Store 定义完整的存储接口。
type Store interface {
	MessageRepository
	ProcessedObjectRepository

	Close() error
	Health() error
}
