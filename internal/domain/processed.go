package domain

import "time"

// ProcessedObjectStatus 表示外部对象的处理状态。
type ProcessedObjectStatus string

const (
	ProcessedStatusPending   ProcessedObjectStatus = "pending"   // 首次观察到，后续处理未完成
	ProcessedStatusProcessed ProcessedObjectStatus = "processed" // 下游副作用已完成
	ProcessedStatusFailed    ProcessedObjectStatus = "failed"    // 处理失败，可重试
)

// ObjectTypeEmail 是引擎目前追踪的唯一对象类型。
const ObjectTypeEmail = "email"

// ProcessedObject 是幂等处理台账中的一条记录：某个外部ID已被转换为持久化记录。
// 同一 (site_id, object_type, external_id) 至多存在一条记录，
// 唯一性由存储层约束保证，而不仅仅是进程内检查。记录只更新状态，从不删除。
type ProcessedObject struct {
	ID         string                `json:"id" gorm:"primaryKey;type:varchar(36)"`
	SiteID     string                `json:"siteId" gorm:"type:varchar(36);not null;uniqueIndex:ux_processed_site_type_external,priority:1"`
	ObjectType string                `json:"objectType" gorm:"type:varchar(32);not null;uniqueIndex:ux_processed_site_type_external,priority:2"`
	ExternalID string                `json:"externalId" gorm:"type:varchar(255);not null;uniqueIndex:ux_processed_site_type_external,priority:3"`
	Status     ProcessedObjectStatus `json:"status" gorm:"type:varchar(16);index;default:pending"`
	Metadata   map[string]string     `json:"metadata,omitempty" gorm:"serializer:json;type:text"`
	CreatedAt  time.Time             `json:"createdAt"`
	UpdatedAt  time.Time             `json:"updatedAt"`
}

// TableName 指定 GORM 表名。
func (ProcessedObject) TableName() string {
	return "processed_objects"
}
