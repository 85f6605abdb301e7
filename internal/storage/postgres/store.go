package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Uncodier/API-sub015/internal/domain"
	"github.com/Uncodier/API-sub015/internal/storage"
)

// Store 基于 GORM 的存储实现，支持 PostgreSQL 和 MySQL。
// 唯一性由数据库约束保证：TranslateError 开启后，违反唯一索引
// 统一转换为 gorm.ErrDuplicatedKey，再映射到存储层哨兵错误。
type Store struct {
	db *gorm.DB
}

// NewStore 创建 PostgreSQL 存储实例
func NewStore(dsn string) (*Store, error) {
	return NewStoreWithDialector(postgres.Open(dsn))
}

// NewMySQLStore 创建 MySQL 存储实例
func NewMySQLStore(dsn string) (*Store, error) {
	return NewStoreWithDialector(mysql.Open(dsn))
}

// NewStoreWithDialector 使用指定的GORM dialector创建存储实例
func NewStoreWithDialector(dialector gorm.Dialector) (*Store, error) {
	config := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent), // 静默模式
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(dialector, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// 配置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	store := &Store{db: db}

	// 自动迁移数据库表
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate 自动迁移数据库表结构
func (s *Store) migrate() error {
	return s.db.AutoMigrate(
		&domain.Message{},
		&domain.ProcessedObject{},
	)
}

// ========== Message Repository ==========

// SaveMessage 持久化一条邮件记录。唯一索引冲突（外部ID或信封指纹
// 已存在）返回 storage.ErrMessageExists，调用方据此将其视为重复。
func (s *Store) SaveMessage(ctx context.Context, message *domain.Message) error {
	err := s.db.WithContext(ctx).Create(message).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return storage.ErrMessageExists
	}
	return err
}

// GetMessage 根据 ID 获取邮件记录
func (s *Store) GetMessage(ctx context.Context, id string) (*domain.Message, error) {
	var message domain.Message
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&message).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrMessageNotFound
		}
		return nil, err
	}
	return &message, nil
}

// GetMessageByExternalID 根据站点和外部ID获取邮件记录
func (s *Store) GetMessageByExternalID(ctx context.Context, siteID, externalID string) (*domain.Message, error) {
	var message domain.Message
	err := s.db.WithContext(ctx).
		Where("site_id = ? AND external_id = ?", siteID, externalID).
		First(&message).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrMessageNotFound
		}
		return nil, err
	}
	return &message, nil
}

// RecentMessages 返回匹配过滤条件的最近邮件，按发送时间倒序。
func (s *Store) RecentMessages(ctx context.Context, q storage.RecentMessagesQuery) ([]domain.Message, error) {
	query := s.db.WithContext(ctx).Model(&domain.Message{})

	if q.SiteID != "" {
		query = query.Where("site_id = ?", q.SiteID)
	}
	if q.ConversationID != "" {
		query = query.Where("conversation_id = ?", q.ConversationID)
	}
	if q.LeadID != "" {
		query = query.Where("lead_id = ?", q.LeadID)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	var messages []domain.Message
	err := query.Order("sent_at DESC").Find(&messages).Error
	return messages, err
}

// ========== Processed Object Repository ==========

// InsertProcessedObject 插入处理台账记录。同一 (site_id, object_type,
// external_id) 的重复插入返回 storage.ErrProcessedObjectExists。
func (s *Store) InsertProcessedObject(ctx context.Context, record *domain.ProcessedObject) error {
	err := s.db.WithContext(ctx).Create(record).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return storage.ErrProcessedObjectExists
	}
	return err
}

// GetProcessedObject 根据业务键获取台账记录
func (s *Store) GetProcessedObject(ctx context.Context, siteID, objectType, externalID string) (*domain.ProcessedObject, error) {
	var record domain.ProcessedObject
	err := s.db.WithContext(ctx).
		Where("site_id = ? AND object_type = ? AND external_id = ?", siteID, objectType, externalID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrProcessedObjectNotFound
		}
		return nil, err
	}
	return &record, nil
}

// ListProcessedObjects 批量查询一组外部ID中已有台账记录的部分
func (s *Store) ListProcessedObjects(ctx context.Context, siteID, objectType string, externalIDs []string) ([]domain.ProcessedObject, error) {
	if len(externalIDs) == 0 {
		return nil, nil
	}

	var records []domain.ProcessedObject
	err := s.db.WithContext(ctx).
		Where("site_id = ? AND object_type = ? AND external_id IN ?", siteID, objectType, externalIDs).
		Find(&records).Error
	return records, err
}

// UpdateProcessedObjectStatus 更新台账记录状态
func (s *Store) UpdateProcessedObjectStatus(ctx context.Context, id string, status domain.ProcessedObjectStatus) error {
	result := s.db.WithContext(ctx).Model(&domain.ProcessedObject{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now().UTC(),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrProcessedObjectNotFound
	}
	return nil
}

// Close 关闭数据库连接
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health 检查数据库连接是否可用
func (s *Store) Health() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
