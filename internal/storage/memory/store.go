// Package memory 提供内存存储实现，用于开发环境与测试。
// 它在进程内强制执行与生产数据库相同的唯一约束，
// 使依赖约束语义的代码可以在测试里被如实替换。
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Uncodier/API-sub015/internal/domain"
	"github.com/Uncodier/API-sub015/internal/storage"
)

// Store 内存存储实现
type Store struct {
	mu sync.RWMutex

	messages map[string]domain.Message // 按消息ID
	// 唯一索引：与生产库的约束一一对应
	messagesByExternal map[string]string // siteID+"\x00"+externalID -> messageID
	messagesByStable   map[string]string // siteID+"\x00"+stableHash -> messageID

	processed      map[string]domain.ProcessedObject // 按记录ID
	processedByKey map[string]string                 // siteID+"\x00"+objectType+"\x00"+externalID -> 记录ID
}

// NewStore 创建内存存储。
func NewStore() *Store {
	return &Store{
		messages:           make(map[string]domain.Message),
		messagesByExternal: make(map[string]string),
		messagesByStable:   make(map[string]string),
		processed:          make(map[string]domain.ProcessedObject),
		processedByKey:     make(map[string]string),
	}
}

func key(parts ...string) string {
	return strings.Join(parts, "\x00")
}

// ========== MessageRepository ==========

// SaveMessage 保存消息，命中唯一索引时返回 ErrMessageExists。
func (s *Store) SaveMessage(_ context.Context, message *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if message.ExternalID != "" {
		if _, ok := s.messagesByExternal[key(message.SiteID, message.ExternalID)]; ok {
			return storage.ErrMessageExists
		}
	}
	if message.StableHash != "" {
		if _, ok := s.messagesByStable[key(message.SiteID, message.StableHash)]; ok {
			return storage.ErrMessageExists
		}
	}

	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	s.messages[message.ID] = *message
	if message.ExternalID != "" {
		s.messagesByExternal[key(message.SiteID, message.ExternalID)] = message.ID
	}
	if message.StableHash != "" {
		s.messagesByStable[key(message.SiteID, message.StableHash)] = message.ID
	}
	return nil
}

// GetMessage 按ID获取消息。
func (s *Store) GetMessage(_ context.Context, id string) (*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.messages[id]
	if !ok {
		return nil, storage.ErrMessageNotFound
	}
	return &msg, nil
}

// GetMessageByExternalID 按服务商消息ID获取消息。
func (s *Store) GetMessageByExternalID(_ context.Context, siteID, externalID string) (*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.messagesByExternal[key(siteID, externalID)]
	if !ok {
		return nil, storage.ErrMessageNotFound
	}
	msg := s.messages[id]
	return &msg, nil
}

// RecentMessages 返回匹配范围内按发送时间倒序排列的近期消息。
func (s *Store) RecentMessages(_ context.Context, q storage.RecentMessagesQuery) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Message, 0)
	for _, msg := range s.messages {
		if msg.SiteID != q.SiteID {
			continue
		}
		if q.ConversationID != "" && msg.ConversationID != q.ConversationID {
			continue
		}
		if q.LeadID != "" && msg.LeadID != q.LeadID {
			continue
		}
		out = append(out, msg)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].SentAt.After(out[j].SentAt)
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// ========== ProcessedObjectRepository ==========

// InsertProcessedObject 插入台账记录，键冲突时返回 ErrProcessedObjectExists。
func (s *Store) InsertProcessedObject(_ context.Context, record *domain.ProcessedObject) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(record.SiteID, record.ObjectType, record.ExternalID)
	if _, ok := s.processedByKey[k]; ok {
		return storage.ErrProcessedObjectExists
	}

	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	s.processed[record.ID] = *record
	s.processedByKey[k] = record.ID
	return nil
}

// GetProcessedObject 按复合键获取台账记录。
func (s *Store) GetProcessedObject(_ context.Context, siteID, objectType, externalID string) (*domain.ProcessedObject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.processedByKey[key(siteID, objectType, externalID)]
	if !ok {
		return nil, storage.ErrProcessedObjectNotFound
	}
	rec := s.processed[id]
	return &rec, nil
}

// ListProcessedObjects 批量查询一组外部ID对应的台账记录。
func (s *Store) ListProcessedObjects(_ context.Context, siteID, objectType string, externalIDs []string) ([]domain.ProcessedObject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ProcessedObject, 0, len(externalIDs))
	for _, ext := range externalIDs {
		if id, ok := s.processedByKey[key(siteID, objectType, ext)]; ok {
			out = append(out, s.processed[id])
		}
	}
	return out, nil
}

// UpdateProcessedObjectStatus 更新台账记录状态。
func (s *Store) UpdateProcessedObjectStatus(_ context.Context, id string, status domain.ProcessedObjectStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.processed[id]
	if !ok {
		return storage.ErrProcessedObjectNotFound
	}
	rec.Status = status
	rec.UpdatedAt = time.Now().UTC()
	s.processed[id] = rec
	return nil
}

// ========== 工具方法 ==========

// Close 关闭存储（内存实现为空操作）。
func (s *Store) Close() error { return nil }

// Health 检查存储健康状态。
func (s *Store) Health() error { return nil }
