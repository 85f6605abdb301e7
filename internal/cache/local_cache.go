package cache

import (
	"sync"
	"time"
)

// ExistenceCache 本地存在性缓存（L1 缓存）
//
// 放在 Redis 与数据库前面，吸收批量过滤时对同一批外部ID的
// 重复查询。只缓存"存在"这一事实，未命中一律回落下层，
// 因此过期或淘汰不影响正确性。
//
// 特点：
// - 使用 sync.Map 实现无锁读取
// - 支持 TTL 过期
// - 自动清理过期条目
type ExistenceCache struct {
	data sync.Map
	ttl  time.Duration
}

type cacheEntry struct {
	expiresAt time.Time
}

// NewExistenceCache 创建本地存在性缓存
//
// 参数:
//   - ttl: 条目过期时间
func NewExistenceCache(ttl time.Duration) *ExistenceCache {
	cache := &ExistenceCache{
		ttl: ttl,
	}

	// 启动定期清理
	go cache.cleanupLoop()

	return cache
}

// Contains 查询某个键是否已知存在
func (c *ExistenceCache) Contains(key string) bool {
	val, ok := c.data.Load(key)
	if !ok {
		return false
	}

	entry := val.(*cacheEntry)

	// 检查是否过期
	if time.Now().After(entry.expiresAt) {
		c.data.Delete(key)
		return false
	}

	return true
}

// Mark 记录某个键存在
func (c *ExistenceCache) Mark(key string) {
	c.data.Store(key, &cacheEntry{
		expiresAt: time.Now().Add(c.ttl),
	})
}

// Delete 删除某个键
func (c *ExistenceCache) Delete(key string) {
	c.data.Delete(key)
}

// Clear 清空所有缓存
func (c *ExistenceCache) Clear() {
	c.data = sync.Map{}
}

// cleanupLoop 定期清理过期条目
func (c *ExistenceCache) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		c.data.Range(func(key, value interface{}) bool {
			entry := value.(*cacheEntry)
			if now.After(entry.expiresAt) {
				c.data.Delete(key)
			}
			return true
		})
	}
}
