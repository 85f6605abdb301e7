package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ProcessedCache 是处理台账的存在性缓存。批量过滤时绝大多数外部ID
// 都已处理过，先查缓存可以避免一次数据库往返。缓存只是加速层，
// 未命中或 Redis 故障都回落到数据库，不影响正确性。
type ProcessedCache struct {
	client *Client
	ttl    time.Duration
}

// NewProcessedCache 创建处理台账缓存。ttl 为零时使用默认的 24 小时。
func NewProcessedCache(client *Client, ttl time.Duration) *ProcessedCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ProcessedCache{client: client, ttl: ttl}
}

func processedKey(siteID, objectType, externalID string) string {
	return fmt.Sprintf("processed:%s:%s:%s", siteID, objectType, externalID)
}

// MarkProcessed 记录某个外部ID已处理
func (c *ProcessedCache) MarkProcessed(ctx context.Context, siteID, objectType, externalID string) error {
	return c.client.rdb.Set(ctx, processedKey(siteID, objectType, externalID), "1", c.ttl).Err()
}

// IsProcessed 检查缓存中是否记录过该外部ID。返回 false 只表示
// 缓存未命中，调用方仍需查数据库确认。
func (c *ProcessedCache) IsProcessed(ctx context.Context, siteID, objectType, externalID string) (bool, error) {
	_, err := c.client.rdb.Get(ctx, processedKey(siteID, objectType, externalID)).Result()
	if err != nil {
		if err == goredis.Nil {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// FilterProcessed 批量检查一组外部ID，返回缓存命中（已处理）的集合
func (c *ProcessedCache) FilterProcessed(ctx context.Context, siteID, objectType string, externalIDs []string) (map[string]bool, error) {
	if len(externalIDs) == 0 {
		return map[string]bool{}, nil
	}

	keys := make([]string, len(externalIDs))
	for i, id := range externalIDs {
		keys[i] = processedKey(siteID, objectType, id)
	}

	values, err := c.client.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	hits := make(map[string]bool, len(externalIDs))
	for i, v := range values {
		if v != nil {
			hits[externalIDs[i]] = true
		}
	}
	return hits, nil
}

// Invalidate 删除某个外部ID的缓存记录
func (c *ProcessedCache) Invalidate(ctx context.Context, siteID, objectType, externalID string) error {
	return c.client.rdb.Del(ctx, processedKey(siteID, objectType, externalID)).Err()
}
