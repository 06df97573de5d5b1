package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// SummaryCache 在 Redis 中缓存文档级摘要。
// 缓存键由文档标识、查询摘要、输出格式与深度共同决定，
// 因此同一文档的不同问法各自缓存。
type SummaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSummaryCache 创建一个新的 SummaryCache 实例。
func NewSummaryCache(client *redis.Client, ttl time.Duration) *SummaryCache {
	return &SummaryCache{client: client, ttl: ttl}
}

// Key 为一次摘要请求构造缓存键。
func (c *SummaryCache) Key(identity, query, format, depth string) string {
	h := sha256.Sum256([]byte(query))
	return fmt.Sprintf("summary:%s:%s:%s:%s", identity, hex.EncodeToString(h[:8]), format, depth)
}

// Get 查询缓存。第二个返回值指示是否命中。
func (c *SummaryCache) Get(ctx context.Context, key string) (string, bool) {
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		// redis.Nil 表示未命中；其他错误也按未命中降级处理。
		return "", false
	}
	return val, true
}

// Set 写入缓存，失败时静默降级（缓存不可用不影响请求本身）。
func (c *SummaryCache) Set(ctx context.Context, key, text string) {
	_ = c.client.Set(ctx, key, text, c.ttl).Err()
}
