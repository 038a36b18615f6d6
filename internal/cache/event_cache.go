package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cluster-registration/internal/model"

	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

// EventCache 活動資料的讀取快取。名額的權威來源仍是資料庫的條件式 UPDATE
type EventCache interface {
	// 獲取：快取不存在時回傳 ErrCacheMiss
	Get(ctx context.Context, eventID int) (*model.Event, error)
	// 寫入：以設定的 TTL 寫入
	Set(ctx context.Context, event *model.Event) error
	// 失效：報名成功或活動狀態變更後呼叫
	Invalidate(ctx context.Context, eventID int) error
}

type RedisEventCacheImpl struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisEventCache(client *redis.Client, ttl time.Duration) EventCache {
	return &RedisEventCacheImpl{
		client: client,
		ttl:    ttl,
	}
}

// 活動 key
func (c *RedisEventCacheImpl) getEventKey(eventID int) string {
	return fmt.Sprintf("event:%d", eventID)
}

func (c *RedisEventCacheImpl) Get(ctx context.Context, eventID int) (*model.Event, error) {
	raw, err := c.client.Get(ctx, c.getEventKey(eventID)).Bytes()
	if err == redis.Nil {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}

	var event model.Event
	if err := json.Unmarshal(raw, &event); err != nil {
		// 壞掉的資料直接當作 miss，下次 Set 會覆蓋
		return nil, ErrCacheMiss
	}
	return &event, nil
}

func (c *RedisEventCacheImpl) Set(ctx context.Context, event *model.Event) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return c.client.Set(ctx, c.getEventKey(event.ID), raw, c.ttl).Err()
}

func (c *RedisEventCacheImpl) Invalidate(ctx context.Context, eventID int) error {
	return c.client.Del(ctx, c.getEventKey(eventID)).Err()
}

// NoopEventCache 關閉快取時使用，永遠 miss
type NoopEventCache struct{}

func NewNoopEventCache() EventCache {
	return NoopEventCache{}
}

func (NoopEventCache) Get(ctx context.Context, eventID int) (*model.Event, error) {
	return nil, ErrCacheMiss
}

func (NoopEventCache) Set(ctx context.Context, event *model.Event) error {
	return nil
}

func (NoopEventCache) Invalidate(ctx context.Context, eventID int) error {
	return nil
}
