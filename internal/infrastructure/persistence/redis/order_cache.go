package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xiebiao/storefront/internal/domain/order"
)

// OrderCache 订单详情缓存(Cache-Aside)
//   - 读：先查缓存，未命中查库后回填
//   - 写：状态变更、删除提交后删除缓存，下次读取时重新加载
type OrderCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewOrderCache 创建订单缓存，ttl<=0时不写缓存
func NewOrderCache(client *redis.Client, ttl time.Duration) *OrderCache {
	return &OrderCache{client: client, ttl: ttl}
}

func orderCacheKey(orderID uint) string {
	return fmt.Sprintf("order:detail:%d", orderID)
}

// Get 未命中返回(nil, nil)
func (c *OrderCache) Get(ctx context.Context, orderID uint) (*order.Order, error) {
	val, err := c.client.Get(ctx, orderCacheKey(orderID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("获取订单缓存失败: %w", err)
	}

	var o order.Order
	if err := json.Unmarshal(val, &o); err != nil {
		// 缓存内容损坏（如结构升级），当作未命中
		_ = c.client.Del(ctx, orderCacheKey(orderID)).Err()
		return nil, nil
	}
	return &o, nil
}

// Set 回填缓存
func (c *OrderCache) Set(ctx context.Context, o *order.Order) error {
	if c.ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("序列化订单失败: %w", err)
	}
	if err := c.client.Set(ctx, orderCacheKey(o.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("写入订单缓存失败: %w", err)
	}
	return nil
}

// Invalidate 删除缓存
func (c *OrderCache) Invalidate(ctx context.Context, orderID uint) error {
	if err := c.client.Del(ctx, orderCacheKey(orderID)).Err(); err != nil {
		return fmt.Errorf("删除订单缓存失败: %w", err)
	}
	return nil
}
