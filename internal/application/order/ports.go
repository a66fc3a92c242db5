package order

import (
	"context"

	"github.com/xiebiao/storefront/internal/domain/order"
)

// TxManager 事务管理(mysql.TxManager实现)
type TxManager interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// OrderCache 订单详情缓存(redis.OrderCache实现)
// Get未命中返回(nil, nil)
type OrderCache interface {
	Get(ctx context.Context, orderID uint) (*order.Order, error)
	Set(ctx context.Context, o *order.Order) error
	Invalidate(ctx context.Context, orderID uint) error
}
