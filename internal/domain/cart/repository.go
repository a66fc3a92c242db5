package cart

import (
	"context"
)

// Repository 购物车仓储接口
// 所有方法都支持从ctx中取事务(下单时清空购物车与创建订单在同一事务)
type Repository interface {
	// GetCartWithLines 查询用户的购物车及明细(按加入顺序),不存在则创建空购物车
	GetCartWithLines(ctx context.Context, userID uint) (*Cart, error)

	// AddLine 加入购物车,已有明细时数量累加
	AddLine(ctx context.Context, cartID, bookID uint, quantity int) error

	// SetQuantity 修改数量,明细不存在返回ErrLineNotFound
	SetQuantity(ctx context.Context, cartID, bookID uint, quantity int) error

	// RemoveLine 删除明细,明细不存在返回ErrLineNotFound
	RemoveLine(ctx context.Context, cartID, bookID uint) error

	// ClearCartLines 清空明细(保留购物车记录)
	ClearCartLines(ctx context.Context, cartID uint) error
}
