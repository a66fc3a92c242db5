package order

import (
	"context"
)

// Repository 订单仓储接口
// 所有方法都会使用ctx中的事务(如果有)
type Repository interface {
	// Create 创建订单(包含明细)
	Create(ctx context.Context, order *Order) error

	// FindByID 根据ID查找订单(包含明细和已软删除的订单,Deleted标记是否删除)
	FindByID(ctx context.Context, id uint) (*Order, error)

	// FindByOrderNo 根据订单号查找订单(不含已删除)
	FindByOrderNo(ctx context.Context, orderNo string) (*Order, error)

	// UpdateStatus 条件更新状态:只有当前状态仍为from时才更新为to
	// phone非空时同时更新收货电话;条件不满足返回ErrStatusConflict
	UpdateStatus(ctx context.Context, id uint, from, to Status, phone *string) error

	// ListByUserID 查询用户的订单(不含已删除,按创建时间倒序)
	ListByUserID(ctx context.Context, userID uint, page, pageSize int) ([]*Order, int64, error)

	// Delete 软删除
	Delete(ctx context.Context, id uint) error
}
