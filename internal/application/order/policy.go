package order

import (
	"github.com/xiebiao/storefront/internal/domain/order"
)

// 角色
const (
	RoleCustomer = "customer"
	RoleStaff    = "staff"
)

// Actor 已认证的调用者(由HTTP/gRPC层从令牌或元数据中解析)
type Actor struct {
	ID   uint
	Role string
}

// IsStaff 是否为店员
func (a Actor) IsStaff() bool {
	return a.Role == RoleStaff
}

// customerCancellable 顾客可以自行取消的状态
var customerCancellable = map[order.Status]bool{
	order.StatusPending:   true,
	order.StatusConfirmed: true,
}

// canSee 订单对调用者是否可见
// 顾客只能看到自己未删除的订单
func canSee(actor Actor, o *order.Order) bool {
	if actor.IsStaff() {
		return true
	}
	return actor.Role == RoleCustomer && o.IsOwnedBy(actor.ID) && !o.Deleted
}

// checkOwnership 状态变更前的归属检查
func checkOwnership(actor Actor, o *order.Order, to order.Status) error {
	if actor.IsStaff() {
		return nil
	}
	if actor.Role != RoleCustomer || !o.IsOwnedBy(actor.ID) {
		return unauthorized(actor, o.Status, to)
	}
	return nil
}

// checkRole 状态机放行之后的角色权限检查
//   - 店员: 状态机允许的任何变更
//   - 顾客: 只能取消,且订单还处于待确认/已确认
//   - 其他角色: 一律拒绝
func checkRole(actor Actor, from, to order.Status) error {
	if actor.IsStaff() {
		return nil
	}
	if actor.Role == RoleCustomer && to == order.StatusCancelled && customerCancellable[from] {
		return nil
	}
	return unauthorized(actor, from, to)
}

func unauthorized(actor Actor, from, to order.Status) error {
	return &order.UnauthorizedTransitionError{
		ActorID: actor.ID,
		Role:    actor.Role,
		From:    from,
		To:      to,
	}
}
