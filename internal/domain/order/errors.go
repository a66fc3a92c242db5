package order

import (
	"errors"
	"fmt"

	apperrors "github.com/xiebiao/storefront/pkg/errors"
)

// 订单领域错误定义
var (
	// ErrOrderNotFound 订单不存在
	ErrOrderNotFound = apperrors.New(apperrors.ErrCodeOrderNotFound, "订单不存在")

	// ErrInvalidStatus 未定义的订单状态
	ErrInvalidStatus = apperrors.New(apperrors.ErrCodeInvalidOrderStatus, "订单状态不合法")

	// ErrInvalidOrderLines 订单明细不合法
	ErrInvalidOrderLines = apperrors.New(apperrors.ErrCodeInvalidParams, "订单明细不能为空且数量必须大于0")

	// ErrInvalidShipping 收货信息不完整
	ErrInvalidShipping = apperrors.New(apperrors.ErrCodeInvalidParams, "收货人和收货地址不能为空")

	// ErrInvalidPaymentMethod 不支持的支付方式
	ErrInvalidPaymentMethod = apperrors.New(apperrors.ErrCodeInvalidParams, "不支持的支付方式")

	// ErrBackwardTransition 订单状态不能回退
	ErrBackwardTransition = apperrors.New(apperrors.ErrCodeBackwardTransition, "订单状态不能回退")

	// ErrTerminalStatus 订单已处于终态
	ErrTerminalStatus = apperrors.New(apperrors.ErrCodeTerminalStatus, "订单已完结,不能再变更状态")

	// ErrMissingShippingPhone 缺少收货电话
	ErrMissingShippingPhone = apperrors.New(apperrors.ErrCodeMissingShippingInfo, "请先填写收货电话")

	// ErrAlreadyCancelled 订单已取消
	ErrAlreadyCancelled = apperrors.New(apperrors.ErrCodeAlreadyCancelled, "订单已取消")

	// ErrOrderDeleted 订单已删除
	ErrOrderDeleted = apperrors.New(apperrors.ErrCodeOrderDeleted, "订单已删除")

	// ErrStatusConflict 状态已被并发请求修改
	ErrStatusConflict = apperrors.New(apperrors.ErrCodeStatusConflict, "订单状态已变化,请刷新后重试")

	// ErrUnauthorizedTransition 无权执行该状态变更
	ErrUnauthorizedTransition = apperrors.New(apperrors.ErrCodeUnauthorizedTransition, "无权变更订单状态")

	// ErrCheckoutTimeout 下单超时
	ErrCheckoutTimeout = apperrors.New(apperrors.ErrCodeCheckoutTimeout, "下单超时,请稍后重试")
)

// BackwardTransitionError 状态回退
type BackwardTransitionError struct {
	From Status
	To   Status
}

func (e *BackwardTransitionError) Error() string {
	return fmt.Sprintf("订单状态不能从%s回退到%s", e.From.Label(), e.To.Label())
}

func (e *BackwardTransitionError) Unwrap() error { return ErrBackwardTransition }

func (e *BackwardTransitionError) Details() map[string]interface{} {
	return map[string]interface{}{"from": e.From.String(), "to": e.To.String()}
}

// TerminalStatusError 终态订单不能再变更
type TerminalStatusError struct {
	From Status
	To   Status
}

func (e *TerminalStatusError) Error() string {
	return fmt.Sprintf("订单%s,不能变更为%s", e.From.Label(), e.To.Label())
}

func (e *TerminalStatusError) Unwrap() error { return ErrTerminalStatus }

func (e *TerminalStatusError) Details() map[string]interface{} {
	return map[string]interface{}{"from": e.From.String(), "to": e.To.String()}
}

// UnauthorizedTransitionError 调用者无权执行该状态变更
type UnauthorizedTransitionError struct {
	ActorID uint
	Role    string
	From    Status
	To      Status
}

func (e *UnauthorizedTransitionError) Error() string {
	return fmt.Sprintf("无权将订单从%s变更为%s", e.From.Label(), e.To.Label())
}

func (e *UnauthorizedTransitionError) Unwrap() error { return ErrUnauthorizedTransition }

func (e *UnauthorizedTransitionError) Details() map[string]interface{} {
	return map[string]interface{}{
		"actor_id": e.ActorID,
		"role":     e.Role,
		"from":     e.From.String(),
		"to":       e.To.String(),
	}
}

// CheckoutTimeoutError 下单等待事务或执行超时,可以原样重试
type CheckoutTimeoutError struct {
	Phase string // acquire:等待开启事务超时; execute:事务执行超时
	Err   error
}

func (e *CheckoutTimeoutError) Error() string {
	if e.Phase == "acquire" {
		return "系统繁忙,下单排队超时,请稍后重试"
	}
	return "下单处理超时,请稍后重试"
}

// Unwrap 同时暴露错误码和底层原因
func (e *CheckoutTimeoutError) Unwrap() []error {
	return []error{ErrCheckoutTimeout, e.Err}
}

func (e *CheckoutTimeoutError) Retryable() bool { return true }

func (e *CheckoutTimeoutError) Details() map[string]interface{} {
	return map[string]interface{}{"phase": e.Phase}
}

// IsTransitionError 是否为状态机拒绝的错误(而非基础设施错误)
func IsTransitionError(err error) bool {
	return errors.Is(err, ErrBackwardTransition) ||
		errors.Is(err, ErrTerminalStatus) ||
		errors.Is(err, ErrAlreadyCancelled) ||
		errors.Is(err, ErrMissingShippingPhone) ||
		errors.Is(err, ErrOrderDeleted) ||
		errors.Is(err, ErrInvalidStatus)
}
