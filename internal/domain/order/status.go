package order

import (
	"strings"
)

// Status 订单状态
// 状态值按流转顺序递增,CANCELLED不在顺序链上
//
//	PENDING → CONFIRMED → PROCESSING → SHIPPED → DELIVERED
//	    └──────────┴───────────┴──────────┴──→ CANCELLED
//
// DELIVERED和CANCELLED是终态
type Status int

const (
	StatusPending    Status = iota + 1 // 待确认
	StatusConfirmed                    // 已确认
	StatusProcessing                   // 处理中
	StatusShipped                      // 已发货
	StatusDelivered                    // 已送达
	StatusCancelled                    // 已取消
)

// sequence 正向流转顺序
var sequence = []Status{StatusPending, StatusConfirmed, StatusProcessing, StatusShipped, StatusDelivered}

var statusNames = map[Status]string{
	StatusPending:    "PENDING",
	StatusConfirmed:  "CONFIRMED",
	StatusProcessing: "PROCESSING",
	StatusShipped:    "SHIPPED",
	StatusDelivered:  "DELIVERED",
	StatusCancelled:  "CANCELLED",
}

var statusLabels = map[Status]string{
	StatusPending:    "待确认",
	StatusConfirmed:  "已确认",
	StatusProcessing: "处理中",
	StatusShipped:    "已发货",
	StatusDelivered:  "已送达",
	StatusCancelled:  "已取消",
}

// String 状态码名称(接口、日志、消息中使用)
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// Label 中文名称
func (s Status) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return "未知状态"
}

// Valid 是否为已定义的状态
func (s Status) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// IsTerminal 是否为终态
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// ParseStatus 解析状态码名称(不区分大小写)
func ParseStatus(name string) (Status, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for s, n := range statusNames {
		if n == name {
			return s, nil
		}
	}
	return 0, ErrInvalidStatus
}

// index 在正向顺序中的位置,CANCELLED返回-1
func (s Status) index() int {
	for i, st := range sequence {
		if st == s {
			return i
		}
	}
	return -1
}

// CheckTransition 校验状态流转是否合法(不含权限判断)
//   - 终态不能再变更:CANCELLED→CANCELLED返回ErrAlreadyCancelled,
//     DELIVERED回退到更早的状态返回*BackwardTransitionError,其它返回*TerminalStatusError
//   - 任何非终态都可以取消
//   - 只能沿顺序前进(可跳过中间状态),后退返回*BackwardTransitionError
//   - 目标与当前相同视为合法(用于补录收货电话)
func CheckTransition(from, to Status) error {
	if !from.Valid() || !to.Valid() {
		return ErrInvalidStatus
	}

	if from == StatusCancelled && to == StatusCancelled {
		return ErrAlreadyCancelled
	}
	if from.IsTerminal() {
		// DELIVERED往回走仍按回退处理
		if to.index() >= 0 && to.index() < from.index() {
			return &BackwardTransitionError{From: from, To: to}
		}
		return &TerminalStatusError{From: from, To: to}
	}
	if to == StatusCancelled {
		return nil
	}
	if to.index() < from.index() {
		return &BackwardTransitionError{From: from, To: to}
	}
	return nil
}

// AllowedFrom 可以流转到s的状态
// 调用方据此实现权限策略(如顾客只能在PENDING/CONFIRMED时取消)
func (s Status) AllowedFrom() []Status {
	var out []Status
	for _, from := range append(append([]Status{}, sequence...), StatusCancelled) {
		if CheckTransition(from, s) == nil {
			out = append(out, from)
		}
	}
	return out
}

// NextStatuses 从s出发可以到达的状态(不含s本身)
func (s Status) NextStatuses() []Status {
	var out []Status
	for _, to := range append(append([]Status{}, sequence...), StatusCancelled) {
		if to != s && CheckTransition(s, to) == nil {
			out = append(out, to)
		}
	}
	return out
}
