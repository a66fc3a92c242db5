package order

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// 事件类型(同时作为RabbitMQ的routing key)
const (
	EventOrderPlaced    = "order.placed"
	EventStatusChanged  = "order.status_changed"
	EventOrderCancelled = "order.cancelled"
)

// Event 订单事件,在事务提交后发布
type Event struct {
	ID         string      `json:"event_id"`
	Type       string      `json:"event_type"`
	OrderID    uint        `json:"order_id"`
	OrderNo    string      `json:"order_no"`
	UserID     uint        `json:"user_id"`
	From       string      `json:"from,omitempty"`
	To         string      `json:"to"`
	Total      int64       `json:"total"`
	Lines      []EventLine `json:"lines,omitempty"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// EventLine 事件中的明细,取消事件用来说明归还了哪些库存
type EventLine struct {
	BookID   uint `json:"book_id"`
	Quantity int  `json:"quantity"`
}

// NewEvent 根据订单当前状态构造事件,from为变更前的状态(下单事件传0)
func NewEvent(eventType string, o *Order, from Status) Event {
	e := Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OrderID:    o.ID,
		OrderNo:    o.OrderNo,
		UserID:     o.UserID,
		To:         o.Status.String(),
		Total:      o.Total,
		OccurredAt: time.Now(),
	}
	if from.Valid() {
		e.From = from.String()
	}
	if eventType != EventStatusChanged {
		e.Lines = make([]EventLine, len(o.Lines))
		for i, l := range o.Lines {
			e.Lines[i] = EventLine{BookID: l.BookID, Quantity: l.Quantity}
		}
	}
	return e
}

// EventPublisher 订单事件发布者
// 发布失败只记录日志,不影响已经提交的业务
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}
