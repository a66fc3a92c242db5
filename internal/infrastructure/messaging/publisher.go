// Package messaging 订单事件发布
package messaging

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/xiebiao/storefront/internal/domain/order"
	"github.com/xiebiao/storefront/pkg/circuitbreaker"
	"github.com/xiebiao/storefront/pkg/metrics"
)

// Sender 底层消息发送(mq.Publisher实现)
type Sender interface {
	Exchange() string
	Publish(ctx context.Context, routingKey, messageID string, message interface{}) error
	Close() error
}

// Publisher 经熔断器保护的订单事件发布者
// Broker不可用时熔断器打开，发布直接失败，请求不会卡在发布上
type Publisher struct {
	sender  Sender
	breaker *circuitbreaker.CircuitBreaker
	timeout time.Duration
	log     logrus.FieldLogger
}

var _ order.EventPublisher = (*Publisher)(nil)

// NewPublisher 创建发布者，timeout为单条消息的发布超时
func NewPublisher(sender Sender, timeout time.Duration, log logrus.FieldLogger) *Publisher {
	name := "mq:" + sender.Exchange()
	breaker := circuitbreaker.NewCircuitBreaker(name, circuitbreaker.Config{
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
		OnStateChange: func(name string, from, to circuitbreaker.State) {
			metrics.SetGaugeVec(metrics.CircuitBreakerState, map[string]string{"name": name}, float64(to))
			log.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("熔断器状态变化")
		},
	})

	return &Publisher{
		sender:  sender,
		breaker: breaker,
		timeout: timeout,
		log:     log,
	}
}

// Publish 发布订单事件
func (p *Publisher) Publish(ctx context.Context, event order.Event) error {
	err := p.breaker.Execute(func() error {
		pubCtx := ctx
		if p.timeout > 0 {
			var cancel context.CancelFunc
			pubCtx, cancel = context.WithTimeout(ctx, p.timeout)
			defer cancel()
		}
		return p.sender.Publish(pubCtx, event.Type, event.ID, event)
	})

	breakerResult := "success"
	publishResult := "success"
	switch {
	case errors.Is(err, circuitbreaker.ErrOpenState):
		breakerResult, publishResult = "rejected", "failure"
	case err != nil:
		breakerResult, publishResult = "failure", "failure"
	}
	metrics.IncCounterVec(metrics.CircuitBreakerRequests, map[string]string{
		"name":   p.breaker.Name(),
		"result": breakerResult,
	})
	metrics.IncCounterVec(metrics.MessagesPublishedTotal, map[string]string{
		"exchange":    p.sender.Exchange(),
		"routing_key": event.Type,
		"result":      publishResult,
	})
	return err
}

// State 熔断器当前状态
func (p *Publisher) State() circuitbreaker.State {
	return p.breaker.State()
}

// Close 关闭底层连接
func (p *Publisher) Close() error {
	return p.sender.Close()
}

// NoopPublisher 未启用RabbitMQ时使用，丢弃所有事件
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, order.Event) error { return nil }
