// Package circuitbreaker 熔断器
//
// 状态流转：
//
//	CLOSED --连续失败达到阈值--> OPEN --OpenTimeout后--> HALF_OPEN
//	HALF_OPEN --探测成功--> CLOSED
//	HALF_OPEN --探测失败--> OPEN
//
// 本项目用于保护订单事件发布：RabbitMQ不可用时快速失败，
// 不让下单/改状态请求在发布消息上堆积等待
package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// State 熔断器状态
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// ErrOpenState 熔断器打开，或半开状态下已有探测请求在执行
var ErrOpenState = errors.New("circuit breaker is open")

// Config 熔断器配置，零值使用默认值
type Config struct {
	FailureThreshold int           // 连续失败多少次后打开，默认5
	OpenTimeout      time.Duration // OPEN持续多久后放行探测请求，默认30s

	// OnStateChange 在持锁状态下调用，回调里不要访问熔断器
	OnStateChange func(name string, from, to State)
}

// CircuitBreaker 按连续失败次数熔断
type CircuitBreaker struct {
	name string
	cfg  Config

	mu       sync.Mutex
	state    State
	failures int       // CLOSED下的连续失败次数
	openedAt time.Time // 进入OPEN的时间
	probing  bool      // HALF_OPEN下是否有探测请求在执行
	epoch    uint64    // 每次状态切换递增，丢弃跨状态返回的结果
}

// NewCircuitBreaker 创建熔断器
func NewCircuitBreaker(name string, cfg Config) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	return &CircuitBreaker{name: name, cfg: cfg}
}

// Name 熔断器名称(指标标签)
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// Execute 通过熔断器执行req，熔断时不调用req直接返回ErrOpenState
func (cb *CircuitBreaker) Execute(req func() error) error {
	epoch, err := cb.admit()
	if err != nil {
		return err
	}

	err = req()
	cb.record(epoch, err == nil)
	return err
}

func (cb *CircuitBreaker) admit() (uint64, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.current(time.Now()) {
	case StateOpen:
		return 0, ErrOpenState
	case StateHalfOpen:
		if cb.probing {
			return 0, ErrOpenState
		}
		cb.probing = true
	}
	return cb.epoch, nil
}

func (cb *CircuitBreaker) record(epoch uint64, success bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := time.Now()
	state := cb.current(now)
	if epoch != cb.epoch {
		return
	}

	switch {
	case state == StateHalfOpen && success:
		cb.transition(StateClosed, now)
	case state == StateHalfOpen:
		cb.transition(StateOpen, now)
	case success:
		cb.failures = 0
	default:
		cb.failures++
		if cb.failures >= cb.cfg.FailureThreshold {
			cb.transition(StateOpen, now)
		}
	}
}

// current OPEN超时后切到HALF_OPEN，返回切换后的状态
func (cb *CircuitBreaker) current(now time.Time) State {
	if cb.state == StateOpen && now.Sub(cb.openedAt) >= cb.cfg.OpenTimeout {
		cb.transition(StateHalfOpen, now)
	}
	return cb.state
}

func (cb *CircuitBreaker) transition(to State, now time.Time) {
	from := cb.state
	cb.state = to
	cb.epoch++
	cb.failures = 0
	cb.probing = false
	if to == StateOpen {
		cb.openedAt = now
	}

	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.name, from, to)
	}
}

// State 当前状态
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.current(time.Now())
}

// ConsecutiveFailures CLOSED状态下的连续失败次数
func (cb *CircuitBreaker) ConsecutiveFailures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}
