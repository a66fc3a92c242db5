// Package saga 实现补偿事务编排
//
// 核心思想：
// 1. 一组操作按顺序执行，每个操作有对应的补偿操作
// 2. 某一步失败时，按逆序执行已完成步骤的补偿
// 3. 全部成功后，调用方仍可在更外层失败时调用Compensate整体撤销
//
// 用于不具备事务原子性的存储（如Redis库存），
// 关系库存储直接依赖事务回滚，不需要这里的补偿
package saga

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Step 表示Saga中的一个步骤
// 补偿操作必须可以安全重试
type Step struct {
	Name       string                          // 步骤名称（用于日志和调试）
	Action     func(ctx context.Context) error // 正向操作
	Compensate func(ctx context.Context) error // 补偿操作，可为nil
}

// StepError 某个步骤执行失败
type StepError struct {
	Index int
	Name  string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("步骤[%d:%s]执行失败: %v", e.Index, e.Name, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Saga 表示一个补偿事务
type Saga struct {
	steps    []Step        // 所有步骤
	executed []Step        // 已执行的步骤（用于补偿）
	timeout  time.Duration // 整体超时时间，0表示不限制
}

// NewSaga 创建一个新的Saga
//
// 示例：
//
//	s := saga.NewSaga(5 * time.Second)
//	s.AddStep("扣减库存[1]", decrement, increment)
//	err := s.Execute(ctx)
func NewSaga(timeout time.Duration) *Saga {
	return &Saga{
		steps:   make([]Step, 0),
		timeout: timeout,
	}
}

// AddStep 添加步骤
func (s *Saga) AddStep(name string, action, compensate func(ctx context.Context) error) {
	s.steps = append(s.steps, Step{
		Name:       name,
		Action:     action,
		Compensate: compensate,
	})
}

// Execute 按顺序执行所有步骤
// 任一步骤失败或超时，立即逆序补偿已执行步骤，并返回*StepError（超时返回包装了ctx.Err()的错误）
// 补偿使用脱离取消信号的Context，避免补偿本身因超时而中断
func (s *Saga) Execute(ctx context.Context) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	for i, step := range s.steps {
		if err := ctx.Err(); err != nil {
			_ = s.Compensate(context.WithoutCancel(ctx))
			return fmt.Errorf("saga超时: %w", err)
		}

		if step.Action != nil {
			if err := step.Action(ctx); err != nil {
				_ = s.Compensate(context.WithoutCancel(ctx))
				return &StepError{Index: i, Name: step.Name, Err: err}
			}
		}

		s.executed = append(s.executed, step)
	}

	return nil
}

// Compensate 逆序执行已完成步骤的补偿操作
// 单个补偿失败不会中断其余补偿，所有失败合并后返回
// 补偿完成后清空已执行列表，重复调用是安全的
func (s *Saga) Compensate(ctx context.Context) error {
	var errs []error
	for i := len(s.executed) - 1; i >= 0; i-- {
		step := s.executed[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx); err != nil {
			errs = append(errs, fmt.Errorf("补偿失败[步骤:%s]: %w", step.Name, err))
		}
	}

	s.executed = nil
	return errors.Join(errs...)
}

// Executed 返回已执行（尚未补偿）的步骤数
func (s *Saga) Executed() int {
	return len(s.executed)
}
