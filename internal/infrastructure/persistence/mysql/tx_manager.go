package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

var (
	// ErrTxWaitTimeout 在MaxWait内没有拿到数据库连接/开启事务
	ErrTxWaitTimeout = errors.New("等待开启事务超时")

	// ErrTxTimeout 事务执行超过Timeout，已回滚
	ErrTxTimeout = errors.New("事务执行超时")
)

type txKey struct{}

// TxOptions 事务的时间边界，0表示不限制
type TxOptions struct {
	MaxWait time.Duration // 等待开启事务的最长时间
	Timeout time.Duration // 从开启到提交的最长时间
}

// TxManager 事务管理器
// 通过context传递事务，Repository用dbFromContext取出，
// 同一个ctx内嵌套调用Transaction会加入外层事务
type TxManager struct {
	db       *gorm.DB
	defaults TxOptions
}

// NewTxManager 创建事务管理器
func NewTxManager(db *gorm.DB, defaults TxOptions) *TxManager {
	return &TxManager{db: db, defaults: defaults}
}

// Transaction 使用默认时间边界执行事务
func (m *TxManager) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.TransactionWithOptions(ctx, m.defaults, fn)
}

// TransactionWithOptions 执行事务
// fn返回error或panic时回滚；超过MaxWait返回ErrTxWaitTimeout，超过Timeout返回ErrTxTimeout
func (m *TxManager) TransactionWithOptions(ctx context.Context, opts TxOptions, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}

	runCtx, cancel := ctx, context.CancelFunc(func() {})
	if opts.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
	}
	defer cancel()

	tx, err := m.begin(runCtx, opts.MaxWait)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(context.WithValue(runCtx, txKey{}, tx)); err != nil {
		tx.Rollback()
		if expired(ctx, runCtx) && errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %w", ErrTxTimeout, err)
		}
		return err
	}

	// fn吞掉了超时错误也不能提交
	if expired(ctx, runCtx) {
		tx.Rollback()
		return fmt.Errorf("%w: %w", ErrTxTimeout, runCtx.Err())
	}

	if err := tx.Commit().Error; err != nil {
		if expired(ctx, runCtx) {
			return fmt.Errorf("%w: %w", ErrTxTimeout, err)
		}
		return fmt.Errorf("提交事务失败: %w", err)
	}
	return nil
}

// begin 在maxWait内开启事务
// 超时后后台goroutine等Begin返回再回滚，不泄漏连接
func (m *TxManager) begin(ctx context.Context, maxWait time.Duration) (*gorm.DB, error) {
	if maxWait <= 0 {
		tx := m.db.WithContext(ctx).Begin()
		if tx.Error != nil {
			return nil, m.beginError(ctx, tx.Error)
		}
		return tx, nil
	}

	ch := make(chan *gorm.DB, 1)
	go func() {
		ch <- m.db.WithContext(ctx).Begin()
	}()

	timer := time.NewTimer(maxWait)
	defer timer.Stop()

	select {
	case tx := <-ch:
		if tx.Error != nil {
			return nil, m.beginError(ctx, tx.Error)
		}
		return tx, nil
	case <-timer.C:
		go drain(ch)
		return nil, ErrTxWaitTimeout
	case <-ctx.Done():
		go drain(ch)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrTxWaitTimeout
		}
		return nil, ctx.Err()
	}
}

func (m *TxManager) beginError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTxWaitTimeout
	}
	return fmt.Errorf("开启事务失败: %w", err)
}

func drain(ch <-chan *gorm.DB) {
	if tx := <-ch; tx.Error == nil {
		tx.Rollback()
	}
}

// expired 事务自己的deadline到了（调用方的ctx还没到）
func expired(parent, runCtx context.Context) bool {
	return errors.Is(runCtx.Err(), context.DeadlineExceeded) && parent.Err() == nil
}

func inTransaction(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*gorm.DB)
	return ok
}

// dbFromContext 优先使用ctx中的事务
func dbFromContext(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}
