package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/xiebiao/storefront/pkg/saga"
)

// Controller 库存预占控制器
//
// Reserve/Release/Restock必须在调用方开启的事务内调用:
//   - 事务型存储(MySQL):任一项失败直接返回错误,由事务回滚撤销已扣减的项
//   - 非事务型存储(Redis):用saga记录已执行的写操作,失败时逆序补偿;
//     调用成功后返回的Compensation在外层事务失败时由调用方Revert
type Controller struct {
	store       StockStore
	logs        LogRepository
	sagaTimeout time.Duration
	onConflict  func(backend string, bookID uint)
	onRevert    func(err error)
}

// Option 控制器选项
type Option func(*Controller)

// WithConflictObserver 条件扣减失败(库存被并发请求抢走或本来就不足)时回调
func WithConflictObserver(fn func(backend string, bookID uint)) Option {
	return func(c *Controller) { c.onConflict = fn }
}

// WithRevertObserver 非事务型存储执行补偿后回调,err为补偿失败的错误(成功为nil)
func WithRevertObserver(fn func(err error)) Option {
	return func(c *Controller) { c.onRevert = fn }
}

// WithSagaTimeout 非事务型存储单次预占的超时时间
func WithSagaTimeout(d time.Duration) Option {
	return func(c *Controller) { c.sagaTimeout = d }
}

// NewController 创建库存控制器,logs为nil时不写流水
func NewController(store StockStore, logs LogRepository, opts ...Option) *Controller {
	c := &Controller{
		store: store,
		logs:  logs,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Backend 库存存储名称
func (c *Controller) Backend() string {
	return c.store.Backend()
}

// Compensation 已生效的库存写操作的撤销句柄
// 事务型存储返回的Compensation是空操作
type Compensation struct {
	saga     *saga.Saga
	onRevert func(err error)
}

// Revert 撤销库存写操作,重复调用是安全的
// 应使用不带取消信号的ctx调用(如context.WithoutCancel)
func (comp *Compensation) Revert(ctx context.Context) error {
	if comp == nil || comp.saga == nil || comp.saga.Executed() == 0 {
		return nil
	}
	err := comp.saga.Compensate(ctx)
	if comp.onRevert != nil {
		comp.onRevert(err)
	}
	return err
}

// Reserve 为订单预占库存,全部成功或全部撤销
// 库存不足返回*InsufficientStockError(Available为扣减失败时的实时库存)
func (c *Controller) Reserve(ctx context.Context, ref string, items []Item) (*Compensation, error) {
	items, err := normalize(items)
	if err != nil {
		return nil, err
	}

	decrement := func(ctx context.Context, it Item) error {
		ok, err := c.store.ConditionalDecrementStock(ctx, it.BookID, it.Quantity)
		if err != nil {
			return err
		}
		if !ok {
			return c.insufficient(ctx, it)
		}
		return nil
	}
	increment := func(ctx context.Context, it Item) error {
		return c.store.IncrementStock(ctx, it.BookID, it.Quantity)
	}

	comp, err := c.apply(ctx, "reserve", items, decrement, increment)
	if err != nil {
		return nil, err
	}

	entries := make([]LogEntry, len(items))
	for i, it := range items {
		entries[i] = LogEntry{BookID: it.BookID, Type: LogTypeDeduct, Quantity: -it.Quantity, Ref: ref, Remark: "下单扣减"}
	}
	if err := c.appendLogs(ctx, entries); err != nil {
		_ = comp.Revert(context.WithoutCancel(ctx))
		return nil, err
	}
	return comp, nil
}

// Release 归还库存(取消订单的补偿操作),不受库存上限约束
func (c *Controller) Release(ctx context.Context, ref string, items []Item, reason string) (*Compensation, error) {
	items, err := normalize(items)
	if err != nil {
		return nil, err
	}

	increment := func(ctx context.Context, it Item) error {
		return c.store.IncrementStock(ctx, it.BookID, it.Quantity)
	}
	// 归还后又需要撤销时,库存可能已被新订单占用,只能条件扣减
	undo := func(ctx context.Context, it Item) error {
		ok, err := c.store.ConditionalDecrementStock(ctx, it.BookID, it.Quantity)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("撤销归还失败: 图书(ID=%d)库存已被占用", it.BookID)
		}
		return nil
	}

	comp, err := c.apply(ctx, "release", items, increment, undo)
	if err != nil {
		return nil, err
	}

	logType := LogTypeRelease
	if ref == "" {
		logType = LogTypeRestock
	}
	entries := make([]LogEntry, len(items))
	for i, it := range items {
		entries[i] = LogEntry{BookID: it.BookID, Type: logType, Quantity: it.Quantity, Ref: ref, Remark: reason}
	}
	if err := c.appendLogs(ctx, entries); err != nil {
		_ = comp.Revert(context.WithoutCancel(ctx))
		return nil, err
	}
	return comp, nil
}

// Restock 补货(没有关联单号,流水类型为RESTOCK)
func (c *Controller) Restock(ctx context.Context, bookID uint, qty int, remark string) (*Compensation, error) {
	return c.Release(ctx, "", []Item{{BookID: bookID, Quantity: qty}}, remark)
}

// Available 查询当前库存
func (c *Controller) Available(ctx context.Context, bookIDs []uint) (map[uint]int, error) {
	return c.store.GetStock(ctx, bookIDs)
}

// apply 对每一项执行写操作
func (c *Controller) apply(
	ctx context.Context,
	op string,
	items []Item,
	action func(context.Context, Item) error,
	compensate func(context.Context, Item) error,
) (*Compensation, error) {
	if c.store.Transactional() {
		for _, it := range items {
			if err := action(ctx, it); err != nil {
				return nil, err
			}
		}
		return &Compensation{}, nil
	}

	s := saga.NewSaga(c.sagaTimeout)
	for _, it := range items {
		it := it
		s.AddStep(
			fmt.Sprintf("%s[book=%d,qty=%d]", op, it.BookID, it.Quantity),
			func(ctx context.Context) error { return action(ctx, it) },
			func(ctx context.Context) error { return compensate(ctx, it) },
		)
	}

	if err := s.Execute(ctx); err != nil {
		// saga已补偿已执行的步骤;第一步就失败时没有需要补偿的写操作
		var stepErr *saga.StepError
		if c.onRevert != nil && (!errors.As(err, &stepErr) || stepErr.Index > 0) {
			c.onRevert(nil)
		}
		var stockErr *InsufficientStockError
		if errors.As(err, &stockErr) {
			return nil, stockErr
		}
		return nil, err
	}
	return &Compensation{saga: s, onRevert: c.onRevert}, nil
}

func (c *Controller) insufficient(ctx context.Context, it Item) error {
	if c.onConflict != nil {
		c.onConflict(c.store.Backend(), it.BookID)
	}

	available, err := c.store.CurrentStock(ctx, it.BookID)
	if err != nil {
		return err
	}
	return &InsufficientStockError{BookID: it.BookID, Requested: it.Quantity, Available: available}
}

func (c *Controller) appendLogs(ctx context.Context, entries []LogEntry) error {
	if c.logs == nil || len(entries) == 0 {
		return nil
	}
	return c.logs.Append(ctx, entries...)
}

// normalize 校验数量,合并同一本书的多项,并按BookID排序
// 固定的加锁顺序避免两个事务以相反顺序锁同一组行时死锁
func normalize(items []Item) ([]Item, error) {
	merged := make(map[uint]int, len(items))
	for _, it := range items {
		if it.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		merged[it.BookID] += it.Quantity
	}

	out := make([]Item, 0, len(merged))
	for id, qty := range merged {
		out = append(out, Item{BookID: id, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BookID < out[j].BookID })
	return out, nil
}
