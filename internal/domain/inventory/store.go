// Package inventory 库存预占与释放
//
// 库存是唯一存在并发争用的共享状态,只允许两种写法:
//   - 条件扣减: stock = stock - qty WHERE stock >= qty (单条原子语句/脚本)
//   - 无条件增加: 取消订单归还、补货
//
// 禁止"先读库存、再计算、再写回",那样会重新引入超卖
package inventory

import (
	"context"
	"time"
)

// Item 预占/释放的一项
type Item struct {
	BookID   uint
	Quantity int
}

// StockStore 库存存储
//
// MySQL实现参与ctx中的事务,回滚即撤销;
// Redis实现每次调用立即生效,需要Controller记录补偿
type StockStore interface {
	// ConditionalDecrementStock 库存充足时扣减,返回是否扣减成功
	// 库存不足返回(false, nil),不是error
	ConditionalDecrementStock(ctx context.Context, bookID uint, qty int) (bool, error)

	// IncrementStock 无条件增加库存
	IncrementStock(ctx context.Context, bookID uint, qty int) error

	// GetStock 批量查询当前库存,不存在的图书不出现在结果中
	GetStock(ctx context.Context, bookIDs []uint) (map[uint]int, error)

	// CurrentStock 条件扣减失败后读取最新已提交的库存
	// 在事务内也不能返回事务开始时的快照,图书不存在时返回0
	CurrentStock(ctx context.Context, bookID uint) (int, error)

	// Transactional 写操作是否随ctx中的数据库事务提交/回滚
	Transactional() bool

	// Backend 存储名称(mysql/redis),用于日志和指标
	Backend() string
}

// LogType 库存流水类型
type LogType string

const (
	LogTypeDeduct  LogType = "DEDUCT"  // 下单扣减
	LogTypeRelease LogType = "RELEASE" // 取消归还
	LogTypeRestock LogType = "RESTOCK" // 补货
)

// LogEntry 库存流水(审计用,只增不改)
type LogEntry struct {
	ID        uint
	BookID    uint
	Type      LogType
	Quantity  int    // 带符号:扣减为负,归还/补货为正
	Ref       string // 关联单号(订单号),补货为空
	Remark    string
	CreatedAt time.Time
}

// LogRepository 库存流水仓储
// Append与库存修改在同一事务中写入
type LogRepository interface {
	Append(ctx context.Context, entries ...LogEntry) error
	ListByBook(ctx context.Context, bookID uint, limit int) ([]LogEntry, error)
}
