package redis

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/xiebiao/storefront/internal/domain/book"
	"github.com/xiebiao/storefront/internal/domain/inventory"
	apperrors "github.com/xiebiao/storefront/pkg/errors"
)

//go:embed decrement_stock.lua
var decrementStockLua string

//go:embed increment_stock.lua
var incrementStockLua string

// 脚本返回值
const (
	resultInsufficient = -1
	resultMissing      = -2
)

// StockStore Redis库存存储（inventory.backend=redis）
//
// 每本书一个key: inventory:stock:{book_id}
// 扣减在Lua脚本里完成"检查+扣减"，Redis单线程执行脚本，天然原子
//
// 写操作不参与数据库事务，由inventory.Controller记录补偿
type StockStore struct {
	client    *redis.Client
	decrement *redis.Script
	increment *redis.Script
}

// NewStockStore 创建Redis库存存储
func NewStockStore(client *redis.Client) *StockStore {
	return &StockStore{
		client:    client,
		decrement: redis.NewScript(decrementStockLua),
		increment: redis.NewScript(incrementStockLua),
	}
}

var _ inventory.StockStore = (*StockStore)(nil)

func stockKey(bookID uint) string {
	return fmt.Sprintf("inventory:stock:%d", bookID)
}

// LoadScripts 预加载脚本（启动时调用，之后Run走EVALSHA）
func (s *StockStore) LoadScripts(ctx context.Context) error {
	if err := s.decrement.Load(ctx, s.client).Err(); err != nil {
		return fmt.Errorf("加载扣减脚本失败: %w", err)
	}
	if err := s.increment.Load(ctx, s.client).Err(); err != nil {
		return fmt.Errorf("加载增加脚本失败: %w", err)
	}
	return nil
}

// Seed 初始化库存（SETNX，已存在的key不覆盖）
// 启动时从MySQL同步，Redis中的值为准
func (s *StockStore) Seed(ctx context.Context, stock map[uint]int) error {
	pipe := s.client.Pipeline()
	for id, qty := range stock {
		pipe.SetNX(ctx, stockKey(id), qty, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.Wrap(err, "初始化Redis库存失败")
	}
	return nil
}

func (s *StockStore) ConditionalDecrementStock(ctx context.Context, bookID uint, qty int) (bool, error) {
	n, err := s.decrement.Run(ctx, s.client, []string{stockKey(bookID)}, qty).Int64()
	if err != nil {
		return false, apperrors.Wrap(err, "扣减库存失败")
	}
	switch n {
	case resultInsufficient, resultMissing:
		return false, nil
	}
	return true, nil
}

func (s *StockStore) IncrementStock(ctx context.Context, bookID uint, qty int) error {
	n, err := s.increment.Run(ctx, s.client, []string{stockKey(bookID)}, qty).Int64()
	if err != nil {
		return apperrors.Wrap(err, "增加库存失败")
	}
	if n == resultMissing {
		return book.ErrBookNotFound
	}
	return nil
}

func (s *StockStore) GetStock(ctx context.Context, bookIDs []uint) (map[uint]int, error) {
	result := make(map[uint]int, len(bookIDs))
	if len(bookIDs) == 0 {
		return result, nil
	}

	keys := make([]string, len(bookIDs))
	for i, id := range bookIDs {
		keys[i] = stockKey(id)
	}

	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, apperrors.Wrap(err, "查询库存失败")
	}

	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(str)
		if err != nil {
			return nil, apperrors.Wrap(err, "库存数据格式错误")
		}
		result[bookIDs[i]] = n
	}
	return result, nil
}

// CurrentStock Redis没有快照,直接读
func (s *StockStore) CurrentStock(ctx context.Context, bookID uint) (int, error) {
	stock, err := s.GetStock(ctx, []uint{bookID})
	if err != nil {
		return 0, err
	}
	return stock[bookID], nil
}

func (s *StockStore) Transactional() bool { return false }

func (s *StockStore) Backend() string { return "redis" }
