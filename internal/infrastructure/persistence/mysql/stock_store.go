package mysql

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xiebiao/storefront/internal/domain/book"
	"github.com/xiebiao/storefront/internal/domain/inventory"
	apperrors "github.com/xiebiao/storefront/pkg/errors"
)

// stockStore books.stock列上的库存存储
// 写操作都是单条UPDATE语句，行锁持有到事务提交：
//
//	UPDATE books SET stock = stock - ? WHERE id = ? AND stock >= ?
//
// 两个并发事务抢最后一件时，后到的事务等待行锁，拿到锁后stock >= ?不成立，影响行数为0
type stockStore struct {
	db *gorm.DB
}

// NewStockStore 创建MySQL库存存储
func NewStockStore(db *gorm.DB) inventory.StockStore {
	return &stockStore{db: db}
}

func (s *stockStore) ConditionalDecrementStock(ctx context.Context, bookID uint, qty int) (bool, error) {
	result := dbFromContext(ctx, s.db).
		Model(&BookModel{}).
		Where("id = ? AND stock >= ?", bookID, qty).
		Updates(map[string]interface{}{
			"stock":      gorm.Expr("stock - ?", qty),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, apperrors.Wrap(result.Error, "扣减库存失败")
	}
	return result.RowsAffected == 1, nil
}

// IncrementStock 已软删除的图书也归还（取消订单时图书可能已下架）
func (s *stockStore) IncrementStock(ctx context.Context, bookID uint, qty int) error {
	result := dbFromContext(ctx, s.db).
		Unscoped().
		Model(&BookModel{}).
		Where("id = ?", bookID).
		Updates(map[string]interface{}{
			"stock":      gorm.Expr("stock + ?", qty),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "增加库存失败")
	}
	if result.RowsAffected == 0 {
		return book.ErrBookNotFound
	}
	return nil
}

func (s *stockStore) GetStock(ctx context.Context, bookIDs []uint) (map[uint]int, error) {
	result := make(map[uint]int, len(bookIDs))
	if len(bookIDs) == 0 {
		return result, nil
	}

	var rows []struct {
		ID    uint
		Stock int
	}
	err := dbFromContext(ctx, s.db).
		Unscoped().
		Model(&BookModel{}).
		Select("id, stock").
		Where("id IN ?", bookIDs).
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "查询库存失败")
	}

	for _, row := range rows {
		result[row.ID] = row.Stock
	}
	return result, nil
}

// CurrentStock 事务内用共享锁读(SELECT ... FOR SHARE)
// REPEATABLE READ下普通SELECT读的是事务快照,看不到并发事务已提交的扣减;
// 加锁读会等持有行锁的事务提交,再读最新版本
func (s *stockStore) CurrentStock(ctx context.Context, bookID uint) (int, error) {
	db := dbFromContext(ctx, s.db)
	if inTransaction(ctx) {
		db = db.Clauses(clause.Locking{Strength: "SHARE"})
	}

	var rows []struct {
		Stock int
	}
	err := db.Unscoped().
		Model(&BookModel{}).
		Select("stock").
		Where("id = ?", bookID).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return 0, apperrors.Wrap(err, "查询库存失败")
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Stock, nil
}

func (s *stockStore) Transactional() bool { return true }

func (s *stockStore) Backend() string { return "mysql" }

// LoadStockSnapshot 读取全部未删除图书的库存，用于启动时初始化Redis库存
func LoadStockSnapshot(ctx context.Context, db *gorm.DB) (map[uint]int, error) {
	var rows []struct {
		ID    uint
		Stock int
	}
	if err := db.WithContext(ctx).Model(&BookModel{}).Select("id, stock").Scan(&rows).Error; err != nil {
		return nil, apperrors.Wrap(err, "读取库存快照失败")
	}

	snapshot := make(map[uint]int, len(rows))
	for _, row := range rows {
		snapshot[row.ID] = row.Stock
	}
	return snapshot, nil
}
