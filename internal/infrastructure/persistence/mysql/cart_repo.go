package mysql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xiebiao/storefront/internal/domain/cart"
	apperrors "github.com/xiebiao/storefront/pkg/errors"
)

type cartRepository struct {
	db *gorm.DB
}

// NewCartRepository 创建购物车仓储
func NewCartRepository(db *gorm.DB) cart.Repository {
	return &cartRepository{db: db}
}

// GetCartWithLines 购物车不存在时创建
// 并发首次访问时两个请求可能同时插入，唯一索引冲突后重新查询
func (r *cartRepository) GetCartWithLines(ctx context.Context, userID uint) (*cart.Cart, error) {
	db := dbFromContext(ctx, r.db)

	var model CartModel
	err := db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	}).Where("user_id = ?", userID).First(&model).Error
	if err == nil {
		return toCartEntity(&model), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(err, "查询购物车失败")
	}

	model = CartModel{UserID: userID}
	if err := db.Create(&model).Error; err != nil {
		if !isDuplicateError(err) {
			return nil, apperrors.Wrap(err, "创建购物车失败")
		}
		model = CartModel{}
		if err := db.Where("user_id = ?", userID).First(&model).Error; err != nil {
			return nil, apperrors.Wrap(err, "查询购物车失败")
		}
	}
	return toCartEntity(&model), nil
}

// AddLine 已有明细时数量累加（单条UPSERT）
func (r *cartRepository) AddLine(ctx context.Context, cartID, bookID uint, quantity int) error {
	now := time.Now()
	item := CartItemModel{CartID: cartID, BookID: bookID, Quantity: quantity, CreatedAt: now, UpdatedAt: now}

	err := dbFromContext(ctx, r.db).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "cart_id"}, {Name: "book_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":   gorm.Expr("quantity + ?", quantity),
			"updated_at": now,
		}),
	}).Create(&item).Error
	if err != nil {
		return apperrors.Wrap(err, "加入购物车失败")
	}
	return r.touch(ctx, cartID)
}

func (r *cartRepository) SetQuantity(ctx context.Context, cartID, bookID uint, quantity int) error {
	result := dbFromContext(ctx, r.db).
		Model(&CartItemModel{}).
		Where("cart_id = ? AND book_id = ?", cartID, bookID).
		Updates(map[string]interface{}{"quantity": quantity, "updated_at": time.Now()})
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "修改购物车数量失败")
	}
	if result.RowsAffected == 0 {
		return cart.ErrLineNotFound
	}
	return r.touch(ctx, cartID)
}

func (r *cartRepository) RemoveLine(ctx context.Context, cartID, bookID uint) error {
	result := dbFromContext(ctx, r.db).
		Where("cart_id = ? AND book_id = ?", cartID, bookID).
		Delete(&CartItemModel{})
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "删除购物车明细失败")
	}
	if result.RowsAffected == 0 {
		return cart.ErrLineNotFound
	}
	return r.touch(ctx, cartID)
}

// ClearCartLines 只删除明细，保留购物车记录
func (r *cartRepository) ClearCartLines(ctx context.Context, cartID uint) error {
	if err := dbFromContext(ctx, r.db).Where("cart_id = ?", cartID).Delete(&CartItemModel{}).Error; err != nil {
		return apperrors.Wrap(err, "清空购物车失败")
	}
	return r.touch(ctx, cartID)
}

func (r *cartRepository) touch(ctx context.Context, cartID uint) error {
	err := dbFromContext(ctx, r.db).
		Model(&CartModel{}).
		Where("id = ?", cartID).
		Update("updated_at", time.Now()).Error
	if err != nil {
		return apperrors.Wrap(err, "更新购物车失败")
	}
	return nil
}

func toCartEntity(model *CartModel) *cart.Cart {
	c := &cart.Cart{
		ID:        model.ID,
		UserID:    model.UserID,
		Lines:     make([]cart.Line, len(model.Items)),
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
	for i, item := range model.Items {
		c.Lines[i] = cart.Line{
			ID:        item.ID,
			CartID:    item.CartID,
			BookID:    item.BookID,
			Quantity:  item.Quantity,
			CreatedAt: item.CreatedAt,
		}
	}
	return c
}
