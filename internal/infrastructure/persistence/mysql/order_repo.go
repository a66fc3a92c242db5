package mysql

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/xiebiao/storefront/internal/domain/order"
	apperrors "github.com/xiebiao/storefront/pkg/errors"
)

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓储
func NewOrderRepository(db *gorm.DB) order.Repository {
	return &orderRepository{db: db}
}

// Create 订单和明细在同一条Create中写入（GORM自动保存关联）
func (r *orderRepository) Create(ctx context.Context, o *order.Order) error {
	model := toOrderModel(o)

	if err := dbFromContext(ctx, r.db).Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return apperrors.New(apperrors.ErrCodeDuplicateEntry, "订单号重复")
		}
		return apperrors.Wrap(err, "创建订单失败")
	}

	o.ID = model.ID
	o.CreatedAt = model.CreatedAt
	o.UpdatedAt = model.UpdatedAt
	for i := range o.Lines {
		o.Lines[i].ID = model.Items[i].ID
		o.Lines[i].OrderID = model.ID
	}
	return nil
}

// FindByID 包含已软删除的订单，由调用方根据Deleted决定是否可见
func (r *orderRepository) FindByID(ctx context.Context, id uint) (*order.Order, error) {
	var model OrderModel
	err := dbFromContext(ctx, r.db).
		Unscoped().
		Preload("Items", orderItems).
		First(&model, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.ErrOrderNotFound
		}
		return nil, apperrors.Wrap(err, "查询订单失败")
	}
	return toOrderEntity(&model), nil
}

func (r *orderRepository) FindByOrderNo(ctx context.Context, orderNo string) (*order.Order, error) {
	var model OrderModel
	err := dbFromContext(ctx, r.db).
		Preload("Items", orderItems).
		Where("order_no = ?", orderNo).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.ErrOrderNotFound
		}
		return nil, apperrors.Wrap(err, "查询订单失败")
	}
	return toOrderEntity(&model), nil
}

// UpdateStatus 条件更新：WHERE id = ? AND status = from AND deleted_at IS NULL
// 两个并发请求基于同一个旧状态修改时，只有一个能成功
func (r *orderRepository) UpdateStatus(ctx context.Context, id uint, from, to order.Status, phone *string) error {
	updates := map[string]interface{}{
		"status":     int(to),
		"updated_at": time.Now(),
	}
	if phone != nil {
		if p := strings.TrimSpace(*phone); p != "" {
			updates["shipping_phone"] = p
		}
	}

	result := dbFromContext(ctx, r.db).
		Model(&OrderModel{}).
		Where("id = ? AND status = ?", id, int(from)).
		Updates(updates)
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "更新订单状态失败")
	}
	if result.RowsAffected == 0 {
		return order.ErrStatusConflict
	}
	return nil
}

func (r *orderRepository) ListByUserID(ctx context.Context, userID uint, page, pageSize int) ([]*order.Order, int64, error) {
	var models []OrderModel
	var total int64

	page, pageSize = normalizePage(page, pageSize)
	query := dbFromContext(ctx, r.db).Model(&OrderModel{}).Where("user_id = ?", userID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(err, "查询订单总数失败")
	}

	err := query.
		Preload("Items", orderItems).
		Order("created_at DESC").Order("id DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, apperrors.Wrap(err, "查询订单列表失败")
	}

	orders := make([]*order.Order, len(models))
	for i := range models {
		orders[i] = toOrderEntity(&models[i])
	}
	return orders, total, nil
}

func (r *orderRepository) Delete(ctx context.Context, id uint) error {
	result := dbFromContext(ctx, r.db).Delete(&OrderModel{}, id)
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "删除订单失败")
	}
	if result.RowsAffected == 0 {
		return order.ErrOrderNotFound
	}
	return nil
}

func orderItems(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}

func toOrderModel(o *order.Order) *OrderModel {
	items := make([]OrderItemModel, len(o.Lines))
	for i, l := range o.Lines {
		items[i] = OrderItemModel{
			BookID:    l.BookID,
			BookTitle: l.BookTitle,
			SeriesID:  l.SeriesID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Subtotal:  l.Subtotal,
			Discount:  l.Discount,
			Total:     l.Total,
		}
	}

	return &OrderModel{
		OrderNo:          o.OrderNo,
		UserID:           o.UserID,
		Subtotal:         o.Subtotal,
		Discount:         o.Discount,
		Total:            o.Total,
		AppliedSeriesIDs: o.AppliedSeriesIDs,
		ShippingName:     o.Shipping.Name,
		ShippingPhone:    o.Shipping.Phone,
		ShippingAddress:  o.Shipping.Address,
		PaymentMethod:    string(o.PaymentMethod),
		Status:           int(o.Status),
		Items:            items,
	}
}

func toOrderEntity(model *OrderModel) *order.Order {
	lines := make([]order.Line, len(model.Items))
	for i, item := range model.Items {
		lines[i] = order.Line{
			ID:        item.ID,
			OrderID:   item.OrderID,
			BookID:    item.BookID,
			BookTitle: item.BookTitle,
			SeriesID:  item.SeriesID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Subtotal:  item.Subtotal,
			Discount:  item.Discount,
			Total:     item.Total,
		}
	}

	applied := model.AppliedSeriesIDs
	if applied == nil {
		applied = []uint{}
	}

	return &order.Order{
		ID:               model.ID,
		OrderNo:          model.OrderNo,
		UserID:           model.UserID,
		Lines:            lines,
		Subtotal:         model.Subtotal,
		Discount:         model.Discount,
		Total:            model.Total,
		AppliedSeriesIDs: applied,
		Shipping: order.ShippingInfo{
			Name:    model.ShippingName,
			Phone:   model.ShippingPhone,
			Address: model.ShippingAddress,
		},
		PaymentMethod: order.PaymentMethod(model.PaymentMethod),
		Status:        order.Status(model.Status),
		Deleted:       model.DeletedAt.Valid,
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}
}
