package mysql

import (
	"context"

	"gorm.io/gorm"

	"github.com/xiebiao/storefront/internal/domain/inventory"
	apperrors "github.com/xiebiao/storefront/pkg/errors"
)

type inventoryLogRepository struct {
	db *gorm.DB
}

// NewInventoryLogRepository 创建库存流水仓储
func NewInventoryLogRepository(db *gorm.DB) inventory.LogRepository {
	return &inventoryLogRepository{db: db}
}

func (r *inventoryLogRepository) Append(ctx context.Context, entries ...inventory.LogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	models := make([]InventoryLogModel, len(entries))
	for i, e := range entries {
		models[i] = InventoryLogModel{
			BookID:   e.BookID,
			Type:     string(e.Type),
			Quantity: e.Quantity,
			Ref:      e.Ref,
			Remark:   e.Remark,
		}
	}

	if err := dbFromContext(ctx, r.db).Create(&models).Error; err != nil {
		return apperrors.Wrap(err, "写入库存流水失败")
	}
	return nil
}

// ListByBook 最近的流水在前
func (r *inventoryLogRepository) ListByBook(ctx context.Context, bookID uint, limit int) ([]inventory.LogEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	var models []InventoryLogModel
	err := dbFromContext(ctx, r.db).
		Where("book_id = ?", bookID).
		Order("id DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "查询库存流水失败")
	}

	entries := make([]inventory.LogEntry, len(models))
	for i, m := range models {
		entries[i] = inventory.LogEntry{
			ID:        m.ID,
			BookID:    m.BookID,
			Type:      inventory.LogType(m.Type),
			Quantity:  m.Quantity,
			Ref:       m.Ref,
			Remark:    m.Remark,
			CreatedAt: m.CreatedAt,
		}
	}
	return entries, nil
}
