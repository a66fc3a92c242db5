package book

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/xiebiao/storefront/internal/domain/inventory"
	"github.com/xiebiao/storefront/pkg/logger"
)

// TxManager 事务管理(mysql.TxManager实现)
type TxManager interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// RestockUseCase 补货(店员)
// 库存增加和流水写入在同一事务中
type RestockUseCase struct {
	txManager TxManager
	inventory *inventory.Controller
	log       logrus.FieldLogger
}

// NewRestockUseCase 创建补货用例
func NewRestockUseCase(txManager TxManager, inv *inventory.Controller, log logrus.FieldLogger) *RestockUseCase {
	return &RestockUseCase{
		txManager: txManager,
		inventory: inv,
		log:       log,
	}
}

// Execute 补货,返回补货后的库存
func (uc *RestockUseCase) Execute(ctx context.Context, bookID uint, quantity int, remark string) (int, error) {
	if strings.TrimSpace(remark) == "" {
		remark = "补货"
	}

	var (
		comp  *inventory.Compensation
		stock int
	)
	err := uc.txManager.Transaction(ctx, func(txCtx context.Context) error {
		c, err := uc.inventory.Restock(txCtx, bookID, quantity, remark)
		if err != nil {
			return err
		}
		comp = c

		current, err := uc.inventory.Available(txCtx, []uint{bookID})
		if err != nil {
			return err
		}
		stock = current[bookID]
		return nil
	})
	if err != nil {
		_ = comp.Revert(context.WithoutCancel(ctx))
		return 0, err
	}

	logger.WithContext(ctx, uc.log).WithFields(logrus.Fields{
		"book_id":  bookID,
		"quantity": quantity,
		"stock":    stock,
	}).Info("补货完成")
	return stock, nil
}
