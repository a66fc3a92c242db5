package order

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/xiebiao/storefront/internal/domain/inventory"
	"github.com/xiebiao/storefront/internal/domain/order"
	"github.com/xiebiao/storefront/pkg/logger"
	"github.com/xiebiao/storefront/pkg/metrics"
	"github.com/xiebiao/storefront/pkg/tracing"
)

// SetStatusUseCase 订单状态变更
//
// 检查顺序: 订单归属 → 状态机 → 角色权限
// 变更为已取消时,在同一事务内归还每一行的库存
// 状态更新是"WHERE status = 原状态"的条件更新,两个并发取消只有一个能成功,不会重复归还
type SetStatusUseCase struct {
	txManager TxManager
	orderRepo order.Repository
	inventory *inventory.Controller
	cache     OrderCache
	publisher order.EventPublisher
	log       logrus.FieldLogger
}

// NewSetStatusUseCase 创建状态变更用例,cache和publisher可以为nil
func NewSetStatusUseCase(
	txManager TxManager,
	orderRepo order.Repository,
	inv *inventory.Controller,
	cache OrderCache,
	publisher order.EventPublisher,
	log logrus.FieldLogger,
) *SetStatusUseCase {
	return &SetStatusUseCase{
		txManager: txManager,
		orderRepo: orderRepo,
		inventory: inv,
		cache:     cache,
		publisher: publisher,
		log:       log,
	}
}

// SetStatusRequest 状态变更请求
type SetStatusRequest struct {
	Actor   Actor
	OrderID uint
	Status  order.Status
	Phone   *string // 可选,同时补录收货电话
}

// Execute 变更订单状态
func (uc *SetStatusUseCase) Execute(ctx context.Context, req SetStatusRequest) (result *order.Order, err error) {
	ctx, span := tracing.StartSpan(ctx, "order", "SetStatus")
	defer func() { tracing.EndSpan(span, err) }()

	log := logger.WithContext(ctx, uc.log).WithFields(logrus.Fields{
		"order_id": req.OrderID,
		"actor_id": req.Actor.ID,
		"role":     req.Actor.Role,
		"to":       req.Status.String(),
	})

	var (
		updated *order.Order
		from    order.Status
		comp    *inventory.Compensation
	)
	err = uc.txManager.Transaction(ctx, func(txCtx context.Context) error {
		o, err := uc.orderRepo.FindByID(txCtx, req.OrderID)
		if err != nil {
			return err
		}
		from = o.Status

		if err := checkOwnership(req.Actor, o, req.Status); err != nil {
			return err
		}
		if err := o.ApplyStatus(req.Status, req.Phone); err != nil {
			return err
		}
		if err := checkRole(req.Actor, from, req.Status); err != nil {
			return err
		}

		var phone *string
		if req.Phone != nil && strings.TrimSpace(*req.Phone) != "" {
			phone = &o.Shipping.Phone
		}
		if err := uc.orderRepo.UpdateStatus(txCtx, o.ID, from, o.Status, phone); err != nil {
			return err
		}

		if order.ReleasesStock(from, o.Status) {
			c, err := uc.inventory.Release(txCtx, o.OrderNo, releaseItems(o), "订单取消")
			if err != nil {
				return err
			}
			comp = c
		}

		updated = o
		return nil
	})
	if err != nil {
		if revertErr := comp.Revert(context.WithoutCancel(ctx)); revertErr != nil {
			log.WithError(revertErr).Error("状态变更失败后撤销库存归还失败")
		}
		if order.IsTransitionError(err) {
			log.WithError(err).Info("订单状态变更被拒绝")
		}
		return nil, err
	}

	metrics.IncCounterVec(metrics.OrderTransitionsTotal, map[string]string{
		"from": from.String(),
		"to":   updated.Status.String(),
	})
	log.WithField("from", from.String()).Info("订单状态已变更")

	if uc.cache != nil {
		if err := uc.cache.Invalidate(ctx, updated.ID); err != nil {
			log.WithError(err).Warn("删除订单缓存失败")
		}
	}

	uc.publish(ctx, log, order.NewEvent(order.EventStatusChanged, updated, from))
	if order.ReleasesStock(from, updated.Status) {
		uc.publish(ctx, log, order.NewEvent(order.EventOrderCancelled, updated, from))
	}
	return updated, nil
}

// Cancel 取消订单(顾客入口)
func (uc *SetStatusUseCase) Cancel(ctx context.Context, actor Actor, orderID uint) (*order.Order, error) {
	return uc.Execute(ctx, SetStatusRequest{
		Actor:   actor,
		OrderID: orderID,
		Status:  order.StatusCancelled,
	})
}

func (uc *SetStatusUseCase) publish(ctx context.Context, log logrus.FieldLogger, event order.Event) {
	if uc.publisher == nil {
		return
	}
	if err := uc.publisher.Publish(ctx, event); err != nil {
		log.WithError(err).WithField("event", event.Type).Warn("发布订单事件失败")
	}
}

func releaseItems(o *order.Order) []inventory.Item {
	items := make([]inventory.Item, len(o.Lines))
	for i, l := range o.Lines {
		items[i] = inventory.Item{BookID: l.BookID, Quantity: l.Quantity}
	}
	return items
}
