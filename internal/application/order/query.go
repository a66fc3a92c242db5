package order

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/xiebiao/storefront/internal/domain/order"
	apperrors "github.com/xiebiao/storefront/pkg/errors"
	"github.com/xiebiao/storefront/pkg/logger"
	"github.com/xiebiao/storefront/pkg/metrics"
)

// QueryUseCase 订单查询与删除
// 订单详情走Cache-Aside: 先查Redis,未命中查库后回填;状态变更和删除后删除缓存
type QueryUseCase struct {
	orderRepo order.Repository
	cache     OrderCache
	log       logrus.FieldLogger
}

// NewQueryUseCase cache为nil时直接查库
func NewQueryUseCase(orderRepo order.Repository, cache OrderCache, log logrus.FieldLogger) *QueryUseCase {
	return &QueryUseCase{
		orderRepo: orderRepo,
		cache:     cache,
		log:       log,
	}
}

// Get 订单详情
// 顾客查看别人的订单或已删除的订单,统一返回订单不存在
func (uc *QueryUseCase) Get(ctx context.Context, actor Actor, orderID uint) (*order.Order, error) {
	o, err := uc.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !canSee(actor, o) {
		return nil, order.ErrOrderNotFound
	}
	return o, nil
}

func (uc *QueryUseCase) load(ctx context.Context, orderID uint) (*order.Order, error) {
	log := logger.WithContext(ctx, uc.log).WithField("order_id", orderID)

	if uc.cache != nil {
		cached, err := uc.cache.Get(ctx, orderID)
		switch {
		case err != nil:
			// 缓存故障不影响查询
			log.WithError(err).Warn("读取订单缓存失败")
			metrics.IncCounterVec(metrics.OrderCacheLookupsTotal, map[string]string{"result": "error"})
		case cached != nil:
			metrics.IncCounterVec(metrics.OrderCacheLookupsTotal, map[string]string{"result": "hit"})
			return cached, nil
		default:
			metrics.IncCounterVec(metrics.OrderCacheLookupsTotal, map[string]string{"result": "miss"})
		}
	}

	o, err := uc.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if uc.cache != nil {
		if err := uc.cache.Set(ctx, o); err != nil {
			log.WithError(err).Warn("写入订单缓存失败")
		}
	}
	return o, nil
}

// ListResult 订单分页结果
type ListResult struct {
	Orders   []*order.Order
	Total    int64
	Page     int
	PageSize int
}

// List 调用者自己的订单,按创建时间倒序
func (uc *QueryUseCase) List(ctx context.Context, actor Actor, page, pageSize int) (*ListResult, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	orders, total, err := uc.orderRepo.ListByUserID(ctx, actor.ID, page, pageSize)
	if err != nil {
		return nil, err
	}
	return &ListResult{
		Orders:   orders,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// Delete 软删除订单(仅店员),已删除的订单不能再变更状态
func (uc *QueryUseCase) Delete(ctx context.Context, actor Actor, orderID uint) error {
	if !actor.IsStaff() {
		return apperrors.ErrForbidden
	}

	o, err := uc.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	if o.Deleted {
		return order.ErrOrderDeleted
	}
	if err := uc.orderRepo.Delete(ctx, orderID); err != nil {
		return err
	}

	log := logger.WithContext(ctx, uc.log).WithFields(logrus.Fields{
		"order_id": orderID,
		"actor_id": actor.ID,
	})
	if uc.cache != nil {
		if err := uc.cache.Invalidate(ctx, orderID); err != nil {
			log.WithError(err).Warn("删除订单缓存失败")
		}
	}
	log.Info("订单已删除")
	return nil
}
