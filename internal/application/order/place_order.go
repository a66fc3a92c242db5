package order

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/xiebiao/storefront/internal/domain/book"
	"github.com/xiebiao/storefront/internal/domain/cart"
	"github.com/xiebiao/storefront/internal/domain/inventory"
	"github.com/xiebiao/storefront/internal/domain/order"
	"github.com/xiebiao/storefront/internal/domain/pricing"
	"github.com/xiebiao/storefront/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/storefront/pkg/logger"
	"github.com/xiebiao/storefront/pkg/metrics"
	"github.com/xiebiao/storefront/pkg/tracing"
)

// PlaceOrderUseCase 购物车结算下单
//
// 整个流程在一个事务里完成:
//  1. 读取购物车和图书的实时数据
//  2. 检查图书是否可售
//  3. 计价(套系折扣)
//  4. 库存预检查(只为给出友好的错误,真正的保证在第5步)
//  5. 条件扣减库存
//  6. 创建订单(单价取第1步读到的价格)
//  7. 清空购物车明细
//
// 任何一步失败整个事务回滚:不产生订单、库存不变、购物车不变
type PlaceOrderUseCase struct {
	txManager TxManager
	cartRepo  cart.Repository
	bookRepo  book.Repository
	orderRepo order.Repository
	inventory *inventory.Controller
	pricing   *pricing.Engine
	publisher order.EventPublisher
	log       logrus.FieldLogger
}

// NewPlaceOrderUseCase 创建下单用例
// txManager的默认时间边界即下单的等待/执行超时(checkout.max_wait/checkout.timeout)
func NewPlaceOrderUseCase(
	txManager TxManager,
	cartRepo cart.Repository,
	bookRepo book.Repository,
	orderRepo order.Repository,
	inv *inventory.Controller,
	engine *pricing.Engine,
	publisher order.EventPublisher,
	log logrus.FieldLogger,
) *PlaceOrderUseCase {
	return &PlaceOrderUseCase{
		txManager: txManager,
		cartRepo:  cartRepo,
		bookRepo:  bookRepo,
		orderRepo: orderRepo,
		inventory: inv,
		pricing:   engine,
		publisher: publisher,
		log:       log,
	}
}

// PlaceOrderRequest 下单请求
type PlaceOrderRequest struct {
	UserID        uint
	Shipping      order.ShippingInfo
	PaymentMethod string
}

// Execute 下单
func (uc *PlaceOrderUseCase) Execute(ctx context.Context, req PlaceOrderRequest) (result *order.Order, err error) {
	ctx, span := tracing.StartSpan(ctx, "order", "PlaceOrder")
	defer func() { tracing.EndSpan(span, err) }()

	start := time.Now()
	metrics.IncGauge(metrics.CheckoutsInProgress)
	defer func() {
		metrics.DecGauge(metrics.CheckoutsInProgress)
		metrics.ObserveHistogram(metrics.CheckoutDuration, time.Since(start).Seconds())
		metrics.IncCounterVec(metrics.CheckoutsTotal, map[string]string{"result": checkoutResult(err)})
	}()

	log := logger.WithContext(ctx, uc.log).WithField("user_id", req.UserID)

	payment, err := order.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, err
	}

	var (
		placed *order.Order
		comp   *inventory.Compensation
	)
	err = uc.txManager.Transaction(ctx, func(txCtx context.Context) error {
		o, c, err := uc.placeInTx(txCtx, req.UserID, req.Shipping, payment)
		comp = c
		placed = o
		return err
	})
	if err != nil {
		// 非事务型库存(Redis)的扣减不随事务回滚
		if revertErr := comp.Revert(context.WithoutCancel(ctx)); revertErr != nil {
			log.WithError(revertErr).Error("下单失败后归还库存失败")
		}
		err = checkoutError(err)
		if errors.Is(err, order.ErrCheckoutTimeout) {
			log.WithError(err).Warn("下单超时")
		}
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"order_id": placed.ID,
		"order_no": placed.OrderNo,
		"total":    placed.Total,
	}).Info("下单成功")

	uc.publish(ctx, log, order.NewEvent(order.EventOrderPlaced, placed, 0))
	return placed, nil
}

// placeInTx 事务内的下单步骤
// 返回的Compensation在库存扣减成功后才非nil
func (uc *PlaceOrderUseCase) placeInTx(
	ctx context.Context,
	userID uint,
	shipping order.ShippingInfo,
	payment order.PaymentMethod,
) (*order.Order, *inventory.Compensation, error) {
	// 1. 购物车 + 图书实时数据
	c, err := uc.cartRepo.GetCartWithLines(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if c.IsEmpty() {
		return nil, nil, cart.ErrEmptyCart
	}

	books, err := uc.bookRepo.GetBooksByIDs(ctx, c.BookIDs())
	if err != nil {
		return nil, nil, err
	}

	// 2. 可售检查
	seriesIDs := make([]uint, 0)
	seen := make(map[uint]bool)
	for _, l := range c.Lines {
		b := books[l.BookID]
		if !b.Available() {
			unavailable := &book.BookUnavailableError{BookID: l.BookID}
			if b != nil {
				unavailable.Title = b.Title
			}
			return nil, nil, unavailable
		}
		if b.SeriesID != nil && !seen[*b.SeriesID] {
			seen[*b.SeriesID] = true
			seriesIDs = append(seriesIDs, *b.SeriesID)
		}
	}

	// 3. 计价,套系成员取实时数据
	membership, err := uc.bookRepo.GetSeriesMembership(ctx, seriesIDs)
	if err != nil {
		return nil, nil, err
	}
	priceLines := make([]pricing.Line, len(c.Lines))
	for i, l := range c.Lines {
		b := books[l.BookID]
		priceLines[i] = pricing.Line{
			BookID:    b.ID,
			SeriesID:  b.SeriesID,
			Quantity:  l.Quantity,
			UnitPrice: b.Price,
		}
	}
	quote := uc.pricing.Quote(priceLines, pricing.Membership(membership))

	// 4. 库存预检查
	stock, err := uc.inventory.Available(ctx, c.BookIDs())
	if err != nil {
		return nil, nil, err
	}
	items := make([]inventory.Item, len(c.Lines))
	for i, l := range c.Lines {
		if available := stock[l.BookID]; l.Quantity > available {
			return nil, nil, &inventory.InsufficientStockError{
				BookID:    l.BookID,
				Title:     books[l.BookID].Title,
				Requested: l.Quantity,
				Available: available,
			}
		}
		items[i] = inventory.Item{BookID: l.BookID, Quantity: l.Quantity}
	}

	// 5. 条件扣减
	orderNo := order.GenerateOrderNo()
	comp, err := uc.inventory.Reserve(ctx, orderNo, items)
	if err != nil {
		// 预检查之后库存被并发订单抢走
		var stockErr *inventory.InsufficientStockError
		if errors.As(err, &stockErr) {
			if b := books[stockErr.BookID]; b != nil {
				stockErr.Title = b.Title
			}
		}
		return nil, nil, err
	}

	// 6. 创建订单
	lines := make([]order.Line, len(quote.Lines))
	for i, pl := range quote.Lines {
		lines[i] = order.Line{
			BookID:    pl.BookID,
			BookTitle: books[pl.BookID].Title,
			SeriesID:  pl.SeriesID,
			Quantity:  pl.Quantity,
			UnitPrice: pl.UnitPrice,
			Subtotal:  pl.Subtotal,
			Discount:  pl.Discount,
			Total:     pl.Total,
		}
	}
	o, err := order.NewOrder(orderNo, userID, lines, quote.AppliedSeriesIDs, shipping, payment)
	if err != nil {
		return nil, comp, err
	}
	if err := uc.orderRepo.Create(ctx, o); err != nil {
		return nil, comp, err
	}

	// 7. 清空购物车
	if err := uc.cartRepo.ClearCartLines(ctx, c.ID); err != nil {
		return nil, comp, err
	}
	return o, comp, nil
}

func (uc *PlaceOrderUseCase) publish(ctx context.Context, log logrus.FieldLogger, event order.Event) {
	if uc.publisher == nil {
		return
	}
	if err := uc.publisher.Publish(ctx, event); err != nil {
		log.WithError(err).WithField("event", event.Type).Warn("发布订单事件失败")
	}
}

// checkoutError 事务超时转换为可重试的下单超时错误
func checkoutError(err error) error {
	switch {
	case errors.Is(err, mysql.ErrTxWaitTimeout):
		return &order.CheckoutTimeoutError{Phase: "acquire", Err: err}
	case errors.Is(err, mysql.ErrTxTimeout):
		return &order.CheckoutTimeoutError{Phase: "execute", Err: err}
	}
	return err
}

func checkoutResult(err error) string {
	switch {
	case err == nil:
		return metrics.CheckoutSuccess
	case errors.Is(err, cart.ErrEmptyCart):
		return metrics.CheckoutEmptyCart
	case errors.Is(err, book.ErrBookUnavailable):
		return metrics.CheckoutBookUnavailable
	case errors.Is(err, inventory.ErrInsufficientStock):
		return metrics.CheckoutInsufficientStock
	case errors.Is(err, order.ErrCheckoutTimeout):
		return metrics.CheckoutTimeout
	}
	return metrics.CheckoutError
}
