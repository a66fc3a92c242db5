package order

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/xiebiao/storefront/internal/domain/book"
	"github.com/xiebiao/storefront/internal/domain/cart"
	"github.com/xiebiao/storefront/internal/domain/inventory"
	"github.com/xiebiao/storefront/internal/domain/order"
	"github.com/xiebiao/storefront/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/storefront/internal/infrastructure/persistence/redis"
	apperrors "github.com/xiebiao/storefront/pkg/errors"
)

func TestPlaceOrder_CompleteSeriesDiscount(t *testing.T) {
	f := newFixture(t)
	s := f.series("三体")
	b1 := f.book("三体I", 100, 10, &s)
	b2 := f.book("三体II", 200, 10, &s)
	b3 := f.book("三体III", 300, 10, &s)
	other := f.book("球状闪电", 50, 10, nil)

	f.addToCart(customerID, b1, 1)
	f.addToCart(customerID, b2, 1)
	f.addToCart(customerID, b3, 1)
	f.addToCart(customerID, other, 2)

	o := f.placeOrder(customerID)

	assert.Equal(t, int64(640), o.Total)
	assert.Equal(t, int64(60), o.Discount)
	assert.Equal(t, int64(700), o.Subtotal)
	assert.Equal(t, []uint{s}, o.AppliedSeriesIDs)
	assert.Equal(t, order.StatusPending, o.Status)
	require.Len(t, o.Lines, 4)

	var sum int64
	for _, l := range o.Lines {
		sum += l.Total
	}
	assert.Equal(t, o.Total, sum, "明细合计等于订单总额")

	assert.Equal(t, 9, f.stockOf(b1.ID))
	assert.Equal(t, 8, f.stockOf(other.ID))
	assert.Equal(t, 0, f.cartLines(customerID), "下单后清空购物车")
	assert.Equal(t, []string{order.EventOrderPlaced}, f.publisher.types())

	stored, err := f.orders.FindByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(640), stored.Total)
	assert.Equal(t, "13800000000", stored.Shipping.Phone)
}

func TestPlaceOrder_PartialSeriesNoDiscount(t *testing.T) {
	f := newFixture(t)
	s := f.series("三体")
	b1 := f.book("三体I", 100, 10, &s)
	b2 := f.book("三体II", 200, 10, &s)
	f.book("三体III", 300, 10, &s)

	f.addToCart(customerID, b1, 1)
	f.addToCart(customerID, b2, 1)

	o := f.placeOrder(customerID)
	assert.Equal(t, int64(300), o.Total)
	assert.Zero(t, o.Discount)
	assert.Empty(t, o.AppliedSeriesIDs)
}

func TestPlaceOrder_LiveSeriesMembership(t *testing.T) {
	f := newFixture(t)
	s := f.series("三体")
	b1 := f.book("三体I", 100, 10, &s)
	b2 := f.book("三体II", 200, 10, &s)
	b3 := f.book("三体III", 300, 10, &s)

	f.addToCart(customerID, b1, 1)
	f.addToCart(customerID, b2, 1)

	// 第三本下架后,购物车里的两本就构成完整套系
	require.NoError(t, f.db.Delete(&mysql.BookModel{}, b3.ID).Error)

	o := f.placeOrder(customerID)
	assert.Equal(t, int64(270), o.Total)
	assert.Equal(t, []uint{s}, o.AppliedSeriesIDs)
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	f := newFixture(t)

	_, err := f.place.Execute(context.Background(), PlaceOrderRequest{UserID: customerID, Shipping: shipping, PaymentMethod: "COD"})
	assert.ErrorIs(t, err, cart.ErrEmptyCart)
	assert.Equal(t, apperrors.ErrCodeEmptyCart, apperrors.GetAppError(err).Code)
	assert.Zero(t, f.orderCount())
}

func TestPlaceOrder_BookUnavailable(t *testing.T) {
	f := newFixture(t)
	ok := f.book("活着", 100, 10, nil)
	gone := f.book("兄弟", 100, 10, nil)
	f.addToCart(customerID, ok, 1)
	f.addToCart(customerID, gone, 1)
	require.NoError(t, f.db.Delete(&mysql.BookModel{}, gone.ID).Error)

	_, err := f.place.Execute(context.Background(), PlaceOrderRequest{UserID: customerID, Shipping: shipping, PaymentMethod: "COD"})

	var unavailable *book.BookUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, gone.ID, unavailable.BookID)
	assert.Equal(t, "兄弟", unavailable.Title)
	assert.Equal(t, 10, f.stockOf(ok.ID))
	assert.Equal(t, 2, f.cartLines(customerID))
}

func TestPlaceOrder_InsufficientStockPrecheck(t *testing.T) {
	f := newFixture(t)
	a := f.book("活着", 100, 10, nil)
	b := f.book("兄弟", 100, 1, nil)
	f.addToCart(customerID, a, 2)
	f.addToCart(customerID, b, 3)

	_, err := f.place.Execute(context.Background(), PlaceOrderRequest{UserID: customerID, Shipping: shipping, PaymentMethod: "COD"})

	var insufficient *inventory.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, b.ID, insufficient.BookID)
	assert.Equal(t, "兄弟", insufficient.Title)
	assert.Equal(t, 1, insufficient.Available)
	assert.Equal(t, 3, insufficient.Requested)
	assert.Equal(t, map[string]interface{}{
		"book_id": b.ID, "title": "兄弟", "requested": 3, "available": 1,
	}, apperrors.GetDetails(err))
	assert.False(t, apperrors.IsRetryable(err))

	assert.Equal(t, 10, f.stockOf(a.ID))
	assert.Equal(t, 1, f.stockOf(b.ID))
	assert.Zero(t, f.orderCount())
}

func TestPlaceOrder_AtomicWhenOrderInsertFails(t *testing.T) {
	f := newFixture(t, withOrderRepo(func(r order.Repository) order.Repository {
		return failingOrderRepo{Repository: r}
	}))
	a := f.book("活着", 100, 5, nil)
	b := f.book("兄弟", 100, 5, nil)
	f.addToCart(customerID, a, 2)
	f.addToCart(customerID, b, 1)

	_, err := f.place.Execute(context.Background(), PlaceOrderRequest{UserID: customerID, Shipping: shipping, PaymentMethod: "COD"})
	require.ErrorIs(t, err, errCreateFailed)

	assert.Equal(t, 5, f.stockOf(a.ID), "扣减随事务回滚")
	assert.Equal(t, 5, f.stockOf(b.ID))
	assert.Equal(t, 2, f.cartLines(customerID), "购物车不变")
	assert.Zero(t, f.orderCount())
	assert.Empty(t, f.publisher.types())

	var logs int64
	require.NoError(t, f.db.Model(&mysql.InventoryLogModel{}).Count(&logs).Error)
	assert.Zero(t, logs, "库存流水也回滚")
}

func TestPlaceOrder_RedisBackendRevertsOnFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := redis.NewStockStore(client)

	f := newFixture(t,
		withOrderRepo(func(r order.Repository) order.Repository { return failingOrderRepo{Repository: r} }),
		withStockStore(func(*gorm.DB) inventory.StockStore { return store }),
	)
	a := f.book("活着", 100, 5, nil)
	b := f.book("兄弟", 100, 5, nil)
	require.NoError(t, store.Seed(context.Background(), map[uint]int{a.ID: 5, b.ID: 5}))
	f.addToCart(customerID, a, 2)
	f.addToCart(customerID, b, 1)

	_, err := f.place.Execute(context.Background(), PlaceOrderRequest{UserID: customerID, Shipping: shipping, PaymentMethod: "COD"})
	require.ErrorIs(t, err, errCreateFailed)

	stock, err := store.GetStock(context.Background(), []uint{a.ID, b.ID})
	require.NoError(t, err)
	assert.Equal(t, map[uint]int{a.ID: 5, b.ID: 5}, stock, "Redis扣减已补偿")
	assert.Equal(t, 2, f.cartLines(customerID))
}

func TestPlaceOrder_RedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := redis.NewStockStore(client)

	f := newFixture(t, withStockStore(func(*gorm.DB) inventory.StockStore { return store }))
	a := f.book("活着", 100, 5, nil)
	require.NoError(t, store.Seed(context.Background(), map[uint]int{a.ID: 5}))
	f.addToCart(customerID, a, 2)

	o := f.placeOrder(customerID)
	stock, err := store.GetStock(context.Background(), []uint{a.ID})
	require.NoError(t, err)
	assert.Equal(t, 3, stock[a.ID])

	f.advance(o.ID, order.StatusCancelled)
	stock, err = store.GetStock(context.Background(), []uint{a.ID})
	require.NoError(t, err)
	assert.Equal(t, 5, stock[a.ID])
}

func TestPlaceOrder_LastUnitRace(t *testing.T) {
	f := newFixture(t)
	last := f.book("孤本", 100, 1, nil)
	buyers := []uint{201, 202}
	for _, id := range buyers {
		f.addToCart(id, last, 1)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(buyers))
	start := make(chan struct{})
	for i, id := range buyers {
		wg.Add(1)
		go func(i int, userID uint) {
			defer wg.Done()
			<-start
			_, errs[i] = f.place.Execute(context.Background(), PlaceOrderRequest{UserID: userID, Shipping: shipping, PaymentMethod: "CARD"})
		}(i, id)
	}
	close(start)
	wg.Wait()

	var succeeded int
	var insufficient *inventory.InsufficientStockError
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorAs(t, err, &insufficient)
	}
	assert.Equal(t, 1, succeeded)
	require.NotNil(t, insufficient)
	assert.Equal(t, 0, insufficient.Available)
	assert.Equal(t, 0, f.stockOf(last.ID))
	assert.Equal(t, int64(1), f.orderCount())
}

func TestPlaceOrder_LostRaceAfterPrecheck(t *testing.T) {
	f := newFixture(t, withStockStore(func(db *gorm.DB) inventory.StockStore {
		return &racingStockStore{StockStore: mysql.NewStockStore(db)}
	}))
	last := f.book("孤本", 100, 1, nil)
	f.addToCart(customerID, last, 1)

	_, err := f.place.Execute(context.Background(), PlaceOrderRequest{UserID: customerID, Shipping: shipping, PaymentMethod: "COD"})

	var insufficient *inventory.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, last.ID, insufficient.BookID)
	assert.Equal(t, "孤本", insufficient.Title)
	assert.Equal(t, 1, insufficient.Requested)
	assert.Equal(t, 0, insufficient.Available)
	assert.Equal(t, "孤本", apperrors.GetDetails(err)["title"])

	assert.Zero(t, f.orderCount())
	assert.Equal(t, 1, f.stockOf(last.ID), "事务回滚,库存不变")
	assert.Equal(t, 1, f.cartLines(customerID))
	assert.Empty(t, f.publisher.types())

	var logs int64
	require.NoError(t, f.db.Model(&mysql.InventoryLogModel{}).Count(&logs).Error)
	assert.Zero(t, logs)
}

func TestPlaceOrder_ExecuteTimeout(t *testing.T) {
	f := newFixture(t,
		withTxOptions(mysql.TxOptions{MaxWait: time.Second, Timeout: 50 * time.Millisecond}),
		withOrderRepo(func(r order.Repository) order.Repository { return slowOrderRepo{Repository: r} }),
	)
	a := f.book("活着", 100, 5, nil)
	f.addToCart(customerID, a, 2)

	_, err := f.place.Execute(context.Background(), PlaceOrderRequest{UserID: customerID, Shipping: shipping, PaymentMethod: "COD"})

	var timeout *order.CheckoutTimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, "execute", timeout.Phase)
	assert.ErrorIs(t, err, mysql.ErrTxTimeout)
	assert.True(t, apperrors.IsRetryable(err))
	assert.Equal(t, apperrors.ErrCodeCheckoutTimeout, apperrors.GetAppError(err).Code)

	assert.Equal(t, 5, f.stockOf(a.ID), "超时的事务不提交")
	assert.Equal(t, 1, f.cartLines(customerID))
	assert.Zero(t, f.orderCount())
}

func TestPlaceOrder_AcquireTimeout(t *testing.T) {
	f := newFixture(t, withTxOptions(mysql.TxOptions{MaxWait: 50 * time.Millisecond, Timeout: time.Second}))
	a := f.book("活着", 100, 5, nil)
	f.addToCart(customerID, a, 1)

	// 另一个事务占住测试库唯一的连接
	other := mysql.NewTxManager(f.db, mysql.TxOptions{})
	holding := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- other.Transaction(context.Background(), func(context.Context) error {
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding

	_, err := f.place.Execute(context.Background(), PlaceOrderRequest{UserID: customerID, Shipping: shipping, PaymentMethod: "COD"})
	close(release)
	require.NoError(t, <-done)

	var timeout *order.CheckoutTimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, "acquire", timeout.Phase)
	assert.ErrorIs(t, err, order.ErrCheckoutTimeout)
	assert.ErrorIs(t, err, mysql.ErrTxWaitTimeout)
	assert.True(t, apperrors.IsRetryable(err))
	assert.Equal(t, apperrors.ErrCodeCheckoutTimeout, apperrors.GetAppError(err).Code)

	assert.Equal(t, 5, f.stockOf(a.ID))
	assert.Equal(t, 1, f.cartLines(customerID))
}

func TestPlaceOrder_InvalidInput(t *testing.T) {
	f := newFixture(t)
	a := f.book("活着", 100, 5, nil)
	f.addToCart(customerID, a, 1)

	_, err := f.place.Execute(context.Background(), PlaceOrderRequest{UserID: customerID, Shipping: shipping, PaymentMethod: "BITCOIN"})
	assert.ErrorIs(t, err, order.ErrInvalidPaymentMethod)

	_, err = f.place.Execute(context.Background(), PlaceOrderRequest{
		UserID:        customerID,
		Shipping:      order.ShippingInfo{Name: "张三"},
		PaymentMethod: "COD",
	})
	assert.ErrorIs(t, err, order.ErrInvalidShipping)
	assert.Equal(t, 5, f.stockOf(a.ID))
	assert.Equal(t, 1, f.cartLines(customerID))
}

func TestCheckoutResult(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "success"},
		{cart.ErrEmptyCart, "empty_cart"},
		{&book.BookUnavailableError{BookID: 1}, "book_unavailable"},
		{&inventory.InsufficientStockError{BookID: 1}, "insufficient_stock"},
		{&order.CheckoutTimeoutError{Phase: "execute", Err: mysql.ErrTxTimeout}, "timeout"},
		{errors.New("boom"), "error"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, checkoutResult(tt.err))
	}
}
