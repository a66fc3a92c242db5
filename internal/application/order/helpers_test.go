package order

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/xiebiao/storefront/internal/domain/book"
	"github.com/xiebiao/storefront/internal/domain/cart"
	"github.com/xiebiao/storefront/internal/domain/inventory"
	"github.com/xiebiao/storefront/internal/domain/order"
	"github.com/xiebiao/storefront/internal/domain/pricing"
	"github.com/xiebiao/storefront/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/storefront/internal/testutil/dbtest"
	"github.com/xiebiao/storefront/pkg/logger"
)

const (
	customerID = uint(100)
	staffID    = uint(1)
)

var (
	customer = Actor{ID: customerID, Role: RoleCustomer}
	staff    = Actor{ID: staffID, Role: RoleStaff}
	shipping = order.ShippingInfo{Name: "张三", Phone: "13800000000", Address: "北京市海淀区"}
)

// fixture 使用真实的GORM仓储和SQLite
type fixture struct {
	t         *testing.T
	db        *gorm.DB
	tx        *mysql.TxManager
	books     book.Repository
	carts     cart.Repository
	orders    order.Repository
	inventory *inventory.Controller
	publisher *recordingPublisher
	cache     *memCache

	place  *PlaceOrderUseCase
	status *SetStatusUseCase
	query  *QueryUseCase
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	orders func(order.Repository) order.Repository
	store  func(*gorm.DB) inventory.StockStore
	tx     mysql.TxOptions
}

func withOrderRepo(wrap func(order.Repository) order.Repository) fixtureOption {
	return func(c *fixtureConfig) { c.orders = wrap }
}

func withStockStore(fn func(*gorm.DB) inventory.StockStore) fixtureOption {
	return func(c *fixtureConfig) { c.store = fn }
}

func withTxOptions(opts mysql.TxOptions) fixtureOption {
	return func(c *fixtureConfig) { c.tx = opts }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	cfg := fixtureConfig{
		orders: func(r order.Repository) order.Repository { return r },
		store:  mysql.NewStockStore,
		tx:     mysql.TxOptions{MaxWait: 5 * time.Second, Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	db := dbtest.Open(t, mysql.AutoMigrate)
	log := logger.Discard()

	f := &fixture{
		t:         t,
		db:        db,
		tx:        mysql.NewTxManager(db, cfg.tx),
		books:     mysql.NewBookRepository(db),
		carts:     mysql.NewCartRepository(db),
		orders:    cfg.orders(mysql.NewOrderRepository(db)),
		publisher: &recordingPublisher{},
		cache:     newMemCache(),
	}
	f.inventory = inventory.NewController(cfg.store(db), mysql.NewInventoryLogRepository(db))
	f.place = NewPlaceOrderUseCase(f.tx, f.carts, f.books, f.orders, f.inventory, pricing.NewDefaultEngine(), f.publisher, log)
	f.status = NewSetStatusUseCase(f.tx, f.orders, f.inventory, f.cache, f.publisher, log)
	f.query = NewQueryUseCase(f.orders, f.cache, log)
	return f
}

func (f *fixture) series(name string) uint {
	f.t.Helper()
	s := &book.Series{Name: name}
	require.NoError(f.t, f.books.CreateSeries(context.Background(), s))
	return s.ID
}

func (f *fixture) book(title string, price int64, stock int, seriesID *uint) *book.Book {
	f.t.Helper()
	b, err := book.NewBook("isbn-"+title, title, "作者", "出版社", price, stock, seriesID)
	require.NoError(f.t, err)
	require.NoError(f.t, f.books.Create(context.Background(), b))
	return b
}

func (f *fixture) addToCart(userID uint, b *book.Book, qty int) {
	f.t.Helper()
	ctx := context.Background()
	c, err := f.carts.GetCartWithLines(ctx, userID)
	require.NoError(f.t, err)
	require.NoError(f.t, f.carts.AddLine(ctx, c.ID, b.ID, qty))
}

func (f *fixture) cartLines(userID uint) int {
	f.t.Helper()
	c, err := f.carts.GetCartWithLines(context.Background(), userID)
	require.NoError(f.t, err)
	return len(c.Lines)
}

func (f *fixture) stockOf(id uint) int {
	f.t.Helper()
	var m mysql.BookModel
	require.NoError(f.t, f.db.Unscoped().First(&m, id).Error)
	return m.Stock
}

func (f *fixture) orderCount() int64 {
	f.t.Helper()
	var n int64
	require.NoError(f.t, f.db.Unscoped().Model(&mysql.OrderModel{}).Count(&n).Error)
	return n
}

// placeOrder 下单(收货信息带电话)
func (f *fixture) placeOrder(userID uint) *order.Order {
	f.t.Helper()
	o, err := f.place.Execute(context.Background(), PlaceOrderRequest{
		UserID:        userID,
		Shipping:      shipping,
		PaymentMethod: "COD",
	})
	require.NoError(f.t, err)
	return o
}

// advance 店员把订单依次推进到目标状态
func (f *fixture) advance(orderID uint, statuses ...order.Status) {
	f.t.Helper()
	for _, s := range statuses {
		_, err := f.status.Execute(context.Background(), SetStatusRequest{Actor: staff, OrderID: orderID, Status: s})
		require.NoError(f.t, err)
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []order.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e order.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, len(p.events))
	for i, e := range p.events {
		types[i] = e.Type
	}
	return types
}

type memCache struct {
	mu          sync.Mutex
	orders      map[uint]order.Order
	hits        int
	invalidated []uint
}

func newMemCache() *memCache {
	return &memCache{orders: make(map[uint]order.Order)}
}

func (c *memCache) Get(_ context.Context, id uint) (*order.Order, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	o, ok := c.orders[id]
	if !ok {
		return nil, nil
	}
	c.hits++
	return &o, nil
}

func (c *memCache) Set(_ context.Context, o *order.Order) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orders[o.ID] = *o
	return nil
}

func (c *memCache) Invalidate(_ context.Context, id uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.orders, id)
	c.invalidated = append(c.invalidated, id)
	return nil
}

// failingOrderRepo 创建订单时失败,用来验证下单的原子性
type failingOrderRepo struct {
	order.Repository
}

var errCreateFailed = errors.New("insert orders: connection lost")

func (r failingOrderRepo) Create(context.Context, *order.Order) error {
	return errCreateFailed
}

// slowOrderRepo 创建订单一直等到事务超时
type slowOrderRepo struct {
	order.Repository
}

func (r slowOrderRepo) Create(ctx context.Context, _ *order.Order) error {
	<-ctx.Done()
	return ctx.Err()
}

// racingStockStore 第一次条件扣减前,另一笔订单先拿走全部剩余库存
// 抢库存的写入与下单在同一事务里,下单失败回滚后库存恢复原值
type racingStockStore struct {
	inventory.StockStore
	once sync.Once
}

func (s *racingStockStore) ConditionalDecrementStock(ctx context.Context, bookID uint, qty int) (bool, error) {
	var err error
	s.once.Do(func() {
		var n int
		if n, err = s.StockStore.CurrentStock(ctx, bookID); err != nil || n == 0 {
			return
		}
		_, err = s.StockStore.ConditionalDecrementStock(ctx, bookID, n)
	})
	if err != nil {
		return false, err
	}
	return s.StockStore.ConditionalDecrementStock(ctx, bookID, qty)
}
