package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appbook "github.com/xiebiao/storefront/internal/application/book"
	appcart "github.com/xiebiao/storefront/internal/application/cart"
	apporder "github.com/xiebiao/storefront/internal/application/order"
	"github.com/xiebiao/storefront/internal/domain/inventory"
	"github.com/xiebiao/storefront/internal/domain/pricing"
	"github.com/xiebiao/storefront/internal/infrastructure/messaging"
	"github.com/xiebiao/storefront/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/storefront/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/storefront/internal/interface/http/handler"
	"github.com/xiebiao/storefront/internal/interface/http/middleware"
	"github.com/xiebiao/storefront/internal/testutil/dbtest"
	apperrors "github.com/xiebiao/storefront/pkg/errors"
	"github.com/xiebiao/storefront/pkg/jwt"
	"github.com/xiebiao/storefront/pkg/logger"
	"github.com/xiebiao/storefront/pkg/metrics"
)

type envelope struct {
	Code      int             `json:"code"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	Retryable bool            `json:"retryable"`
}

type server struct {
	t      *testing.T
	engine *gin.Engine
	jwt    *jwt.Manager
	staff  string
	alice  string
	bob    string
}

func newServer(t *testing.T) *server {
	t.Helper()
	metrics.InitMetrics()

	db := dbtest.Open(t, mysql.AutoMigrate)
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	log := logger.Discard()
	txManager := mysql.NewTxManager(db, mysql.TxOptions{MaxWait: 5 * time.Second, Timeout: 10 * time.Second})
	bookRepo := mysql.NewBookRepository(db)
	cartRepo := mysql.NewCartRepository(db)
	orderRepo := mysql.NewOrderRepository(db)
	inv := inventory.NewController(mysql.NewStockStore(db), mysql.NewInventoryLogRepository(db))
	engine := pricing.NewDefaultEngine()
	cache := redis.NewOrderCache(rdb, time.Minute)
	blacklist := redis.NewTokenBlacklist(rdb)
	publisher := messaging.NoopPublisher{}

	handlers := Handlers{
		Auth: handler.NewAuthHandler(blacklist),
		Book: handler.NewBookHandler(
			appbook.NewListBooksUseCase(bookRepo, inv),
			appbook.NewPublishBookUseCase(bookRepo, nil, log),
			appbook.NewRestockUseCase(txManager, inv, log),
		),
		Cart: handler.NewCartHandler(appcart.NewService(cartRepo, bookRepo, inv, engine)),
		Order: handler.NewOrderHandler(
			apporder.NewPlaceOrderUseCase(txManager, cartRepo, bookRepo, orderRepo, inv, engine, publisher, log),
			apporder.NewSetStatusUseCase(txManager, orderRepo, inv, cache, publisher, log),
			apporder.NewQueryUseCase(orderRepo, cache, log),
		),
	}

	manager := jwt.NewManager("router-test-secret", time.Hour)
	s := &server{
		t:      t,
		engine: New(Options{Mode: gin.TestMode}, handlers, middleware.NewAuthMiddleware(manager, blacklist), log),
		jwt:    manager,
	}
	s.staff = s.token(1, apporder.RoleStaff)
	s.alice = s.token(100, apporder.RoleCustomer)
	s.bob = s.token(200, apporder.RoleCustomer)
	return s
}

func (s *server) token(userID uint, role string) string {
	s.t.Helper()
	token, _, err := s.jwt.GenerateToken(userID, role)
	require.NoError(s.t, err)
	return token
}

func (s *server) do(method, path, token string, body interface{}) envelope {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())

	var env envelope
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

// ok 断言成功并把data解到out
func (s *server) ok(env envelope, out interface{}) {
	s.t.Helper()
	require.Equal(s.t, 0, env.Code, env.Message)
	if out != nil {
		require.NoError(s.t, json.Unmarshal(env.Data, out))
	}
}

func (s *server) publish(title string, price int64, stock int, seriesID *uint) uint {
	s.t.Helper()
	var b struct {
		ID uint `json:"id"`
	}
	s.ok(s.do(http.MethodPost, "/api/v1/admin/books", s.staff, map[string]interface{}{
		"isbn":      "isbn-" + title,
		"title":     title,
		"author":    "作者",
		"price":     price,
		"stock":     stock,
		"series_id": seriesID,
	}), &b)
	return b.ID
}

func (s *server) stock(bookID uint) int {
	s.t.Helper()
	var page struct {
		List []struct {
			ID    uint `json:"id"`
			Stock int  `json:"stock"`
		} `json:"list"`
	}
	s.ok(s.do(http.MethodGet, "/api/v1/books?page_size=100", "", nil), &page)
	for _, b := range page.List {
		if b.ID == bookID {
			return b.Stock
		}
	}
	s.t.Fatalf("book %d not listed", bookID)
	return 0
}

var checkout = map[string]string{
	"shipping_name":    "张三",
	"shipping_phone":   "13800000000",
	"shipping_address": "北京市海淀区",
	"payment_method":   "COD",
}

type orderView struct {
	ID           uint     `json:"id"`
	Status       string   `json:"status"`
	Subtotal     int64    `json:"subtotal"`
	Discount     int64    `json:"discount"`
	Total        int64    `json:"total"`
	TotalYuan    string   `json:"total_yuan"`
	NextStatuses []string `json:"next_statuses"`
}

func TestPing(t *testing.T) {
	s := newServer(t)
	s.ok(s.do(http.MethodGet, "/ping", "", nil), nil)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newServer(t)
	s.do(http.MethodGet, "/ping", "", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestAuthRequired(t *testing.T) {
	s := newServer(t)

	env := s.do(http.MethodGet, "/api/v1/cart", "", nil)
	assert.Equal(t, apperrors.ErrCodeUnauthorized, env.Code)

	env = s.do(http.MethodGet, "/api/v1/cart", "not-a-jwt", nil)
	assert.Equal(t, apperrors.ErrCodeInvalidToken, env.Code)
}

func TestAdminRoutesRequireStaff(t *testing.T) {
	s := newServer(t)
	env := s.do(http.MethodPost, "/api/v1/admin/series", s.alice, map[string]string{"name": "三体"})
	assert.Equal(t, apperrors.ErrCodeForbidden, env.Code)
}

func TestLogoutRevokesToken(t *testing.T) {
	s := newServer(t)

	var me struct {
		UserID uint   `json:"user_id"`
		Role   string `json:"role"`
	}
	s.ok(s.do(http.MethodGet, "/api/v1/auth/me", s.alice, nil), &me)
	assert.Equal(t, uint(100), me.UserID)
	assert.Equal(t, apporder.RoleCustomer, me.Role)

	s.ok(s.do(http.MethodPost, "/api/v1/auth/logout", s.alice, nil), nil)

	env := s.do(http.MethodGet, "/api/v1/auth/me", s.alice, nil)
	assert.Equal(t, apperrors.ErrCodeTokenExpired, env.Code)
}

func TestCheckoutAndCancelFlow(t *testing.T) {
	s := newServer(t)

	var series struct {
		ID uint `json:"id"`
	}
	s.ok(s.do(http.MethodPost, "/api/v1/admin/series", s.staff, map[string]string{"name": "套系"}), &series)
	a := s.publish("A", 100, 10, &series.ID)
	b := s.publish("B", 200, 10, &series.ID)
	c := s.publish("C", 300, 10, &series.ID)
	d := s.publish("D", 50, 10, nil)

	for _, id := range []uint{a, b, c} {
		s.ok(s.do(http.MethodPost, "/api/v1/cart/items", s.alice, map[string]interface{}{"book_id": id, "quantity": 1}), nil)
	}
	var cart struct {
		GrandTotal int64 `json:"grand_total"`
		Discount   int64 `json:"discount"`
	}
	s.ok(s.do(http.MethodPost, "/api/v1/cart/items", s.alice, map[string]interface{}{"book_id": d, "quantity": 2}), &cart)
	assert.Equal(t, int64(640), cart.GrandTotal)
	assert.Equal(t, int64(60), cart.Discount)

	var placed orderView
	s.ok(s.do(http.MethodPost, "/api/v1/orders", s.alice, checkout), &placed)
	assert.Equal(t, "PENDING", placed.Status)
	assert.Equal(t, int64(640), placed.Total)
	assert.Equal(t, "6.40", placed.TotalYuan)
	assert.Equal(t, 8, s.stock(d))

	// 购物车已清空
	env := s.do(http.MethodPost, "/api/v1/orders", s.alice, checkout)
	assert.Equal(t, apperrors.ErrCodeEmptyCart, env.Code)

	// 别人看不到
	env = s.do(http.MethodGet, "/api/v1/orders/"+itoa(placed.ID), s.bob, nil)
	assert.Equal(t, apperrors.ErrCodeOrderNotFound, env.Code)

	var page struct {
		Total int64       `json:"total"`
		List  []orderView `json:"list"`
	}
	s.ok(s.do(http.MethodGet, "/api/v1/orders", s.alice, nil), &page)
	assert.Equal(t, int64(1), page.Total)

	var confirmed orderView
	s.ok(s.do(http.MethodPut, "/api/v1/admin/orders/"+itoa(placed.ID)+"/status", s.staff,
		map[string]string{"status": "CONFIRMED"}), &confirmed)
	assert.Equal(t, "CONFIRMED", confirmed.Status)

	var cancelled orderView
	s.ok(s.do(http.MethodPost, "/api/v1/orders/"+itoa(placed.ID)+"/cancel", s.alice, nil), &cancelled)
	assert.Equal(t, "CANCELLED", cancelled.Status)
	assert.Empty(t, cancelled.NextStatuses)
	assert.Equal(t, 10, s.stock(a))
	assert.Equal(t, 10, s.stock(d))

	env = s.do(http.MethodPost, "/api/v1/orders/"+itoa(placed.ID)+"/cancel", s.alice, nil)
	assert.Equal(t, apperrors.ErrCodeAlreadyCancelled, env.Code)
}

func TestInsufficientStockDetails(t *testing.T) {
	s := newServer(t)
	id := s.publish("稀缺", 1000, 1, nil)

	s.ok(s.do(http.MethodPost, "/api/v1/cart/items", s.alice, map[string]interface{}{"book_id": id, "quantity": 1}), nil)
	s.ok(s.do(http.MethodPost, "/api/v1/cart/items", s.bob, map[string]interface{}{"book_id": id, "quantity": 1}), nil)
	s.ok(s.do(http.MethodPost, "/api/v1/orders", s.alice, checkout), nil)

	env := s.do(http.MethodPost, "/api/v1/orders", s.bob, checkout)
	require.Equal(t, apperrors.ErrCodeInsufficientStock, env.Code)
	assert.False(t, env.Retryable)

	var details map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &details))
	assert.EqualValues(t, id, details["book_id"])
	assert.EqualValues(t, 0, details["available"])
}

func TestSetStatusValidation(t *testing.T) {
	s := newServer(t)
	id := s.publish("书", 100, 5, nil)
	s.ok(s.do(http.MethodPost, "/api/v1/cart/items", s.alice, map[string]interface{}{"book_id": id, "quantity": 1}), nil)
	var placed orderView
	s.ok(s.do(http.MethodPost, "/api/v1/orders", s.alice, checkout), &placed)
	path := "/api/v1/admin/orders/" + itoa(placed.ID) + "/status"

	env := s.do(http.MethodPut, path, s.staff, map[string]string{"status": "LOST"})
	assert.Equal(t, apperrors.ErrCodeInvalidOrderStatus, env.Code)

	s.ok(s.do(http.MethodPut, path, s.staff, map[string]string{"status": "SHIPPED"}), nil)
	env = s.do(http.MethodPut, path, s.staff, map[string]string{"status": "CONFIRMED"})
	assert.Equal(t, apperrors.ErrCodeBackwardTransition, env.Code)

	env = s.do(http.MethodPut, "/api/v1/admin/orders/abc/status", s.staff, map[string]string{"status": "SHIPPED"})
	assert.Equal(t, apperrors.ErrCodeInvalidParams, env.Code)
}

func TestRestockAndDelete(t *testing.T) {
	s := newServer(t)
	id := s.publish("补货书", 100, 1, nil)

	var restocked struct {
		Stock int `json:"stock"`
	}
	s.ok(s.do(http.MethodPost, "/api/v1/admin/books/"+itoa(id)+"/restock", s.staff,
		map[string]interface{}{"quantity": 4, "remark": "到货"}), &restocked)
	assert.Equal(t, 5, restocked.Stock)

	s.ok(s.do(http.MethodPost, "/api/v1/cart/items", s.alice, map[string]interface{}{"book_id": id, "quantity": 1}), nil)
	var placed orderView
	s.ok(s.do(http.MethodPost, "/api/v1/orders", s.alice, checkout), &placed)

	s.ok(s.do(http.MethodDelete, "/api/v1/admin/orders/"+itoa(placed.ID), s.staff, nil), nil)
	env := s.do(http.MethodGet, "/api/v1/orders/"+itoa(placed.ID), s.alice, nil)
	assert.Equal(t, apperrors.ErrCodeOrderNotFound, env.Code)

	env = s.do(http.MethodDelete, "/api/v1/admin/orders/"+itoa(placed.ID), s.staff, nil)
	assert.Equal(t, apperrors.ErrCodeOrderDeleted, env.Code)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
