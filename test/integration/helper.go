//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xiebiao/storefront/pkg/jwt"
)

// 集成测试需要先启动服务(go run ./cmd/api),并与服务使用同一个JWT密钥
//
//	STOREFRONT_BASE_URL=http://localhost:8080/api/v1 \
//	STOREFRONT_JWT_SECRET=your-secret-key-change-in-production \
//	go test -tags integration ./test/integration/...

const timeout = 10 * time.Second

var (
	baseURL = envOr("STOREFRONT_BASE_URL", "http://localhost:8080/api/v1")
	tokens  = jwt.NewManager(envOr("STOREFRONT_JWT_SECRET", "your-secret-key-change-in-production"), time.Hour)

	// 每次运行使用不同的用户ID,避免购物车和订单互相干扰
	nextUserID = uint32(time.Now().Unix()%1_000_000) * 1000
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Response 统一响应结构
type Response struct {
	Code      int             `json:"code"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	Retryable bool            `json:"retryable"`
}

// OrderData 订单响应数据
type OrderData struct {
	ID        uint   `json:"id"`
	OrderNo   string `json:"order_no"`
	Status    string `json:"status"`
	Total     int64  `json:"total"`
	TotalYuan string `json:"total_yuan"`
}

// Customer 生成一个新顾客的令牌
func Customer(t *testing.T) string {
	t.Helper()
	id := atomic.AddUint32(&nextUserID, 1)
	token, _, err := tokens.GenerateToken(uint(id), "customer")
	require.NoError(t, err)
	return token
}

// Staff 店员令牌
func Staff(t *testing.T) string {
	t.Helper()
	token, _, err := tokens.GenerateToken(1, "staff")
	require.NoError(t, err)
	return token
}

// Do 发送请求并解析JSON响应
func Do(t *testing.T, method, path string, data interface{}, token string) *Response {
	t.Helper()
	var body io.Reader
	if data != nil {
		raw, err := json.Marshal(data)
		require.NoError(t, err, "JSON序列化失败")
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, baseURL+path, body)
	require.NoError(t, err, "创建HTTP请求失败")
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	require.NoError(t, err, "发送HTTP请求失败")
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "读取响应体失败")

	var result Response
	require.NoError(t, json.Unmarshal(raw, &result), "解析JSON响应失败: %s", string(raw))
	return &result
}

// PublishTestBook 上架测试图书并返回图书ID
func PublishTestBook(t *testing.T, title string, price int64, stock int, seriesID *uint) uint {
	t.Helper()
	resp := Do(t, http.MethodPost, "/admin/books", map[string]interface{}{
		"isbn":      fmt.Sprintf("978%010d", time.Now().UnixNano()%10000000000),
		"title":     title,
		"author":    "测试作者",
		"price":     price,
		"stock":     stock,
		"series_id": seriesID,
	}, Staff(t))
	require.Equal(t, 0, resp.Code, "图书上架失败: %s", resp.Message)

	var b struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &b))
	return b.ID
}

// CreateTestSeries 创建套系
func CreateTestSeries(t *testing.T, name string) uint {
	t.Helper()
	resp := Do(t, http.MethodPost, "/admin/series", map[string]string{"name": name}, Staff(t))
	require.Equal(t, 0, resp.Code, "创建套系失败: %s", resp.Message)

	var s struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &s))
	return s.ID
}

// AddToCart 加入购物车
func AddToCart(t *testing.T, token string, bookID uint, qty int) {
	t.Helper()
	resp := Do(t, http.MethodPost, "/cart/items", map[string]interface{}{"book_id": bookID, "quantity": qty}, token)
	require.Equal(t, 0, resp.Code, "加入购物车失败: %s", resp.Message)
}

// Checkout 结算下单,返回原始响应由调用方判断
func Checkout(t *testing.T, token string) *Response {
	t.Helper()
	return Do(t, http.MethodPost, "/orders", map[string]string{
		"shipping_name":    "集成测试",
		"shipping_phone":   "13800000000",
		"shipping_address": "测试地址",
		"payment_method":   "COD",
	}, token)
}

// StockOf 从图书列表读取实时库存
func StockOf(t *testing.T, bookID uint, seriesID uint) int {
	t.Helper()
	resp := Do(t, http.MethodGet, "/books?page_size=100&series_id="+strconv.FormatUint(uint64(seriesID), 10), nil, "")
	require.Equal(t, 0, resp.Code, resp.Message)

	var page struct {
		List []struct {
			ID    uint `json:"id"`
			Stock int  `json:"stock"`
		} `json:"list"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &page))
	for _, b := range page.List {
		if b.ID == bookID {
			return b.Stock
		}
	}
	t.Fatalf("图书%d不在列表中", bookID)
	return 0
}
