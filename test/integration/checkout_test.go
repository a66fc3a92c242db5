//go:build integration

package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 库存错误码,与pkg/errors保持一致
const (
	codeInsufficientStock = 40001
	codeAlreadyCancelled  = 40014
)

// TestCheckoutSeriesDiscount 整套购买享受折扣
func TestCheckoutSeriesDiscount(t *testing.T) {
	seriesID := CreateTestSeries(t, fmt.Sprintf("集成套系-%d", time.Now().UnixNano()))
	a := PublishTestBook(t, "套系一", 100, 10, &seriesID)
	b := PublishTestBook(t, "套系二", 200, 10, &seriesID)
	c := PublishTestBook(t, "套系三", 300, 10, &seriesID)
	single := PublishTestBook(t, "单本", 50, 10, nil)

	token := Customer(t)
	for _, id := range []uint{a, b, c} {
		AddToCart(t, token, id, 1)
	}
	AddToCart(t, token, single, 2)

	resp := Checkout(t, token)
	require.Equal(t, 0, resp.Code, resp.Message)

	var o OrderData
	require.NoError(t, json.Unmarshal(resp.Data, &o))
	assert.Equal(t, int64(640), o.Total)
	assert.Equal(t, "PENDING", o.Status)
	assert.Equal(t, 9, StockOf(t, a, seriesID))
}

// TestConcurrentCheckoutNoOversell 并发抢购:库存N,成功数量之和不超过N
func TestConcurrentCheckoutNoOversell(t *testing.T) {
	const (
		stock   = 10
		buyers  = 30
		perUser = 1
	)
	seriesID := CreateTestSeries(t, fmt.Sprintf("抢购-%d", time.Now().UnixNano()))
	bookID := PublishTestBook(t, "抢购图书", 1000, stock, &seriesID)

	tokens := make([]string, buyers)
	for i := range tokens {
		tokens[i] = Customer(t)
		AddToCart(t, tokens[i], bookID, perUser)
	}

	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		success      int
		insufficient int
	)
	for _, token := range tokens {
		wg.Add(1)
		go func(token string) {
			defer wg.Done()
			resp := Checkout(t, token)

			mu.Lock()
			defer mu.Unlock()
			switch resp.Code {
			case 0:
				success++
			case codeInsufficientStock:
				insufficient++
			}
		}(token)
	}
	wg.Wait()

	assert.Equal(t, stock, success, "成功下单数应等于库存")
	assert.Equal(t, buyers-stock, insufficient)
	assert.Equal(t, 0, StockOf(t, bookID, seriesID))
}

// TestCancelRestoresStock 取消订单回补库存,重复取消被拒绝
func TestCancelRestoresStock(t *testing.T) {
	seriesID := CreateTestSeries(t, fmt.Sprintf("取消-%d", time.Now().UnixNano()))
	bookID := PublishTestBook(t, "取消图书", 500, 5, &seriesID)

	token := Customer(t)
	AddToCart(t, token, bookID, 2)
	resp := Checkout(t, token)
	require.Equal(t, 0, resp.Code, resp.Message)

	var o OrderData
	require.NoError(t, json.Unmarshal(resp.Data, &o))
	assert.Equal(t, 3, StockOf(t, bookID, seriesID))

	path := fmt.Sprintf("/orders/%d/cancel", o.ID)
	resp = Do(t, http.MethodPost, path, nil, token)
	require.Equal(t, 0, resp.Code, resp.Message)
	assert.Equal(t, 5, StockOf(t, bookID, seriesID))

	resp = Do(t, http.MethodPost, path, nil, token)
	assert.Equal(t, codeAlreadyCancelled, resp.Code)
	assert.Equal(t, 5, StockOf(t, bookID, seriesID))
}
