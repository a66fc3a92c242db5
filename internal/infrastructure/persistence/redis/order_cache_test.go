package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/storefront/internal/domain/order"
)

func TestOrderCache_GetSetInvalidate(t *testing.T) {
	ctx := context.Background()
	client, mr := newTestClient(t)
	cache := NewOrderCache(client, time.Minute)

	got, err := cache.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got, "未命中返回nil")

	o := &order.Order{
		ID:               1,
		OrderNo:          "20260101120000000123456",
		UserID:           7,
		Total:            580,
		AppliedSeriesIDs: []uint{3},
		Status:           order.StatusShipped,
		Shipping:         order.ShippingInfo{Name: "张三", Phone: "13800000000", Address: "北京"},
		Lines:            []order.Line{{BookID: 1, Quantity: 2, UnitPrice: 100, Subtotal: 200, Total: 180, Discount: 20}},
	}
	require.NoError(t, cache.Set(ctx, o))
	assert.Equal(t, time.Minute, mr.TTL("order:detail:1"))

	got, err = cache.Get(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, o.OrderNo, got.OrderNo)
	assert.Equal(t, order.StatusShipped, got.Status)
	assert.Equal(t, []uint{3}, got.AppliedSeriesIDs)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, int64(180), got.Lines[0].Total)

	require.NoError(t, cache.Invalidate(ctx, 1))
	got, err = cache.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestOrderCache_CorruptedEntry(t *testing.T) {
	ctx := context.Background()
	client, mr := newTestClient(t)
	cache := NewOrderCache(client, time.Minute)

	require.NoError(t, mr.Set("order:detail:2", "{not json"))
	got, err := cache.Get(ctx, 2)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.False(t, mr.Exists("order:detail:2"))
}

func TestOrderCache_ZeroTTLSkipsWrite(t *testing.T) {
	ctx := context.Background()
	client, mr := newTestClient(t)
	cache := NewOrderCache(client, 0)

	require.NoError(t, cache.Set(ctx, &order.Order{ID: 3}))
	assert.False(t, mr.Exists("order:detail:3"))
}
