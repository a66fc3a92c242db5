package order

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/storefront/internal/domain/order"
	apperrors "github.com/xiebiao/storefront/pkg/errors"
)

func TestQuery_GetUsesCache(t *testing.T) {
	f := newFixture(t)
	o, _, _ := twoLineOrder(t, f)
	ctx := context.Background()

	got, err := f.query.Get(ctx, customer, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.OrderNo, got.OrderNo)
	assert.Zero(t, f.cache.hits)

	_, err = f.query.Get(ctx, customer, o.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.cache.hits, "第二次命中缓存")

	// 状态变更后缓存失效,读到新状态
	f.advance(o.ID, order.StatusConfirmed)
	got, err = f.query.Get(ctx, customer, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusConfirmed, got.Status)
}

func TestQuery_Visibility(t *testing.T) {
	f := newFixture(t)
	o, _, _ := twoLineOrder(t, f)
	ctx := context.Background()

	_, err := f.query.Get(ctx, Actor{ID: 999, Role: RoleCustomer}, o.ID)
	assert.ErrorIs(t, err, order.ErrOrderNotFound, "看不到别人的订单")

	_, err = f.query.Get(ctx, staff, o.ID)
	require.NoError(t, err)

	require.NoError(t, f.query.Delete(ctx, staff, o.ID))
	_, err = f.query.Get(ctx, customer, o.ID)
	assert.ErrorIs(t, err, order.ErrOrderNotFound, "顾客看不到已删除的订单")

	got, err := f.query.Get(ctx, staff, o.ID)
	require.NoError(t, err)
	assert.True(t, got.Deleted)

	_, err = f.query.Get(ctx, staff, 404)
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

func TestQuery_List(t *testing.T) {
	f := newFixture(t)
	a := f.book("活着", 100, 10, nil)
	var placed []*order.Order
	for i := 0; i < 3; i++ {
		f.addToCart(customerID, a, 1)
		placed = append(placed, f.placeOrder(customerID))
	}
	f.addToCart(200, a, 1)
	f.placeOrder(200)

	result, err := f.query.List(context.Background(), customer, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.Total)
	require.Len(t, result.Orders, 2)
	assert.Equal(t, placed[2].ID, result.Orders[0].ID, "最新的在前")

	result, err = f.query.List(context.Background(), customer, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Page)
	assert.Equal(t, 20, result.PageSize)
	assert.Len(t, result.Orders, 3)
}

func TestQuery_DeleteStaffOnly(t *testing.T) {
	f := newFixture(t)
	o, _, _ := twoLineOrder(t, f)
	ctx := context.Background()

	err := f.query.Delete(ctx, customer, o.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	require.NoError(t, f.query.Delete(ctx, staff, o.ID))
	assert.Contains(t, f.cache.invalidated, o.ID)

	err = f.query.Delete(ctx, staff, o.ID)
	assert.ErrorIs(t, err, order.ErrOrderDeleted)
}
