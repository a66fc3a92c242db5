package mysql

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/storefront/internal/domain/cart"
)

func TestCartRepository(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewCartRepository(db)

	c, err := repo.GetCartWithLines(ctx, 7)
	require.NoError(t, err)
	assert.NotZero(t, c.ID)
	assert.True(t, c.IsEmpty())

	again, err := repo.GetCartWithLines(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, c.ID, again.ID, "同一用户只有一个购物车")

	require.NoError(t, repo.AddLine(ctx, c.ID, 10, 1))
	require.NoError(t, repo.AddLine(ctx, c.ID, 11, 2))
	require.NoError(t, repo.AddLine(ctx, c.ID, 10, 2))

	c, err = repo.GetCartWithLines(ctx, 7)
	require.NoError(t, err)
	require.Len(t, c.Lines, 2)
	assert.Equal(t, []uint{10, 11}, c.BookIDs())
	line, _ := c.Line(10)
	assert.Equal(t, 3, line.Quantity, "重复加入时数量累加")

	require.NoError(t, repo.SetQuantity(ctx, c.ID, 11, 5))
	assert.ErrorIs(t, repo.SetQuantity(ctx, c.ID, 99, 1), cart.ErrLineNotFound)

	require.NoError(t, repo.RemoveLine(ctx, c.ID, 10))
	assert.ErrorIs(t, repo.RemoveLine(ctx, c.ID, 10), cart.ErrLineNotFound)

	c, err = repo.GetCartWithLines(ctx, 7)
	require.NoError(t, err)
	require.Len(t, c.Lines, 1)
	assert.Equal(t, 5, c.Lines[0].Quantity)

	require.NoError(t, repo.ClearCartLines(ctx, c.ID))
	c, err = repo.GetCartWithLines(ctx, 7)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
	assert.Equal(t, again.ID, c.ID, "清空后购物车记录保留")
}
