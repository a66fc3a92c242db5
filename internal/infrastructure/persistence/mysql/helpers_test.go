package mysql

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/xiebiao/storefront/internal/domain/book"
	"github.com/xiebiao/storefront/internal/testutil/dbtest"
)

func newTestDB(t *testing.T) *gorm.DB {
	return dbtest.Open(t, AutoMigrate)
}

func seedBook(t *testing.T, db *gorm.DB, isbn string, price int64, stock int, seriesID *uint) *book.Book {
	t.Helper()
	b, err := book.NewBook(isbn, "书-"+isbn, "作者", "出版社", price, stock, seriesID)
	require.NoError(t, err)
	require.NoError(t, NewBookRepository(db).Create(context.Background(), b))
	return b
}

func stockOf(t *testing.T, db *gorm.DB, id uint) int {
	t.Helper()
	var m BookModel
	require.NoError(t, db.Unscoped().First(&m, id).Error)
	return m.Stock
}
