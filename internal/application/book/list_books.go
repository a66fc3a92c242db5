package book

import (
	"context"

	"github.com/xiebiao/storefront/internal/domain/book"
)

// ListBooksUseCase 在售图书列表
// 列表只返回上架且未删除的图书,库存取库存后端的实时值
type ListBooksUseCase struct {
	bookRepo book.Repository
	stock    StockReader
}

// StockReader 批量读取库存(inventory.Controller实现)
type StockReader interface {
	Available(ctx context.Context, bookIDs []uint) (map[uint]int, error)
}

// NewListBooksUseCase 创建列表查询用例
func NewListBooksUseCase(bookRepo book.Repository, stock StockReader) *ListBooksUseCase {
	return &ListBooksUseCase{
		bookRepo: bookRepo,
		stock:    stock,
	}
}

// ListBooksRequest 列表查询请求
type ListBooksRequest struct {
	Page     int
	PageSize int
	Keyword  string // 搜索标题、作者、出版社
	SeriesID *uint
	SortBy   string // price_asc, price_desc, created_at_desc
}

// ListBooksResult 列表查询结果
type ListBooksResult struct {
	Books    []*book.Book
	Total    int64
	Page     int
	PageSize int
}

// Execute 执行列表查询
func (uc *ListBooksUseCase) Execute(ctx context.Context, req ListBooksRequest) (*ListBooksResult, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 {
		req.PageSize = 20
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	books, total, err := uc.bookRepo.List(ctx, book.ListParams{
		Page:     req.Page,
		PageSize: req.PageSize,
		Keyword:  req.Keyword,
		SeriesID: req.SeriesID,
		SortBy:   req.SortBy,
	})
	if err != nil {
		return nil, err
	}

	// Redis库存后端下books.stock不是实时值
	if uc.stock != nil && len(books) > 0 {
		ids := make([]uint, len(books))
		for i, b := range books {
			ids[i] = b.ID
		}
		stock, err := uc.stock.Available(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, b := range books {
			if n, ok := stock[b.ID]; ok {
				b.Stock = n
			}
		}
	}

	return &ListBooksResult{
		Books:    books,
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
	}, nil
}
