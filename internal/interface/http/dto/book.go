package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xiebiao/storefront/internal/domain/book"
)

const timeLayout = "2006-01-02 15:04:05"

// PublishBookRequest 上架请求(店员)
type PublishBookRequest struct {
	ISBN        string `json:"isbn" binding:"required,max=20" example:"9787536692930"`
	Title       string `json:"title" binding:"required,max=200" example:"三体"`
	Author      string `json:"author" binding:"required,max=100" example:"刘慈欣"`
	Publisher   string `json:"publisher" binding:"max=100" example:"重庆出版社"`
	Price       int64  `json:"price" binding:"min=0,max=99999999" example:"2300"` // 价格(分)
	Stock       int    `json:"stock" binding:"min=0" example:"100"`
	SeriesID    *uint  `json:"series_id" example:"1"`
	CoverURL    string `json:"cover_url" binding:"omitempty,url,max=500" example:"https://example.com/cover.jpg"`
	Description string `json:"description" binding:"max=5000"`
}

// CreateSeriesRequest 创建套系
type CreateSeriesRequest struct {
	Name string `json:"name" binding:"required,max=200" example:"三体"`
}

// SeriesResponse 套系
type SeriesResponse struct {
	ID   uint   `json:"id" example:"1"`
	Name string `json:"name" example:"三体"`
}

// RestockRequest 补货
type RestockRequest struct {
	Quantity int    `json:"quantity" binding:"required,min=1,max=100000" example:"50"`
	Remark   string `json:"remark" binding:"max=200" example:"供应商补货"`
}

// RestockResponse 补货结果
type RestockResponse struct {
	BookID uint `json:"book_id" example:"1"`
	Stock  int  `json:"stock" example:"60"`
}

// BookResponse 图书详情
type BookResponse struct {
	ID          uint   `json:"id" example:"1"`
	ISBN        string `json:"isbn" example:"9787536692930"`
	Title       string `json:"title" example:"三体"`
	Author      string `json:"author" example:"刘慈欣"`
	Publisher   string `json:"publisher" example:"重庆出版社"`
	Price       int64  `json:"price" example:"2300"`       // 价格(分)
	PriceYuan   string `json:"price_yuan" example:"23.00"` // 价格(元),方便前端显示
	Stock       int    `json:"stock" example:"100"`
	SeriesID    *uint  `json:"series_id,omitempty" example:"1"`
	CoverURL    string `json:"cover_url,omitempty"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at" example:"2026-01-15 10:30:00"`
}

// NewBookResponse 实体转响应
func NewBookResponse(b *book.Book) *BookResponse {
	return &BookResponse{
		ID:          b.ID,
		ISBN:        b.ISBN,
		Title:       b.Title,
		Author:      b.Author,
		Publisher:   b.Publisher,
		Price:       b.Price,
		PriceYuan:   FormatPriceYuan(b.Price),
		Stock:       b.Stock,
		SeriesID:    b.SeriesID,
		CoverURL:    b.CoverURL,
		Description: b.Description,
		CreatedAt:   formatTime(b.CreatedAt),
	}
}

// ListBooksRequest 图书列表查询参数
type ListBooksRequest struct {
	Page     int    `form:"page" binding:"omitempty,min=1" example:"1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100" example:"20"`
	Keyword  string `form:"keyword" binding:"omitempty,max=100" example:"三体"`
	SeriesID *uint  `form:"series_id" example:"1"`
	SortBy   string `form:"sort_by" binding:"omitempty,oneof=price_asc price_desc created_at_desc" example:"created_at_desc"`
}

// BookListItem 列表项(不含描述)
type BookListItem struct {
	ID        uint   `json:"id" example:"1"`
	ISBN      string `json:"isbn" example:"9787536692930"`
	Title     string `json:"title" example:"三体"`
	Author    string `json:"author" example:"刘慈欣"`
	Price     int64  `json:"price" example:"2300"`
	PriceYuan string `json:"price_yuan" example:"23.00"`
	Stock     int    `json:"stock" example:"100"`
	SeriesID  *uint  `json:"series_id,omitempty" example:"1"`
	CoverURL  string `json:"cover_url,omitempty"`
}

// NewBookListItem 实体转列表项
func NewBookListItem(b *book.Book) BookListItem {
	return BookListItem{
		ID:        b.ID,
		ISBN:      b.ISBN,
		Title:     b.Title,
		Author:    b.Author,
		Price:     b.Price,
		PriceYuan: FormatPriceYuan(b.Price),
		Stock:     b.Stock,
		SeriesID:  b.SeriesID,
		CoverURL:  b.CoverURL,
	}
}

// FormatPriceYuan 分转元,例如 5900 → "59.00"
func FormatPriceYuan(fen int64) string {
	return decimal.New(fen, -2).StringFixed(2)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timeLayout)
}
