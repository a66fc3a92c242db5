package book

import (
	"time"
)

// Book 图书实体(聚合根)
// 设计说明:
// 1. 价格使用int64存储"分"为单位(避免浮点数精度问题)
// 2. Stock只能通过库存控制器(inventory)修改,实体上不提供扣减方法
// 3. 一本书最多属于一个套系(SeriesID为nil表示不属于任何套系)
// 4. Deleted来自软删除标记,下单时需要识别已删除的图书,所以仓储查询会带上已删除的行
type Book struct {
	ID          uint
	ISBN        string
	Title       string
	Author      string
	Publisher   string
	Price       int64 // 单价(分)
	Stock       int   // 库存,永远>=0
	SeriesID    *uint // 所属套系
	Active      bool  // 是否上架
	Deleted     bool  // 是否已软删除
	CoverURL    string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewBook 创建新图书(工厂方法),新书默认上架
func NewBook(isbn, title, author, publisher string, price int64, stock int, seriesID *uint) (*Book, error) {
	if price < 0 {
		return nil, ErrInvalidPrice
	}
	if stock < 0 {
		return nil, ErrInvalidStock
	}

	now := time.Now()
	return &Book{
		ISBN:      isbn,
		Title:     title,
		Author:    author,
		Publisher: publisher,
		Price:     price,
		Stock:     stock,
		SeriesID:  seriesID,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Available 是否可以加入购物车/下单(存在、上架、未删除)
func (b *Book) Available() bool {
	return b != nil && b.Active && !b.Deleted
}

// InSeries 是否属于某个套系
func (b *Book) InSeries() bool {
	return b.SeriesID != nil
}

// Series 套系(如"三体"全集)
// 购物车里包含套系的全部在售图书时,这些图书享受套系折扣
type Series struct {
	ID        uint
	Name      string
	CreatedAt time.Time
}
