package cart

import (
	"time"
)

// Cart 购物车(每个用户一个,首次访问时创建)
// 下单成功后只清空明细,购物车记录本身保留
type Cart struct {
	ID        uint
	UserID    uint
	Lines     []Line
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Line 购物车明细,同一购物车内BookID唯一
type Line struct {
	ID        uint
	CartID    uint
	BookID    uint
	Quantity  int // >=1
	CreatedAt time.Time
}

// IsEmpty 购物车是否为空
func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Lines) == 0
}

// BookIDs 购物车内的图书ID(按明细顺序)
func (c *Cart) BookIDs() []uint {
	ids := make([]uint, 0, len(c.Lines))
	for _, l := range c.Lines {
		ids = append(ids, l.BookID)
	}
	return ids
}

// Line 查找某本书的明细
func (c *Cart) Line(bookID uint) (Line, bool) {
	for _, l := range c.Lines {
		if l.BookID == bookID {
			return l, true
		}
	}
	return Line{}, false
}

// ValidateQuantity 数量必须>=1
func ValidateQuantity(quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	return nil
}
