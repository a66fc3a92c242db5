package inventory

import (
	"fmt"

	apperrors "github.com/xiebiao/storefront/pkg/errors"
)

var (
	// ErrInsufficientStock 库存不足
	ErrInsufficientStock = apperrors.New(apperrors.ErrCodeInsufficientStock, "库存不足")

	// ErrInvalidQuantity 数量必须大于0
	ErrInvalidQuantity = apperrors.New(apperrors.ErrCodeInvalidParams, "数量必须大于0")
)

// InsufficientStockError 库存不足,带上图书和剩余库存,调用方无需再查库即可提示用户
type InsufficientStockError struct {
	BookID    uint
	Title     string // 由下单流程补充
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	if e.Title != "" {
		return fmt.Sprintf("《%s》库存不足: 需要%d,剩余%d", e.Title, e.Requested, e.Available)
	}
	return fmt.Sprintf("图书(ID=%d)库存不足: 需要%d,剩余%d", e.BookID, e.Requested, e.Available)
}

// Unwrap 支持errors.Is(err, ErrInsufficientStock)
func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// Details 结构化上下文
func (e *InsufficientStockError) Details() map[string]interface{} {
	return map[string]interface{}{
		"book_id":   e.BookID,
		"title":     e.Title,
		"requested": e.Requested,
		"available": e.Available,
	}
}
