package book

import (
	"fmt"

	apperrors "github.com/xiebiao/storefront/pkg/errors"
)

// 图书领域错误定义
var (
	// ErrBookNotFound 图书不存在
	ErrBookNotFound = apperrors.New(apperrors.ErrCodeBookNotFound, "图书不存在")

	// ErrISBNDuplicate ISBN已存在
	ErrISBNDuplicate = apperrors.New(apperrors.ErrCodeDuplicateEntry, "ISBN号已存在")

	// ErrInvalidPrice 无效的价格
	ErrInvalidPrice = apperrors.New(apperrors.ErrCodeInvalidParams, "价格不能为负数")

	// ErrInvalidStock 无效的库存
	ErrInvalidStock = apperrors.New(apperrors.ErrCodeInvalidParams, "库存不能为负数")

	// ErrBookUnavailable 图书已删除或已下架
	ErrBookUnavailable = apperrors.New(apperrors.ErrCodeBookUnavailable, "图书已下架")
)

// BookUnavailableError 下单时发现购物车里的图书不存在、已删除或已下架
type BookUnavailableError struct {
	BookID uint
	Title  string // 图书不存在时为空
}

func (e *BookUnavailableError) Error() string {
	if e.Title == "" {
		return fmt.Sprintf("图书(ID=%d)不存在或已下架", e.BookID)
	}
	return fmt.Sprintf("《%s》已下架", e.Title)
}

// Unwrap 支持errors.Is(err, ErrBookUnavailable)和提取AppError错误码
func (e *BookUnavailableError) Unwrap() error {
	return ErrBookUnavailable
}

// Details 结构化上下文
func (e *BookUnavailableError) Details() map[string]interface{} {
	return map[string]interface{}{
		"book_id": e.BookID,
		"title":   e.Title,
	}
}
