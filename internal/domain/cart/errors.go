package cart

import (
	apperrors "github.com/xiebiao/storefront/pkg/errors"
)

var (
	// ErrEmptyCart 购物车为空,不能下单
	ErrEmptyCart = apperrors.New(apperrors.ErrCodeEmptyCart, "购物车为空")

	// ErrInvalidQuantity 数量不合法
	ErrInvalidQuantity = apperrors.New(apperrors.ErrCodeInvalidParams, "数量必须大于0")

	// ErrLineNotFound 购物车里没有这本书
	ErrLineNotFound = apperrors.New(apperrors.ErrCodeNotFound, "购物车中没有该图书")
)
