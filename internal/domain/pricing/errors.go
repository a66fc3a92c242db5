package pricing

import (
	apperrors "github.com/xiebiao/storefront/pkg/errors"
)

// ErrInvalidDiscountRate 折扣率配置错误
var ErrInvalidDiscountRate = apperrors.New(apperrors.ErrCodeInvalidParams, "套系折扣率必须在[0, 1)之间")
