package dto

import (
	appcart "github.com/xiebiao/storefront/internal/application/cart"
)

// AddCartItemRequest 加入购物车
type AddCartItemRequest struct {
	BookID   uint `json:"book_id" binding:"required" example:"1"`
	Quantity int  `json:"quantity" binding:"required,min=1,max=999" example:"1"`
}

// UpdateCartItemRequest 修改数量
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1,max=999" example:"2"`
}

// CartLineResponse 购物车明细
type CartLineResponse struct {
	BookID    uint   `json:"book_id" example:"1"`
	Title     string `json:"title" example:"三体"`
	SeriesID  *uint  `json:"series_id,omitempty" example:"1"`
	Quantity  int    `json:"quantity" example:"1"`
	UnitPrice int64  `json:"unit_price" example:"2300"`
	Stock     int    `json:"stock" example:"100"`
	Available bool   `json:"available" example:"true"`
	Subtotal  int64  `json:"subtotal" example:"2300"`
	Discount  int64  `json:"discount" example:"230"`
	Total     int64  `json:"total" example:"2070"`
}

// CartResponse 购物车及计价预览
type CartResponse struct {
	CartID           uint               `json:"cart_id" example:"1"`
	Lines            []CartLineResponse `json:"lines"`
	Subtotal         int64              `json:"subtotal" example:"6900"`
	Discount         int64              `json:"discount" example:"690"`
	GrandTotal       int64              `json:"grand_total" example:"6210"`
	GrandTotalYuan   string             `json:"grand_total_yuan" example:"62.10"`
	AppliedSeriesIDs []uint             `json:"applied_series_ids"`
}

// NewCartResponse 视图转响应
func NewCartResponse(v *appcart.View) *CartResponse {
	resp := &CartResponse{
		CartID:           v.CartID,
		Lines:            make([]CartLineResponse, len(v.Lines)),
		Subtotal:         v.Subtotal,
		Discount:         v.Discount,
		GrandTotal:       v.GrandTotal,
		GrandTotalYuan:   FormatPriceYuan(v.GrandTotal),
		AppliedSeriesIDs: v.AppliedSeriesIDs,
	}
	for i, l := range v.Lines {
		resp.Lines[i] = CartLineResponse{
			BookID:    l.BookID,
			Title:     l.Title,
			SeriesID:  l.SeriesID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Stock:     l.Stock,
			Available: l.Available,
			Subtotal:  l.Subtotal,
			Discount:  l.Discount,
			Total:     l.Total,
		}
	}
	return resp
}
