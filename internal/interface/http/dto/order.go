package dto

import (
	"github.com/xiebiao/storefront/internal/domain/order"
)

// PlaceOrderRequest 结算下单(商品取自购物车)
type PlaceOrderRequest struct {
	ShippingName    string `json:"shipping_name" binding:"required,max=50" example:"张三"`
	ShippingPhone   string `json:"shipping_phone" binding:"omitempty,max=20" example:"13800000000"`
	ShippingAddress string `json:"shipping_address" binding:"required,max=255" example:"北京市海淀区"`
	PaymentMethod   string `json:"payment_method" binding:"required" example:"COD"` // COD|BANK_TRANSFER|CARD|E_WALLET
}

// SetStatusRequest 变更订单状态(店员)
type SetStatusRequest struct {
	Status        string  `json:"status" binding:"required" example:"CONFIRMED"`
	ShippingPhone *string `json:"shipping_phone" example:"13800000000"` // 可选,同时补录收货电话
}

// ListOrdersRequest 订单列表
type ListOrdersRequest struct {
	Page     int `form:"page" binding:"omitempty,min=1" example:"1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100" example:"20"`
}

// OrderLineResponse 订单明细
type OrderLineResponse struct {
	BookID    uint   `json:"book_id" example:"1"`
	BookTitle string `json:"book_title" example:"三体"`
	SeriesID  *uint  `json:"series_id,omitempty" example:"1"`
	Quantity  int    `json:"quantity" example:"1"`
	UnitPrice int64  `json:"unit_price" example:"2300"`
	Subtotal  int64  `json:"subtotal" example:"2300"`
	Discount  int64  `json:"discount" example:"230"`
	Total     int64  `json:"total" example:"2070"`
}

// OrderResponse 订单详情
type OrderResponse struct {
	ID               uint                `json:"id" example:"1"`
	OrderNo          string              `json:"order_no" example:"20260115103000123456789"`
	UserID           uint                `json:"user_id" example:"100"`
	Status           string              `json:"status" example:"PENDING"`
	StatusLabel      string              `json:"status_label" example:"待确认"`
	Subtotal         int64               `json:"subtotal" example:"6900"`
	Discount         int64               `json:"discount" example:"690"`
	Total            int64               `json:"total" example:"6210"`
	TotalYuan        string              `json:"total_yuan" example:"62.10"`
	AppliedSeriesIDs []uint              `json:"applied_series_ids"`
	ShippingName     string              `json:"shipping_name" example:"张三"`
	ShippingPhone    string              `json:"shipping_phone" example:"13800000000"`
	ShippingAddress  string              `json:"shipping_address" example:"北京市海淀区"`
	PaymentMethod    string              `json:"payment_method" example:"COD"`
	Deleted          bool                `json:"deleted,omitempty"`
	NextStatuses     []string            `json:"next_statuses"`
	Lines            []OrderLineResponse `json:"lines"`
	CreatedAt        string              `json:"created_at" example:"2026-01-15 10:30:00"`
	UpdatedAt        string              `json:"updated_at" example:"2026-01-15 10:30:00"`
}

// NewOrderResponse 实体转响应
func NewOrderResponse(o *order.Order) *OrderResponse {
	applied := o.AppliedSeriesIDs
	if applied == nil {
		applied = []uint{}
	}
	resp := &OrderResponse{
		ID:               o.ID,
		OrderNo:          o.OrderNo,
		UserID:           o.UserID,
		Status:           o.Status.String(),
		StatusLabel:      o.Status.Label(),
		Subtotal:         o.Subtotal,
		Discount:         o.Discount,
		Total:            o.Total,
		TotalYuan:        FormatPriceYuan(o.Total),
		AppliedSeriesIDs: applied,
		ShippingName:     o.Shipping.Name,
		ShippingPhone:    o.Shipping.Phone,
		ShippingAddress:  o.Shipping.Address,
		PaymentMethod:    string(o.PaymentMethod),
		Deleted:          o.Deleted,
		NextStatuses:     []string{},
		Lines:            make([]OrderLineResponse, len(o.Lines)),
		CreatedAt:        formatTime(o.CreatedAt),
		UpdatedAt:        formatTime(o.UpdatedAt),
	}
	if !o.Deleted {
		for _, s := range o.Status.NextStatuses() {
			resp.NextStatuses = append(resp.NextStatuses, s.String())
		}
	}
	for i, l := range o.Lines {
		resp.Lines[i] = OrderLineResponse{
			BookID:    l.BookID,
			BookTitle: l.BookTitle,
			SeriesID:  l.SeriesID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Subtotal:  l.Subtotal,
			Discount:  l.Discount,
			Total:     l.Total,
		}
	}
	return resp
}
