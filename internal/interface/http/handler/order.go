package handler

import (
	"github.com/gin-gonic/gin"

	apporder "github.com/xiebiao/storefront/internal/application/order"
	"github.com/xiebiao/storefront/internal/domain/order"
	"github.com/xiebiao/storefront/internal/interface/http/dto"
	"github.com/xiebiao/storefront/internal/interface/http/middleware"
	"github.com/xiebiao/storefront/pkg/response"
)

// OrderHandler 订单HTTP处理器
type OrderHandler struct {
	placeOrderUseCase *apporder.PlaceOrderUseCase
	setStatusUseCase  *apporder.SetStatusUseCase
	queryUseCase      *apporder.QueryUseCase
}

// NewOrderHandler 创建订单处理器
func NewOrderHandler(
	placeOrderUseCase *apporder.PlaceOrderUseCase,
	setStatusUseCase *apporder.SetStatusUseCase,
	queryUseCase *apporder.QueryUseCase,
) *OrderHandler {
	return &OrderHandler{
		placeOrderUseCase: placeOrderUseCase,
		setStatusUseCase:  setStatusUseCase,
		queryUseCase:      queryUseCase,
	}
}

// PlaceOrder 结算下单
// @Summary      结算下单
// @Description  把购物车中的商品生成订单:校验上架状态、计算套系折扣、条件扣减库存、清空购物车,全部在一个事务内完成
// @Tags         订单
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.PlaceOrderRequest true "收货与支付信息"
// @Success      200 {object} response.Response{data=dto.OrderResponse} "下单成功"
// @Failure      200 {object} response.Response "40010 购物车为空"
// @Failure      200 {object} response.Response "40011 图书已下架(data含book_id)"
// @Failure      200 {object} response.Response "40001 库存不足(data含book_id/available)"
// @Failure      200 {object} response.Response "50003 下单超时(retryable=true)"
// @Router       /api/v1/orders [post]
func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	var req dto.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	o, err := h.placeOrderUseCase.Execute(c.Request.Context(), apporder.PlaceOrderRequest{
		UserID: middleware.GetUserID(c),
		Shipping: order.ShippingInfo{
			Name:    req.ShippingName,
			Phone:   req.ShippingPhone,
			Address: req.ShippingAddress,
		},
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewOrderResponse(o))
}

// ListOrders 我的订单
// @Summary      订单列表
// @Description  顾客看自己的订单,店员看全部订单,按创建时间倒序
// @Tags         订单
// @Produce      json
// @Security     BearerAuth
// @Param        page      query int false "页码"
// @Param        page_size query int false "每页数量"
// @Success      200 {object} response.Response{data=response.PageData{list=[]dto.OrderResponse}}
// @Router       /api/v1/orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	var req dto.ListOrdersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.queryUseCase.List(c.Request.Context(), middleware.GetActor(c), req.Page, req.PageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	list := make([]*dto.OrderResponse, len(result.Orders))
	for i, o := range result.Orders {
		list[i] = dto.NewOrderResponse(o)
	}
	response.SuccessWithPage(c, list, result.Total, result.Page, result.PageSize)
}

// GetOrder 订单详情
// @Summary      订单详情
// @Tags         订单
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "订单ID"
// @Success      200 {object} response.Response{data=dto.OrderResponse}
// @Failure      200 {object} response.Response "40403 订单不存在"
// @Router       /api/v1/orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	o, err := h.queryUseCase.Get(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewOrderResponse(o))
}

// CancelOrder 取消订单
// @Summary      取消订单
// @Description  顾客只能取消自己待确认或已确认的订单,取消后库存回补
// @Tags         订单
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "订单ID"
// @Success      200 {object} response.Response{data=dto.OrderResponse}
// @Failure      200 {object} response.Response "40014 订单已取消"
// @Failure      200 {object} response.Response "40105 无权变更订单状态"
// @Router       /api/v1/orders/{id}/cancel [post]
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	o, err := h.setStatusUseCase.Cancel(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewOrderResponse(o))
}

// SetStatus 变更订单状态
// @Summary      变更订单状态
// @Description  状态只能前进(PENDING→CONFIRMED→SHIPPED→DELIVERED),DELIVERED之前可以取消;进入SHIPPED或DELIVERED需要收货电话
// @Tags         管理
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path int                  true "订单ID"
// @Param        request body dto.SetStatusRequest true "目标状态"
// @Success      200 {object} response.Response{data=dto.OrderResponse}
// @Failure      200 {object} response.Response "40012 状态回退"
// @Failure      200 {object} response.Response "40013 缺少收货电话"
// @Router       /api/v1/admin/orders/{id}/status [put]
func (h *OrderHandler) SetStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	status, err := order.ParseStatus(req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}

	o, err := h.setStatusUseCase.Execute(c.Request.Context(), apporder.SetStatusRequest{
		Actor:   middleware.GetActor(c),
		OrderID: id,
		Status:  status,
		Phone:   req.ShippingPhone,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewOrderResponse(o))
}

// DeleteOrder 删除订单(软删除)
// @Summary      删除订单
// @Tags         管理
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "订单ID"
// @Success      200 {object} response.Response
// @Failure      200 {object} response.Response "40015 订单已删除"
// @Router       /api/v1/admin/orders/{id} [delete]
func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.queryUseCase.Delete(c.Request.Context(), middleware.GetActor(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
