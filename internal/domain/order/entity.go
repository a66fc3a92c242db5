package order

import (
	"strings"
	"time"
)

// PaymentMethod 支付方式(只记录,不对接支付网关)
type PaymentMethod string

const (
	PaymentCOD          PaymentMethod = "COD"           // 货到付款
	PaymentBankTransfer PaymentMethod = "BANK_TRANSFER" // 银行转账
	PaymentCard         PaymentMethod = "CARD"          // 银行卡
	PaymentEWallet      PaymentMethod = "E_WALLET"      // 电子钱包
)

// ParsePaymentMethod 解析支付方式(不区分大小写)
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToUpper(strings.TrimSpace(s)))
	switch m {
	case PaymentCOD, PaymentBankTransfer, PaymentCard, PaymentEWallet:
		return m, nil
	}
	return "", ErrInvalidPaymentMethod
}

// ShippingInfo 收货信息
// 电话可以下单后补录,但变更状态前必须存在
type ShippingInfo struct {
	Name    string
	Phone   string
	Address string
}

// Order 订单实体(聚合根)
// 1. 明细和下单时的单价创建后不可变,只有Status和收货电话可以修改
// 2. 金额全部为"分",Total已扣除套系折扣
// 3. Deleted来自软删除标记,已删除的订单不能再变更状态
type Order struct {
	ID               uint
	OrderNo          string
	UserID           uint
	Lines            []Line
	Subtotal         int64  // 原价合计
	Discount         int64  // 套系折扣合计
	Total            int64  // 应付金额 = Subtotal - Discount
	AppliedSeriesIDs []uint // 享受折扣的套系
	Shipping         ShippingInfo
	PaymentMethod    PaymentMethod
	Status           Status
	Deleted          bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Line 订单明细
// UnitPrice是下单时的价格快照,与图书的实时价格无关
type Line struct {
	ID        uint
	OrderID   uint
	BookID    uint
	BookTitle string
	SeriesID  *uint
	Quantity  int
	UnitPrice int64
	Subtotal  int64 // UnitPrice × Quantity
	Discount  int64 // 分摊到本行的套系折扣
	Total     int64 // Subtotal - Discount
}

// NewOrder 创建待确认订单(工厂方法)
// 金额由调用方根据计价结果传入,这里只校验一致性
func NewOrder(orderNo string, userID uint, lines []Line, appliedSeriesIDs []uint, shipping ShippingInfo, payment PaymentMethod) (*Order, error) {
	if len(lines) == 0 {
		return nil, ErrInvalidOrderLines
	}
	if strings.TrimSpace(shipping.Name) == "" || strings.TrimSpace(shipping.Address) == "" {
		return nil, ErrInvalidShipping
	}
	if _, err := ParsePaymentMethod(string(payment)); err != nil {
		return nil, err
	}

	o := &Order{
		OrderNo:          orderNo,
		UserID:           userID,
		Lines:            lines,
		AppliedSeriesIDs: appliedSeriesIDs,
		Shipping:         shipping,
		PaymentMethod:    payment,
		Status:           StatusPending,
	}
	for _, l := range lines {
		if l.Quantity <= 0 {
			return nil, ErrInvalidOrderLines
		}
		o.Subtotal += l.Subtotal
		o.Discount += l.Discount
		o.Total += l.Total
	}

	now := time.Now()
	o.CreatedAt = now
	o.UpdatedAt = now
	return o, nil
}

// IsOwnedBy 是否属于某个用户
func (o *Order) IsOwnedBy(userID uint) bool {
	return o.UserID == userID
}

// ApplyStatus 应用状态变更(只修改内存中的实体)
// 校验顺序:已删除 → 状态机规则 → 收货电话
// phone非空时先补录收货电话再校验
func (o *Order) ApplyStatus(to Status, phone *string) error {
	if o.Deleted {
		return ErrOrderDeleted
	}
	if err := CheckTransition(o.Status, to); err != nil {
		return err
	}

	if phone != nil {
		if p := strings.TrimSpace(*phone); p != "" {
			o.Shipping.Phone = p
		}
	}
	if o.Shipping.Phone == "" {
		return ErrMissingShippingPhone
	}

	o.Status = to
	o.UpdatedAt = time.Now()
	return nil
}

// ReleasesStock 本次变更是否需要归还库存
func ReleasesStock(from, to Status) bool {
	return to == StatusCancelled && from != StatusCancelled
}

// TotalQuantity 商品总件数
func (o *Order) TotalQuantity() int {
	n := 0
	for _, l := range o.Lines {
		n += l.Quantity
	}
	return n
}
