// Package pricing 购物车/订单计价
//
// 套系折扣规则:
//  1. 按SeriesID对明细分组,不属于套系的明细原价计算
//  2. 购物车包含某套系的全部在售成员时,该组小计打折(默认9折)
//  3. 金额全部使用"分"为单位的整数;每组打折后金额按四舍五入取整
//  4. 组折扣按小计比例分摊到明细(向下取整,余数给组内最后一条),保证 Σ明细实付 == 应付总额
//
// Engine是纯函数:同样的输入永远得到同样的输出,不读库、不修改入参
package pricing

import (
	"sort"

	"github.com/shopspring/decimal"
)

// DefaultSeriesDiscountRate 默认套系折扣率(10% off)
var DefaultSeriesDiscountRate = decimal.RequireFromString("0.10")

// Line 计价明细
type Line struct {
	BookID    uint
	SeriesID  *uint
	Quantity  int
	UnitPrice int64 // 单价(分)
}

// Membership 套系的当前在售成员 seriesID -> bookIDs
type Membership map[uint][]uint

// PricedLine 计价后的明细
type PricedLine struct {
	Line
	Subtotal int64 // 单价 × 数量
	Discount int64 // 分摊到本行的套系折扣
	Total    int64 // Subtotal - Discount
}

// Quote 计价结果
type Quote struct {
	Lines            []PricedLine
	Subtotal         int64
	TotalDiscount    int64
	GrandTotal       int64
	AppliedSeriesIDs []uint // 享受折扣的套系(升序)
}

// Engine 计价引擎
type Engine struct {
	rate decimal.Decimal
}

// NewEngine 创建计价引擎,rate必须在[0, 1)之间
func NewEngine(rate decimal.Decimal) (*Engine, error) {
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, ErrInvalidDiscountRate
	}
	return &Engine{rate: rate}, nil
}

// NewDefaultEngine 使用默认折扣率
func NewDefaultEngine() *Engine {
	return &Engine{rate: DefaultSeriesDiscountRate}
}

// Rate 折扣率
func (e *Engine) Rate() decimal.Decimal {
	return e.rate
}

// Quote 计算明细小计、套系折扣与应付总额
func (e *Engine) Quote(lines []Line, membership Membership) Quote {
	q := Quote{
		Lines:            make([]PricedLine, len(lines)),
		AppliedSeriesIDs: []uint{},
	}

	inCart := make(map[uint]bool, len(lines))
	groups := make(map[uint][]int)
	for i, l := range lines {
		sub := l.UnitPrice * int64(l.Quantity)
		q.Lines[i] = PricedLine{Line: l, Subtotal: sub, Total: sub}
		q.Subtotal += sub

		if l.Quantity > 0 {
			inCart[l.BookID] = true
		}
		if l.SeriesID != nil {
			groups[*l.SeriesID] = append(groups[*l.SeriesID], i)
		}
	}

	seriesIDs := make([]uint, 0, len(groups))
	for id := range groups {
		seriesIDs = append(seriesIDs, id)
	}
	sort.Slice(seriesIDs, func(i, j int) bool { return seriesIDs[i] < seriesIDs[j] })

	for _, seriesID := range seriesIDs {
		if !complete(membership[seriesID], inCart) {
			continue
		}
		q.TotalDiscount += e.applyGroupDiscount(q.Lines, groups[seriesID])
		q.AppliedSeriesIDs = append(q.AppliedSeriesIDs, seriesID)
	}

	q.GrandTotal = q.Subtotal - q.TotalDiscount
	return q
}

// complete 套系的全部在售成员都在购物车中
// 没有在售成员的套系不算完整
func complete(members []uint, inCart map[uint]bool) bool {
	if len(members) == 0 {
		return false
	}
	for _, id := range members {
		if !inCart[id] {
			return false
		}
	}
	return true
}

// applyGroupDiscount 计算一组明细的折扣并分摊,返回组折扣
func (e *Engine) applyGroupDiscount(lines []PricedLine, idx []int) int64 {
	var groupSubtotal int64
	for _, i := range idx {
		groupSubtotal += lines[i].Subtotal
	}
	if groupSubtotal <= 0 {
		return 0
	}

	discounted := decimal.NewFromInt(groupSubtotal).
		Mul(decimal.NewFromInt(1).Sub(e.rate)).
		Round(0).
		IntPart()
	discount := groupSubtotal - discounted

	total := decimal.NewFromInt(groupSubtotal)
	remaining := discount
	for n, i := range idx {
		share := remaining
		if n < len(idx)-1 {
			share = decimal.NewFromInt(discount).
				Mul(decimal.NewFromInt(lines[i].Subtotal)).
				Div(total).
				Floor().
				IntPart()
		}
		lines[i].Discount = share
		lines[i].Total = lines[i].Subtotal - share
		remaining -= share
	}
	return discount
}
