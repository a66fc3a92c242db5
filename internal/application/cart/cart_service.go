package cart

import (
	"context"

	"github.com/xiebiao/storefront/internal/domain/book"
	"github.com/xiebiao/storefront/internal/domain/cart"
	"github.com/xiebiao/storefront/internal/domain/inventory"
	"github.com/xiebiao/storefront/internal/domain/pricing"
)

// Service 购物车用例
// 购物车只保存图书ID和数量,价格、库存、套系每次查看时实时读取
type Service struct {
	cartRepo  cart.Repository
	bookRepo  book.Repository
	inventory *inventory.Controller
	pricing   *pricing.Engine
}

// NewService 创建购物车服务
func NewService(cartRepo cart.Repository, bookRepo book.Repository, inv *inventory.Controller, engine *pricing.Engine) *Service {
	return &Service{
		cartRepo:  cartRepo,
		bookRepo:  bookRepo,
		inventory: inv,
		pricing:   engine,
	}
}

// LineView 购物车明细(带实时图书数据)
type LineView struct {
	BookID    uint
	Title     string
	SeriesID  *uint
	Quantity  int
	UnitPrice int64
	Stock     int
	Available bool // 图书可售(未删除、未下架)
	Subtotal  int64
	Discount  int64
	Total     int64
}

// View 购物车及计价预览
// 不可售的明细不参与计价,结算时会报BookUnavailable
type View struct {
	CartID           uint
	Lines            []LineView
	Subtotal         int64
	Discount         int64
	GrandTotal       int64
	AppliedSeriesIDs []uint
}

// Get 查看购物车
func (s *Service) Get(ctx context.Context, userID uint) (*View, error) {
	c, err := s.cartRepo.GetCartWithLines(ctx, userID)
	if err != nil {
		return nil, err
	}

	view := &View{
		CartID:           c.ID,
		Lines:            make([]LineView, len(c.Lines)),
		AppliedSeriesIDs: []uint{},
	}
	if c.IsEmpty() {
		return view, nil
	}

	ids := c.BookIDs()
	books, err := s.bookRepo.GetBooksByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	stock, err := s.inventory.Available(ctx, ids)
	if err != nil {
		return nil, err
	}

	var (
		priceLines []pricing.Line
		positions  []int
		seriesIDs  []uint
	)
	seen := make(map[uint]bool)
	for i, l := range c.Lines {
		b := books[l.BookID]
		lv := LineView{
			BookID:    l.BookID,
			Quantity:  l.Quantity,
			Stock:     stock[l.BookID],
			Available: b.Available(),
		}
		if b != nil {
			lv.Title = b.Title
			lv.SeriesID = b.SeriesID
			lv.UnitPrice = b.Price
		}
		view.Lines[i] = lv

		if !lv.Available {
			continue
		}
		priceLines = append(priceLines, pricing.Line{
			BookID:    b.ID,
			SeriesID:  b.SeriesID,
			Quantity:  l.Quantity,
			UnitPrice: b.Price,
		})
		positions = append(positions, i)
		if b.SeriesID != nil && !seen[*b.SeriesID] {
			seen[*b.SeriesID] = true
			seriesIDs = append(seriesIDs, *b.SeriesID)
		}
	}

	membership, err := s.bookRepo.GetSeriesMembership(ctx, seriesIDs)
	if err != nil {
		return nil, err
	}
	quote := s.pricing.Quote(priceLines, pricing.Membership(membership))
	for j, pl := range quote.Lines {
		lv := &view.Lines[positions[j]]
		lv.Subtotal = pl.Subtotal
		lv.Discount = pl.Discount
		lv.Total = pl.Total
	}
	view.Subtotal = quote.Subtotal
	view.Discount = quote.TotalDiscount
	view.GrandTotal = quote.GrandTotal
	view.AppliedSeriesIDs = quote.AppliedSeriesIDs
	return view, nil
}

// AddItem 加入购物车,已有的明细数量累加
// 这里不检查库存,库存以结算时的条件扣减为准
func (s *Service) AddItem(ctx context.Context, userID, bookID uint, quantity int) error {
	if err := cart.ValidateQuantity(quantity); err != nil {
		return err
	}
	if err := s.checkAvailable(ctx, bookID); err != nil {
		return err
	}

	c, err := s.cartRepo.GetCartWithLines(ctx, userID)
	if err != nil {
		return err
	}
	return s.cartRepo.AddLine(ctx, c.ID, bookID, quantity)
}

// UpdateQuantity 修改数量
func (s *Service) UpdateQuantity(ctx context.Context, userID, bookID uint, quantity int) error {
	if err := cart.ValidateQuantity(quantity); err != nil {
		return err
	}
	c, err := s.cartRepo.GetCartWithLines(ctx, userID)
	if err != nil {
		return err
	}
	return s.cartRepo.SetQuantity(ctx, c.ID, bookID, quantity)
}

// RemoveItem 移除明细
func (s *Service) RemoveItem(ctx context.Context, userID, bookID uint) error {
	c, err := s.cartRepo.GetCartWithLines(ctx, userID)
	if err != nil {
		return err
	}
	return s.cartRepo.RemoveLine(ctx, c.ID, bookID)
}

// Clear 清空购物车
func (s *Service) Clear(ctx context.Context, userID uint) error {
	c, err := s.cartRepo.GetCartWithLines(ctx, userID)
	if err != nil {
		return err
	}
	return s.cartRepo.ClearCartLines(ctx, c.ID)
}

func (s *Service) checkAvailable(ctx context.Context, bookID uint) error {
	books, err := s.bookRepo.GetBooksByIDs(ctx, []uint{bookID})
	if err != nil {
		return err
	}
	b, ok := books[bookID]
	if !ok {
		return book.ErrBookNotFound
	}
	if !b.Available() {
		return &book.BookUnavailableError{BookID: b.ID, Title: b.Title}
	}
	return nil
}
