package book

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/xiebiao/storefront/internal/domain/book"
	apperrors "github.com/xiebiao/storefront/pkg/errors"
)

// StockSeeder 新书上架时同步初始库存到非数据库的库存后端(redis.StockStore实现)
type StockSeeder interface {
	Seed(ctx context.Context, stock map[uint]int) error
}

// PublishBookUseCase 图书和套系上架(店员)
type PublishBookUseCase struct {
	bookRepo book.Repository
	seeder   StockSeeder
	log      logrus.FieldLogger
}

// NewPublishBookUseCase seeder为nil表示库存只在MySQL
func NewPublishBookUseCase(bookRepo book.Repository, seeder StockSeeder, log logrus.FieldLogger) *PublishBookUseCase {
	return &PublishBookUseCase{
		bookRepo: bookRepo,
		seeder:   seeder,
		log:      log,
	}
}

// PublishBookRequest 上架请求
type PublishBookRequest struct {
	ISBN        string
	Title       string
	Author      string
	Publisher   string
	Price       int64 // 分
	Stock       int
	SeriesID    *uint
	CoverURL    string
	Description string
}

// Execute 上架图书
func (uc *PublishBookUseCase) Execute(ctx context.Context, req PublishBookRequest) (*book.Book, error) {
	if strings.TrimSpace(req.ISBN) == "" || strings.TrimSpace(req.Title) == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidParams, "ISBN和书名不能为空")
	}

	b, err := book.NewBook(req.ISBN, req.Title, req.Author, req.Publisher, req.Price, req.Stock, req.SeriesID)
	if err != nil {
		return nil, err
	}
	b.CoverURL = req.CoverURL
	b.Description = req.Description

	if err := uc.bookRepo.Create(ctx, b); err != nil {
		return nil, err
	}

	if uc.seeder != nil {
		if err := uc.seeder.Seed(ctx, map[uint]int{b.ID: b.Stock}); err != nil {
			// 图书已经入库,重启时会从MySQL重新同步
			uc.log.WithError(err).WithField("book_id", b.ID).Error("同步新书库存失败")
		}
	}

	uc.log.WithFields(logrus.Fields{
		"book_id": b.ID,
		"isbn":    b.ISBN,
	}).Info("图书已上架")
	return b, nil
}

// CreateSeries 创建套系
func (uc *PublishBookUseCase) CreateSeries(ctx context.Context, name string) (*book.Series, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidParams, "套系名称不能为空")
	}
	s := &book.Series{Name: name}
	if err := uc.bookRepo.CreateSeries(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}
