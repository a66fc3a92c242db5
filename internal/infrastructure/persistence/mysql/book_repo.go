package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/xiebiao/storefront/internal/domain/book"
	apperrors "github.com/xiebiao/storefront/pkg/errors"
)

// bookRepository 图书仓储实现
// 库存列只在stock_store.go中修改
type bookRepository struct {
	db *gorm.DB
}

// NewBookRepository 创建图书仓储
func NewBookRepository(db *gorm.DB) book.Repository {
	return &bookRepository{db: db}
}

func (r *bookRepository) Create(ctx context.Context, b *book.Book) error {
	model := &BookModel{
		ISBN:        b.ISBN,
		Title:       b.Title,
		Author:      b.Author,
		Publisher:   b.Publisher,
		Price:       b.Price,
		Stock:       b.Stock,
		SeriesID:    b.SeriesID,
		Active:      b.Active,
		CoverURL:    b.CoverURL,
		Description: b.Description,
	}

	if err := dbFromContext(ctx, r.db).Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return book.ErrISBNDuplicate
		}
		return apperrors.Wrap(err, "创建图书失败")
	}

	b.ID = model.ID
	b.CreatedAt = model.CreatedAt
	b.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *bookRepository) CreateSeries(ctx context.Context, s *book.Series) error {
	model := &SeriesModel{Name: s.Name}
	if err := dbFromContext(ctx, r.db).Create(model).Error; err != nil {
		return apperrors.Wrap(err, "创建套系失败")
	}
	s.ID = model.ID
	s.CreatedAt = model.CreatedAt
	return nil
}

func (r *bookRepository) FindByID(ctx context.Context, id uint) (*book.Book, error) {
	var model BookModel
	if err := dbFromContext(ctx, r.db).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, book.ErrBookNotFound
		}
		return nil, apperrors.Wrap(err, "查询图书失败")
	}
	return toBookEntity(&model), nil
}

// GetBooksByIDs 包含已软删除的图书，下单时据此给出"已下架"提示
func (r *bookRepository) GetBooksByIDs(ctx context.Context, ids []uint) (map[uint]*book.Book, error) {
	result := make(map[uint]*book.Book, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var models []BookModel
	if err := dbFromContext(ctx, r.db).Unscoped().Where("id IN ?", ids).Find(&models).Error; err != nil {
		return nil, apperrors.Wrap(err, "批量查询图书失败")
	}

	for i := range models {
		result[models[i].ID] = toBookEntity(&models[i])
	}
	return result, nil
}

// GetSeriesMembership 实时查询套系成员（上架且未删除）
func (r *bookRepository) GetSeriesMembership(ctx context.Context, seriesIDs []uint) (map[uint][]uint, error) {
	result := make(map[uint][]uint, len(seriesIDs))
	if len(seriesIDs) == 0 {
		return result, nil
	}

	var rows []struct {
		ID       uint
		SeriesID uint
	}
	err := dbFromContext(ctx, r.db).
		Model(&BookModel{}).
		Select("id, series_id").
		Where("series_id IN ? AND active = ?", seriesIDs, true).
		Order("id").
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "查询套系成员失败")
	}

	for _, row := range rows {
		result[row.SeriesID] = append(result[row.SeriesID], row.ID)
	}
	return result, nil
}

func (r *bookRepository) List(ctx context.Context, params book.ListParams) ([]*book.Book, int64, error) {
	var models []BookModel
	var total int64

	page, pageSize := normalizePage(params.Page, params.PageSize)
	query := dbFromContext(ctx, r.db).Model(&BookModel{}).Where("active = ?", true)

	if params.Keyword != "" {
		keyword := "%" + params.Keyword + "%"
		query = query.Where("title LIKE ? OR author LIKE ? OR publisher LIKE ?", keyword, keyword, keyword)
	}
	if params.SeriesID != nil {
		query = query.Where("series_id = ?", *params.SeriesID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(err, "查询图书总数失败")
	}

	switch params.SortBy {
	case "price_asc":
		query = query.Order("price ASC")
	case "price_desc":
		query = query.Order("price DESC")
	default:
		query = query.Order("created_at DESC").Order("id DESC")
	}

	if err := query.Limit(pageSize).Offset((page - 1) * pageSize).Find(&models).Error; err != nil {
		return nil, 0, apperrors.Wrap(err, "查询图书列表失败")
	}

	books := make([]*book.Book, len(models))
	for i := range models {
		books[i] = toBookEntity(&models[i])
	}
	return books, total, nil
}

func toBookEntity(model *BookModel) *book.Book {
	return &book.Book{
		ID:          model.ID,
		ISBN:        model.ISBN,
		Title:       model.Title,
		Author:      model.Author,
		Publisher:   model.Publisher,
		Price:       model.Price,
		Stock:       model.Stock,
		SeriesID:    model.SeriesID,
		Active:      model.Active,
		Deleted:     model.DeletedAt.Valid,
		CoverURL:    model.CoverURL,
		Description: model.Description,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}
