package book

import (
	"context"
)

// Repository 图书仓储接口(依赖倒置原则)
// 由domain层定义接口,infrastructure层实现
// 注意:这里没有任何修改库存的方法,库存只能经由inventory.StockStore修改
type Repository interface {
	// Create 创建图书
	Create(ctx context.Context, book *Book) error

	// CreateSeries 创建套系
	CreateSeries(ctx context.Context, series *Series) error

	// FindByID 根据ID查找图书(不含已删除)
	FindByID(ctx context.Context, id uint) (*Book, error)

	// GetBooksByIDs 批量查询图书,包含已软删除的行(Deleted=true)
	// 不存在的ID不会出现在返回的map中
	GetBooksByIDs(ctx context.Context, ids []uint) (map[uint]*Book, error)

	// GetSeriesMembership 查询套系的当前成员(只含上架且未删除的图书)
	// 返回 seriesID -> bookIDs;成员为空的套系不出现在结果中
	GetSeriesMembership(ctx context.Context, seriesIDs []uint) (map[uint][]uint, error)

	// List 分页查询在售图书
	List(ctx context.Context, params ListParams) ([]*Book, int64, error)
}

// ListParams 列表查询参数
type ListParams struct {
	Page     int    // 页码(从1开始)
	PageSize int    // 每页数量
	Keyword  string // 搜索关键词(标题、作者、出版社)
	SeriesID *uint  // 按套系过滤
	SortBy   string // 排序字段(price_asc, price_desc, created_at_desc)
}
