package handler

import (
	"github.com/gin-gonic/gin"

	appbook "github.com/xiebiao/storefront/internal/application/book"
	"github.com/xiebiao/storefront/internal/interface/http/dto"
	"github.com/xiebiao/storefront/pkg/response"
)

// BookHandler 图书HTTP处理器
type BookHandler struct {
	listBooksUseCase   *appbook.ListBooksUseCase
	publishBookUseCase *appbook.PublishBookUseCase
	restockUseCase     *appbook.RestockUseCase
}

// NewBookHandler 创建图书处理器
func NewBookHandler(
	listBooksUseCase *appbook.ListBooksUseCase,
	publishBookUseCase *appbook.PublishBookUseCase,
	restockUseCase *appbook.RestockUseCase,
) *BookHandler {
	return &BookHandler{
		listBooksUseCase:   listBooksUseCase,
		publishBookUseCase: publishBookUseCase,
		restockUseCase:     restockUseCase,
	}
}

// ListBooks 图书列表
// @Summary      图书列表
// @Description  分页浏览在售图书,库存为实时库存
// @Tags         图书
// @Produce      json
// @Param        page      query int    false "页码"
// @Param        page_size query int    false "每页数量"
// @Param        keyword   query string false "关键词"
// @Param        series_id query int    false "套系ID"
// @Param        sort_by   query string false "排序" Enums(price_asc, price_desc, created_at_desc)
// @Success      200 {object} response.Response{data=response.PageData{list=[]dto.BookListItem}}
// @Router       /api/v1/books [get]
func (h *BookHandler) ListBooks(c *gin.Context) {
	var req dto.ListBooksRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.listBooksUseCase.Execute(c.Request.Context(), appbook.ListBooksRequest{
		Page:     req.Page,
		PageSize: req.PageSize,
		Keyword:  req.Keyword,
		SeriesID: req.SeriesID,
		SortBy:   req.SortBy,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.BookListItem, len(result.Books))
	for i, b := range result.Books {
		items[i] = dto.NewBookListItem(b)
	}
	response.SuccessWithPage(c, items, result.Total, result.Page, result.PageSize)
}

// PublishBook 上架图书
// @Summary      上架图书
// @Tags         管理
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.PublishBookRequest true "图书信息"
// @Success      200 {object} response.Response{data=dto.BookResponse}
// @Router       /api/v1/admin/books [post]
func (h *BookHandler) PublishBook(c *gin.Context) {
	var req dto.PublishBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	b, err := h.publishBookUseCase.Execute(c.Request.Context(), appbook.PublishBookRequest{
		ISBN:        req.ISBN,
		Title:       req.Title,
		Author:      req.Author,
		Publisher:   req.Publisher,
		Price:       req.Price,
		Stock:       req.Stock,
		SeriesID:    req.SeriesID,
		CoverURL:    req.CoverURL,
		Description: req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewBookResponse(b))
}

// CreateSeries 创建套系
// @Summary      创建套系
// @Tags         管理
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.CreateSeriesRequest true "套系"
// @Success      200 {object} response.Response{data=dto.SeriesResponse}
// @Router       /api/v1/admin/series [post]
func (h *BookHandler) CreateSeries(c *gin.Context) {
	var req dto.CreateSeriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	s, err := h.publishBookUseCase.CreateSeries(c.Request.Context(), req.Name)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, &dto.SeriesResponse{ID: s.ID, Name: s.Name})
}

// Restock 补货
// @Summary      补货
// @Description  增加库存并写入库存流水(RESTOCK)
// @Tags         管理
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path int                true "图书ID"
// @Param        request body dto.RestockRequest true "补货数量"
// @Success      200 {object} response.Response{data=dto.RestockResponse}
// @Failure      200 {object} response.Response "40402 图书不存在"
// @Router       /api/v1/admin/books/{id}/restock [post]
func (h *BookHandler) Restock(c *gin.Context) {
	bookID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.RestockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	stock, err := h.restockUseCase.Execute(c.Request.Context(), bookID, req.Quantity, req.Remark)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, &dto.RestockResponse{BookID: bookID, Stock: stock})
}
