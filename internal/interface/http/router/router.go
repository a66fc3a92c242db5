package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	apporder "github.com/xiebiao/storefront/internal/application/order"
	"github.com/xiebiao/storefront/internal/interface/http/handler"
	"github.com/xiebiao/storefront/internal/interface/http/middleware"
	"github.com/xiebiao/storefront/pkg/response"
)

// Handlers 路由需要的全部处理器
type Handlers struct {
	Auth  *handler.AuthHandler
	Book  *handler.BookHandler
	Cart  *handler.CartHandler
	Order *handler.OrderHandler
}

// Options 路由选项
type Options struct {
	Mode    string // gin运行模式:debug/release/test
	Swagger bool   // 是否挂载/swagger
}

// New 创建Gin引擎并注册所有路由
func New(opts Options, h Handlers, auth *middleware.AuthMiddleware, log logrus.FieldLogger) *gin.Engine {
	switch opts.Mode {
	case gin.ReleaseMode, gin.TestMode:
		gin.SetMode(opts.Mode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger(log), middleware.Metrics())

	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{
			"message": "pong",
			"status":  "healthy",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if opts.Swagger {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := r.Group("/api/v1")

	// 公开接口
	v1.GET("/books", h.Book.ListBooks)

	authorized := v1.Group("")
	authorized.Use(auth.RequireAuth())

	session := authorized.Group("/auth")
	{
		session.GET("/me", h.Auth.Me)
		session.POST("/logout", h.Auth.Logout)
	}

	cart := authorized.Group("/cart")
	{
		cart.GET("", h.Cart.GetCart)
		cart.DELETE("", h.Cart.Clear)
		cart.POST("/items", h.Cart.AddItem)
		cart.PUT("/items/:book_id", h.Cart.UpdateItem)
		cart.DELETE("/items/:book_id", h.Cart.RemoveItem)
	}

	orders := authorized.Group("/orders")
	{
		orders.POST("", h.Order.PlaceOrder)
		orders.GET("", h.Order.ListOrders)
		orders.GET("/:id", h.Order.GetOrder)
		orders.POST("/:id/cancel", h.Order.CancelOrder)
	}

	// 店员接口
	admin := authorized.Group("/admin")
	admin.Use(middleware.RequireRole(apporder.RoleStaff))
	{
		admin.POST("/books", h.Book.PublishBook)
		admin.POST("/books/:id/restock", h.Book.Restock)
		admin.POST("/series", h.Book.CreateSeries)
		admin.PUT("/orders/:id/status", h.Order.SetStatus)
		admin.DELETE("/orders/:id", h.Order.DeleteOrder)
	}

	return r
}
