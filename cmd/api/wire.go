//go:build wireinject
// +build wireinject

// Wire依赖注入配置
// 修改Provider后运行 `wire gen ./cmd/api` 生成wire_gen.go,main.go中的buildApp与这里保持同一条依赖链

package main

import (
	"github.com/google/wire"
	"github.com/sirupsen/logrus"

	appbook "github.com/xiebiao/storefront/internal/application/book"
	appcart "github.com/xiebiao/storefront/internal/application/cart"
	apporder "github.com/xiebiao/storefront/internal/application/order"
	"github.com/xiebiao/storefront/internal/domain/inventory"
	"github.com/xiebiao/storefront/internal/infrastructure/config"
	"github.com/xiebiao/storefront/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/storefront/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/storefront/internal/interface/grpc/admin"
	"github.com/xiebiao/storefront/internal/interface/http/handler"
)

// infrastructureSet 数据库、Redis、事务、库存存储、事件发布
var infrastructureSet = wire.NewSet(
	mysql.NewDB,
	redis.NewClient,
	provideTxManager,
	provideStockBackend,
	provideEventPublisher,
	provideOrderCache,
	redis.NewTokenBlacklist,
	wire.Bind(new(apporder.TxManager), new(*mysql.TxManager)),
	wire.Bind(new(appbook.TxManager), new(*mysql.TxManager)),
	wire.Bind(new(apporder.OrderCache), new(*redis.OrderCache)),
)

// repositorySet 仓储
var repositorySet = wire.NewSet(
	mysql.NewBookRepository,
	mysql.NewCartRepository,
	mysql.NewOrderRepository,
)

// domainSet 库存控制器和计价引擎
var domainSet = wire.NewSet(
	provideInventory,
	providePricingEngine,
	wire.Bind(new(appbook.StockReader), new(*inventory.Controller)),
)

// applicationSet 用例
var applicationSet = wire.NewSet(
	appbook.NewListBooksUseCase,
	providePublishBookUseCase,
	appbook.NewRestockUseCase,
	appcart.NewService,
	apporder.NewPlaceOrderUseCase,
	apporder.NewSetStatusUseCase,
	apporder.NewQueryUseCase,
)

// interfaceSet HTTP处理器、中间件和gRPC服务
var interfaceSet = wire.NewSet(
	provideJWTManager,
	provideAuthMiddleware,
	provideAuthHandler,
	handler.NewBookHandler,
	handler.NewCartHandler,
	handler.NewOrderHandler,
	provideEngine,
	provideHTTPServer,
	admin.NewServer,
	provideGRPCServer,
)

// InitializeApp 组装整个应用,cleanup负责关闭RabbitMQ连接
func InitializeApp(cfg *config.Config, log logrus.FieldLogger) (*App, func(), error) {
	wire.Build(
		infrastructureSet,
		repositorySet,
		domainSet,
		applicationSet,
		interfaceSet,
		provideApp,
	)
	return nil, nil, nil
}
