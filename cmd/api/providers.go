package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"gorm.io/gorm"

	appbook "github.com/xiebiao/storefront/internal/application/book"
	"github.com/xiebiao/storefront/internal/domain/book"
	"github.com/xiebiao/storefront/internal/domain/inventory"
	"github.com/xiebiao/storefront/internal/domain/order"
	"github.com/xiebiao/storefront/internal/domain/pricing"
	"github.com/xiebiao/storefront/internal/infrastructure/config"
	"github.com/xiebiao/storefront/internal/infrastructure/messaging"
	"github.com/xiebiao/storefront/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/storefront/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/storefront/internal/interface/grpc/admin"
	"github.com/xiebiao/storefront/internal/interface/http/handler"
	"github.com/xiebiao/storefront/internal/interface/http/middleware"
	"github.com/xiebiao/storefront/internal/interface/http/router"
	"github.com/xiebiao/storefront/pkg/jwt"
	"github.com/xiebiao/storefront/pkg/logger"
	"github.com/xiebiao/storefront/pkg/metrics"
	"github.com/xiebiao/storefront/pkg/mq"
)

// publishTimeout 单条订单事件的发布超时
const publishTimeout = 3 * time.Second

// App 进程内的两个服务端
type App struct {
	Config *config.Config
	Log    logrus.FieldLogger
	HTTP   *http.Server
	GRPC   *GRPCServer
}

// GRPCServer gRPC服务和它的健康检查
type GRPCServer struct {
	Server *grpc.Server
	Health *health.Server
}

// stockBackend 库存存储以及(Redis后端时)上架新书的库存同步器
type stockBackend struct {
	store  inventory.StockStore
	seeder appbook.StockSeeder
}

func provideLogger(cfg *config.Config) (*logrus.Logger, error) {
	return logger.New(logger.Options{
		Level:        cfg.Log.Level,
		Format:       cfg.Log.Format,
		Output:       cfg.Log.Output,
		EnableCaller: cfg.Log.EnableCaller,
	})
}

func provideTxManager(cfg *config.Config, db *gorm.DB) *mysql.TxManager {
	return mysql.NewTxManager(db, mysql.TxOptions{
		MaxWait: cfg.Checkout.MaxWait,
		Timeout: cfg.Checkout.Timeout,
	})
}

func providePricingEngine(cfg *config.Config) (*pricing.Engine, error) {
	rate, err := cfg.Pricing.DiscountRate()
	if err != nil {
		return nil, fmt.Errorf("解析套系折扣率失败: %w", err)
	}
	return pricing.NewEngine(rate)
}

// provideStockBackend 选择库存存储
// redis后端启动时预加载Lua脚本,并把MySQL中的库存同步到Redis(已存在的键不覆盖)
func provideStockBackend(cfg *config.Config, db *gorm.DB, rdb *goredis.Client, log logrus.FieldLogger) (*stockBackend, error) {
	if cfg.Inventory.Backend != "redis" {
		return &stockBackend{store: mysql.NewStockStore(db)}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store := redis.NewStockStore(rdb)
	if err := store.LoadScripts(ctx); err != nil {
		return nil, fmt.Errorf("加载库存Lua脚本失败: %w", err)
	}
	snapshot, err := mysql.LoadStockSnapshot(ctx, db)
	if err != nil {
		return nil, err
	}
	if err := store.Seed(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("同步库存到Redis失败: %w", err)
	}
	log.WithField("books", len(snapshot)).Info("Redis库存已就绪")
	return &stockBackend{store: store, seeder: store}, nil
}

func provideInventory(backend *stockBackend, db *gorm.DB) *inventory.Controller {
	return inventory.NewController(backend.store, mysql.NewInventoryLogRepository(db),
		inventory.WithConflictObserver(func(name string, _ uint) {
			metrics.IncCounterVec(metrics.StockReservationConflictsTotal, map[string]string{"backend": name})
		}),
		inventory.WithRevertObserver(func(err error) {
			result := "success"
			if err != nil {
				result = "failure"
			}
			metrics.IncCounterVec(metrics.SagaCompensationsTotal, map[string]string{"result": result})
		}),
	)
}

func providePublishBookUseCase(bookRepo book.Repository, backend *stockBackend, log logrus.FieldLogger) *appbook.PublishBookUseCase {
	return appbook.NewPublishBookUseCase(bookRepo, backend.seeder, log)
}

// provideEventPublisher 未启用RabbitMQ时事件直接丢弃
func provideEventPublisher(cfg *config.Config, log logrus.FieldLogger) (order.EventPublisher, func(), error) {
	if !cfg.RabbitMQ.Enabled {
		return messaging.NoopPublisher{}, func() {}, nil
	}
	sender, err := mq.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, "topic")
	if err != nil {
		return nil, nil, fmt.Errorf("连接RabbitMQ失败: %w", err)
	}
	publisher := messaging.NewPublisher(sender, publishTimeout, log)
	cleanup := func() {
		if err := publisher.Close(); err != nil {
			log.WithError(err).Warn("关闭RabbitMQ连接失败")
		}
	}
	return publisher, cleanup, nil
}

func provideOrderCache(cfg *config.Config, rdb *goredis.Client) *redis.OrderCache {
	return redis.NewOrderCache(rdb, cfg.Cache.OrderTTL)
}

func provideJWTManager(cfg *config.Config) *jwt.Manager {
	return jwt.NewManager(cfg.JWT.Secret, cfg.JWT.Expire)
}

func provideAuthMiddleware(manager *jwt.Manager, blacklist *redis.TokenBlacklist) *middleware.AuthMiddleware {
	return middleware.NewAuthMiddleware(manager, blacklist)
}

func provideAuthHandler(blacklist *redis.TokenBlacklist) *handler.AuthHandler {
	return handler.NewAuthHandler(blacklist)
}

func provideEngine(
	cfg *config.Config,
	auth *handler.AuthHandler,
	books *handler.BookHandler,
	carts *handler.CartHandler,
	orders *handler.OrderHandler,
	authMiddleware *middleware.AuthMiddleware,
	log logrus.FieldLogger,
) *gin.Engine {
	return router.New(router.Options{
		Mode:    cfg.Server.Mode,
		Swagger: cfg.Server.Mode != gin.ReleaseMode,
	}, router.Handlers{
		Auth:  auth,
		Book:  books,
		Cart:  carts,
		Order: orders,
	}, authMiddleware, log)
}

func provideHTTPServer(cfg *config.Config, engine *gin.Engine) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}

func provideGRPCServer(srv *admin.Server, log logrus.FieldLogger) *GRPCServer {
	s, hs := admin.NewGRPCServer(srv, log)
	return &GRPCServer{Server: s, Health: hs}
}

func provideApp(cfg *config.Config, log logrus.FieldLogger, httpServer *http.Server, grpcServer *GRPCServer) *App {
	return &App{
		Config: cfg,
		Log:    log,
		HTTP:   httpServer,
		GRPC:   grpcServer,
	}
}
