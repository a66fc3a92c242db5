package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	_ "github.com/xiebiao/storefront/docs"
	appbook "github.com/xiebiao/storefront/internal/application/book"
	appcart "github.com/xiebiao/storefront/internal/application/cart"
	apporder "github.com/xiebiao/storefront/internal/application/order"
	"github.com/xiebiao/storefront/internal/infrastructure/config"
	"github.com/xiebiao/storefront/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/storefront/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/storefront/internal/interface/grpc/admin"
	"github.com/xiebiao/storefront/internal/interface/http/handler"
	"github.com/xiebiao/storefront/pkg/metrics"
	"github.com/xiebiao/storefront/pkg/tracing"
)

// @title                       Storefront API
// @version                     1.0
// @description                 图书商城下单与库存服务
// @host                        localhost:8080
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Bearer {token}
func main() {
	configPath := flag.String("config", "", "配置文件路径(默认按STOREFRONT_ENV查找config/config.yaml)")
	flag.Parse()

	// 1. 加载配置
	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 2. 日志
	logrusLogger, err := provideLogger(cfg)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	entry := logrusLogger.WithField("service", cfg.Tracing.ServiceName)

	// 3. 链路追踪
	if cfg.Tracing.Enabled {
		shutdown, err := tracing.InitTracer(tracing.Options{
			ServiceName: cfg.Tracing.ServiceName,
			Endpoint:    cfg.Tracing.Endpoint,
			Insecure:    true,
			SampleRatio: cfg.Tracing.SampleRatio,
		})
		if err != nil {
			entry.WithError(err).Fatal("初始化链路追踪失败")
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				entry.WithError(err).Warn("关闭链路追踪失败")
			}
		}()
	}

	metrics.InitMetrics()

	// 4. 组装依赖
	app, cleanup, err := buildApp(cfg, entry)
	if err != nil {
		entry.WithError(err).Fatal("初始化服务失败")
	}
	defer cleanup()

	if err := run(app); err != nil {
		entry.WithError(err).Error("服务异常退出")
		cleanup()
		os.Exit(1)
	}
}

// buildApp 手动依赖注入,与wire.go中的Provider集合保持一致
// 依赖链: DB/Redis ← Repository/Store ← UseCase ← Handler ← Router
func buildApp(cfg *config.Config, log logrus.FieldLogger) (*App, func(), error) {
	db, err := mysql.NewDB(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	rdb, err := redis.NewClient(cfg, log)
	if err != nil {
		closeDB(db, log)
		return nil, nil, err
	}

	publisher, closePublisher, err := provideEventPublisher(cfg, log)
	if err != nil {
		closeRedis(rdb, log)
		closeDB(db, log)
		return nil, nil, err
	}
	cleanup := func() {
		closePublisher()
		closeRedis(rdb, log)
		closeDB(db, log)
	}
	fail := func(err error) (*App, func(), error) {
		cleanup()
		return nil, nil, err
	}

	// 基础设施层
	txManager := provideTxManager(cfg, db)
	bookRepo := mysql.NewBookRepository(db)
	cartRepo := mysql.NewCartRepository(db)
	orderRepo := mysql.NewOrderRepository(db)
	backend, err := provideStockBackend(cfg, db, rdb, log)
	if err != nil {
		return fail(err)
	}
	orderCache := provideOrderCache(cfg, rdb)
	blacklist := redis.NewTokenBlacklist(rdb)

	// 领域层
	inv := provideInventory(backend, db)
	engine, err := providePricingEngine(cfg)
	if err != nil {
		return fail(err)
	}

	// 应用层
	listBooks := appbook.NewListBooksUseCase(bookRepo, inv)
	publishBook := providePublishBookUseCase(bookRepo, backend, log)
	restock := appbook.NewRestockUseCase(txManager, inv, log)
	cartService := appcart.NewService(cartRepo, bookRepo, inv, engine)
	placeOrder := apporder.NewPlaceOrderUseCase(txManager, cartRepo, bookRepo, orderRepo, inv, engine, publisher, log)
	setStatus := apporder.NewSetStatusUseCase(txManager, orderRepo, inv, orderCache, publisher, log)
	query := apporder.NewQueryUseCase(orderRepo, orderCache, log)

	// 接口层
	ginEngine := provideEngine(cfg,
		provideAuthHandler(blacklist),
		handler.NewBookHandler(listBooks, publishBook, restock),
		handler.NewCartHandler(cartService),
		handler.NewOrderHandler(placeOrder, setStatus, query),
		provideAuthMiddleware(provideJWTManager(cfg), blacklist),
		log,
	)
	grpcServer := provideGRPCServer(admin.NewServer(setStatus, query), log)

	return provideApp(cfg, log, provideHTTPServer(cfg, ginEngine), grpcServer), cleanup, nil
}

// run 启动HTTP和gRPC服务,收到SIGINT/SIGTERM后优雅关闭
func run(app *App) error {
	errCh := make(chan error, 2)

	go func() {
		app.Log.WithField("addr", app.HTTP.Addr).Info("HTTP服务启动")
		if err := app.HTTP.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP服务: %w", err)
		}
	}()

	if app.Config.GRPC.Port > 0 {
		lis, err := net.Listen("tcp", fmt.Sprintf(":%d", app.Config.GRPC.Port))
		if err != nil {
			return fmt.Errorf("监听gRPC端口失败: %w", err)
		}
		go func() {
			app.Log.WithField("addr", lis.Addr().String()).Info("gRPC服务启动")
			if err := app.GRPC.Server.Serve(lis); err != nil {
				errCh <- fmt.Errorf("gRPC服务: %w", err)
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-quit:
		app.Log.WithField("signal", sig.String()).Info("收到关闭信号,开始优雅关闭")
	case runErr = <-errCh:
	}

	ctx, cancel := context.WithTimeout(context.Background(), app.Config.Server.ShutdownTimeout)
	defer cancel()
	if err := app.HTTP.Shutdown(ctx); err != nil {
		app.Log.WithError(err).Warn("HTTP服务关闭超时")
	}
	admin.Stop(app.GRPC.Server, app.GRPC.Health)

	app.Log.Info("服务已安全关闭")
	return runErr
}

func closeDB(db *gorm.DB, log logrus.FieldLogger) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.WithError(err).Warn("关闭数据库连接失败")
	}
}

func closeRedis(rdb *goredis.Client, log logrus.FieldLogger) {
	if err := rdb.Close(); err != nil {
		log.WithError(err).Warn("关闭Redis连接失败")
	}
}
