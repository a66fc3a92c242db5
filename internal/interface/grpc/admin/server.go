package admin

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	apporder "github.com/xiebiao/storefront/internal/application/order"
	"github.com/xiebiao/storefront/internal/domain/order"
	"github.com/xiebiao/storefront/pkg/logger"
)

// Server OrderAdmin的实现,复用HTTP接口背后的同一组用例
type Server struct {
	setStatus *apporder.SetStatusUseCase
	query     *apporder.QueryUseCase
}

// NewServer 创建服务实现
func NewServer(setStatus *apporder.SetStatusUseCase, query *apporder.QueryUseCase) *Server {
	return &Server{
		setStatus: setStatus,
		query:     query,
	}
}

// SetOrderStatus 变更订单状态
func (s *Server) SetOrderStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	orderID, err := orderIDField(req)
	if err != nil {
		return nil, err
	}

	fields := req.GetFields()
	target, err := order.ParseStatus(fields["status"].GetStringValue())
	if err != nil {
		return nil, toStatus(err)
	}
	var phone *string
	if v, ok := fields["shipping_phone"]; ok {
		if _, isString := v.GetKind().(*structpb.Value_StringValue); isString {
			p := v.GetStringValue()
			phone = &p
		}
	}

	o, err := s.setStatus.Execute(ctx, apporder.SetStatusRequest{
		Actor:   actor,
		OrderID: orderID,
		Status:  target,
		Phone:   phone,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return orderStruct(o)
}

// GetOrder 查询订单
func (s *Server) GetOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	orderID, err := orderIDField(req)
	if err != nil {
		return nil, err
	}

	o, err := s.query.Get(ctx, actor, orderID)
	if err != nil {
		return nil, toStatus(err)
	}
	return orderStruct(o)
}

func actorFromContext(ctx context.Context) (apporder.Actor, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	ids := md.Get(MetadataActorID)
	roles := md.Get(MetadataActorRole)
	if len(ids) == 0 || len(roles) == 0 {
		return apporder.Actor{}, status.Error(codes.Unauthenticated, "缺少调用者身份")
	}

	id, err := strconv.ParseUint(ids[0], 10, 64)
	if err != nil || id == 0 {
		return apporder.Actor{}, status.Error(codes.Unauthenticated, "非法的调用者ID")
	}
	role := roles[0]
	if role != apporder.RoleStaff && role != apporder.RoleCustomer {
		return apporder.Actor{}, status.Error(codes.PermissionDenied, "未知角色: "+role)
	}
	return apporder.Actor{ID: uint(id), Role: role}, nil
}

func orderIDField(req *structpb.Struct) (uint, error) {
	v := req.GetFields()["order_id"].GetNumberValue()
	if v < 1 || v != math.Trunc(v) || v > math.MaxUint32 {
		return 0, status.Error(codes.InvalidArgument, "order_id必须是正整数")
	}
	return uint(v), nil
}

func orderStruct(o *order.Order) (*structpb.Struct, error) {
	lines := make([]interface{}, len(o.Lines))
	for i, l := range o.Lines {
		line := map[string]interface{}{
			"book_id":    l.BookID,
			"book_title": l.BookTitle,
			"quantity":   l.Quantity,
			"unit_price": l.UnitPrice,
			"subtotal":   l.Subtotal,
			"discount":   l.Discount,
			"total":      l.Total,
		}
		if l.SeriesID != nil {
			line["series_id"] = *l.SeriesID
		}
		lines[i] = line
	}
	applied := make([]interface{}, len(o.AppliedSeriesIDs))
	for i, id := range o.AppliedSeriesIDs {
		applied[i] = id
	}

	st, err := structpb.NewStruct(map[string]interface{}{
		"id":                 o.ID,
		"order_no":           o.OrderNo,
		"user_id":            o.UserID,
		"status":             o.Status.String(),
		"subtotal":           o.Subtotal,
		"discount":           o.Discount,
		"total":              o.Total,
		"applied_series_ids": applied,
		"shipping_name":      o.Shipping.Name,
		"shipping_phone":     o.Shipping.Phone,
		"shipping_address":   o.Shipping.Address,
		"payment_method":     string(o.PaymentMethod),
		"deleted":            o.Deleted,
		"lines":              lines,
		"updated_at":         o.UpdatedAt.Format(time.RFC3339),
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "编码订单失败: %v", err)
	}
	return st, nil
}

// NewGRPCServer 创建gRPC服务器并注册OrderAdmin、健康检查和反射服务
func NewGRPCServer(srv OrderAdminServer, log logrus.FieldLogger) (*grpc.Server, *health.Server) {
	s := grpc.NewServer(
		grpc.MaxRecvMsgSize(4*1024*1024),
		grpc.ChainUnaryInterceptor(recoverInterceptor(log), logInterceptor(log)),
	)
	RegisterOrderAdminServer(s, srv)

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)

	// grpcurl调试
	reflection.Register(s)
	return s, hs
}

// Stop 健康检查先置为NOT_SERVING,再等进行中的请求结束
func Stop(s *grpc.Server, hs *health.Server) {
	hs.Shutdown()
	s.GracefulStop()
}

func logInterceptor(log logrus.FieldLogger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		entry := logger.WithContext(ctx, log).WithFields(logrus.Fields{
			"method":     info.FullMethod,
			"code":       status.Code(err).String(),
			"latency_ms": time.Since(start).Milliseconds(),
		})
		if status.Code(err) == codes.Internal || status.Code(err) == codes.Unknown {
			entry.WithError(err).Error("gRPC请求失败")
		} else {
			entry.Debug("gRPC请求完成")
		}
		return resp, err
	}
}

func recoverInterceptor(log logrus.FieldLogger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				log.WithFields(logrus.Fields{
					"method": info.FullMethod,
					"panic":  r,
				}).Error("gRPC处理器panic")
				err = status.Error(codes.Internal, "系统内部错误")
			}
		}()
		return handler(ctx, req)
	}
}
