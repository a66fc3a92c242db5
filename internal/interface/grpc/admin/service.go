package admin

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName 店员后台订单服务
// 消息体使用google.protobuf.Struct,字段说明见各方法
const ServiceName = "storefront.order.v1.OrderAdmin"

const (
	methodSetOrderStatus = "/" + ServiceName + "/SetOrderStatus"
	methodGetOrder       = "/" + ServiceName + "/GetOrder"
)

// 调用者身份由上游网关放在metadata里
const (
	MetadataActorID   = "x-actor-id"
	MetadataActorRole = "x-actor-role"
)

// OrderAdminServer 服务端接口
type OrderAdminServer interface {
	// SetOrderStatus 请求: {order_id, status, shipping_phone?},返回订单
	SetOrderStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	// GetOrder 请求: {order_id},返回订单
	GetOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// RegisterOrderAdminServer 注册服务
func RegisterOrderAdminServer(s grpc.ServiceRegistrar, srv OrderAdminServer) {
	s.RegisterService(&orderAdminServiceDesc, srv)
}

var orderAdminServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*OrderAdminServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SetOrderStatus", Handler: setOrderStatusHandler},
		{MethodName: "GetOrder", Handler: getOrderHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "storefront/order/v1/order_admin.proto",
}

func setOrderStatusHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderAdminServer).SetOrderStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodSetOrderStatus}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(OrderAdminServer).SetOrderStatus(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func getOrderHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderAdminServer).GetOrder(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetOrder}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(OrderAdminServer).GetOrder(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// OrderAdminClient 客户端
type OrderAdminClient struct {
	cc grpc.ClientConnInterface
}

// NewOrderAdminClient 创建客户端
func NewOrderAdminClient(cc grpc.ClientConnInterface) *OrderAdminClient {
	return &OrderAdminClient{cc: cc}
}

// SetOrderStatus 变更订单状态
func (c *OrderAdminClient) SetOrderStatus(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodSetOrderStatus, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// GetOrder 查询订单
func (c *OrderAdminClient) GetOrder(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodGetOrder, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
