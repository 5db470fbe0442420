package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "idkeeper.v1.IdentityService"

// IdentityServer is the server side of idkeeper.v1.IdentityService, declared
// in internal/proto/idkeeper/v1/identity.proto. Requests and responses are
// google.protobuf.Struct values; the schema file lists the keys of each.
type IdentityServer interface {
	Login(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RegisterUser(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateUser(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetAllITStaff(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetAllUsers(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Profile(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DelUser(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetUserByEmail(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CheckUsername(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ForgotUsername(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ForgotPassword(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ResetPassword(context.Context, *structpb.Struct) (*structpb.Struct, error)
	VerifyToken(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(IdentityServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// FullMethod returns the "/service/method" path of name.
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

func unary(name string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(IdentityServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(IdentityServer), ctx, req.(*structpb.Struct))
			})
		},
	}
}

// IdentityServiceDesc describes idkeeper.v1.IdentityService for grpc.Server.RegisterService.
var IdentityServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*IdentityServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Login", IdentityServer.Login),
		unary("RegisterUser", IdentityServer.RegisterUser),
		unary("UpdateUser", IdentityServer.UpdateUser),
		unary("GetAllITStaff", IdentityServer.GetAllITStaff),
		unary("GetAllUsers", IdentityServer.GetAllUsers),
		unary("Profile", IdentityServer.Profile),
		unary("DelUser", IdentityServer.DelUser),
		unary("GetUserByEmail", IdentityServer.GetUserByEmail),
		unary("CheckUsername", IdentityServer.CheckUsername),
		unary("ForgotUsername", IdentityServer.ForgotUsername),
		unary("ForgotPassword", IdentityServer.ForgotPassword),
		unary("ResetPassword", IdentityServer.ResetPassword),
		unary("VerifyToken", IdentityServer.VerifyToken),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "idkeeper/v1/identity.proto",
}

// RegisterIdentityServer registers srv on s.
func RegisterIdentityServer(s grpc.ServiceRegistrar, srv IdentityServer) {
	s.RegisterService(&IdentityServiceDesc, srv)
}

// Client calls IdentityService methods over conn.
type Client struct {
	conn grpc.ClientConnInterface
}

func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// Call invokes method with req and returns the decoded response fields.
func (c *Client) Call(ctx context.Context, method string, req map[string]any, opts ...grpc.CallOption) (map[string]any, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}
