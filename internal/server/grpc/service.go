package grpc

import (
	"context"

	"github.com/dmitrijs2005/fileshare/internal/server/models"
	"github.com/dmitrijs2005/fileshare/internal/server/services"
	"google.golang.org/grpc"
)

const serviceName = "fileshare.FileShare"

// Full method names, as seen by interceptors.
const (
	MethodLogin               = "/" + serviceName + "/Login"
	MethodLogout              = "/" + serviceName + "/Logout"
	MethodListFiles           = "/" + serviceName + "/ListFiles"
	MethodRequestDownloadLink = "/" + serviceName + "/RequestDownloadLink"
)

type LoginRequest struct {
	Variant    models.Variant
	Identifier string
	Password   string
}

type LoginResponse struct {
	Token string
}

type LogoutRequest struct {
	Variant models.Variant
}

type LogoutResponse struct{}

type ListFilesRequest struct{}

type ListFilesResponse struct {
	Files []*models.File
}

type DownloadLinkRequest struct {
	FileID string
}

type DownloadLinkResponse struct {
	Link *services.DownloadLink
}

// FileShareServer is the server API of the fileshare.FileShare service.
type FileShareServer interface {
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	Logout(context.Context, *LogoutRequest) (*LogoutResponse, error)
	ListFiles(context.Context, *ListFilesRequest) (*ListFilesResponse, error)
	RequestDownloadLink(context.Context, *DownloadLinkRequest) (*DownloadLinkResponse, error)
}

// unaryHandler adapts a typed method to grpc.MethodHandler.
func unaryHandler[Req, Resp any](fullMethod string, call func(FileShareServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(FileShareServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(FileShareServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ServiceDesc describes fileshare.FileShare (api/fileshare.proto) for
// grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*FileShareServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Login", Handler: unaryHandler(MethodLogin, FileShareServer.Login)},
		{MethodName: "Logout", Handler: unaryHandler(MethodLogout, FileShareServer.Logout)},
		{MethodName: "ListFiles", Handler: unaryHandler(MethodListFiles, FileShareServer.ListFiles)},
		{MethodName: "RequestDownloadLink", Handler: unaryHandler(MethodRequestDownloadLink, FileShareServer.RequestDownloadLink)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "fileshare.proto",
}

// Client calls fileshare.FileShare over a connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts ...grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.ForceCodec(protoCodec{})}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error) {
	return invoke[LoginResponse](ctx, c.cc, MethodLogin, in, opts...)
}

func (c *Client) Logout(ctx context.Context, in *LogoutRequest, opts ...grpc.CallOption) (*LogoutResponse, error) {
	return invoke[LogoutResponse](ctx, c.cc, MethodLogout, in, opts...)
}

func (c *Client) ListFiles(ctx context.Context, in *ListFilesRequest, opts ...grpc.CallOption) (*ListFilesResponse, error) {
	return invoke[ListFilesResponse](ctx, c.cc, MethodListFiles, in, opts...)
}

func (c *Client) RequestDownloadLink(ctx context.Context, in *DownloadLinkRequest, opts ...grpc.CallOption) (*DownloadLinkResponse, error) {
	return invoke[DownloadLinkResponse](ctx, c.cc, MethodRequestDownloadLink, in, opts...)
}
