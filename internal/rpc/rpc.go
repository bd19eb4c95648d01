// Package rpc describes the formdesk.v1.FormService gRPC service. Requests
// and responses are well-known google.protobuf.Struct messages carrying the
// same JSON documents the HTTP API serves, so no generated stubs are needed.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "formdesk.v1.FormService"

// Full method names.
const (
	MethodGetForm           = "/" + ServiceName + "/GetForm"
	MethodResolveVisibility = "/" + ServiceName + "/ResolveVisibility"
	MethodHealth            = "/" + ServiceName + "/Health"
)

// ActorMetadataKey carries the caller's name, like the X-Formdesk-Actor
// header over HTTP.
const ActorMetadataKey = "x-formdesk-actor"

// FormServiceServer is the server API for FormService.
//
// GetForm takes {"ticket_type"} and returns the form document.
// ResolveVisibility takes {"ticket_type", "values"} and returns the layout.
// Health takes {} and returns {"status"}.
type FormServiceServer interface {
	GetForm(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ResolveVisibility(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Health(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterFormServiceServer registers srv on s.
func RegisterFormServiceServer(s grpc.ServiceRegistrar, srv FormServiceServer) {
	s.RegisterService(&FormServiceDesc, srv)
}

// FormServiceDesc is the grpc.ServiceDesc for FormService.
var FormServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FormServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetForm", Handler: unaryHandler(MethodGetForm, FormServiceServer.GetForm)},
		{MethodName: "ResolveVisibility", Handler: unaryHandler(MethodResolveVisibility, FormServiceServer.ResolveVisibility)},
		{MethodName: "Health", Handler: unaryHandler(MethodHealth, FormServiceServer.Health)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "formdesk/v1/formdesk.proto",
}

type unaryMethod func(FormServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(FormServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(FormServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// FormServiceClient is the client API for FormService.
type FormServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewFormServiceClient(cc grpc.ClientConnInterface) *FormServiceClient {
	return &FormServiceClient{cc: cc}
}

func (c *FormServiceClient) GetForm(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodGetForm, in, opts...)
}

func (c *FormServiceClient) ResolveVisibility(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodResolveVisibility, in, opts...)
}

func (c *FormServiceClient) Health(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodHealth, in, opts...)
}

func (c *FormServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if in == nil {
		in = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ToStruct converts any JSON-encodable value whose encoding is an object
// into a Struct.
func ToStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("not a JSON object: %w", err)
	}
	return structpb.NewStruct(m)
}

// FromStruct decodes s into v through its JSON form.
func FromStruct(s *structpb.Struct, v any) error {
	data, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal struct: %w", err)
	}
	return json.Unmarshal(data, v)
}
