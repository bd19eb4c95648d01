package server

import (
	"context"
	"database/sql"
	"errors"

	"github.com/alfredjeanlab/formdesk/internal/form"
	"github.com/alfredjeanlab/formdesk/internal/model"
	"github.com/alfredjeanlab/formdesk/internal/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// NewGRPCServer creates a gRPC server with standard interceptors,
// registers the FormService and reflection, and returns the server ready to serve.
func NewGRPCServer(formServer *FormServer, authToken string) *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			RecoveryInterceptor,
			LoggingInterceptor,
			AuthInterceptor(authToken),
		),
	)

	rpc.RegisterFormServiceServer(srv, &grpcService{s: formServer})
	reflection.Register(srv)

	return srv
}

// grpcService adapts FormServer to rpc.FormServiceServer.
type grpcService struct {
	s *FormServer
}

// GetForm returns the form for {"ticket_type"}.
func (g *grpcService) GetForm(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	tt, err := requestTicketType(req)
	if err != nil {
		return nil, err
	}
	f, err := g.s.Cache.Get(ctx, tt)
	if err != nil {
		return nil, grpcError(tt, err)
	}
	return toStruct(f)
}

// ResolveVisibility returns the layout for {"ticket_type", "values"}.
func (g *grpcService) ResolveVisibility(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in struct {
		TicketType model.TicketType  `json:"ticket_type"`
		Values     map[string]string `json:"values"`
	}
	if err := rpc.FromStruct(req, &in); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}
	if in.TicketType == "" {
		return nil, status.Error(codes.InvalidArgument, "ticket_type is required")
	}
	layout, err := g.s.resolve(ctx, in.TicketType, in.Values)
	if err != nil {
		return nil, grpcError(in.TicketType, err)
	}
	return toStruct(layout)
}

// Health returns the service health status.
func (g *grpcService) Health(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"status": "ok"})
}

func requestTicketType(req *structpb.Struct) (model.TicketType, error) {
	tt := model.TicketType(req.GetFields()["ticket_type"].GetStringValue())
	if tt == "" {
		return "", status.Error(codes.InvalidArgument, "ticket_type is required")
	}
	return tt, nil
}

func toStruct(v any) (*structpb.Struct, error) {
	st, err := rpc.ToStruct(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return st, nil
}

// grpcError maps errors from form operations to gRPC status errors.
func grpcError(tt model.TicketType, err error) error {
	var ie inputError
	var ve *model.ValidationError
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return status.Error(codes.NotFound, formNotConfigured(tt))
	case errors.Is(err, form.ErrFieldNotFound), errors.Is(err, form.ErrSectionNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.As(err, &ie), errors.As(err, &ve), errors.Is(err, form.ErrIndexOutOfRange):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Errorf(codes.Internal, "%v", err)
	}
}
