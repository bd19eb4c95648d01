package client

import (
	"context"
	"fmt"

	"github.com/alfredjeanlab/formdesk/internal/form"
	"github.com/alfredjeanlab/formdesk/internal/model"
	"github.com/alfredjeanlab/formdesk/internal/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
)

// GRPCClient implements FormReader using the gRPC transport.
type GRPCClient struct {
	conn   *grpc.ClientConn
	client *rpc.FormServiceClient
	token  string
	actor  string
}

// NewGRPCClient connects to the given gRPC address and returns a client.
func NewGRPCClient(addr, token, actor string) (*GRPCClient, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial: %w", err)
	}
	return newGRPCClient(conn, token, actor), nil
}

func newGRPCClient(conn *grpc.ClientConn, token, actor string) *GRPCClient {
	return &GRPCClient{
		conn:   conn,
		client: rpc.NewFormServiceClient(conn),
		token:  token,
		actor:  actor,
	}
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

// outgoing attaches the bearer token and actor as metadata.
func (c *GRPCClient) outgoing(ctx context.Context) context.Context {
	var kv []string
	if c.token != "" {
		kv = append(kv, "authorization", "Bearer "+c.token)
	}
	if c.actor != "" {
		kv = append(kv, rpc.ActorMetadataKey, c.actor)
	}
	if len(kv) == 0 {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, kv...)
}

func (c *GRPCClient) GetForm(ctx context.Context, tt model.TicketType) (*model.Form, error) {
	req, err := structpb.NewStruct(map[string]any{"ticket_type": string(tt)})
	if err != nil {
		return nil, err
	}
	resp, err := c.client.GetForm(c.outgoing(ctx), req)
	if err != nil {
		return nil, err
	}
	var f model.Form
	if err := rpc.FromStruct(resp, &f); err != nil {
		return nil, fmt.Errorf("decoding form: %w", err)
	}
	return &f, nil
}

func (c *GRPCClient) Resolve(ctx context.Context, tt model.TicketType, values map[string]string) (*form.Layout, error) {
	req, err := rpc.ToStruct(map[string]any{"ticket_type": tt, "values": values})
	if err != nil {
		return nil, err
	}
	resp, err := c.client.ResolveVisibility(c.outgoing(ctx), req)
	if err != nil {
		return nil, err
	}
	var l form.Layout
	if err := rpc.FromStruct(resp, &l); err != nil {
		return nil, fmt.Errorf("decoding layout: %w", err)
	}
	return &l, nil
}

func (c *GRPCClient) Health(ctx context.Context) (string, error) {
	resp, err := c.client.Health(ctx, &structpb.Struct{})
	if err != nil {
		return "", err
	}
	return resp.GetFields()["status"].GetStringValue(), nil
}
