package server

import (
	"context"
	"fmt"
	"strings"
	"time"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/tailored-agentic-units/probe/logsink"
	"github.com/tailored-agentic-units/probe/pin"
	"github.com/tailored-agentic-units/probe/registry"
)

// Client calls the Connect service of a remote probe server.
type Client struct {
	listPins *connect.Client[emptypb.Empty, structpb.ListValue]
	exchange *connect.Client[structpb.Struct, structpb.Struct]
	readLogs *connect.Client[structpb.Struct, structpb.ListValue]
	trigger  *connect.Client[structpb.Struct, emptypb.Empty]
}

// NewClient creates a Client for the server at baseURL, for example
// "http://localhost:8080".
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	return &Client{
		listPins: connect.NewClient[emptypb.Empty, structpb.ListValue](httpClient, baseURL+ListPinsProcedure, opts...),
		exchange: connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+ExchangeProcedure, opts...),
		readLogs: connect.NewClient[structpb.Struct, structpb.ListValue](httpClient, baseURL+ReadLogsProcedure, opts...),
		trigger:  connect.NewClient[structpb.Struct, emptypb.Empty](httpClient, baseURL+TriggerProcedure, opts...),
	}
}

// ListPins returns the descriptions of every remote pin.
func (c *Client) ListPins(ctx context.Context) ([]pin.Description, error) {
	resp, err := c.listPins.CallUnary(ctx, connect.NewRequest(&emptypb.Empty{}))
	if err != nil {
		return nil, err
	}

	var descs []pin.Description
	if err := fromMessage(resp.Msg, &descs); err != nil {
		return nil, fmt.Errorf("decode pins: %w", err)
	}
	return descs, nil
}

// Exchange performs a remote bulk write and read.
func (c *Client) Exchange(ctx context.Context, req registry.Request) (registry.Response, error) {
	msg := &structpb.Struct{}
	if err := toMessage(req, msg); err != nil {
		return registry.Response{}, err
	}

	resp, err := c.exchange.CallUnary(ctx, connect.NewRequest(msg))
	if err != nil {
		return registry.Response{}, err
	}

	var out registry.Response
	if err := fromMessage(resp.Msg, &out); err != nil {
		return registry.Response{}, fmt.Errorf("decode exchange: %w", err)
	}
	return out, nil
}

// ReadLogs returns the remote log entries stamped at or after since.
func (c *Client) ReadLogs(ctx context.Context, since time.Time) ([]logsink.Entry, error) {
	var secs float64
	if !since.IsZero() {
		secs = logsink.UnixSeconds(since)
	}
	msg, err := structpb.NewStruct(map[string]any{"since": secs})
	if err != nil {
		return nil, err
	}

	resp, err := c.readLogs.CallUnary(ctx, connect.NewRequest(msg))
	if err != nil {
		return nil, err
	}

	var entries []logsink.Entry
	if err := fromMessage(resp.Msg, &entries); err != nil {
		return nil, fmt.Errorf("decode logs: %w", err)
	}
	return entries, nil
}

// Trigger fires a remote event pin with payload.
func (c *Client) Trigger(ctx context.Context, name string, payload any) error {
	msg := &structpb.Struct{}
	if err := toMessage(map[string]any{"name": name, "payload": payload}, msg); err != nil {
		return err
	}
	_, err := c.trigger.CallUnary(ctx, connect.NewRequest(msg))
	return err
}
