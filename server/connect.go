package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/tailored-agentic-units/probe/logsink"
	"github.com/tailored-agentic-units/probe/pin"
	"github.com/tailored-agentic-units/probe/registry"
)

// ServiceName is the fully-qualified name of the Connect service.
const ServiceName = "probe.v1.ProbeService"

// Procedure paths of the Connect service. Messages are the well-known
// Struct, ListValue and Empty types carrying the same JSON shapes as the
// REST routes.
const (
	ListPinsProcedure = "/" + ServiceName + "/ListPins"
	ExchangeProcedure = "/" + ServiceName + "/Exchange"
	ReadLogsProcedure = "/" + ServiceName + "/ReadLogs"
	TriggerProcedure  = "/" + ServiceName + "/Trigger"
)

func (s *Server) connectHandlers() map[string]http.Handler {
	return map[string]http.Handler{
		ListPinsProcedure: connect.NewUnaryHandler(ListPinsProcedure, s.listPins),
		ExchangeProcedure: connect.NewUnaryHandler(ExchangeProcedure, s.exchange),
		ReadLogsProcedure: connect.NewUnaryHandler(ReadLogsProcedure, s.readLogs),
		TriggerProcedure:  connect.NewUnaryHandler(TriggerProcedure, s.trigger),
	}
}

func (s *Server) listPins(_ context.Context, _ *connect.Request[emptypb.Empty]) (*connect.Response[structpb.ListValue], error) {
	out := &structpb.ListValue{}
	if err := toMessage(s.registry.List(), out); err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(out), nil
}

func (s *Server) exchange(_ context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	var in registry.Request
	if err := fromMessage(req.Msg, &in); err != nil {
		return nil, connectError(err)
	}

	resp, err := s.registry.Exchange(in)
	if err != nil {
		return nil, connectError(err)
	}

	out := &structpb.Struct{}
	if err := toMessage(resp, out); err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(out), nil
}

func (s *Server) readLogs(_ context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.ListValue], error) {
	var in struct {
		Since float64 `json:"since"`
	}
	if err := fromMessage(req.Msg, &in); err != nil {
		return nil, connectError(err)
	}

	out := &structpb.ListValue{}
	if err := toMessage(s.logs.Since(logsink.FromUnixSeconds(in.Since)), out); err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(out), nil
}

func (s *Server) trigger(_ context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[emptypb.Empty], error) {
	fields := req.Msg.GetFields()
	name := fields["name"].GetStringValue()

	p, err := s.registry.Get(name)
	if err != nil {
		return nil, connectError(err)
	}
	if p.Kind() != pin.KindEvent {
		return nil, connectError(fmt.Errorf("%w: %s", pin.ErrNotEvent, name))
	}

	var payload any
	if v, ok := fields["payload"]; ok {
		payload = v.AsInterface()
	}
	if err := p.Write(payload); err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&emptypb.Empty{}), nil
}

// toMessage converts a JSON-encodable value into a well-known message.
func toMessage(src any, dst proto.Message) error {
	data, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	if err := protojson.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	return nil
}

// fromMessage decodes a well-known message into dst. Numbers decode as
// json.Number so integral values keep their precision.
func fromMessage(src proto.Message, dst any) error {
	data, err := protojson.Marshal(src)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	return decodeRequest(bytes.NewReader(data), dst)
}
