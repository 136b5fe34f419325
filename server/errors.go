package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"connectrpc.com/connect"

	"github.com/tailored-agentic-units/probe/pin"
	"github.com/tailored-agentic-units/probe/registry"
)

// ErrMalformedRequest reports a request body or parameter that could not
// be decoded.
var ErrMalformedRequest = errors.New("malformed request")

// Error codes carried in JSON error bodies.
const (
	CodeMalformed    = "malformed_request"
	CodeUnknownName  = "unknown_name"
	CodeNotWritable  = "not_writable"
	CodeNotReadable  = "not_readable"
	CodeTypeMismatch = "type_mismatch"
	CodeNotEvent     = "not_event"
	CodeInternal     = "internal"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// classify maps an error to its HTTP status, JSON code and Connect code.
func classify(err error) (int, string, connect.Code) {
	switch {
	case errors.Is(err, ErrMalformedRequest):
		return http.StatusBadRequest, CodeMalformed, connect.CodeInvalidArgument
	case errors.Is(err, registry.ErrUnknownName):
		return http.StatusNotFound, CodeUnknownName, connect.CodeNotFound
	case errors.Is(err, pin.ErrNotWritable):
		return http.StatusForbidden, CodeNotWritable, connect.CodePermissionDenied
	case errors.Is(err, pin.ErrNotReadable):
		return http.StatusForbidden, CodeNotReadable, connect.CodePermissionDenied
	case errors.Is(err, pin.ErrTypeMismatch), errors.Is(err, pin.ErrUnsupportedType):
		return http.StatusBadRequest, CodeTypeMismatch, connect.CodeInvalidArgument
	case errors.Is(err, pin.ErrNotEvent):
		return http.StatusBadRequest, CodeNotEvent, connect.CodeInvalidArgument
	default:
		return http.StatusInternalServerError, CodeInternal, connect.CodeInternal
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, code, _ := classify(err)
	writeJSON(w, status, ErrorBody{Error: err.Error(), Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func connectError(err error) error {
	_, _, code := classify(err)
	return connect.NewError(code, err)
}
