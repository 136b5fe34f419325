package registry

import (
	"sort"

	"github.com/tailored-agentic-units/probe/pin"
)

// Request is a bulk operation: a set of writes followed by a set of reads.
type Request struct {
	WritePins map[string]any `json:"write_pins,omitzero"`
	ReadPins  []string       `json:"read_pins,omitzero"`
}

// Response carries the values of the requested reads. ReadPins is nil, and
// omitted from JSON, when the request carried no read list; an empty read
// list yields an empty map that is still encoded.
type Response struct {
	ReadPins map[string]any `json:"read_pins,omitzero"`
}

type pendingWrite struct {
	pin   *pin.Pin
	value any
}

// Exchange applies req.WritePins and then reads req.ReadPins.
//
// Every name, capability and value shape is checked before anything is
// applied, so a request naming an unknown pin or carrying a mismatched
// value changes nothing. Writes run in name order, each atomic on its own
// pin; no lock spans the whole call, so a concurrent writer may land
// between two entries of the same request or between the writes and the
// reads.
func (r *Registry) Exchange(req Request) (Response, error) {
	names := make([]string, 0, len(req.WritePins))
	for name := range req.WritePins {
		names = append(names, name)
	}
	sort.Strings(names)

	writes := make([]pendingWrite, 0, len(names))
	for _, name := range names {
		p, err := r.Get(name)
		if err != nil {
			return Response{}, &ExchangeError{Op: "write", Name: name, Err: err}
		}
		if !p.Writable() {
			return Response{}, &ExchangeError{Op: "write", Name: name, Err: pin.ErrNotWritable}
		}
		value, err := p.Conform(req.WritePins[name])
		if err != nil {
			return Response{}, &ExchangeError{Op: "write", Name: name, Err: err}
		}
		writes = append(writes, pendingWrite{pin: p, value: value})
	}

	reads := make([]*pin.Pin, len(req.ReadPins))
	for i, name := range req.ReadPins {
		p, err := r.Get(name)
		if err != nil {
			return Response{}, &ExchangeError{Op: "read", Name: name, Err: err}
		}
		if !p.Readable() {
			return Response{}, &ExchangeError{Op: "read", Name: name, Err: pin.ErrNotReadable}
		}
		reads[i] = p
	}

	for _, w := range writes {
		if err := w.pin.Write(w.value); err != nil {
			return Response{}, &ExchangeError{Op: "write", Name: w.pin.Name(), Err: err}
		}
	}

	var resp Response
	if req.ReadPins != nil {
		resp.ReadPins = make(map[string]any, len(reads))
	}
	for _, p := range reads {
		value, err := p.Read()
		if err != nil {
			return Response{}, &ExchangeError{Op: "read", Name: p.Name(), Err: err}
		}
		resp.ReadPins[p.Name()] = value
	}
	return resp, nil
}
