package server

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/tailored-agentic-units/probe/logsink"
	"github.com/tailored-agentic-units/probe/registry"
)

const maxBodyBytes = 1 << 20

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, s.cfg); err != nil {
		writeError(w, err)
	}
}

func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("file")
	if !fs.ValidPath(name) {
		http.NotFound(w, r)
		return
	}

	var fsys fs.FS = staticFS
	if s.cfg.StaticRoot != "" {
		fsys = os.DirFS(s.cfg.StaticRoot)
	}
	http.ServeFileFS(w, r, fsys, name)
}

func (s *Server) handleAllPins(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.List())
}

func (s *Server) handlePinValue(w http.ResponseWriter, r *http.Request) {
	var req registry.Request
	if err := decodeRequest(http.MaxBytesReader(w, r.Body, maxBodyBytes), &req); err != nil {
		writeError(w, err)
		return
	}

	resp, err := s.registry.Exchange(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	since, err := parseSince(r)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, s.logs.Since(since))
}

// parseSince reads the watermark from "since", or from "timestamp" when
// "since" is absent. A missing watermark selects every entry.
func parseSince(r *http.Request) (time.Time, error) {
	q := r.URL.Query()
	raw := q.Get("since")
	if raw == "" {
		raw = q.Get("timestamp")
	}
	if raw == "" {
		return time.Time{}, nil
	}

	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: since %q", ErrMalformedRequest, raw)
	}
	return logsink.FromUnixSeconds(secs), nil
}

func decodeRequest(body io.Reader, dst any) error {
	dec := json.NewDecoder(body)
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	return nil
}

var indexTemplate = template.Must(template.ParseFS(webFS, "web/index.html"))
