package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dd0wney/cluso-threatgraph/pkg/engine"
	"github.com/dd0wney/cluso-threatgraph/pkg/logging"
	"github.com/golang/snappy"
)

const (
	encodingSnappy = "x-snappy"
	sinkHTTP       = "http"
	sinkSSE        = "sse"
)

// handleFrame serves the latest published frame. Clients that accept
// x-snappy get a snappy block instead of plain JSON.
func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	f := s.runner.Latest()

	var (
		body []byte
		err  error
	)
	if r.URL.Query().Has("pretty") {
		body, err = f.JSONIndent()
	} else {
		body, err = f.JSON()
	}
	if err != nil {
		s.logger.Error("failed to encode frame", logging.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to encode frame")
		return
	}

	encoding := "json"
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Add("Vary", "Accept-Encoding")
	if strings.Contains(r.Header.Get("Accept-Encoding"), encodingSnappy) {
		body = snappy.Encode(nil, body)
		encoding = "snappy"
		w.Header().Set("Content-Encoding", encodingSnappy)
	}
	if s.metricsRegistry != nil {
		s.metricsRegistry.RecordFrame(sinkHTTP, encoding, len(body))
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// handleStream pushes every frame as a server-sent event. Slow clients skip
// intermediate frames and always see the latest one.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	ctx := r.Context()
	sub, err := s.runner.Subscribe(ctx)
	if err != nil {
		s.respondError(w, http.StatusServiceUnavailable, "engine is shutting down")
		return
	}
	defer sub.Unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	// current state first so a new client never waits a tick to draw
	if err := s.writeFrameEvent(w, s.runner.Latest()); err != nil {
		return
	}
	flusher.Flush()

	heartbeat := time.NewTicker(s.config.HeartbeatInterval)
	defer heartbeat.Stop()

	s.logger.Debug("frame stream opened", logging.String("remote", r.RemoteAddr))
	defer s.logger.Debug("frame stream closed", logging.String("remote", r.RemoteAddr))

	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-sub.Channel():
			if !ok {
				fmt.Fprint(w, "event: close\ndata: {}\n\n")
				flusher.Flush()
				return
			}
			if err := s.writeFrameEvent(w, f); err != nil {
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (s *Server) writeFrameEvent(w http.ResponseWriter, f engine.Frame) error {
	data, err := f.JSON()
	if err != nil {
		s.logger.Error("failed to encode frame", logging.Error(err))
		return err
	}
	n, err := fmt.Fprintf(w, "id: %d\nevent: frame\ndata: %s\n\n", f.Tick, data)
	if err != nil {
		return err
	}
	if s.metricsRegistry != nil {
		s.metricsRegistry.RecordFrame(sinkSSE, "json", n)
	}
	return nil
}
