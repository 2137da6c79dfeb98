// package web hosts live diagram editing sessions: each websocket client
// gets its own render pipeline, and the socket doubles as the fix-request
// boundary when the client side hosts the assistant.
package web

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixge/httpsnoop"
	"golang.org/x/sync/errgroup"

	"github.com/panyam/vizfix/fixchan"
	"github.com/panyam/vizfix/oracle"
)

// Server hosts editing sessions over websockets.
type Server struct {
	Config Config
	Engine oracle.Oracle

	// Assistant, when non-nil, answers fix requests in-process. When nil,
	// fix requests are bridged to the connected client.
	Assistant fixchan.Responder

	mux *http.ServeMux
}

// NewServer creates a Server over the given engine.
func NewServer(cfg Config, engine oracle.Oracle, assistant fixchan.Responder) *Server {
	s := &Server{
		Config:    cfg,
		Engine:    engine,
		Assistant: assistant,
		mux:       http.NewServeMux(),
	}
	s.mux.HandleFunc("/ws", s.handleSession)
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "ok")
	})
	return s
}

// Handler returns the server's HTTP handler with request logging attached.
func (s *Server) Handler() http.Handler {
	return withRequestLogging(s.mux)
}

// Start runs the server until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.Config.Address(),
		Handler: s.Handler(),
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		slog.Info("Listening", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return group.Wait()
}

// withRequestLogging wraps a handler with slog access logging.
func withRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics := httpsnoop.CaptureMetrics(next, w, r)
		slog.Info("Handled request",
			"method", r.Method,
			"path", r.URL.Path,
			"code", metrics.Code,
			"duration", metrics.Duration,
			"bytes", metrics.Written)
	})
}
