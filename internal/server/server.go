// Package server hosts the offline web shell and its JSON API. Shell assets
// are proxied through the shell cache; device calls never are.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/five82/cpsync/internal/app"
	"github.com/five82/cpsync/internal/logging"
	"github.com/five82/cpsync/internal/metrics"
	"github.com/five82/cpsync/internal/shellcache"
	"github.com/five82/cpsync/internal/state"
)

const maxUploadMemory = 32 << 20

// Options configure the shell server.
type Options struct {
	Controller *app.Controller
	// Shell is the cache-first transport the shell assets are fetched through.
	Shell *shellcache.Transport
	// Origin is where shell assets come from on a cache miss.
	Origin string
	// UploadDir receives files added from the browser before they are queued.
	UploadDir string
	// StartAddress pre-fills the connect form when nothing was tried yet.
	StartAddress string
	Logger       *zap.Logger
}

// Server serves the shell, the API and the event stream.
type Server struct {
	ctrl     *app.Controller
	shell    http.Handler
	uploads  *uploadStore
	start    string
	logger   *zap.Logger
	upgrader websocket.Upgrader

	// syncCtx outlives the request that starts a pass.
	syncCtx context.Context
}

// New builds a Server. ctx bounds passes started from the browser and the
// cleanup of stored uploads. Leftovers from an earlier run are deleted.
func New(ctx context.Context, opts Options) (*Server, error) {
	if opts.Controller == nil {
		return nil, errors.New("server: controller is required")
	}
	origin, err := url.Parse(opts.Origin)
	if err != nil || origin.Host == "" {
		return nil, fmt.Errorf("server: invalid shell origin %q", opts.Origin)
	}

	logger := logging.OrNop(opts.Logger)
	proxy := &httputil.ReverseProxy{
		Rewrite: func(r *httputil.ProxyRequest) {
			r.SetURL(origin)
			r.Out.Host = origin.Host
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Warn("shell asset unavailable", zap.String("path", r.URL.Path), zap.Error(err))
			writeError(w, http.StatusBadGateway, "shell_unavailable", "Shell asset not cached and origin unreachable")
		},
	}
	if opts.Shell != nil {
		proxy.Transport = opts.Shell
	}

	uploads := newUploadStore(opts.UploadDir, opts.Controller, logger)
	uploads.sweep()
	uploads.watch(ctx)

	return &Server{
		ctrl:    opts.Controller,
		shell:   proxy,
		uploads: uploads,
		start:   opts.StartAddress,
		logger:  logger,
		syncCtx: ctx,
	}, nil
}

// Handler builds the routing tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(s.logger))

	r.Get("/healthz", s.health)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/events", s.events)
	r.Route("/api", func(api chi.Router) {
		api.Get("/status", s.status)
		api.Post("/connect", s.connect)
		api.Post("/upload", s.upload)
		api.Delete("/queue", s.clearQueue)
		api.Delete("/queue/{index}", s.removeQueued)
		api.Post("/sync", s.sync)
	})

	r.Get("/*", s.shell.ServeHTTP)
	r.Get("/", s.shell.ServeHTTP)
	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.payload(s.ctrl.Snapshot(), ""))
}

func (s *Server) connect(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Address string `json:"address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Address) == "" {
		writeError(w, http.StatusBadRequest, "invalid_payload", "address is required")
		return
	}
	result := s.ctrl.Connect(r.Context(), body.Address)
	writeJSON(w, http.StatusOK, map[string]any{
		"connected": result.Connected(),
		"outcome":   result.Outcome.String(),
		"reason":    result.Reason(),
	})
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "multipart form expected")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	var paths []string
	defer func() {
		s.uploads.release(paths...)
		s.uploads.reconcile()
	}()
	for _, header := range r.MultipartForm.File["file"] {
		path, err := s.uploads.save(header)
		if err != nil {
			s.logger.Warn("store upload failed", zap.String("file", header.Filename), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "store_failed", err.Error())
			return
		}
		paths = append(paths, path)
	}
	added, err := s.ctrl.AddPaths(paths...)
	if err != nil {
		s.logger.Warn("queue uploaded files", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, map[string]any{"queued": added})
}

func (s *Server) clearQueue(w http.ResponseWriter, _ *http.Request) {
	s.ctrl.ClearQueue()
	writeJSON(w, http.StatusOK, map[string]any{"queued": 0})
}

func (s *Server) removeQueued(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_index", "index must be a number")
		return
	}
	// Stale indexes are a no-op rather than an error.
	removed := s.ctrl.RemoveAt(index)
	writeJSON(w, http.StatusOK, map[string]any{"removed": removed, "queued": s.ctrl.QueueLen()})
}

func (s *Server) sync(w http.ResponseWriter, _ *http.Request) {
	switch {
	case s.ctrl.Syncing():
		writeError(w, http.StatusConflict, "sync_in_progress", "A sync pass is already running")
		return
	case s.ctrl.Snapshot().Connection.State != state.Connected:
		writeError(w, http.StatusConflict, "not_connected", "Device not connected")
		return
	case s.ctrl.QueueLen() == 0:
		writeError(w, http.StatusConflict, "queue_empty", "Nothing queued")
		return
	}

	go func() {
		if _, err := s.ctrl.Sync(s.syncCtx); err != nil && !app.IsNoop(err) {
			s.logger.Warn("sync failed", zap.Error(err))
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]any{"started": true})
}

// RunServer starts and gracefully stops HTTP server with context cancellation.
func RunServer(ctx context.Context, server *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}
