// Package server assembles the storage backend, library service and HTTP
// surface into one runnable process.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/quillreader/backend/internal/api/http"
	"github.com/quillreader/backend/internal/api/middleware"
	"github.com/quillreader/backend/internal/api/ws"
	"github.com/quillreader/backend/internal/fetch"
	"github.com/quillreader/backend/internal/infrastructure/config"
	"github.com/quillreader/backend/internal/infrastructure/logging"
	"github.com/quillreader/backend/internal/infrastructure/monitoring"
	"github.com/quillreader/backend/internal/library"
	"github.com/quillreader/backend/internal/shared/paths"
	"github.com/quillreader/backend/internal/storage"
	"github.com/quillreader/backend/internal/storage/native"
	"github.com/quillreader/backend/internal/storage/web"
)

// Version is stamped at build time.
var Version = "dev"

// Server wraps the HTTP server and its dependencies.
type Server struct {
	cfg     *config.Config
	log     *logging.Logger
	backend storage.Backend
	library *library.Service
	hub     *ws.Hub
	httpSrv *http.Server
}

// New builds a fully wired server from configuration. The storage
// backend is chosen once here and never changes for the process
// lifetime.
func New(cfg *config.Config, log *logging.Logger) (*Server, error) {
	blobs := storage.NewBlobRegistry()

	selected, resolver, err := selectBackend(cfg, blobs)
	if err != nil {
		return nil, fmt.Errorf("select backend: %w", err)
	}
	log.Info("storage backend ready",
		zap.String("kind", string(selected.Kind())),
		zap.String("data_root", resolver.Root(paths.Data)),
	)

	metrics := monitoring.NewMetrics()
	var backend storage.Backend = monitoring.InstrumentBackend(selected, metrics)
	lib := library.NewService(backend, log)
	hub := ws.NewHub(log, metrics)
	lib.OnChange(hub.Broadcast)

	var remote *fetch.OpenLibrary
	if cfg.Fetch.Enabled {
		opts := fetch.DefaultOptions()
		opts.Timeout = time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second
		opts.UserAgent = cfg.Fetch.UserAgent
		remote = fetch.NewOpenLibrary(fetch.NewClient(opts))
	}

	handlers := apihttp.NewHandlers(backend, resolver, blobs, lib, remote, log, metrics, Version)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers.Register(router)
	router.GET("/events", hub.HandleConnection)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return &Server{
		cfg:     cfg,
		log:     log,
		backend: backend,
		library: lib,
		hub:     hub,
		httpSrv: &http.Server{
			Addr:              cfg.Server.Host + ":" + cfg.Server.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// selectBackend picks native or web storage. "auto" follows the detected
// platform kind.
func selectBackend(cfg *config.Config, blobs *storage.BlobRegistry) (storage.Backend, *paths.Resolver, error) {
	kind := cfg.App.Backend
	if kind == "" || kind == "auto" {
		kind = string(paths.Platform())
	}

	switch kind {
	case string(paths.KindNative):
		resolver := paths.NewNativeResolver(cfg.App.Name)
		backend := native.New(resolver, blobs)
		if err := backend.EnsureRoots(); err != nil {
			return nil, nil, err
		}
		return backend, resolver, nil

	case string(paths.KindWeb):
		resolver := paths.NewVirtualResolver()
		storePath := cfg.App.WebStorePath
		if storePath == "" {
			// The emulated store still needs one host file to live in.
			host := paths.NewNativeResolver(cfg.App.Name)
			storePath = filepath.Join(host.Root(paths.Data), "webstore.db")
		}
		if err := os.MkdirAll(filepath.Dir(storePath), 0o755); err != nil {
			return nil, nil, err
		}
		backend, err := web.Open(storePath, resolver, blobs)
		if err != nil {
			return nil, nil, err
		}
		return backend, resolver, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", kind)
	}
}

// Run starts serving and blocks until the listener fails or Shutdown is
// called.
func (s *Server) Run() error {
	s.log.Info("server listening", zap.String("addr", s.httpSrv.Addr))
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then releases the backend.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpSrv.Shutdown(ctx); err != nil {
		s.log.Warn("http shutdown", zap.Error(err))
	}
	s.hub.Close()
	if err := s.backend.Close(); err != nil {
		return fmt.Errorf("close backend: %w", err)
	}
	return nil
}
