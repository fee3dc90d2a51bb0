// Package app wires configuration into a running patent research service.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"

	"patentrag/internal/config"
	"patentrag/internal/httpapi"
	"patentrag/internal/observability"
)

// App owns the runtime, tracing and the HTTP server lifecycle.
type App struct {
	cfg               *config.AppConfig
	logger            *slog.Logger
	runtime           *Runtime
	tracing           *observability.TracerProvider
	server            *http.Server
	cancelServerScope context.CancelFunc
	ready             atomic.Bool
}

type Options struct {
	Runtime RuntimeOptions
	Version string
}

func New(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger, opts Options) (*App, error) {
	if cfg == nil {
		return nil, errors.New("new app: nil config")
	}
	if logger == nil {
		return nil, errors.New("new app: nil logger")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("new app config: %w", err)
	}

	tp, err := observability.InitTracing(ctx, observability.TracingConfig{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: opts.Version,
		OTLPEndpoint:   cfg.Tracing.Endpoint,
		Insecure:       cfg.Tracing.Insecure,
		SampleRate:     cfg.Tracing.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("new app tracing: %w", err)
	}

	runtime, err := NewRuntime(ctx, cfg, logger, opts.Runtime)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, fmt.Errorf("new app runtime: %w", err)
	}

	serverScopeCtx, cancelServerScope := context.WithCancel(context.Background())
	a := &App{
		cfg:               cfg,
		logger:            logger,
		runtime:           runtime,
		tracing:           tp,
		cancelServerScope: cancelServerScope,
	}

	apiRouter := httpapi.NewRouter(httpapi.Options{
		Runner:         runtime.Agent,
		Tools:          runtime.Tools,
		Logger:         logger.With("component", "http"),
		RequestTimeout: cfg.RequestTimeout(),
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		EnableMCP:      cfg.Server.EnableMCP,
		Version:        opts.Version,
	})
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", a.handleHealthz)
	mux.HandleFunc("/readyz", a.handleReadyz)
	mux.Handle("/", apiRouter)
	a.server = &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: requestLoggingMiddleware(logger)(mux),
		BaseContext: func(_ net.Listener) context.Context {
			return serverScopeCtx
		},
	}
	return a, nil
}

// Handler exposes the routed handler, mainly for tests.
func (a *App) Handler() http.Handler { return a.server.Handler }

func (a *App) Runtime() *Runtime { return a.runtime }

func (a *App) Start() error {
	a.ready.Store(true)
	a.logger.Info("listening",
		slog.String("addr", a.cfg.Server.Addr),
		slog.Int("entries", a.runtime.Store.Len()),
		slog.Bool("mcp", a.cfg.Server.EnableMCP),
	)
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	a.ready.Store(false)
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	if ctx == nil {
		return errors.New("shutdown: nil context")
	}
	a.ready.Store(false)
	a.cancelServerScope()
	err := a.server.Shutdown(ctx)
	return errors.Join(err, a.tracing.Shutdown(ctx), a.runtime.Close())
}

func (a *App) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writePlain(w, http.StatusOK, "ok")
}

func (a *App) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !a.ready.Load() || a.runtime == nil || a.runtime.Store.Len() == 0 {
		writePlain(w, http.StatusServiceUnavailable, "not ready")
		return
	}
	writePlain(w, http.StatusOK, "ready")
}

func writePlain(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
