package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/jetkv/internal/infra/buildinfo"
	"github.com/yndnr/jetkv/internal/infra/confloader"
	"github.com/yndnr/jetkv/internal/infra/shutdown"
	"github.com/yndnr/jetkv/internal/server/config"
	"github.com/yndnr/jetkv/internal/server/httpserver"
	"github.com/yndnr/jetkv/internal/server/httpserver/handler"
	"github.com/yndnr/jetkv/internal/server/redisserver"
	"github.com/yndnr/jetkv/internal/storage/memory"
	"github.com/yndnr/jetkv/internal/telemetry/logger"
	"github.com/yndnr/jetkv/internal/telemetry/metric"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "jetkv-server",
		Usage:   "in-memory key-value server speaking RESP",
		Version: buildinfo.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				EnvVars: []string{"JETKV_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "addr",
				Usage: "RESP listen address (server.redis.addr)",
			},
			&cli.StringFlag{
				Name:  "http-addr",
				Usage: "Admin HTTP listen address (server.http.addr)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level: debug, info, warn, error (log.level)",
			},
		},
		Action: func(c *cli.Context) error {
			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, serveOptions{
				ConfigPath: c.String("config"),
				Overrides:  flagOverrides(c),
				Metrics:    metric.Global(),
			})
		},
	}
}

// flagOverrides maps explicitly set flags to config keys.
func flagOverrides(c *cli.Context) map[string]any {
	overrides := make(map[string]any)
	for flag, key := range map[string]string{
		"addr":      "server.redis.addr",
		"http-addr": "server.http.addr",
		"log-level": "log.level",
	} {
		if c.IsSet(flag) {
			overrides[key] = c.String(flag)
		}
	}
	return overrides
}

type serveOptions struct {
	ConfigPath string
	Overrides  map[string]any
	Metrics    *metric.Registry
	// OnReady, if set, receives the bound RESP address.
	OnReady func(net.Addr)
}

// serve runs the server until ctx is done or a listener fails.
func serve(ctx context.Context, opts serveOptions) error {
	configPath, overrides := opts.ConfigPath, opts.Overrides

	cfg, err := config.Load(configPath, overrides)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)

	info := buildinfo.Get()
	log.Info("starting jetkv-server",
		"version", info.Version,
		"commit", info.Commit,
		"config", configPath)

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	store := memory.New()
	metrics := opts.Metrics
	if metrics == nil {
		metrics = metric.NewRegistry()
	}
	metrics.MustRegister(metric.NewCollector(store))

	status := &serverStatus{store: store, started: time.Now()}
	redisSrv := redisserver.New(redisserver.Config{
		Addr:         cfg.Server.Redis.Addr,
		RateLimit:    cfg.Server.Redis.RateLimit,
		IdleTimeout:  cfg.Server.Redis.IdleTimeout,
		ReadTimeout:  cfg.Server.Redis.ReadTimeout,
		WriteTimeout: cfg.Server.Redis.WriteTimeout,
		MaxBulkLen:   cfg.Server.Redis.MaxBulkLen,
		MaxArrayLen:  cfg.Server.Redis.MaxArrayLen,
		Logger:       log.Slog(),
		Metrics:      metrics,
		OnReady: func(addr net.Addr) {
			status.ready.Store(true)
			log.Info("redis listener ready", "addr", addr.String())
			if opts.OnReady != nil {
				opts.OnReady(addr)
			}
		},
	}, store)
	status.srv = redisSrv

	shutdownHandler := shutdown.NewHandler(shutdownTimeout)

	// Hooks run in reverse order: stop accepting admin traffic last so
	// /ready reports the drain.
	if cfg.Server.HTTP.Enabled {
		ln, err := net.Listen("tcp", cfg.Server.HTTP.Addr)
		if err != nil {
			return fmt.Errorf("listen http: %w", err)
		}
		httpSrv := httpserver.New(cfg.Server.HTTP.Addr, httpserver.NewRouter(&httpserver.RouterConfig{
			Status:  status,
			Metrics: metrics.Handler(),
			Logger:  log.Slog().With("component", "httpserver"),
		}))
		shutdownHandler.OnShutdown(func(ctx context.Context) error {
			log.Info("shutting down HTTP server")
			return httpSrv.Shutdown(ctx)
		})

		go func() {
			log.Info("HTTP server listening", "addr", ln.Addr().String())
			if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				cancel(fmt.Errorf("http server: %w", err))
			}
		}()
	}

	if configPath != "" {
		if err := watchLogLevel(shutdownHandler, configPath, overrides, log); err != nil {
			log.Warn("config watch disabled", "path", configPath, "error", err)
		}
	}

	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		status.ready.Store(false)
		log.Info("shutting down redis server")
		return redisSrv.Shutdown(ctx)
	})

	go func() {
		if err := redisSrv.ListenAndServe(ctx); err != nil && !errors.Is(err, redisserver.ErrServerClosed) {
			cancel(fmt.Errorf("redis server: %w", err))
		}
	}()

	log.Info("server started, press Ctrl+C to stop")
	if err := shutdownHandler.WaitContext(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		return cause
	}
	log.Info("server stopped gracefully")
	return nil
}

// watchLogLevel reapplies log.level whenever the config file changes.
func watchLogLevel(h *shutdown.Handler, path string, overrides map[string]any, log logger.Logger) error {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log.Slog()))
	if err != nil {
		return err
	}
	if err := w.Watch(path); err != nil {
		_ = w.Stop()
		return err
	}

	w.OnChange(func(string) {
		cfg, err := config.Load(path, overrides)
		if err != nil {
			log.Warn("config reload rejected", "path", path, "error", err)
			return
		}
		if cfg.Log.Level != logger.GetLevel() {
			logger.SetLevel(cfg.Log.Level)
			log.Info("log level changed", "level", cfg.Log.Level)
		}
	})
	w.StartAsync()

	h.OnShutdown(func(context.Context) error {
		return w.Stop()
	})
	return nil
}

// serverStatus feeds /ready and /status.
type serverStatus struct {
	srv     *redisserver.Server
	store   *memory.Store
	started time.Time
	ready   atomic.Bool
}

func (s *serverStatus) Ready() bool {
	return s.ready.Load()
}

func (s *serverStatus) Status() handler.Status {
	st := s.store.Stats()
	var addr string
	if a := s.srv.Addr(); a != nil {
		addr = a.String()
	}
	return handler.Status{
		Version:     buildinfo.Get().Version,
		RedisAddr:   addr,
		Connections: s.srv.ConnCount(),
		Keys:        s.store.Len(),
		Hits:        st.Hits,
		Misses:      st.Misses,
		Expired:     st.Expired,
		UptimeSec:   int64(time.Since(s.started).Seconds()),
	}
}
