package redisserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/jetkv/internal/storage/memory"
	"github.com/yndnr/jetkv/internal/telemetry/metric"
	"github.com/yndnr/jetkv/pkg/cmap"
	"github.com/yndnr/jetkv/pkg/resp"
)

// ErrServerClosed is returned by Serve and ListenAndServe after Shutdown or
// context cancellation.
var ErrServerClosed = errors.New("redisserver: server closed")

// DefaultAddr is the conventional listen address.
const DefaultAddr = "127.0.0.1:6379"

// Config holds the RESP server configuration.
type Config struct {
	// Addr is the TCP listen address (default: 127.0.0.1:6379).
	Addr string

	// RateLimit is the maximum commands per second per connection.
	// Zero disables rate limiting.
	RateLimit int

	// IdleTimeout closes connections with no buffered data that stay silent
	// this long. Zero disables it.
	IdleTimeout time.Duration
	// ReadTimeout closes connections that leave a frame incomplete this long.
	// Zero disables it.
	ReadTimeout time.Duration
	// WriteTimeout bounds each flush of replies. Zero disables it.
	WriteTimeout time.Duration

	// MaxBulkLen and MaxArrayLen override the protocol limits when non-zero.
	MaxBulkLen  int
	MaxArrayLen int

	// OnReady is called once the listener is accepting, with its address.
	OnReady func(net.Addr)

	Logger  *slog.Logger
	Metrics *metric.Registry
}

// Server accepts RESP connections and serves them from one shared store.
type Server struct {
	cfg        Config
	store      *memory.Store
	dispatcher *Dispatcher
	parser     resp.Parser
	metrics    *metric.Registry
	logger     *slog.Logger

	conns *cmap.Map[*conn]

	mu       sync.Mutex
	ln       net.Listener
	shutdown atomic.Bool
	wg       sync.WaitGroup
}

// New creates a server for store. A nil store gets a fresh one.
func New(cfg Config, store *memory.Store) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if store == nil {
		store = memory.New()
	}

	log := cfg.Logger.With("component", "redisserver")
	return &Server{
		cfg:        cfg,
		store:      store,
		dispatcher: NewDispatcher(store, cfg.Metrics, log),
		parser: resp.Parser{
			MaxBulkLen:  cfg.MaxBulkLen,
			MaxArrayLen: cfg.MaxArrayLen,
		},
		metrics: cfg.Metrics,
		logger:  log,
		conns:   cmap.New[*conn](),
	}
}

// Run serves a fresh store on addr until ctx is cancelled.
func Run(ctx context.Context, addr string) error {
	err := New(Config{Addr: addr}, nil).ListenAndServe(ctx)
	if errors.Is(err, ErrServerClosed) {
		return nil
	}
	return err
}

// Store returns the store the server executes commands against.
func (s *Server) Store() *memory.Store {
	return s.store
}

// ListenAndServe listens on the configured address and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.shutdown.Load() {
		return ErrServerClosed
	}
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until Shutdown is called or ctx is
// cancelled, then returns ErrServerClosed. A non-transient accept error
// closes ln and every live connection and is returned as is. Serve takes
// ownership of ln.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.shutdown.Load() {
		s.mu.Unlock()
		_ = ln.Close()
		return ErrServerClosed
	}
	s.ln = ln
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		_ = s.Shutdown(context.Background())
	})
	defer stop()

	s.logger.Info("redis server listening", "addr", ln.Addr().String())
	if s.cfg.OnReady != nil {
		s.cfg.OnReady(ln.Addr())
	}

	var backoff time.Duration
	for {
		nc, err := ln.Accept()
		if err != nil {
			if s.shutdown.Load() {
				return ErrServerClosed
			}
			if retryableAccept(err) {
				backoff = nextBackoff(backoff)
				s.logger.Warn("accept failed, retrying", "error", err, "delay", backoff)
				time.Sleep(backoff)
				continue
			}
			s.logger.Error("accept failed, closing server", "error", err)
			_ = ln.Close()
			s.closeConns()
			return err
		}
		backoff = 0

		// wg.Add must not race with the Wait in Shutdown.
		s.mu.Lock()
		if s.shutdown.Load() {
			s.mu.Unlock()
			_ = nc.Close()
			return ErrServerClosed
		}
		s.wg.Add(1)
		s.mu.Unlock()

		go s.handle(ctx, nc)
	}
}

// retryableAccept reports whether an accept error is transient. Running out
// of descriptors or buffers clears once connections close.
func retryableAccept(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	for _, errno := range []syscall.Errno{
		syscall.EMFILE, syscall.ENFILE, syscall.ENOBUFS, syscall.ENOMEM, syscall.ECONNABORTED,
	} {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	if d *= 2; d > time.Second {
		d = time.Second
	}
	return d
}

func (s *Server) handle(ctx context.Context, nc net.Conn) {
	defer s.wg.Done()

	c := newConn(s, ulid.Make().String(), nc)
	s.conns.Set(c.id, c)
	s.metrics.ConnOpened()
	defer func() {
		s.conns.Delete(c.id)
		s.metrics.ConnClosed()
	}()

	// Shutdown may have swept the registry before this connection joined it.
	if s.shutdown.Load() {
		c.close()
		return
	}

	c.logger.Debug("connection accepted")
	c.serve(ctx)
}

// Shutdown stops accepting, closes every live connection and waits for
// their handlers to return or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.shutdown.Store(true)
	ln := s.ln
	s.mu.Unlock()

	var err error
	if ln != nil {
		if cerr := ln.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
			err = cerr
		}
	}

	s.closeConns()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) closeConns() {
	s.conns.Range(func(_ string, c *conn) bool {
		_ = c.close()
		return true
	})
}

// Addr returns the listener address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// ConnCount returns the number of live connections.
func (s *Server) ConnCount() int {
	return s.conns.Count()
}
