package redisserver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yndnr/jetkv/internal/telemetry/metric"
)

// startServer serves on a loopback port and shuts down on cleanup.
func startServer(t *testing.T, cfg Config) (*Server, string) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	if cfg.Logger == nil {
		cfg.Logger = discardLogger()
	}

	srv := New(cfg, nil)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(context.Background(), ln) }()

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			t.Errorf("Shutdown() error = %v", err)
		}
		if err := <-errCh; !errors.Is(err, ErrServerClosed) {
			t.Errorf("Serve() error = %v, want ErrServerClosed", err)
		}
	})
	return srv, ln.Addr().String()
}

type testClient struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
}

func dial(t *testing.T, addr string) *testClient {
	t.Helper()
	c, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return &testClient{t: t, conn: c, r: bufio.NewReader(c)}
}

func (c *testClient) send(raw string) {
	c.t.Helper()
	if _, err := io.WriteString(c.conn, raw); err != nil {
		c.t.Fatalf("write: %v", err)
	}
}

// expect reads exactly len(want) bytes and compares them.
func (c *testClient) expect(want string) {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	got := make([]byte, len(want))
	if _, err := io.ReadFull(c.r, got); err != nil {
		c.t.Fatalf("read reply (want %q): %v (got %q)", want, err, got)
	}
	if string(got) != want {
		c.t.Fatalf("reply = %q, want %q", got, want)
	}
}

// expectClosed asserts the server closes the connection.
func (c *testClient) expectClosed() {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	b, err := c.r.ReadByte()
	if err == nil {
		c.t.Fatalf("expected closed connection, read %q", b)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		c.t.Fatal("connection was not closed by the server")
	}
}

func cmd(args ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%d\r\n", len(args))
	for _, a := range args {
		fmt.Fprintf(&b, "$%d\r\n%s\r\n", len(a), a)
	}
	return b.String()
}

// ============================================================================
// Wire behavior
// ============================================================================

func TestServer_Ping(t *testing.T) {
	_, addr := startServer(t, Config{})
	c := dial(t, addr)

	c.send(cmd("PING"))
	c.expect("+PONG\r\n")
}

func TestServer_Echo(t *testing.T) {
	_, addr := startServer(t, Config{})
	c := dial(t, addr)

	c.send(cmd("ECHO", "hello"))
	c.expect("$5\r\nhello\r\n")
}

func TestServer_SetGet(t *testing.T) {
	_, addr := startServer(t, Config{})
	c := dial(t, addr)

	c.send(cmd("SET", "k", "v"))
	c.expect("+OK\r\n")
	c.send(cmd("GET", "k"))
	c.expect("$1\r\nv\r\n")
}

func TestServer_GetMissing(t *testing.T) {
	_, addr := startServer(t, Config{})
	c := dial(t, addr)

	c.send(cmd("GET", "never-set"))
	c.expect("$-1\r\n")
}

func TestServer_PXExpiry(t *testing.T) {
	srv, addr := startServer(t, Config{})
	c := dial(t, addr)

	c.send(cmd("SET", "k", "v", "PX", "100"))
	c.expect("+OK\r\n")

	time.Sleep(150 * time.Millisecond)

	c.send(cmd("GET", "k"))
	c.expect("$-1\r\n")
	if n := srv.Store().Len(); n != 0 {
		t.Errorf("expired key still stored, Len() = %d", n)
	}
	c.send(cmd("GET", "k"))
	c.expect("$-1\r\n")
}

func TestServer_UnknownCommandKeepsConnection(t *testing.T) {
	_, addr := startServer(t, Config{})
	c := dial(t, addr)

	c.send(cmd("FOO"))
	c.expect("-ERR unknown command\r\n")
	c.send(cmd("SET", "k", "v", "PX", "abc"))
	c.expect("-ERR value is not an integer\r\n")
	c.send(cmd("GET"))
	c.expect("-ERR wrong number of arguments\r\n")
	c.send(cmd("PING"))
	c.expect("+PONG\r\n")
}

func TestServer_Pipelined(t *testing.T) {
	_, addr := startServer(t, Config{})
	c := dial(t, addr)

	c.send(cmd("SET", "a", "1") + cmd("GET", "a") + cmd("DEL", "a") + cmd("EXISTS", "a") + cmd("PING"))
	c.expect("+OK\r\n$1\r\n1\r\n:1\r\n:0\r\n+PONG\r\n")
}

func TestServer_ByteAtATime(t *testing.T) {
	_, addr := startServer(t, Config{})
	c := dial(t, addr)

	raw := cmd("ECHO", "chunked")
	for i := 0; i < len(raw); i++ {
		c.send(raw[i : i+1])
		time.Sleep(time.Millisecond)
	}
	c.expect("$7\r\nchunked\r\n")
}

func TestServer_LargeValue(t *testing.T) {
	_, addr := startServer(t, Config{})
	c := dial(t, addr)

	big := strings.Repeat("x", 1<<20)
	c.send(cmd("SET", "big", big))
	c.expect("+OK\r\n")
	c.send(cmd("GET", "big"))
	c.expect(fmt.Sprintf("$%d\r\n%s\r\n", len(big), big))
}

func TestServer_InlineCommand(t *testing.T) {
	_, addr := startServer(t, Config{})
	c := dial(t, addr)

	c.send("+ECHO hi\r\n")
	c.expect("$2\r\nhi\r\n")
}

func TestServer_Quit(t *testing.T) {
	_, addr := startServer(t, Config{})
	c := dial(t, addr)

	c.send(cmd("QUIT") + cmd("PING"))
	c.expect("+OK\r\n")
	c.expectClosed()
}

func TestServer_ConcurrentPings(t *testing.T) {
	_, addr := startServer(t, Config{})

	const n = 50
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
			if err != nil {
				errs <- err
				return
			}
			defer conn.Close()
			_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

			if _, err := io.WriteString(conn, cmd("PING")); err != nil {
				errs <- err
				return
			}
			got := make([]byte, len("+PONG\r\n"))
			if _, err := io.ReadFull(conn, got); err != nil {
				errs <- err
				return
			}
			if string(got) != "+PONG\r\n" {
				errs <- fmt.Errorf("reply = %q", got)
				return
			}

			// Nothing else may arrive on this connection.
			_ = conn.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
			extra := make([]byte, 1)
			if n, _ := conn.Read(extra); n != 0 {
				errs <- fmt.Errorf("unexpected extra byte %q", extra)
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestServer_SharedStoreAcrossConnections(t *testing.T) {
	_, addr := startServer(t, Config{})
	a := dial(t, addr)
	b := dial(t, addr)

	a.send(cmd("SET", "shared", "yes"))
	a.expect("+OK\r\n")
	b.send(cmd("GET", "shared"))
	b.expect("$3\r\nyes\r\n")
}

// ============================================================================
// Protocol errors
// ============================================================================

func TestServer_MalformedFrameClosesConnection(t *testing.T) {
	_, addr := startServer(t, Config{})

	tests := []struct {
		name  string
		raw   string
		reply string
	}{
		{"bad bulk terminator", "*1\r\n$3\r\nfooXX", "-ERR Protocol error: invalid bulk terminator\r\n"},
		{"unknown type byte", "!oops\r\n", "-ERR Protocol error: unexpected type byte '!'\r\n"},
		{"negative bulk length", "*1\r\n$-5\r\n", "-ERR Protocol error: invalid bulk length -5\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := dial(t, addr)
			c.send(cmd("PING") + tt.raw)
			c.expect("+PONG\r\n" + tt.reply)
			c.expectClosed()

			// The listener is unaffected.
			fresh := dial(t, addr)
			fresh.send(cmd("PING"))
			fresh.expect("+PONG\r\n")
		})
	}
}

func TestServer_LimitExceeded(t *testing.T) {
	_, addr := startServer(t, Config{MaxBulkLen: 16})
	c := dial(t, addr)

	c.send("*1\r\n$17\r\n")
	c.expect("-ERR Protocol error: bulk length 17 exceeds limit 16\r\n")
	c.expectClosed()
}

// ============================================================================
// Connection policy
// ============================================================================

func TestServer_RateLimit(t *testing.T) {
	reg := metric.NewRegistry()
	_, addr := startServer(t, Config{RateLimit: 1, Metrics: reg})
	c := dial(t, addr)

	c.send(cmd("PING") + cmd("PING") + cmd("PING"))
	c.expect("+PONG\r\n-ERR rate limit exceeded\r\n-ERR rate limit exceeded\r\n")

	if got := testutil.ToFloat64(reg.RateLimited); got != 2 {
		t.Errorf("rate_limited_total = %v, want 2", got)
	}
}

func TestServer_IdleTimeout(t *testing.T) {
	_, addr := startServer(t, Config{IdleTimeout: 100 * time.Millisecond})
	c := dial(t, addr)

	c.send(cmd("PING"))
	c.expect("+PONG\r\n")
	c.expectClosed()
}

func TestServer_ReadTimeoutOnPartialFrame(t *testing.T) {
	_, addr := startServer(t, Config{ReadTimeout: 100 * time.Millisecond})
	c := dial(t, addr)

	c.send("*1\r\n$4\r\nPI")
	c.expectClosed()
}

func TestServer_WriteTimeoutAfterQuietPeriod(t *testing.T) {
	_, addr := startServer(t, Config{WriteTimeout: 200 * time.Millisecond})
	c := dial(t, addr)

	big := strings.Repeat("x", 2*readSize)
	c.send(cmd("SET", "big", big))
	c.expect("+OK\r\n")

	// The deadline from the previous flush is long gone.
	time.Sleep(400 * time.Millisecond)

	c.send(cmd("GET", "big"))
	c.expect(fmt.Sprintf("$%d\r\n%s\r\n", len(big), big))

	time.Sleep(400 * time.Millisecond)

	c.send(cmd("GET", "big") + cmd("GET", "big") + cmd("PING"))
	c.expect(fmt.Sprintf("$%d\r\n%s\r\n", len(big), big))
	c.expect(fmt.Sprintf("$%d\r\n%s\r\n", len(big), big))
	c.expect("+PONG\r\n")
}

// ============================================================================
// Lifecycle
// ============================================================================

func TestServer_OnReady(t *testing.T) {
	ready := make(chan net.Addr, 1)
	_, addr := startServer(t, Config{OnReady: func(a net.Addr) { ready <- a }})

	select {
	case got := <-ready:
		if got.String() != addr {
			t.Errorf("OnReady addr = %s, want %s", got, addr)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnReady was not called")
	}
}

func TestServer_ShutdownClosesConnections(t *testing.T) {
	reg := metric.NewRegistry()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	srv := New(Config{Logger: discardLogger(), Metrics: reg}, nil)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(context.Background(), ln) }()

	c := dial(t, ln.Addr().String())
	c.send(cmd("PING"))
	c.expect("+PONG\r\n")

	if n := srv.ConnCount(); n != 1 {
		t.Errorf("ConnCount() = %d, want 1", n)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if err := <-errCh; !errors.Is(err, ErrServerClosed) {
		t.Errorf("Serve() error = %v, want ErrServerClosed", err)
	}

	c.expectClosed()
	if n := srv.ConnCount(); n != 0 {
		t.Errorf("ConnCount() after shutdown = %d, want 0", n)
	}
	if got := testutil.ToFloat64(reg.ConnectionsActive); got != 0 {
		t.Errorf("connections_active = %v, want 0", got)
	}
	if got := testutil.ToFloat64(reg.ConnectionsTotal); got != 1 {
		t.Errorf("connections_total = %v, want 1", got)
	}

	if err := srv.ListenAndServe(context.Background()); !errors.Is(err, ErrServerClosed) {
		t.Errorf("ListenAndServe() after shutdown = %v, want ErrServerClosed", err)
	}
}

// faultyListener returns injected errors from Accept ahead of real
// connections.
type faultyListener struct {
	net.Listener
	errs  chan error
	conns chan acceptResult
	once  sync.Once
}

type acceptResult struct {
	conn net.Conn
	err  error
}

func newFaultyListener(t *testing.T) *faultyListener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	return &faultyListener{
		Listener: ln,
		errs:     make(chan error, 4),
		conns:    make(chan acceptResult, 16),
	}
}

func (l *faultyListener) Accept() (net.Conn, error) {
	l.once.Do(func() {
		go func() {
			for {
				c, err := l.Listener.Accept()
				l.conns <- acceptResult{c, err}
				if err != nil {
					return
				}
			}
		}()
	})
	select {
	case err := <-l.errs:
		return nil, err
	case r := <-l.conns:
		return r.conn, r.err
	}
}

func TestServer_AcceptRetriesOnDescriptorExhaustion(t *testing.T) {
	ln := newFaultyListener(t)
	emfile := &net.OpError{Op: "accept", Net: "tcp", Err: os.NewSyscallError("accept", syscall.EMFILE)}
	ln.errs <- emfile
	ln.errs <- emfile

	srv := New(Config{Logger: discardLogger()}, nil)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(context.Background(), ln) }()

	c := dial(t, ln.Addr().String())
	c.send(cmd("PING"))
	c.expect("+PONG\r\n")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if err := <-errCh; !errors.Is(err, ErrServerClosed) {
		t.Errorf("Serve() error = %v, want ErrServerClosed", err)
	}
}

func TestServer_FatalAcceptErrorCleansUp(t *testing.T) {
	ln := newFaultyListener(t)
	addr := ln.Addr().String()

	srv := New(Config{Logger: discardLogger()}, nil)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(context.Background(), ln) }()

	c := dial(t, addr)
	c.send(cmd("PING"))
	c.expect("+PONG\r\n")

	broken := errors.New("listener broken")
	ln.errs <- broken

	select {
	case err := <-errCh:
		if !errors.Is(err, broken) {
			t.Fatalf("Serve() error = %v, want %v", err, broken)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after a fatal accept error")
	}

	c.expectClosed()
	if conn, err := net.DialTimeout("tcp", addr, time.Second); err == nil {
		conn.Close()
		t.Error("listener still accepts connections after Serve returned")
	}
}

func TestServer_ContextCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	srv := New(Config{Logger: discardLogger()}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ctx, ln) }()

	c := dial(t, ln.Addr().String())
	c.send(cmd("PING"))
	c.expect("+PONG\r\n")

	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrServerClosed) {
			t.Errorf("Serve() error = %v, want ErrServerClosed", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	c.expectClosed()
}

func TestRun(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- Run(ctx, addr) }()

	var conn net.Conn
	for i := 0; i < 100; i++ {
		if conn, err = net.Dial("tcp", addr); err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if conn == nil {
		t.Fatalf("dial %s: %v", addr, err)
	}
	conn.Close()

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Run() error = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
