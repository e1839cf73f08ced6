package redisserver

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/yndnr/jetkv/internal/telemetry/logger"
	"github.com/yndnr/jetkv/pkg/resp"
)

const (
	// readSize is the minimum free space reserved before each socket read.
	readSize = 16 * 1024

	// compactThreshold is the consumed prefix size above which the buffer
	// is shifted down even when the tail is a partial frame.
	compactThreshold = 64 * 1024
)

// conn is one client connection. Its buffer is never shared.
type conn struct {
	id      string
	srv     *Server
	netConn net.Conn
	bw      *bufio.Writer
	limiter *rate.Limiter
	logger  *slog.Logger

	// buf[off:] holds received bytes not yet decoded.
	buf []byte
	off int

	closed atomic.Bool
}

func newConn(srv *Server, id string, nc net.Conn) *conn {
	c := &conn{
		id:      id,
		srv:     srv,
		netConn: nc,
		bw:      bufio.NewWriterSize(nc, readSize),
		logger:  srv.logger.With("conn_id", id, "remote", nc.RemoteAddr().String()),
	}
	if n := srv.cfg.RateLimit; n > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(n), n)
	}
	return c
}

func (c *conn) close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.netConn.Close()
}

// serve runs the read, dispatch, write loop until the peer disconnects, a
// protocol error occurs, QUIT is received or the connection is closed.
func (c *conn) serve(ctx context.Context) {
	ctx = logger.WithConnID(ctx, c.id)
	defer c.close()

	for {
		readErr := c.read()

		if done := c.drain(ctx); done {
			return
		}
		if err := c.flush(); err != nil {
			c.logger.Debug("write failed", "error", err)
			return
		}

		if readErr != nil {
			c.logReadError(readErr)
			return
		}
	}
}

// read appends whatever the socket has to buf.
func (c *conn) read() error {
	c.compact()
	if cap(c.buf)-len(c.buf) < readSize {
		c.buf = slices.Grow(c.buf, readSize)
	}

	c.setReadDeadline()
	n, err := c.netConn.Read(c.buf[len(c.buf):cap(c.buf)])
	c.buf = c.buf[:len(c.buf)+n]
	if err == nil && n == 0 {
		return io.EOF
	}
	return err
}

// setReadDeadline applies the idle timeout between frames and the read
// timeout while a partial frame is buffered.
func (c *conn) setReadDeadline() {
	cfg := &c.srv.cfg
	timeout := cfg.IdleTimeout
	if c.off < len(c.buf) {
		timeout = cfg.ReadTimeout
	}
	var t time.Time
	if timeout > 0 {
		t = time.Now().Add(timeout)
	}
	_ = c.netConn.SetReadDeadline(t)
}

// drain decodes and executes every complete frame in the buffer. It reports
// true when the connection must be closed.
func (c *conn) drain(ctx context.Context) bool {
	// Replies larger than the free space in bw reach the socket from write,
	// so the deadline must be current before the first frame is encoded.
	c.setWriteDeadline()
	for c.off < len(c.buf) {
		req, n, err := c.srv.parser.Decode(c.buf[c.off:])
		if errors.Is(err, resp.ErrIncomplete) {
			return false
		}
		if err != nil {
			c.protocolError(err)
			return true
		}
		c.off += n

		if c.limiter != nil && !c.limiter.Allow() {
			c.srv.metrics.IncRateLimited()
			if err := c.write(resp.Error(errRateLimited)); err != nil {
				return true
			}
			continue
		}

		reply, quit := c.srv.dispatcher.Dispatch(ctx, req, time.Now().UnixMilli())
		if err := c.write(reply); err != nil {
			return true
		}
		if quit {
			_ = c.flush()
			c.logger.Debug("client quit")
			return true
		}
	}
	return false
}

func (c *conn) write(f resp.Frame) error {
	if err := resp.WriteFrame(c.bw, f); err != nil {
		c.logger.Debug("write failed", "error", err)
		return err
	}
	return nil
}

func (c *conn) flush() error {
	if c.bw.Buffered() == 0 {
		return nil
	}
	c.setWriteDeadline()
	return c.bw.Flush()
}

func (c *conn) setWriteDeadline() {
	if wt := c.srv.cfg.WriteTimeout; wt > 0 {
		_ = c.netConn.SetWriteDeadline(time.Now().Add(wt))
	}
}

// protocolError replies to an unparseable frame and gives up on the stream.
func (c *conn) protocolError(err error) {
	reason := "malformed"
	detail := strings.TrimPrefix(err.Error(), resp.ErrProtocol.Error()+": ")
	if errors.Is(err, resp.ErrLimitExceeded) {
		reason = "limit"
		detail = strings.TrimPrefix(err.Error(), resp.ErrLimitExceeded.Error()+": ")
	}
	c.srv.metrics.RecordProtocolError(reason)
	c.logger.Warn("protocol error, closing connection", "reason", reason, "error", err)

	if c.write(resp.Error("ERR Protocol error: "+detail)) == nil {
		_ = c.flush()
	}
}

// compact moves the unconsumed tail to the front of buf once the consumed
// prefix is large or the buffer is fully drained.
func (c *conn) compact() {
	switch {
	case c.off == 0:
	case c.off == len(c.buf):
		c.buf = c.buf[:0]
		c.off = 0
	case c.off >= compactThreshold || cap(c.buf)-len(c.buf) < readSize:
		n := copy(c.buf, c.buf[c.off:])
		c.buf = c.buf[:n]
		c.off = 0
	}
}

func (c *conn) logReadError(err error) {
	var netErr net.Error
	switch {
	case errors.Is(err, io.EOF):
		c.logger.Debug("client disconnected")
	case c.closed.Load() || errors.Is(err, net.ErrClosed):
		c.logger.Debug("connection closed")
	case errors.As(err, &netErr) && netErr.Timeout():
		c.logger.Debug("connection timed out")
	default:
		c.logger.Debug("read failed", "error", err)
	}
}
