package connection

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/yndnr/jetkv/pkg/resp"
)

// ErrClosed is returned when the server closes the connection before a
// complete reply arrives.
var ErrClosed = errors.New("connection: closed by server")

const readSize = 4096

// Client is a synchronous RESP client. It is not safe for concurrent use.
type Client struct {
	addr    string
	timeout time.Duration
	conn    net.Conn
	bw      *bufio.Writer
	buf     []byte
}

// Dial connects to addr. timeout bounds the dial and every later
// request/reply exchange; zero disables it.
func Dial(ctx context.Context, addr string, timeout time.Duration) (*Client, error) {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return &Client{
		addr:    addr,
		timeout: timeout,
		conn:    conn,
		bw:      bufio.NewWriter(conn),
	}, nil
}

// Addr returns the server address.
func (c *Client) Addr() string {
	return c.addr
}

// Do sends args as a command array and waits for the reply. Error replies
// are returned as frames, not Go errors.
func (c *Client) Do(ctx context.Context, args ...string) (resp.Frame, error) {
	if len(args) == 0 {
		return resp.Frame{}, errors.New("connection: empty command")
	}
	return c.Send(ctx, resp.Command(args...))
}

// Send writes an arbitrary frame and reads one reply.
func (c *Client) Send(ctx context.Context, req resp.Frame) (resp.Frame, error) {
	if err := c.setDeadline(ctx); err != nil {
		return resp.Frame{}, err
	}
	if err := resp.WriteFrame(c.bw, req); err != nil {
		return resp.Frame{}, fmt.Errorf("write: %w", err)
	}
	if err := c.bw.Flush(); err != nil {
		return resp.Frame{}, fmt.Errorf("write: %w", err)
	}
	return c.readReply()
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) setDeadline(ctx context.Context) error {
	var deadline time.Time
	if c.timeout > 0 {
		deadline = time.Now().Add(c.timeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	return c.conn.SetDeadline(deadline)
}

func (c *Client) readReply() (resp.Frame, error) {
	chunk := make([]byte, readSize)
	for {
		if len(c.buf) > 0 {
			frame, n, err := resp.Decode(c.buf)
			switch {
			case err == nil:
				c.buf = append(c.buf[:0], c.buf[n:]...)
				return frame, nil
			case !errors.Is(err, resp.ErrIncomplete):
				return resp.Frame{}, fmt.Errorf("read reply: %w", err)
			}
		}

		n, err := c.conn.Read(chunk)
		c.buf = append(c.buf, chunk[:n]...)
		if err != nil {
			if n > 0 {
				continue
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				return resp.Frame{}, fmt.Errorf("read reply: %w", err)
			}
			return resp.Frame{}, ErrClosed
		}
	}
}
