package connection

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/jetkv/pkg/resp"
)

func TestClient_Do(t *testing.T) {
	addr := startServer(t)
	ctx := context.Background()

	c, err := Dial(ctx, addr, 2*time.Second)
	require.NoError(t, err)
	defer c.Close()

	tests := []struct {
		name string
		args []string
		want resp.Frame
	}{
		{"ping", []string{"PING"}, resp.SimpleString("PONG")},
		{"echo", []string{"ECHO", "hi there"}, resp.BulkString("hi there")},
		{"set", []string{"SET", "k", "v"}, resp.SimpleString("OK")},
		{"get", []string{"GET", "k"}, resp.BulkString("v")},
		{"get missing", []string{"GET", "nope"}, resp.NullBulk()},
		{"exists", []string{"EXISTS", "k", "nope"}, resp.Integer(1)},
		{"del", []string{"DEL", "k"}, resp.Integer(1)},
		{"unknown", []string{"FLY"}, resp.Error("ERR unknown command")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Do(ctx, tt.args...)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %+v, want %+v", got, tt.want)
		})
	}
}

func TestClient_LargeValue(t *testing.T) {
	addr := startServer(t)
	ctx := context.Background()

	c, err := Dial(ctx, addr, 5*time.Second)
	require.NoError(t, err)
	defer c.Close()

	value := strings.Repeat("x", 256*1024)
	_, err = c.Do(ctx, "SET", "big", value)
	require.NoError(t, err)

	got, err := c.Do(ctx, "GET", "big")
	require.NoError(t, err)
	assert.Equal(t, value, string(got.Bulk))
}

func TestClient_EmptyCommand(t *testing.T) {
	addr := startServer(t)
	c, err := Dial(context.Background(), addr, time.Second)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Do(context.Background())
	assert.Error(t, err)
}

func TestClient_SplitReply(t *testing.T) {
	addr := startRawServer(t, func(conn net.Conn) {
		buf := make([]byte, 64)
		_, _ = conn.Read(buf)
		for _, part := range []string{"$5\r", "\nhel", "lo\r\n"} {
			_, _ = conn.Write([]byte(part))
			time.Sleep(10 * time.Millisecond)
		}
	})

	c, err := Dial(context.Background(), addr, 2*time.Second)
	require.NoError(t, err)
	defer c.Close()

	got, err := c.Do(context.Background(), "GET", "k")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got.Bulk))
}

func TestClient_ServerClosed(t *testing.T) {
	addr := startRawServer(t, func(conn net.Conn) {
		buf := make([]byte, 64)
		_, _ = conn.Read(buf)
	})

	c, err := Dial(context.Background(), addr, 2*time.Second)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Do(context.Background(), "PING")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestClient_MalformedReply(t *testing.T) {
	addr := startRawServer(t, func(conn net.Conn) {
		buf := make([]byte, 64)
		_, _ = conn.Read(buf)
		_, _ = conn.Write([]byte("?bad\r\n"))
		time.Sleep(50 * time.Millisecond)
	})

	c, err := Dial(context.Background(), addr, 2*time.Second)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Do(context.Background(), "PING")
	assert.ErrorIs(t, err, resp.ErrProtocol)
}

func TestClient_Timeout(t *testing.T) {
	addr := startRawServer(t, func(conn net.Conn) {
		time.Sleep(500 * time.Millisecond)
	})

	c, err := Dial(context.Background(), addr, 50*time.Millisecond)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Do(context.Background(), "PING")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrClosed)
}

func TestDial_Refused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	_, err = Dial(context.Background(), addr, time.Second)
	assert.Error(t, err)
}
