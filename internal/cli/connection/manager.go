package connection

import (
	"context"
	"strings"
	"time"

	"github.com/yndnr/jetkv/pkg/resp"
)

// Manager holds a lazily dialed Client and redials after the server closes
// the connection.
type Manager struct {
	addr    string
	timeout time.Duration
	current *Client
}

// NewManager creates a new connection manager.
func NewManager(addr string, timeout time.Duration) *Manager {
	return &Manager{addr: addr, timeout: timeout}
}

// Addr returns the server address.
func (m *Manager) Addr() string {
	return m.addr
}

// Do runs one command on the current connection, dialing first if needed.
func (m *Manager) Do(ctx context.Context, args ...string) (resp.Frame, error) {
	if m.current == nil {
		c, err := Dial(ctx, m.addr, m.timeout)
		if err != nil {
			return resp.Frame{}, err
		}
		m.current = c
	}

	reply, err := m.current.Do(ctx, args...)
	if err != nil || (len(args) > 0 && strings.EqualFold(args[0], "QUIT")) {
		m.Disconnect()
	}
	return reply, err
}

// Disconnect closes the current connection, if any.
func (m *Manager) Disconnect() {
	if m.current != nil {
		_ = m.current.Close()
		m.current = nil
	}
}

// IsConnected returns true if a connection is open.
func (m *Manager) IsConnected() bool {
	return m.current != nil
}
