package command

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/yndnr/jetkv/internal/server/redisserver"
)

// startServer runs a real RESP server on a loopback port.
func startServer(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := redisserver.New(redisserver.Config{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil)
	go func() { _ = srv.Serve(context.Background(), ln) }()

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return ln.Addr().String()
}

// result captures one App run.
type result struct {
	stdout   string
	stderr   string
	err      error
	exitCode int
}

// runApp runs jetkv-cli against addr with an isolated config file.
func runApp(t *testing.T, addr, stdin string, args ...string) result {
	t.Helper()

	var stdout, stderr bytes.Buffer
	res := result{exitCode: -1}

	app := App()
	app.Reader = strings.NewReader(stdin)
	app.Writer = &stdout
	app.ErrWriter = &stderr
	app.ExitErrHandler = func(_ *cli.Context, err error) {
		if ec, ok := err.(cli.ExitCoder); ok {
			res.exitCode = ec.ExitCode()
		}
	}

	cfgPath := filepath.Join(t.TempDir(), "cli.yaml")
	full := append([]string{"jetkv-cli", "--config", cfgPath, "--server", addr, "--timeout", "2s"}, args...)
	res.err = app.Run(full)
	res.stdout = stdout.String()
	res.stderr = stderr.String()
	return res
}
