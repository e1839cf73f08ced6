package redisserver

import (
	"bytes"
	"context"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/yndnr/jetkv/internal/storage/memory"
	"github.com/yndnr/jetkv/internal/telemetry/logger"
	"github.com/yndnr/jetkv/internal/telemetry/metric"
	"github.com/yndnr/jetkv/pkg/resp"
)

// Error replies.
const (
	errUnknownCommand = "ERR unknown command"
	errWrongArgs      = "ERR wrong number of arguments"
	errNotInteger     = "ERR value is not an integer"
	errSyntax         = "ERR syntax error"
	errRateLimited    = "ERR rate limit exceeded"
)

// unknownLabel is the metric label for unrecognized command names.
const unknownLabel = "unknown"

// handlerFunc executes one command. args excludes the command name.
type handlerFunc func(store *memory.Store, args [][]byte, nowMillis int64) resp.Frame

// commandSpec describes one registered command. maxArgs < 0 means unbounded.
type commandSpec struct {
	name    string
	minArgs int
	maxArgs int
	handler handlerFunc
	// closes marks commands after which the connection is closed.
	closes bool
}

// registry is built once at package initialization and never mutated.
var registry = buildRegistry(
	commandSpec{name: "PING", minArgs: 0, maxArgs: 1, handler: cmdPing},
	commandSpec{name: "ECHO", minArgs: 1, maxArgs: 1, handler: cmdEcho},
	commandSpec{name: "SET", minArgs: 2, maxArgs: 4, handler: cmdSet},
	commandSpec{name: "GET", minArgs: 1, maxArgs: 1, handler: cmdGet},
	commandSpec{name: "DEL", minArgs: 1, maxArgs: -1, handler: cmdDel},
	commandSpec{name: "EXISTS", minArgs: 1, maxArgs: -1, handler: cmdExists},
	commandSpec{name: "PTTL", minArgs: 1, maxArgs: 1, handler: cmdPTTL},
	commandSpec{name: "QUIT", minArgs: 0, maxArgs: 0, handler: cmdQuit, closes: true},
)

func buildRegistry(specs ...commandSpec) map[string]*commandSpec {
	m := make(map[string]*commandSpec, len(specs))
	for i := range specs {
		m[specs[i].name] = &specs[i]
	}
	return m
}

// Commands returns the names of all supported commands, sorted.
func Commands() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookup(name []byte) (*commandSpec, bool) {
	spec, ok := registry[strings.ToUpper(string(name))]
	return spec, ok
}

// Dispatcher executes commands against a shared store.
type Dispatcher struct {
	store   *memory.Store
	metrics *metric.Registry
	logger  *slog.Logger
}

// NewDispatcher creates a Dispatcher. metrics may be nil.
func NewDispatcher(store *memory.Store, metrics *metric.Registry, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		store:   store,
		metrics: metrics,
		logger:  log,
	}
}

// Execute runs one command. args[0] is the command name, matched
// case-insensitively. It always returns a well-formed reply; command errors
// are Error frames.
func (d *Dispatcher) Execute(args [][]byte, nowMillis int64) resp.Frame {
	reply, _ := d.execute(context.Background(), args, nowMillis)
	return reply
}

// Dispatch interprets a request frame as a command and executes it. closeConn
// reports whether the connection should be closed once the reply is written.
func (d *Dispatcher) Dispatch(ctx context.Context, req resp.Frame, nowMillis int64) (reply resp.Frame, closeConn bool) {
	args, ok := commandArgs(req)
	if !ok {
		d.metrics.ObserveCommand(unknownLabel, metric.StatusError, 0)
		return resp.Error(errSyntax), false
	}
	return d.execute(ctx, args, nowMillis)
}

func (d *Dispatcher) execute(ctx context.Context, args [][]byte, nowMillis int64) (resp.Frame, bool) {
	start := time.Now()

	if len(args) == 0 {
		d.metrics.ObserveCommand(unknownLabel, metric.StatusError, time.Since(start))
		return resp.Error(errSyntax), false
	}

	spec, ok := lookup(args[0])
	if !ok {
		d.metrics.ObserveCommand(unknownLabel, metric.StatusError, time.Since(start))
		d.logger.DebugContext(ctx, "unknown command",
			"conn_id", logger.ConnIDFromContext(ctx),
			"args", logger.Truncate(string(args[0])),
		)
		return resp.Error(errUnknownCommand), false
	}

	var reply resp.Frame
	n := len(args) - 1
	if n < spec.minArgs || (spec.maxArgs >= 0 && n > spec.maxArgs) {
		reply = resp.Error(errWrongArgs)
	} else {
		reply = spec.handler(d.store, args[1:], nowMillis)
	}

	status := metric.StatusOK
	if reply.IsError() {
		status = metric.StatusError
		d.logger.DebugContext(ctx, "command failed",
			"conn_id", logger.ConnIDFromContext(ctx),
			"command", spec.name,
			"error", reply.Str,
		)
	}
	d.metrics.ObserveCommand(spec.name, status, time.Since(start))

	return reply, spec.closes && !reply.IsError()
}

// commandArgs converts a request frame into command arguments. Arrays may
// hold bulk or simple strings. A top-level simple string is an inline
// command split on whitespace.
func commandArgs(f resp.Frame) ([][]byte, bool) {
	switch f.Kind {
	case resp.KindArray:
		if len(f.Array) == 0 {
			return nil, false
		}
		args := make([][]byte, len(f.Array))
		for i, item := range f.Array {
			switch {
			case item.Kind == resp.KindBulkString && !item.Null:
				args[i] = item.Bulk
			case item.Kind == resp.KindSimpleString:
				args[i] = []byte(item.Str)
			default:
				return nil, false
			}
		}
		return args, true
	case resp.KindSimpleString:
		fields := bytes.Fields([]byte(f.Str))
		if len(fields) == 0 {
			return nil, false
		}
		return fields, true
	default:
		return nil, false
	}
}

// ============================================================================
// Command handlers
// ============================================================================

func cmdPing(_ *memory.Store, args [][]byte, _ int64) resp.Frame {
	if len(args) == 1 {
		return resp.Bulk(args[0])
	}
	return resp.SimpleString("PONG")
}

func cmdEcho(_ *memory.Store, args [][]byte, _ int64) resp.Frame {
	return resp.Bulk(args[0])
}

func cmdQuit(_ *memory.Store, _ [][]byte, _ int64) resp.Frame {
	return resp.SimpleString("OK")
}

// cmdSet handles SET key value [PX milliseconds].
func cmdSet(store *memory.Store, args [][]byte, nowMillis int64) resp.Frame {
	var expireAt int64
	switch len(args) {
	case 2:
	case 4:
		if !strings.EqualFold(string(args[2]), "PX") {
			return resp.Error(errSyntax)
		}
		ms, err := strconv.ParseInt(string(args[3]), 10, 64)
		if err != nil || ms < 0 {
			return resp.Error(errNotInteger)
		}
		expireAt = deadline(nowMillis, ms)
	default:
		return resp.Error(errWrongArgs)
	}

	store.Set(string(args[0]), args[1], expireAt)
	return resp.SimpleString("OK")
}

// deadline returns now+ms, saturating instead of overflowing.
func deadline(nowMillis, ms int64) int64 {
	if ms > math.MaxInt64-nowMillis {
		return math.MaxInt64
	}
	return nowMillis + ms
}

func cmdGet(store *memory.Store, args [][]byte, nowMillis int64) resp.Frame {
	v, ok := store.Get(string(args[0]), nowMillis)
	if !ok {
		return resp.NullBulk()
	}
	return resp.Bulk(v)
}

func cmdDel(store *memory.Store, args [][]byte, nowMillis int64) resp.Frame {
	return resp.Integer(store.DeleteKeys(keyStrings(args), nowMillis))
}

func cmdExists(store *memory.Store, args [][]byte, nowMillis int64) resp.Frame {
	return resp.Integer(store.CountExisting(keyStrings(args), nowMillis))
}

func keyStrings(args [][]byte) []string {
	keys := make([]string, len(args))
	for i, a := range args {
		keys[i] = string(a)
	}
	return keys
}

func cmdPTTL(store *memory.Store, args [][]byte, nowMillis int64) resp.Frame {
	return resp.Integer(store.PTTL(string(args[0]), nowMillis))
}
