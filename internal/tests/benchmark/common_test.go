package benchmark

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"runtime"
	"testing"
	"time"

	"github.com/yndnr/jetkv/internal/server/redisserver"
	"github.com/yndnr/jetkv/internal/storage/memory"
)

// KeyCounts defines the store sizes for benchmarking.
var KeyCounts = []int{1000, 10000, 100000}

// valueSizes defines payload sizes for SET/GET benchmarks.
var valueSizes = []int{16, 1024, 64 * 1024}

func keyName(i int) string {
	return fmt.Sprintf("key:%08d", i)
}

// prefillStore loads count persistent keys with value.
func prefillStore(store *memory.Store, count int, value []byte) {
	for i := 0; i < count; i++ {
		store.Set(keyName(i), value, 0)
	}
}

// reportMemory reports memory usage.
func reportMemory(b *testing.B, prefix string) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.Alloc)/(1024*1024), prefix+"_MB")
	b.ReportMetric(float64(m.NumGC), prefix+"_GC")
}

// runWithKeyCounts runs a benchmark function with various store sizes.
func runWithKeyCounts(b *testing.B, counts []int, benchFn func(b *testing.B, count int)) {
	for _, count := range counts {
		b.Run(fmt.Sprintf("keys_%d", count), func(b *testing.B) {
			benchFn(b, count)
		})
	}
}

// startServer runs a RESP server on loopback for the duration of b.
func startServer(b *testing.B, store *memory.Store) string {
	b.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		b.Fatalf("listen: %v", err)
	}

	srv := redisserver.New(redisserver.Config{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, store)
	go func() { _ = srv.Serve(context.Background(), ln) }()

	b.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return ln.Addr().String()
}
