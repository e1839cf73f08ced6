package benchmark

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yndnr/jetkv/internal/cli/connection"
	"github.com/yndnr/jetkv/internal/storage/memory"
)

// BenchmarkServerRoundTrip benchmarks one request/reply per iteration over
// a single loopback connection.
func BenchmarkServerRoundTrip(b *testing.B) {
	store := memory.New()
	prefillStore(store, 1000, []byte("value"))
	addr := startServer(b, store)

	commands := map[string][]string{
		"ping": {"PING"},
		"get":  {"GET", keyName(1)},
		"set":  {"SET", keyName(2), "value"},
		"pttl": {"PTTL", keyName(3)},
	}

	for name, args := range commands {
		b.Run(name, func(b *testing.B) {
			ctx := context.Background()
			c, err := connection.Dial(ctx, addr, 5*time.Second)
			if err != nil {
				b.Fatalf("dial: %v", err)
			}
			defer c.Close()

			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				reply, err := c.Do(ctx, args...)
				if err != nil || reply.IsError() {
					b.Fatalf("%s: %+v %v", name, reply, err)
				}
			}
		})
	}
}

// BenchmarkServerLargeValue benchmarks GET of values spanning many reads.
func BenchmarkServerLargeValue(b *testing.B) {
	for _, size := range valueSizes {
		b.Run(fmt.Sprintf("value_%d", size), func(b *testing.B) {
			store := memory.New()
			store.Set("big", []byte(strings.Repeat("x", size)), 0)
			addr := startServer(b, store)

			ctx := context.Background()
			c, err := connection.Dial(ctx, addr, 5*time.Second)
			if err != nil {
				b.Fatalf("dial: %v", err)
			}
			defer c.Close()

			b.SetBytes(int64(size))
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				if _, err := c.Do(ctx, "GET", "big"); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkServerParallelClients benchmarks many connections sharing the
// store, one connection per benchmark goroutine.
func BenchmarkServerParallelClients(b *testing.B) {
	store := memory.New()
	prefillStore(store, 10000, []byte("value"))
	addr := startServer(b, store)

	var failures atomic.Int64
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		ctx := context.Background()
		c, err := connection.Dial(ctx, addr, 5*time.Second)
		if err != nil {
			failures.Add(1)
			return
		}
		defer c.Close()

		i := 0
		for pb.Next() {
			key := keyName(i % 10000)
			var args []string
			if i%10 == 0 {
				args = []string{"SET", key, "value"}
			} else {
				args = []string{"GET", key}
			}
			if _, err := c.Do(ctx, args...); err != nil {
				failures.Add(1)
				return
			}
			i++
		}
	})

	if n := failures.Load(); n > 0 {
		b.Fatalf("%d clients failed", n)
	}
}
