// Package benchmark provides performance benchmarks for jetkv.
//
// Run benchmarks with:
//
//	go test -bench=. -benchmem ./internal/tests/benchmark/...
//
// Run only the end-to-end RESP benchmarks:
//
//	go test -bench=BenchmarkServer -benchmem -benchtime=5s ./internal/tests/benchmark/...
//
// Compare results:
//
//	benchstat old.txt new.txt
package benchmark
