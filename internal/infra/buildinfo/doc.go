// Package buildinfo exposes build information for jetkv.
//
// Values are injected at build time via ldflags:
//
//	go build -ldflags "-X github.com/yndnr/jetkv/internal/infra/buildinfo.Version=v1.0.0"
//
// The Go version always comes from the running binary.
package buildinfo
