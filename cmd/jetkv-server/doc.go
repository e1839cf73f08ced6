// Package main provides the entry point for jetkv-server.
//
// jetkv-server serves the RESP key-value protocol and, unless disabled, an
// admin HTTP endpoint with /health, /ready, /status and /metrics.
//
// Usage:
//
//	jetkv-server [flags]
//	jetkv-server --config /etc/jetkv/server.yaml --log-level debug
//
// Settings are layered: flags over JETKV_* environment variables over the
// YAML file over built-in defaults. Editing log.level in the config file
// takes effect without a restart.
package main
