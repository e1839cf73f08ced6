// Package main provides the entry point for jetkv-cli.
//
// Usage:
//
//	jetkv-cli [global flags] command [args]
//	jetkv-cli set --px 5000 session:1 alice
//	jetkv-cli -o json get session:1
//	jetkv-cli repl
//
// Global flags fall back to ~/.jetkv/cli.yaml and JETKV_* variables.
package main
