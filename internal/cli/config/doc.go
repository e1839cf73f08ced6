// Package config provides jetkv-cli configuration.
//
// The optional file ~/.jetkv/cli.yaml supplies defaults for the global
// flags; flags and JETKV_* environment variables override it.
//
//	server: 127.0.0.1:6379
//	output: text
//	timeout: 5s
//	history_file: ~/.jetkv/history
package config
