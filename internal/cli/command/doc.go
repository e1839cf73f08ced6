// Package command provides CLI command definitions for jetkv-cli.
//
// It uses urfave/cli/v2 for command parsing and supports both one-shot
// commands and an interactive REPL over the same connection manager.
package command
