// Package logger provides structured logging for jetkv.
//
// This package wraps log/slog:
//
//   - logger.go: handler configuration, global level and default logger
//   - context.go: context-aware logging with connection IDs
//   - truncate.go: payload truncation
//
// Client payloads (SET values, command arguments) are cut to MaxPayloadLen
// bytes before they reach the handler.
package logger
