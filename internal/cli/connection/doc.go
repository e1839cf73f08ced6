// Package connection provides the RESP client used by jetkv-cli.
//
// Client speaks the wire protocol from pkg/resp over a single TCP
// connection; Manager dials lazily and reuses the connection across REPL
// commands.
package connection
