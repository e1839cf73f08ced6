// Package redisserver serves the jetkv store over the RESP2 wire protocol.
//
// The package has three layers:
//
//   - Dispatcher: maps a decoded command to a handler from a fixed registry
//     and executes it against the shared memory.Store
//   - conn: owns one socket, accumulates bytes in a buffer advanced by a
//     consumed offset, feeds complete frames to the Dispatcher and writes
//     replies in request order
//   - Server: accepts sockets, starts one goroutine per connection and keeps
//     a registry of live connections so Shutdown can close them
//
// Supported commands:
//   - PING [message], ECHO message, QUIT
//   - SET key value [PX milliseconds], GET key
//   - DEL key [key ...], EXISTS key [key ...], PTTL key
//
// Command errors (unknown name, wrong arity, bad PX value) are replied as
// Error frames and the connection stays open. A malformed frame closes the
// connection after an error reply.
package redisserver
