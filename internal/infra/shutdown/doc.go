// Package shutdown provides graceful shutdown for jetkv.
//
// Hooks registered with OnShutdown run in reverse order once SIGINT or
// SIGTERM arrives (Wait) or a context is cancelled (WaitContext). They share
// one deadline.
//
// Usage:
//
//	h := shutdown.NewHandler(30 * time.Second)
//	h.OnShutdown(srv.Shutdown)
//	err := h.Wait()
package shutdown
