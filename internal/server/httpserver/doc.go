// Package httpserver provides the admin HTTP endpoint for jetkv.
//
// Routes:
//
//   - GET /health: liveness
//   - GET /ready: readiness, 503 until the RESP listener accepts
//   - GET /status: store and connection summary (JSON)
//   - GET /metrics: Prometheus exposition
//
// Every route runs behind Recover, RequestID and AccessLog middleware.
package httpserver
