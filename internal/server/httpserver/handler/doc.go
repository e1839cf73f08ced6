// Package handler implements the admin HTTP endpoints for jetkv.
//
// JSON responses share the Response envelope; /metrics is served by the
// Prometheus handler and is not routed through here.
package handler
