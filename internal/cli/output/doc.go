// Package output renders RESP replies for jetkv-cli.
//
// Supported formats:
//
//   - text: redis-cli style, e.g. `(integer) 1`, `(nil)`, `"value"`
//   - json: one JSON document per reply
//   - yaml: one YAML document per reply
package output
