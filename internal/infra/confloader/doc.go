// Package confloader loads layered configuration with koanf.
//
// Sources, lowest priority first:
//
//  1. Defaults (a flat map of dotted keys)
//  2. YAML configuration file
//  3. Environment variables (JETKV_ prefix)
//  4. Command-line flags (applied by the caller through LoadMap)
//
// Environment names map onto dotted keys by replacing underscores with dots,
// except where the result would miss a known key: JETKV_SERVER_REDIS_RATE_LIMIT
// resolves to server.redis.rate_limit because that key exists in the defaults.
//
// Watcher reports changes to the configuration file so the caller can reload
// the settings that are safe to change at runtime.
package confloader
