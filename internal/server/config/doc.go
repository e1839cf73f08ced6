// Package config provides server configuration for jetkv.
//
// This package defines the server configuration structure and validation:
//
//   - spec.go: ServerConfig struct definition
//   - default.go: Default configuration values
//   - verify.go: Validation (address formats, port conflicts, enums)
//   - load.go: Layered loading through internal/infra/confloader
//
// Configuration sources, lowest priority first: defaults, YAML file,
// JETKV_ environment variables, command-line flags.
package config
