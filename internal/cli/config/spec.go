package config

import "time"

// Defaults for jetkv-cli.
const (
	DefaultServer  = "127.0.0.1:6379"
	DefaultOutput  = "text"
	DefaultTimeout = 5 * time.Second
)

// CLIConfig is the configuration for jetkv-cli.
type CLIConfig struct {
	Server      string        `yaml:"server"`
	Output      string        `yaml:"output"` // text, json, yaml
	Timeout     time.Duration `yaml:"timeout"`
	HistoryFile string        `yaml:"history_file"`
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		Server:  DefaultServer,
		Output:  DefaultOutput,
		Timeout: DefaultTimeout,
	}
}
