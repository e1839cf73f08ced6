package config

import (
	"fmt"

	"github.com/yndnr/jetkv/internal/infra/confloader"
)

// Load builds the server configuration from defaults, the optional YAML file
// at path, JETKV_ environment variables and finally flags (dotted keys), then
// validates it.
func Load(path string, flags map[string]any) (*ServerConfig, error) {
	opts := []confloader.Option{confloader.WithDefaults(DefaultMap())}
	if path != "" {
		opts = append(opts, confloader.WithConfigFile(path))
	}
	loader := confloader.NewLoader(opts...)

	cfg := &ServerConfig{}
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}
	if len(flags) > 0 {
		if err := loader.LoadMap(flags); err != nil {
			return nil, err
		}
		if err := loader.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	}

	if err := Verify(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
