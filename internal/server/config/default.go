package config

import (
	"time"

	"github.com/yndnr/jetkv/pkg/resp"
)

// Default configuration values.
const (
	DefaultRedisAddr    = "127.0.0.1:6379"
	DefaultHTTPAddr     = "127.0.0.1:5080"
	DefaultWriteTimeout = 30 * time.Second

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			Redis: RedisConfig{
				Addr:         DefaultRedisAddr,
				WriteTimeout: DefaultWriteTimeout,
				MaxBulkLen:   resp.DefaultMaxBulkLen,
				MaxArrayLen:  resp.DefaultMaxArrayLen,
			},
			HTTP: HTTPConfig{
				Enabled: true,
				Addr:    DefaultHTTPAddr,
			},
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// DefaultMap returns the defaults as dotted keys, for the loader's lowest
// priority layer.
func DefaultMap() map[string]any {
	d := Default()
	return map[string]any{
		"server.redis.addr":          d.Server.Redis.Addr,
		"server.redis.rate_limit":    d.Server.Redis.RateLimit,
		"server.redis.idle_timeout":  d.Server.Redis.IdleTimeout,
		"server.redis.read_timeout":  d.Server.Redis.ReadTimeout,
		"server.redis.write_timeout": d.Server.Redis.WriteTimeout,
		"server.redis.max_bulk_len":  d.Server.Redis.MaxBulkLen,
		"server.redis.max_array_len": d.Server.Redis.MaxArrayLen,
		"server.http.enabled":        d.Server.HTTP.Enabled,
		"server.http.addr":           d.Server.HTTP.Addr,
		"log.level":                  d.Log.Level,
		"log.format":                 d.Log.Format,
	}
}
