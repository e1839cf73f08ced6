package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Verify validates the configuration.
func Verify(cfg *ServerConfig) error {
	if err := verifyRedis(&cfg.Server.Redis); err != nil {
		return err
	}
	if err := verifyHTTP(&cfg.Server); err != nil {
		return err
	}
	return verifyLog(&cfg.Log)
}

func verifyRedis(cfg *RedisConfig) error {
	if err := verifyAddr("server.redis.addr", cfg.Addr); err != nil {
		return err
	}
	if cfg.RateLimit < 0 {
		return invalid("server.redis.rate_limit must not be negative")
	}
	if cfg.IdleTimeout < 0 || cfg.ReadTimeout < 0 || cfg.WriteTimeout < 0 {
		return invalid("server.redis timeouts must not be negative")
	}
	if cfg.MaxBulkLen < 0 {
		return invalid("server.redis.max_bulk_len must not be negative")
	}
	if cfg.MaxArrayLen < 0 {
		return invalid("server.redis.max_array_len must not be negative")
	}
	return nil
}

func verifyHTTP(cfg *ServerSection) error {
	if !cfg.HTTP.Enabled {
		return nil
	}
	if err := verifyAddr("server.http.addr", cfg.HTTP.Addr); err != nil {
		return err
	}
	// Port 0 asks the kernel for a free port, so equal strings cannot clash.
	if _, port, _ := net.SplitHostPort(cfg.HTTP.Addr); port != "0" && cfg.HTTP.Addr == cfg.Redis.Addr {
		return invalid("server.http.addr conflicts with server.redis.addr")
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	switch strings.ToLower(cfg.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return invalid(fmt.Sprintf("log.level %q is not one of debug, info, warn, error", cfg.Level))
	}
	switch strings.ToLower(cfg.Format) {
	case "json", "text", "console":
	default:
		return invalid(fmt.Sprintf("log.format %q is not one of json, text", cfg.Format))
	}
	return nil
}

func verifyAddr(key, addr string) error {
	if addr == "" {
		return invalid(key + " is required")
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return invalid(fmt.Sprintf("%s %q: %v", key, addr, err))
	}
	return nil
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, msg)
}
