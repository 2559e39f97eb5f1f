// Package config reads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	defaultPort     = 8080
	defaultLogLevel = "info"
)

// Config is read once at startup.
type Config struct {
	Port      int
	LogLevel  string
	PGDSN     string
	RedisAddr string

	AccessSecret  string
	RefreshSecret string
	// PayloadKey may be empty, in which case payloads are encrypted under
	// DefaultKey, the process default cipher key.
	PayloadKey string
	DefaultKey string
}

// Load reads the environment. Missing or conflicting secrets are an error.
func Load() (Config, error) {
	return load(os.LookupEnv)
}

func load(lookup func(string) (string, bool)) (Config, error) {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}
	// secrets keep their exact bytes; blank means unset
	secret := func(key string) string {
		v, _ := lookup(key)
		if strings.TrimSpace(v) == "" {
			return ""
		}
		return v
	}

	cfg := Config{
		Port:          defaultPort,
		LogLevel:      defaultLogLevel,
		PGDSN:         get("BLOG_PG_DSN"),
		RedisAddr:     get("REDIS_ADDR"),
		AccessSecret:  secret("JWT_ACCESS_TOKEN_KEY"),
		RefreshSecret: secret("JWT_REFRESH_TOKEN_KEY"),
		PayloadKey:    secret("JWT_PAYLOAD_KEY"),
		DefaultKey:    secret("DEFAULT_KEY"),
	}
	if v := get("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := get("SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port < 1 || port > 65535 {
			return Config{}, fmt.Errorf("config: SERVER_PORT %q is not a valid port", v)
		}
		cfg.Port = port
	}
	var errs []error
	if cfg.AccessSecret == "" {
		errs = append(errs, errors.New("config: JWT_ACCESS_TOKEN_KEY is required"))
	}
	if cfg.RefreshSecret == "" {
		errs = append(errs, errors.New("config: JWT_REFRESH_TOKEN_KEY is required"))
	}
	if cfg.AccessSecret != "" && cfg.AccessSecret == cfg.RefreshSecret {
		errs = append(errs, errors.New("config: JWT_ACCESS_TOKEN_KEY and JWT_REFRESH_TOKEN_KEY must differ"))
	}
	if cfg.PayloadKey == "" && cfg.DefaultKey == "" {
		errs = append(errs, errors.New("config: JWT_PAYLOAD_KEY or DEFAULT_KEY is required"))
	}
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}
