package config

import (
	"fmt"
	"os"

	"github.com/prxssh/soulcore/internal/cast"
)

// envBindings maps an environment variable name to the mutation it
// applies to a Config, used by FromEnviron to override defaults without
// requiring a config file.
var envBindings = map[string]func(c *Config, raw string) error{
	"SOULCORE_SERVER_HOST": func(c *Config, raw string) error {
		c.ServerHost = raw
		return nil
	},
	"SOULCORE_SERVER_PORT": func(c *Config, raw string) error {
		v, err := cast.ToUint16(raw)
		if err != nil {
			return err
		}
		c.ServerPort = v
		return nil
	},
	"SOULCORE_LISTEN_PORT": func(c *Config, raw string) error {
		v, err := cast.ToUint16(raw)
		if err != nil {
			return err
		}
		c.ListenPort = v
		return nil
	},
	"SOULCORE_MAX_CONNECTIONS": func(c *Config, raw string) error {
		v, err := cast.ToInt(raw)
		if err != nil {
			return err
		}
		c.MaxConnections = int(v)
		return nil
	},
	"SOULCORE_MAX_CONNECTIONS_PER_IP": func(c *Config, raw string) error {
		v, err := cast.ToInt(raw)
		if err != nil {
			return err
		}
		c.MaxConnectionsPerIP = int(v)
		return nil
	},
	"SOULCORE_MAX_ATTEMPTS_PER_WINDOW": func(c *Config, raw string) error {
		v, err := cast.ToInt(raw)
		if err != nil {
			return err
		}
		c.MaxAttemptsPerWindow = int(v)
		return nil
	},
	"SOULCORE_RATE_LIMIT_WINDOW_SECONDS": func(c *Config, raw string) error {
		v, err := cast.ToDurationSeconds(raw)
		if err != nil {
			return err
		}
		c.RateLimitWindow = v
		return nil
	},
	"SOULCORE_CONNECTION_TIMEOUT_SECONDS": func(c *Config, raw string) error {
		v, err := cast.ToDurationSeconds(raw)
		if err != nil {
			return err
		}
		c.ConnectionTimeout = v
		return nil
	},
}

// FromEnviron applies any recognised SOULCORE_* environment variables to
// a copy of the current global config and installs the result.
func FromEnviron() error {
	var firstErr error
	Update(func(c *Config) {
		for name, apply := range envBindings {
			raw, ok := os.LookupEnv(name)
			if !ok {
				continue
			}
			if err := apply(c, raw); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("config: env %s: %w", name, err)
			}
		}
	})
	return firstErr
}
