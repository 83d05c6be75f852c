package config

import "sync/atomic"

var cfg atomic.Value

// Init installs the default configuration as the process-wide instance.
// It must be called once before Load is used.
func Init() error {
	dcfg, err := defaultConfig()
	if err != nil {
		return err
	}
	c := dcfg
	cfg.Store(&c)
	return nil
}

// Load returns the current configuration. The returned pointer must be
// treated as read-only; use Update or Swap to change it.
func Load() *Config {
	return cfg.Load().(*Config)
}

// Update applies mut to a copy of the current configuration and installs
// the result atomically, returning it.
func Update(mut func(*Config)) *Config {
	curr := Load()
	next := *curr
	mut(&next)
	cfg.Store(&next)
	return &next
}

// Swap replaces the global configuration outright.
func Swap(next Config) *Config {
	cfg.Store(&next)
	return &next
}
