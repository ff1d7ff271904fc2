package config

import "time"

// TestConfig returns a config for tests: local backend, no debounce delay
// and logging off.
func TestConfig() *Config {
	cfg := defaultConfig()
	cfg.Database.Path = ""
	cfg.Database.SearchIndex = ""
	cfg.Browse.Debounce = time.Millisecond
	cfg.Keywords.Debounce = time.Millisecond
	cfg.Log.Level = "off"
	cfg.Log.File = ""
	cfg.Server.Mode = "test"
	return cfg
}
