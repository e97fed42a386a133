package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		InputFile:     "top-1m.csv",
		NumTargets:    1000,
		NumHeaders:    10,
		DefaultScheme: "https",
		RunDir:        "runs",
		DBPath:        "headerstat.db",
		Fetch: FetchConfig{
			Timeout:        "10s",
			Concurrency:    100,
			MaxHeaderBytes: 64 << 10,
			TLSFingerprint: "golang",
			DNSServers:     []string{},
			DNSCacheSize:   10000,
			DNSTTL:         "5m",
		},
		Scope: ScopeConfig{
			AllowedDomains: []string{},
			AllowedCIDRs:   []string{},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// WriteDefault writes a default configuration to the specified path
func WriteDefault(path string) error {
	cfg := DefaultConfig()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
