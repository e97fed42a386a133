package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/hakim/headerstat/internal/fetch"
	"github.com/hakim/headerstat/internal/logging"
	"github.com/hakim/headerstat/internal/models"
)

// Config represents the application configuration
type Config struct {
	InputFile     string `mapstructure:"input_file" yaml:"input_file"`
	NumTargets    int    `mapstructure:"num_targets" yaml:"num_targets"`
	NumHeaders    int    `mapstructure:"num_headers" yaml:"num_headers"`
	DefaultScheme string `mapstructure:"default_scheme" yaml:"default_scheme"`
	RunDir        string `mapstructure:"run_dir" yaml:"run_dir"`
	DBPath        string `mapstructure:"db_path" yaml:"db_path"`

	Fetch  FetchConfig  `mapstructure:"fetch" yaml:"fetch"`
	Scope  ScopeConfig  `mapstructure:"scope" yaml:"scope"`
	Notify NotifyConfig `mapstructure:"notify" yaml:"notify"`
	Log    LogConfig    `mapstructure:"log" yaml:"log"`
}

// FetchConfig controls how individual targets are fetched
type FetchConfig struct {
	Timeout            string   `mapstructure:"timeout" yaml:"timeout"`
	Concurrency        int      `mapstructure:"concurrency" yaml:"concurrency"`
	MaxHeaderBytes     int64    `mapstructure:"max_header_bytes" yaml:"max_header_bytes"`
	SkipStatusLine     bool     `mapstructure:"skip_status_line" yaml:"skip_status_line"`
	TLSFingerprint     string   `mapstructure:"tls_fingerprint" yaml:"tls_fingerprint"`
	InsecureSkipVerify bool     `mapstructure:"insecure_skip_verify" yaml:"insecure_skip_verify"`
	DNSServers         []string `mapstructure:"dns_servers" yaml:"dns_servers"`
	DNSCacheSize       int      `mapstructure:"dns_cache_size" yaml:"dns_cache_size"`
	DNSTTL             string   `mapstructure:"dns_ttl" yaml:"dns_ttl"`
}

// ScopeConfig lists the domains a run may contact. Empty allows everything.
type ScopeConfig struct {
	AllowedDomains []string `mapstructure:"allowed_domains" yaml:"allowed_domains"`
	AllowedCIDRs   []string `mapstructure:"allowed_cidrs" yaml:"allowed_cidrs"`
}

// NotifyConfig configures the completion webhook
type NotifyConfig struct {
	WebhookURL string `mapstructure:"webhook_url" yaml:"webhook_url"`
}

// LogConfig configures the logger
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	JSON  bool   `mapstructure:"json" yaml:"json"`
}

// Load reads and parses configuration from a YAML file.
// If path is empty, searches for headerstat.yaml in the current directory,
// ./configs and ~/.config/headerstat/, falling back to defaults when none is found.
// Any key may be overridden with a HEADERSTAT_ environment variable,
// e.g. HEADERSTAT_FETCH_TIMEOUT=5s.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix("HEADERSTAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		// Use explicit path
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("headerstat")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")

		homeDir, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(homeDir, ".config", "headerstat"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("input_file", d.InputFile)
	v.SetDefault("num_targets", d.NumTargets)
	v.SetDefault("num_headers", d.NumHeaders)
	v.SetDefault("default_scheme", d.DefaultScheme)
	v.SetDefault("run_dir", d.RunDir)
	v.SetDefault("db_path", d.DBPath)

	v.SetDefault("fetch.timeout", d.Fetch.Timeout)
	v.SetDefault("fetch.concurrency", d.Fetch.Concurrency)
	v.SetDefault("fetch.max_header_bytes", d.Fetch.MaxHeaderBytes)
	v.SetDefault("fetch.skip_status_line", d.Fetch.SkipStatusLine)
	v.SetDefault("fetch.tls_fingerprint", d.Fetch.TLSFingerprint)
	v.SetDefault("fetch.insecure_skip_verify", d.Fetch.InsecureSkipVerify)
	v.SetDefault("fetch.dns_servers", d.Fetch.DNSServers)
	v.SetDefault("fetch.dns_cache_size", d.Fetch.DNSCacheSize)
	v.SetDefault("fetch.dns_ttl", d.Fetch.DNSTTL)

	v.SetDefault("scope.allowed_domains", d.Scope.AllowedDomains)
	v.SetDefault("scope.allowed_cidrs", d.Scope.AllowedCIDRs)
	v.SetDefault("notify.webhook_url", d.Notify.WebhookURL)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.json", d.Log.JSON)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.InputFile == "" {
		errs = append(errs, errors.New("input_file cannot be empty"))
	}

	if c.RunDir == "" {
		errs = append(errs, errors.New("run_dir cannot be empty"))
	}

	if c.DBPath == "" {
		errs = append(errs, errors.New("db_path cannot be empty"))
	}

	if c.NumTargets < 0 {
		errs = append(errs, errors.New("num_targets must not be negative"))
	}

	if c.NumHeaders < 0 {
		errs = append(errs, errors.New("num_headers must not be negative"))
	}

	switch models.Scheme(c.DefaultScheme) {
	case "", models.SchemeHTTP, models.SchemeHTTPS:
	default:
		errs = append(errs, fmt.Errorf("default_scheme must be http or https, got %q", c.DefaultScheme))
	}

	if d, err := time.ParseDuration(c.Fetch.Timeout); err != nil || d <= 0 {
		errs = append(errs, fmt.Errorf("fetch.timeout must be a positive duration, got %q", c.Fetch.Timeout))
	}

	if c.Fetch.Concurrency <= 0 {
		errs = append(errs, errors.New("fetch.concurrency must be positive"))
	}

	if c.Fetch.MaxHeaderBytes <= 0 {
		errs = append(errs, errors.New("fetch.max_header_bytes must be positive"))
	}

	if _, err := fetch.ParseFingerprint(c.Fetch.TLSFingerprint); err != nil {
		errs = append(errs, fmt.Errorf("fetch.tls_fingerprint: %w", err))
	}

	if len(c.Fetch.DNSServers) > 0 {
		if c.Fetch.DNSCacheSize <= 0 {
			errs = append(errs, errors.New("fetch.dns_cache_size must be positive when dns_servers are set"))
		}
		if d, err := time.ParseDuration(c.Fetch.DNSTTL); err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("fetch.dns_ttl must be a positive duration, got %q", c.Fetch.DNSTTL))
		}
	}

	for _, cidr := range c.Scope.AllowedCIDRs {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errs = append(errs, fmt.Errorf("scope.allowed_cidrs: %w", err))
		}
	}

	if !isLogLevel(c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level must be one of %s, got %q",
			strings.Join(logging.LevelNames(), ", "), c.Log.Level))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

func isLogLevel(level string) bool {
	_, err := logrus.ParseLevel(level)
	return err == nil
}

// FetcherConfig converts the fetch section into the fetcher's settings.
// It assumes Validate has passed.
func (c *Config) FetcherConfig() fetch.Config {
	fc := fetch.DefaultConfig()

	if d, err := time.ParseDuration(c.Fetch.Timeout); err == nil {
		fc.Timeout = d
	}
	fc.MaxHeaderBytes = c.Fetch.MaxHeaderBytes
	fc.SkipStatusLine = c.Fetch.SkipStatusLine
	fc.TLSFingerprint = c.Fetch.TLSFingerprint
	fc.InsecureSkipVerify = c.Fetch.InsecureSkipVerify
	fc.DNSServers = c.Fetch.DNSServers
	fc.DNSCacheSize = c.Fetch.DNSCacheSize
	if d, err := time.ParseDuration(c.Fetch.DNSTTL); err == nil {
		fc.DNSTTL = d
	}

	return fc
}
