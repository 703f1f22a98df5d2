// Package config assembles the daemon's configuration: a YAML file (whose
// path comes from scanorcd's cobra --config flag) merged with
// SCANORC_-prefixed environment overrides, following the shape of the
// teacher's veille.Config/defaults() pattern (fields plus a defaults()
// pass) layered onto yaml.v3.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every recognized option from spec §6.4.
type Config struct {
	ListenAddr         string        `yaml:"listen_addr"`
	APIKey             string        `yaml:"api_key"`
	EnableGetScans     bool          `yaml:"enable_get_scans"`
	ResultPollInterval time.Duration `yaml:"result_poll_interval"`
	FeedPath           string        `yaml:"feed_path"`
	FeedVerifyInterval time.Duration `yaml:"feed_verify_interval"`
	ScannerBackendURL  string        `yaml:"scanner_backend_url"`
}

// defaults fills in the zero-valued fields the way veille.Config.defaults
// does: an empty ListenAddr and a zero or negative interval get a default,
// so a config file cannot set these fields to zero.
func (c *Config) defaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = "127.0.0.1:5001"
	}
	if c.ResultPollInterval <= 0 {
		c.ResultPollInterval = 5 * time.Second
	}
	if c.FeedVerifyInterval <= 0 {
		c.FeedVerifyInterval = time.Hour
	}
}

// Default returns a Config with every field at its documented default.
func Default() *Config {
	c := &Config{}
	c.defaults()
	return c
}

// Load reads path (if non-empty) as YAML over the defaults, then applies
// SCANORC_-prefixed environment variable overrides.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := applyEnvOverrides(c); err != nil {
		return nil, err
	}
	c.defaults()
	return c, nil
}

// envPrefix is the prefix every recognized environment override carries,
// following cuemby-warren's env-override convention.
const envPrefix = "SCANORC_"

func applyEnvOverrides(c *Config) error {
	if v, ok := lookupEnv("LISTEN_ADDR"); ok {
		c.ListenAddr = v
	}
	if v, ok := lookupEnv("API_KEY"); ok {
		c.APIKey = v
	}
	if v, ok := lookupEnv("ENABLE_GET_SCANS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: %sENABLE_GET_SCANS: %w", envPrefix, err)
		}
		c.EnableGetScans = b
	}
	if v, ok := lookupEnv("RESULT_POLL_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: %sRESULT_POLL_INTERVAL: %w", envPrefix, err)
		}
		c.ResultPollInterval = d
	}
	if v, ok := lookupEnv("FEED_PATH"); ok {
		c.FeedPath = v
	}
	if v, ok := lookupEnv("FEED_VERIFY_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: %sFEED_VERIFY_INTERVAL: %w", envPrefix, err)
		}
		c.FeedVerifyInterval = d
	}
	if v, ok := lookupEnv("SCANNER_BACKEND_URL"); ok {
		c.ScannerBackendURL = v
	}
	return nil
}

func lookupEnv(suffix string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + suffix)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}
