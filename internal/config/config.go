package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shpitdev/pdl-enricher/pkg/pdl"
)

// Environment variables read by Load and ResolveAPIKey.
const (
	EnvAPIKey         = "PDL_API_KEY"
	EnvEndpoint       = "PDL_ENDPOINT"
	EnvRequestTimeout = "PDL_REQUEST_TIMEOUT"
	EnvStrict         = "PDL_STRICT"
	EnvLogLevel       = "LOG_LEVEL"
)

// Config is the runtime configuration shared by the enrich and flatten commands.
//
// Example (YAML):
//
//	endpoint: https://api.peopledatalabs.com/v5/person/bulk
//	request_timeout: 2m
//	strict: false
//	log_level: info
type Config struct {
	Endpoint string `yaml:"endpoint"`

	// APIKey is never read from the file; see ResolveAPIKey.
	APIKey string `yaml:"-"`

	// RequestTimeout bounds the bulk call. Zero means the call may block indefinitely.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// Strict rejects output filename collisions and mismatched record keys.
	Strict bool `yaml:"strict"`

	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Endpoint: pdl.DefaultEndpoint,
		LogLevel: "info",
	}
}

// Load layers defaults, the optional YAML file at path, and the environment.
func Load(path string, getenv func(string) string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := ApplyEnv(&cfg, getenv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile overlays the YAML document at path onto cfg. Unknown keys are rejected.
func LoadFile(path string, cfg *Config) error {
	b, err := os.ReadFile(strings.TrimSpace(path))
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config YAML %s: %w", path, err)
	}
	if cfg.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout must not be negative (got %s)", cfg.RequestTimeout)
	}
	return nil
}

// ApplyEnv overlays environment variables onto cfg. Unset variables leave cfg unchanged.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	if v := strings.TrimSpace(getenv(EnvEndpoint)); v != "" {
		cfg.Endpoint = v
	}
	if v := strings.TrimSpace(getenv(EnvLogLevel)); v != "" {
		cfg.LogLevel = v
	}

	timeout, err := envDuration(getenv, EnvRequestTimeout, cfg.RequestTimeout)
	if err != nil {
		return err
	}
	if timeout < 0 {
		return fmt.Errorf("invalid %s=%s: must not be negative", EnvRequestTimeout, timeout)
	}
	cfg.RequestTimeout = timeout

	strict, err := envBool(getenv, EnvStrict, cfg.Strict)
	if err != nil {
		return err
	}
	cfg.Strict = strict
	return nil
}

func envDuration(getenv func(string) string, varName string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}

func envBool(getenv func(string) string, varName string, fallback bool) (bool, error) {
	v := strings.TrimSpace(getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}
