package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

type ScanCfg struct {
	Concurrency int      `yaml:"concurrency" json:"concurrency"`     // Size worker pool size
	MaxOpenDirs int      `yaml:"max_open_dirs" json:"max_open_dirs"` // Cap on concurrent in-flight directory reads
	SkipHidden  bool     `yaml:"skip_hidden" json:"skip_hidden"`     // Skip dot-directories during discovery
	SkipDirs    []string `yaml:"skip_dirs" json:"skip_dirs"`         // Directory names never descended into
}

type DeleteCfg struct {
	Concurrency    int      `yaml:"concurrency" json:"concurrency"`
	AllowedRoots   []string `yaml:"allowed_roots" json:"allowed_roots"`     // Empty = anywhere
	ProtectedPaths []string `yaml:"protected_paths" json:"protected_paths"` // Added to the built-in list
	DryRun         bool     `yaml:"dry_run" json:"dry_run"`
}

type LoggingCfg struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"` // console or json
	File       string `yaml:"file" json:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" json:"max_age_days"`
}

type PrometheusCfg struct {
	Port int `yaml:"port" json:"port"`
}

type ServerCfg struct {
	Addr         string  `yaml:"addr" json:"addr"`
	RateLimit    float64 `yaml:"rate_limit" json:"rate_limit"` // Requests per second per client
	Burst        int     `yaml:"burst" json:"burst"`
	MaxBodyBytes int64   `yaml:"max_body_bytes" json:"max_body_bytes"`
}

type Config struct {
	Scan         ScanCfg       `yaml:"scan" json:"scan"`
	Delete       DeleteCfg     `yaml:"delete" json:"delete"`
	Logging      LoggingCfg    `yaml:"logging" json:"logging"`
	Prometheus   PrometheusCfg `yaml:"prometheus" json:"prometheus"`
	Server       ServerCfg     `yaml:"server" json:"server"`
	DatabasePath string        `yaml:"database_path" json:"database_path"` // SQLite deletion audit log; empty disables it
}

var (
	errInvalidPath     = errors.New("path must be absolute")
	errNegativeValue   = errors.New("value cannot be negative")
	errInvalidLogLevel = errors.New("logging.level must be debug, info, warn or error")
	errInvalidFormat   = errors.New("logging.format must be console or json")
)

// DefaultPath returns the per-user config location.
func DefaultPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "nmsweep", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "nmsweep", "config.yaml")
}

// Default returns a validated configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	// Defaults never fail validation.
	_ = cfg.validateAndDefault()
	return cfg
}

func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := decode(f)
	if err != nil {
		return nil, err
	}
	if err := cfg.validateAndDefault(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads path, falling back to defaults when the file does not
// exist and missingOK is set.
func LoadOrDefault(path string, missingOK bool) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	cfg, err := Load(path)
	if err != nil && missingOK && errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

func decode(r io.Reader) (*Config, error) {
	cfg := &Config{}
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return cfg, nil
		}
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return cfg, nil
}

func (c *Config) validateAndDefault() error {
	for name, v := range map[string]int{
		"scan.concurrency":     c.Scan.Concurrency,
		"scan.max_open_dirs":   c.Scan.MaxOpenDirs,
		"delete.concurrency":   c.Delete.Concurrency,
		"logging.max_size_mb":  c.Logging.MaxSizeMB,
		"logging.max_backups":  c.Logging.MaxBackups,
		"logging.max_age_days": c.Logging.MaxAgeDays,
		"prometheus.port":      c.Prometheus.Port,
		"server.burst":         c.Server.Burst,
	} {
		if v < 0 {
			return fmt.Errorf("%s: %w", name, errNegativeValue)
		}
	}
	if c.Server.RateLimit < 0 || c.Server.MaxBodyBytes < 0 {
		return fmt.Errorf("server: %w", errNegativeValue)
	}

	if c.Scan.Concurrency == 0 {
		c.Scan.Concurrency = min(2*runtime.GOMAXPROCS(0), 32)
	}
	if c.Scan.MaxOpenDirs == 0 {
		c.Scan.MaxOpenDirs = 64
	}
	if c.Delete.Concurrency == 0 {
		c.Delete.Concurrency = 4
	}

	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	switch c.Logging.Level {
	case "":
		c.Logging.Level = "info"
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: %q", errInvalidLogLevel, c.Logging.Level)
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "":
		c.Logging.Format = "console"
	case "console", "json":
	default:
		return fmt.Errorf("%w: %q", errInvalidFormat, c.Logging.Format)
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = 50
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = 3
	}
	if c.Logging.MaxAgeDays == 0 {
		c.Logging.MaxAgeDays = 30
	}

	if c.Server.Addr == "" {
		c.Server.Addr = "127.0.0.1:7419"
	}
	if c.Server.RateLimit == 0 {
		c.Server.RateLimit = 20
	}
	if c.Server.Burst == 0 {
		c.Server.Burst = 40
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = 1 << 20
	}

	var err error
	if c.Delete.AllowedRoots, err = cleanAll(c.Delete.AllowedRoots); err != nil {
		return fmt.Errorf("delete.allowed_roots: %w", err)
	}
	if c.Delete.ProtectedPaths, err = cleanAll(c.Delete.ProtectedPaths); err != nil {
		return fmt.Errorf("delete.protected_paths: %w", err)
	}
	if c.DatabasePath != "" {
		if c.DatabasePath, err = cleanAbsolute(c.DatabasePath); err != nil {
			return fmt.Errorf("database_path: %w", err)
		}
	}

	return nil
}

func cleanAll(paths []string) ([]string, error) {
	cleaned := make([]string, 0, len(paths))
	for _, p := range paths {
		cp, err := cleanAbsolute(p)
		if err != nil {
			return nil, err
		}
		cleaned = append(cleaned, cp)
	}
	return cleaned, nil
}

func cleanAbsolute(p string) (string, error) {
	if p == "" {
		return "", errInvalidPath
	}
	cp := filepath.Clean(p)
	if !filepath.IsAbs(cp) {
		return "", fmt.Errorf("%w: %s", errInvalidPath, p)
	}
	return cp, nil
}

func (c *Config) PrometheusAddress() string {
	return fmt.Sprintf(":%d", c.Prometheus.Port)
}
