package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds the dashboard client settings.
type Config struct {
	APIURL          string
	BranchID        int64
	StateDir        string
	LogFile         string
	PollInterval    time.Duration
	CacheStaleTime  time.Duration
	CacheTime       time.Duration
	RefreshInterval time.Duration
	ModalDelay      time.Duration
	MetricsAddr     string
}

const (
	defaultConfigPath      = "~/.config/courier/config.toml"
	defaultAPIURL          = "127.0.0.1:8080"
	defaultStateDir        = "~/.config/courier/state"
	defaultLogFile         = "~/.local/state/courier/courier.log"
	defaultPollInterval    = 3 * time.Second
	defaultCacheStaleTime  = 5 * time.Minute
	defaultCacheTime       = 10 * time.Minute
	defaultRefreshInterval = time.Minute
	defaultModalDelay      = 300 * time.Millisecond
)

// Environment overrides, applied after the file.
const (
	EnvAPIURL       = "COURIER_API_URL"
	EnvBranchID     = "COURIER_BRANCH_ID"
	EnvPollInterval = "COURIER_POLL_INTERVAL"
	EnvStateDir     = "COURIER_STATE_DIR"
	EnvMetricsAddr  = "COURIER_METRICS_ADDR"
)

// Default returns the settings used when no config file exists.
func Default() Config {
	return Config{
		APIURL:          defaultAPIURL,
		StateDir:        mustExpand(defaultStateDir),
		LogFile:         mustExpand(defaultLogFile),
		PollInterval:    defaultPollInterval,
		CacheStaleTime:  defaultCacheStaleTime,
		CacheTime:       defaultCacheTime,
		RefreshInterval: defaultRefreshInterval,
		ModalDelay:      defaultModalDelay,
	}
}

// LoadEnvFile reads KEY=value pairs from path into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if strings.TrimSpace(path) == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

type rawConfig struct {
	APIURL          string `toml:"api_url"`
	BranchID        int64  `toml:"branch_id"`
	StateDir        string `toml:"state_dir"`
	LogFile         string `toml:"log_file"`
	PollInterval    string `toml:"poll_interval"`
	CacheStale      string `toml:"cache_stale"`
	CacheTTL        string `toml:"cache_ttl"`
	RefreshInterval string `toml:"refresh_interval"`
	ModalDelay      string `toml:"modal_delay"`
	MetricsAddr     string `toml:"metrics_addr"`
}

// Load reads the config file at path (or the default location), falling back
// to defaults when it is missing, then applies environment overrides.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	var raw rawConfig
	file, err := os.Open(resolved)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("open config: %w", err)
	default:
		defer file.Close()
		bytes, err := io.ReadAll(file)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(bytes, &raw); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&raw)
	return raw.resolve()
}

func applyEnv(raw *rawConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvAPIURL)); v != "" {
		raw.APIURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBranchID)); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			raw.BranchID = id
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvPollInterval)); v != "" {
		raw.PollInterval = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvStateDir)); v != "" {
		raw.StateDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvMetricsAddr)); v != "" {
		raw.MetricsAddr = v
	}
}

func (raw rawConfig) resolve() (Config, error) {
	cfg := Default()

	if v := strings.TrimSpace(raw.APIURL); v != "" {
		cfg.APIURL = v
	}
	if raw.BranchID < 0 {
		return Config{}, fmt.Errorf("branch_id must not be negative")
	}
	cfg.BranchID = raw.BranchID
	if v := strings.TrimSpace(raw.StateDir); v != "" {
		cfg.StateDir = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.LogFile); v != "" {
		cfg.LogFile = mustExpand(v)
	}
	cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)

	durations := []struct {
		name string
		raw  string
		dest *time.Duration
	}{
		{"poll_interval", raw.PollInterval, &cfg.PollInterval},
		{"cache_stale", raw.CacheStale, &cfg.CacheStaleTime},
		{"cache_ttl", raw.CacheTTL, &cfg.CacheTime},
		{"refresh_interval", raw.RefreshInterval, &cfg.RefreshInterval},
		{"modal_delay", raw.ModalDelay, &cfg.ModalDelay},
	}
	for _, d := range durations {
		v := strings.TrimSpace(d.raw)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", d.name, err)
		}
		if parsed < 0 {
			return Config{}, fmt.Errorf("%s must not be negative", d.name)
		}
		*d.dest = parsed
	}
	if cfg.PollInterval == 0 {
		return Config{}, fmt.Errorf("poll_interval must be positive")
	}
	if cfg.CacheTime < cfg.CacheStaleTime {
		cfg.CacheTime = cfg.CacheStaleTime
	}
	return cfg, nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
