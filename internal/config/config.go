package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	LibraryDir string `toml:"library_dir"`
	StagingDir string `toml:"staging_dir"`
	LogDir     string `toml:"log_dir"`
	DataDir    string `toml:"data_dir"`
}

// Provider contains configuration for the catalog provider.
type Provider struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Fetcher contains configuration for the external download tool.
type Fetcher struct {
	Binary         string   `toml:"binary"`
	ExtraArgs      []string `toml:"extra_args"`
	QualityFormat  string   `toml:"quality_format"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// Download contains worker pool and retry configuration.
type Download struct {
	Workers           int `toml:"workers"`
	MaxAttempts       int `toml:"max_attempts"`
	RetryBaseSeconds  int `toml:"retry_base_seconds"`
	RetryMaxSeconds   int `toml:"retry_max_seconds"`
	JobTimeoutSeconds int `toml:"job_timeout_seconds"`
}

// Scheduler contains discovery and scan interval configuration.
type Scheduler struct {
	DiscoveryIntervalMinutes int `toml:"discovery_interval_minutes"`
	ScanIntervalMinutes      int `toml:"scan_interval_minutes"`
}

// Policy contains the acquisition policy filter configuration.
type Policy struct {
	IncludeKinds      []string            `toml:"include_kinds"`
	ExcludeKinds      []string            `toml:"exclude_kinds"`
	KindKeywords      map[string][]string `toml:"kind_keywords"`
	AllowedExtensions []string            `toml:"allowed_extensions"`
	FuzzyThreshold    float64             `toml:"fuzzy_threshold"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for mvault.
//
// Configuration sections by subsystem:
//   - Paths: library, staging, log, and data directories
//   - Provider: catalog provider endpoint and credentials
//   - Fetcher: external download tool and format selection
//   - Download: worker count, retry policy, and per-job timeout
//   - Scheduler: discovery and library scan intervals
//   - Policy: candidate kind filtering and extension allowlist
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Provider  Provider  `toml:"provider"`
	Fetcher   Fetcher   `toml:"fetcher"`
	Download  Download  `toml:"download"`
	Scheduler Scheduler `toml:"scheduler"`
	Policy    Policy    `toml:"policy"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/mvault/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("mvault.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// LibraryDir is created on a best-effort basis so the daemon can run when
// external storage is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.LogDir, c.Paths.DataDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.LibraryDir) != "" {
		// Best-effort to avoid failing config load when storage is offline.
		_ = os.MkdirAll(c.Paths.LibraryDir, 0o755)
	}
	return nil
}

// DatabasePath returns the SQLite database location inside the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "mvault.db")
}

// LockPath returns the daemon lock file location inside the data directory.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "mvault.lock")
}

// ProviderTimeout returns the catalog request timeout as a duration.
func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.Provider.RequestTimeout) * time.Second
}

// RetryBase returns the retry backoff base as a duration.
func (c *Config) RetryBase() time.Duration {
	return time.Duration(c.Download.RetryBaseSeconds) * time.Second
}

// RetryMax returns the retry backoff ceiling as a duration.
func (c *Config) RetryMax() time.Duration {
	return time.Duration(c.Download.RetryMaxSeconds) * time.Second
}

// JobTimeout returns the per-download timeout as a duration.
func (c *Config) JobTimeout() time.Duration {
	return time.Duration(c.Download.JobTimeoutSeconds) * time.Second
}

// DiscoveryInterval returns the discovery tick interval as a duration.
func (c *Config) DiscoveryInterval() time.Duration {
	return time.Duration(c.Scheduler.DiscoveryIntervalMinutes) * time.Minute
}

// ScanInterval returns the library scan interval as a duration.
func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.Scheduler.ScanIntervalMinutes) * time.Minute
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
