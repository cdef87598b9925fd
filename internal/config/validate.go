package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateProvider(); err != nil {
		return err
	}
	if err := c.validateFetcher(); err != nil {
		return err
	}
	if err := c.validateDownload(); err != nil {
		return err
	}
	if err := c.validateScheduler(); err != nil {
		return err
	}
	if err := c.validatePolicy(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.LibraryDir) == "" {
		return errors.New("paths.library_dir must be set")
	}
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		return errors.New("paths.staging_dir must be set")
	}
	if c.Paths.StagingDir == c.Paths.LibraryDir {
		return errors.New("paths.staging_dir must differ from paths.library_dir")
	}
	return nil
}

func (c *Config) validateProvider() error {
	if strings.TrimSpace(c.Provider.BaseURL) == "" {
		return errors.New("provider.base_url must be set")
	}
	if c.Provider.RequestTimeout <= 0 {
		return errors.New("provider.request_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateFetcher() error {
	if strings.TrimSpace(c.Fetcher.Binary) == "" {
		return errors.New("fetcher.binary must be set")
	}
	if c.Fetcher.TimeoutSeconds <= 0 {
		return errors.New("fetcher.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateDownload() error {
	if err := ensurePositiveMap(map[string]int{
		"download.workers":             c.Download.Workers,
		"download.max_attempts":        c.Download.MaxAttempts,
		"download.retry_base_seconds":  c.Download.RetryBaseSeconds,
		"download.retry_max_seconds":   c.Download.RetryMaxSeconds,
		"download.job_timeout_seconds": c.Download.JobTimeoutSeconds,
	}); err != nil {
		return err
	}
	if c.Download.RetryMaxSeconds < c.Download.RetryBaseSeconds {
		return errors.New("download.retry_max_seconds must be >= download.retry_base_seconds")
	}
	return nil
}

func (c *Config) validateScheduler() error {
	return ensurePositiveMap(map[string]int{
		"scheduler.discovery_interval_minutes": c.Scheduler.DiscoveryIntervalMinutes,
		"scheduler.scan_interval_minutes":      c.Scheduler.ScanIntervalMinutes,
	})
}

func (c *Config) validatePolicy() error {
	if len(c.Policy.AllowedExtensions) == 0 {
		return errors.New("policy.allowed_extensions must include at least one extension")
	}
	if c.Policy.FuzzyThreshold <= 0 || c.Policy.FuzzyThreshold > 1 {
		return errors.New("policy.fuzzy_threshold must be between 0 and 1")
	}
	for _, kind := range c.Policy.IncludeKinds {
		for _, excluded := range c.Policy.ExcludeKinds {
			if kind == excluded {
				return fmt.Errorf("policy kind %q appears in both include_kinds and exclude_kinds", kind)
			}
		}
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
