package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeProvider()
	c.normalizeFetcher()
	c.normalizeDownload()
	c.normalizeScheduler()
	c.normalizePolicy()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeProvider() {
	c.Provider.BaseURL = strings.TrimRight(strings.TrimSpace(c.Provider.BaseURL), "/")
	if c.Provider.BaseURL == "" {
		c.Provider.BaseURL = defaultProviderBaseURL
	}
	c.Provider.APIKey = strings.TrimSpace(c.Provider.APIKey)
	if c.Provider.APIKey == "" {
		if value, ok := os.LookupEnv("MVAULT_PROVIDER_API_KEY"); ok {
			c.Provider.APIKey = strings.TrimSpace(value)
		}
	}
	if c.Provider.RequestTimeout <= 0 {
		c.Provider.RequestTimeout = defaultProviderTimeout
	}
}

func (c *Config) normalizeFetcher() {
	c.Fetcher.Binary = strings.TrimSpace(c.Fetcher.Binary)
	if c.Fetcher.Binary == "" {
		c.Fetcher.Binary = defaultFetcherBinary
	}
	c.Fetcher.QualityFormat = strings.TrimSpace(c.Fetcher.QualityFormat)
	if c.Fetcher.QualityFormat == "" {
		c.Fetcher.QualityFormat = defaultQualityFormat
	}
	if c.Fetcher.TimeoutSeconds <= 0 {
		c.Fetcher.TimeoutSeconds = defaultFetcherTimeout
	}
	args := make([]string, 0, len(c.Fetcher.ExtraArgs))
	for _, arg := range c.Fetcher.ExtraArgs {
		if trimmed := strings.TrimSpace(arg); trimmed != "" {
			args = append(args, trimmed)
		}
	}
	c.Fetcher.ExtraArgs = args
}

func (c *Config) normalizeDownload() {
	if c.Download.Workers <= 0 {
		c.Download.Workers = defaultWorkers
	}
	if c.Download.MaxAttempts <= 0 {
		c.Download.MaxAttempts = defaultMaxAttempts
	}
	if c.Download.RetryBaseSeconds <= 0 {
		c.Download.RetryBaseSeconds = defaultRetryBaseSeconds
	}
	if c.Download.RetryMaxSeconds <= 0 {
		c.Download.RetryMaxSeconds = defaultRetryMaxSeconds
	}
	if c.Download.JobTimeoutSeconds <= 0 {
		c.Download.JobTimeoutSeconds = defaultJobTimeoutSeconds
	}
}

func (c *Config) normalizeScheduler() {
	if c.Scheduler.DiscoveryIntervalMinutes <= 0 {
		c.Scheduler.DiscoveryIntervalMinutes = defaultDiscoveryMinutes
	}
	if c.Scheduler.ScanIntervalMinutes <= 0 {
		c.Scheduler.ScanIntervalMinutes = defaultScanMinutes
	}
}

func (c *Config) normalizePolicy() {
	c.Policy.IncludeKinds = normalizeKindList(c.Policy.IncludeKinds)
	c.Policy.ExcludeKinds = normalizeKindList(c.Policy.ExcludeKinds)

	if len(c.Policy.KindKeywords) == 0 {
		c.Policy.KindKeywords = defaultKindKeywords()
	} else {
		keywords := make(map[string][]string, len(c.Policy.KindKeywords))
		for kind, terms := range c.Policy.KindKeywords {
			normalizedKind := strings.ToLower(strings.TrimSpace(kind))
			if normalizedKind == "" {
				continue
			}
			cleaned := make([]string, 0, len(terms))
			for _, term := range terms {
				if trimmed := strings.ToLower(strings.TrimSpace(term)); trimmed != "" {
					cleaned = append(cleaned, trimmed)
				}
			}
			if len(cleaned) > 0 {
				keywords[normalizedKind] = cleaned
			}
		}
		c.Policy.KindKeywords = keywords
	}

	if len(c.Policy.AllowedExtensions) == 0 {
		c.Policy.AllowedExtensions = defaultAllowedExtensions()
	} else {
		exts := make([]string, 0, len(c.Policy.AllowedExtensions))
		seen := make(map[string]struct{}, len(c.Policy.AllowedExtensions))
		for _, ext := range c.Policy.AllowedExtensions {
			normalized := strings.ToLower(strings.TrimSpace(ext))
			if normalized == "" {
				continue
			}
			if !strings.HasPrefix(normalized, ".") {
				normalized = "." + normalized
			}
			normalized = filepath.Ext(normalized)
			if normalized == "" {
				continue
			}
			if _, exists := seen[normalized]; exists {
				continue
			}
			seen[normalized] = struct{}{}
			exts = append(exts, normalized)
		}
		if len(exts) == 0 {
			exts = defaultAllowedExtensions()
		}
		c.Policy.AllowedExtensions = exts
	}

	if c.Policy.FuzzyThreshold <= 0 {
		c.Policy.FuzzyThreshold = defaultFuzzyThreshold
	}
}

func normalizeKindList(kinds []string) []string {
	out := make([]string, 0, len(kinds))
	seen := make(map[string]struct{}, len(kinds))
	for _, kind := range kinds {
		normalized := strings.ToLower(strings.TrimSpace(kind))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
