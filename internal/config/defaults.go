package config

const (
	defaultLibraryDir        = "~/music-videos"
	defaultStagingDir        = "~/.local/share/mvault/staging"
	defaultLogDir            = "~/.local/share/mvault/logs"
	defaultDataDir           = "~/.local/share/mvault"
	defaultProviderBaseURL   = "https://imvdb.com/api/v1"
	defaultProviderTimeout   = 30
	defaultFetcherBinary     = "yt-dlp"
	defaultQualityFormat     = "bestvideo[height<=1080]+bestaudio/best[height<=1080]"
	defaultFetcherTimeout    = 1800
	defaultWorkers           = 2
	defaultMaxAttempts       = 4
	defaultRetryBaseSeconds  = 30
	defaultRetryMaxSeconds   = 3600
	defaultJobTimeoutSeconds = 1800
	defaultDiscoveryMinutes  = 360
	defaultScanMinutes       = 1440
	defaultFuzzyThreshold    = 0.85
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

func defaultAllowedExtensions() []string {
	return []string{".mp4", ".mkv", ".webm"}
}

func defaultKindKeywords() map[string][]string {
	return map[string][]string{
		"live":      {"live at", "live from", "live in", "(live)"},
		"lyric":     {"lyric video", "lyrics"},
		"behind":    {"behind the scenes", "making of"},
		"interview": {"interview"},
		"teaser":    {"teaser", "trailer"},
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDir: defaultLibraryDir,
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
			DataDir:    defaultDataDir,
		},
		Provider: Provider{
			BaseURL:        defaultProviderBaseURL,
			RequestTimeout: defaultProviderTimeout,
		},
		Fetcher: Fetcher{
			Binary:         defaultFetcherBinary,
			QualityFormat:  defaultQualityFormat,
			TimeoutSeconds: defaultFetcherTimeout,
		},
		Download: Download{
			Workers:           defaultWorkers,
			MaxAttempts:       defaultMaxAttempts,
			RetryBaseSeconds:  defaultRetryBaseSeconds,
			RetryMaxSeconds:   defaultRetryMaxSeconds,
			JobTimeoutSeconds: defaultJobTimeoutSeconds,
		},
		Scheduler: Scheduler{
			DiscoveryIntervalMinutes: defaultDiscoveryMinutes,
			ScanIntervalMinutes:      defaultScanMinutes,
		},
		Policy: Policy{
			IncludeKinds:      []string{"official"},
			ExcludeKinds:      []string{"teaser", "behind", "interview"},
			KindKeywords:      defaultKindKeywords(),
			AllowedExtensions: defaultAllowedExtensions(),
			FuzzyThreshold:    defaultFuzzyThreshold,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
