package config

const (
	defaultConfigPath           = "~/.config/releasekit/config.toml"
	defaultStateDir             = "~/.local/share/releasekit"
	defaultLogDir               = "~/.local/share/releasekit/logs"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultTagFormat            = "{name}/{version}"
	defaultNotifyRequestTimeout = 10
	defaultS3Endpoint           = "s3.amazonaws.com"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
			CacheDir: defaultCacheDir(),
		},
		Git: Git{
			Enabled:      false,
			RequireClean: true,
			TagFormat:    defaultTagFormat,
			Annotated:    true,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
		},
		History: History{
			Enabled: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
