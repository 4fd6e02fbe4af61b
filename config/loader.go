package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. SONICCLI_SERVER_URL
const EnvPrefix = "SONICCLI"

// flagKeys maps command line flags onto config keys
var flagKeys = map[string]string{
	"server":   "server.url",
	"user":     "server.user_id",
	"log-file": "log.file",
	"debug":    "log.debug",
	"player":   "player.backend",
}

// Load reads the configuration and returns a Config struct. Sources, lowest
// priority first: defaults, config.toml (path, or $HOME/.config/soniccli and the
// working directory), .env, SONICCLI_* environment variables, changed flags.
// flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath("$HOME/.config/soniccli")
		v.AddConfigPath(".")
	}

	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// keys without a default are only seen by Unmarshal when bound
	for _, key := range []string{"server.url", "history.firebase_url", "history.firebase_auth", "history.redis_url"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			flag := flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks if all required configuration values are set
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.URL) == "" {
		return fmt.Errorf("missing required config: server.url")
	}
	switch c.Player.Backend {
	case "mpv", "beep":
	default:
		return fmt.Errorf("invalid player.backend %q: want mpv or beep", c.Player.Backend)
	}
	switch c.History.Driver {
	case "", "none", "firebase", "redis":
	default:
		return fmt.Errorf("invalid history.driver %q", c.History.Driver)
	}
	if c.Search.MinQueryLength < 1 {
		return fmt.Errorf("search.min_query_length must be at least 1")
	}
	return nil
}

func setDefaults(v *viper.Viper, defaults *Config) {
	v.SetDefault("server.user_id", defaults.Server.UserID)
	v.SetDefault("server.reconnect_delay", defaults.Server.ReconnectDelay)
	v.SetDefault("server.heartbeat", defaults.Server.Heartbeat)
	v.SetDefault("server.realtime", defaults.Server.Realtime)
	v.SetDefault("search.debounce_ms", defaults.Search.DebounceMS)
	v.SetDefault("search.min_query_length", defaults.Search.MinQueryLength)
	v.SetDefault("player.backend", defaults.Player.Backend)
	v.SetDefault("player.http_timeout", defaults.Player.HTTPTimeout)
	v.SetDefault("player.sample_rate", defaults.Player.SampleRate)
	v.SetDefault("player.warmup_per_second", defaults.Player.WarmupPerSecond)
	v.SetDefault("player.warmup_burst", defaults.Player.WarmupBurst)
	v.SetDefault("ui.progress_bar_width", defaults.UI.ProgressBarWidth)
	v.SetDefault("ui.max_column_width", defaults.UI.MaxColumnWidth)
	v.SetDefault("ui.thumbnail_width", defaults.UI.ThumbnailWidth)
	v.SetDefault("ui.thumbnail_height", defaults.UI.ThumbnailHeight)
	v.SetDefault("ui.thumbnails", defaults.UI.Thumbnails)
	v.SetDefault("history.driver", defaults.History.Driver)
	v.SetDefault("log.file", defaults.Log.File)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.debug", defaults.Log.Debug)
	v.SetDefault("log.max_size_mb", defaults.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", defaults.Log.MaxBackups)
}
