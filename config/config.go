package config

import "time"

// Config represents the complete application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Search  SearchConfig  `mapstructure:"search"`
	Player  PlayerConfig  `mapstructure:"player"`
	UI      UIConfig      `mapstructure:"ui"`
	History HistoryConfig `mapstructure:"history"`
	Log     LogConfig     `mapstructure:"log"`
}

// ServerConfig contains SonicStream backend connection settings
type ServerConfig struct {
	URL            string `mapstructure:"url"`
	UserID         string `mapstructure:"user_id"`
	ReconnectDelay int    `mapstructure:"reconnect_delay"` // in seconds
	Heartbeat      int    `mapstructure:"heartbeat"`       // in seconds, 0 disables
	Realtime       bool   `mapstructure:"realtime"`
}

// SearchConfig contains query coordination settings
type SearchConfig struct {
	DebounceMS     int `mapstructure:"debounce_ms"`
	MinQueryLength int `mapstructure:"min_query_length"`
}

// PlayerConfig contains playback and HTTP client settings
type PlayerConfig struct {
	Backend         string  `mapstructure:"backend"`      // mpv or beep
	HTTPTimeout     int     `mapstructure:"http_timeout"` // in seconds
	SampleRate      int     `mapstructure:"sample_rate"`
	WarmupPerSecond float64 `mapstructure:"warmup_per_second"`
	WarmupBurst     int     `mapstructure:"warmup_burst"`
}

// UIConfig contains user interface settings
type UIConfig struct {
	ProgressBarWidth int  `mapstructure:"progress_bar_width"`
	MaxColumnWidth   int  `mapstructure:"max_column_width"`
	ThumbnailWidth   int  `mapstructure:"thumbnail_width"`
	ThumbnailHeight  int  `mapstructure:"thumbnail_height"`
	Thumbnails       bool `mapstructure:"thumbnails"`
}

// HistoryConfig selects where play history is written
type HistoryConfig struct {
	Driver       string `mapstructure:"driver"` // none, firebase or redis
	FirebaseURL  string `mapstructure:"firebase_url"`
	FirebaseAuth string `mapstructure:"firebase_auth"`
	RedisURL     string `mapstructure:"redis_url"`
}

// LogConfig contains log file settings. The terminal belongs to the UI, so logs
// always go to a file.
type LogConfig struct {
	File       string `mapstructure:"file"`
	Level      string `mapstructure:"level"`
	Debug      bool   `mapstructure:"debug"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// GetReconnectDelay returns the reconnect delay as a time.Duration
func (s *ServerConfig) GetReconnectDelay() time.Duration {
	return time.Duration(s.ReconnectDelay) * time.Second
}

// GetHeartbeat returns the heartbeat interval as a time.Duration
func (s *ServerConfig) GetHeartbeat() time.Duration {
	return time.Duration(s.Heartbeat) * time.Second
}

// GetDebounce returns the suggestion debounce as a time.Duration
func (s *SearchConfig) GetDebounce() time.Duration {
	return time.Duration(s.DebounceMS) * time.Millisecond
}

// GetHTTPTimeout returns the HTTP timeout as a time.Duration
func (p *PlayerConfig) GetHTTPTimeout() time.Duration {
	return time.Duration(p.HTTPTimeout) * time.Second
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			UserID:         "guest",
			ReconnectDelay: 3,
			Heartbeat:      25,
			Realtime:       true,
		},
		Search: SearchConfig{
			DebounceMS:     300,
			MinQueryLength: 2,
		},
		Player: PlayerConfig{
			Backend:         "mpv",
			HTTPTimeout:     30,
			SampleRate:      44100,
			WarmupPerSecond: 4,
			WarmupBurst:     4,
		},
		UI: UIConfig{
			ProgressBarWidth: 30,
			MaxColumnWidth:   40,
			ThumbnailWidth:   24,
			ThumbnailHeight:  10,
			Thumbnails:       true,
		},
		History: HistoryConfig{
			Driver: "none",
		},
		Log: LogConfig{
			File:       "$HOME/.cache/soniccli/soniccli.log",
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}
