package model

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// RemoteConfig selects and configures the remote mailbox service.
type RemoteConfig struct {
	// Kind is "api" for the newsletter HTTP service or "imap" for a
	// plain mailbox.
	Kind string `mapstructure:"kind" yaml:"kind"`

	// BaseURL is the root URL of the newsletter service.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// User is the account name; it also keys the keyring secret.
	User string `mapstructure:"user" yaml:"user"`

	IMAPHost string `mapstructure:"imap_host" yaml:"imap_host"`
	IMAPPort string `mapstructure:"imap_port" yaml:"imap_port"`
	TLS      bool   `mapstructure:"tls" yaml:"tls"`

	// RequestsPerSecond caps the request rate against the remote.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
}

// CacheConfig configures the two-tier cache.
type CacheConfig struct {
	// Durable is one of "sqlite", "redis", "memory" or "none".
	Durable    string `mapstructure:"durable" yaml:"durable"`
	Path       string `mapstructure:"path" yaml:"path"`
	RedisAddr  string `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisDB    int    `mapstructure:"redis_db" yaml:"redis_db"`
	QuotaBytes int64  `mapstructure:"quota_bytes" yaml:"quota_bytes"`

	SweepIntervalSec  int     `mapstructure:"sweep_interval_sec" yaml:"sweep_interval_sec"`
	StaleRatio        float64 `mapstructure:"stale_ratio" yaml:"stale_ratio"`
	PendingAbandonSec int     `mapstructure:"pending_abandon_sec" yaml:"pending_abandon_sec"`
	PendingDropSec    int     `mapstructure:"pending_drop_sec" yaml:"pending_drop_sec"`
	FetchTimeoutSec   int     `mapstructure:"fetch_timeout_sec" yaml:"fetch_timeout_sec"`
	SenderTTLHours    int     `mapstructure:"sender_ttl_hours" yaml:"sender_ttl_hours"`
}

// InboxConfig holds the pagination and catch-up tuning.
type InboxConfig struct {
	PageSize         int  `mapstructure:"page_size" yaml:"page_size"`
	InitialPages     int  `mapstructure:"initial_pages" yaml:"initial_pages"`
	BatchPages       int  `mapstructure:"batch_pages" yaml:"batch_pages"`
	BatchDelayMs     int  `mapstructure:"batch_delay_ms" yaml:"batch_delay_ms"`
	MaxPages         int  `mapstructure:"max_pages" yaml:"max_pages"`
	FreshnessSec     int  `mapstructure:"freshness_sec" yaml:"freshness_sec"`
	PageTTLSec       int  `mapstructure:"page_ttl_sec" yaml:"page_ttl_sec"`
	CountsTTLSec     int  `mapstructure:"counts_ttl_sec" yaml:"counts_ttl_sec"`
	ResumeOnActivate bool `mapstructure:"resume_on_activate" yaml:"resume_on_activate"`

	// PollIntervalSec is how often the TUI checks the counts for new mail.
	PollIntervalSec int `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme       string `mapstructure:"theme" yaml:"theme"`
	DefaultView string `mapstructure:"default_view" yaml:"default_view"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Remote  RemoteConfig  `mapstructure:"remote" yaml:"remote"`
	Cache   CacheConfig   `mapstructure:"cache" yaml:"cache"`
	Inbox   InboxConfig   `mapstructure:"inbox" yaml:"inbox"`
	Display DisplayConfig `mapstructure:"display" yaml:"display"`
}

// ConfigDir returns ~/.config/newsreader, or the working directory when
// the home directory cannot be resolved.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "newsreader")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/newsreader/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DefaultAppConfig returns a sensible default configuration.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		Remote: RemoteConfig{
			Kind:              "api",
			IMAPPort:          "993",
			TLS:               true,
			RequestsPerSecond: 8,
		},
		Cache: CacheConfig{
			Durable:           "sqlite",
			Path:              filepath.Join(ConfigDir(), "cache.db"),
			RedisAddr:         "localhost:6379",
			QuotaBytes:        5 << 20,
			SweepIntervalSec:  60,
			StaleRatio:        0.7,
			PendingAbandonSec: 10,
			PendingDropSec:    30,
			FetchTimeoutSec:   60,
			SenderTTLHours:    168,
		},
		Inbox: InboxConfig{
			PageSize:         20,
			InitialPages:     3,
			BatchPages:       3,
			BatchDelayMs:     500,
			MaxPages:         250,
			FreshnessSec:     300,
			PageTTLSec:       120,
			CountsTTLSec:     30,
			ResumeOnActivate: true,
			PollIntervalSec:  120,
		},
		Display: DisplayConfig{
			Theme:       "default",
			DefaultView: string(ViewUnread),
		},
	}
}

// setDefaults mirrors DefaultAppConfig into viper so missing keys
// resolve to sensible values.
func setDefaults(v *viper.Viper) {
	d := DefaultAppConfig()
	v.SetDefault("remote.kind", d.Remote.Kind)
	v.SetDefault("remote.imap_port", d.Remote.IMAPPort)
	v.SetDefault("remote.tls", d.Remote.TLS)
	v.SetDefault("remote.requests_per_second", d.Remote.RequestsPerSecond)

	v.SetDefault("cache.durable", d.Cache.Durable)
	v.SetDefault("cache.path", d.Cache.Path)
	v.SetDefault("cache.redis_addr", d.Cache.RedisAddr)
	v.SetDefault("cache.quota_bytes", d.Cache.QuotaBytes)
	v.SetDefault("cache.sweep_interval_sec", d.Cache.SweepIntervalSec)
	v.SetDefault("cache.stale_ratio", d.Cache.StaleRatio)
	v.SetDefault("cache.pending_abandon_sec", d.Cache.PendingAbandonSec)
	v.SetDefault("cache.pending_drop_sec", d.Cache.PendingDropSec)
	v.SetDefault("cache.fetch_timeout_sec", d.Cache.FetchTimeoutSec)
	v.SetDefault("cache.sender_ttl_hours", d.Cache.SenderTTLHours)

	v.SetDefault("inbox.page_size", d.Inbox.PageSize)
	v.SetDefault("inbox.initial_pages", d.Inbox.InitialPages)
	v.SetDefault("inbox.batch_pages", d.Inbox.BatchPages)
	v.SetDefault("inbox.batch_delay_ms", d.Inbox.BatchDelayMs)
	v.SetDefault("inbox.max_pages", d.Inbox.MaxPages)
	v.SetDefault("inbox.freshness_sec", d.Inbox.FreshnessSec)
	v.SetDefault("inbox.page_ttl_sec", d.Inbox.PageTTLSec)
	v.SetDefault("inbox.counts_ttl_sec", d.Inbox.CountsTTLSec)
	v.SetDefault("inbox.resume_on_activate", d.Inbox.ResumeOnActivate)
	v.SetDefault("inbox.poll_interval_sec", d.Inbox.PollIntervalSec)

	v.SetDefault("display.theme", d.Display.Theme)
	v.SetDefault("display.default_view", d.Display.DefaultView)
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
// NEWSREADER_* environment variables override file values.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("newsreader")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return unmarshalConfig(v, path)
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return unmarshalConfig(v, path)
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	return unmarshalConfig(v, path)
}

func unmarshalConfig(v *viper.Viper, path string) (*AppConfig, error) {
	cfg := DefaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if _, err := ParseView(cfg.Display.DefaultView); err != nil {
		cfg.Display.DefaultView = string(ViewUnread)
	}
	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("remote", cfg.Remote)
	v.Set("cache", cfg.Cache)
	v.Set("inbox", cfg.Inbox)
	v.Set("display", cfg.Display)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}

// Seconds converts an integer number of seconds into a duration,
// substituting def when n is not positive.
func Seconds(n int, def time.Duration) time.Duration {
	if n <= 0 {
		return def
	}
	return time.Duration(n) * time.Second
}

// Millis is the millisecond counterpart of Seconds.
func Millis(n int, def time.Duration) time.Duration {
	if n <= 0 {
		return def
	}
	return time.Duration(n) * time.Millisecond
}
