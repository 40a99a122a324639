package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the chat client.
type Config struct {
	ServerURL       string
	Token           string
	EmployeeCode    string
	Heartbeat       time.Duration
	ReconnectBase   time.Duration
	PollInterval    time.Duration
	HistoryLimit    int
	MaxAttachmentMB int
	CachePath       string
	CacheRetention  time.Duration
	MetricsAddr     string
	LogLevel        string
	LogFile         string
}

// MaxAttachmentBytes returns the upload cap in bytes.
func (c Config) MaxAttachmentBytes() int64 {
	return int64(c.MaxAttachmentMB) << 20
}

// Load reads configuration values from environment variables and an optional
// .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("DESKCHAT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("heartbeat", "25s")
	v.SetDefault("reconnect_base", "1s")
	v.SetDefault("poll_interval", "2s")
	v.SetDefault("history_limit", 50)
	v.SetDefault("max_attachment_mb", 25)
	v.SetDefault("cache.path", defaultCachePath())
	v.SetDefault("cache.retention", "720h")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")

	heartbeat, err := parseDuration(v.GetString("heartbeat"), "heartbeat")
	if err != nil {
		return Config{}, err
	}
	reconnectBase, err := parseDuration(v.GetString("reconnect_base"), "reconnect base")
	if err != nil {
		return Config{}, err
	}
	pollInterval, err := parseDuration(v.GetString("poll_interval"), "poll interval")
	if err != nil {
		return Config{}, err
	}
	retention, err := parseDuration(v.GetString("cache.retention"), "cache retention")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		ServerURL:       strings.TrimRight(v.GetString("server.url"), "/"),
		Token:           v.GetString("token"),
		EmployeeCode:    v.GetString("employee.code"),
		Heartbeat:       heartbeat,
		ReconnectBase:   reconnectBase,
		PollInterval:    pollInterval,
		HistoryLimit:    v.GetInt("history_limit"),
		MaxAttachmentMB: v.GetInt("max_attachment_mb"),
		CachePath:       v.GetString("cache.path"),
		CacheRetention:  retention,
		MetricsAddr:     v.GetString("metrics.addr"),
		LogLevel:        strings.ToLower(v.GetString("log.level")),
		LogFile:         v.GetString("log.file"),
	}

	if cfg.ServerURL == "" {
		return Config{}, fmt.Errorf("server url must be provided")
	}
	if cfg.Token == "" {
		return Config{}, fmt.Errorf("auth token must be provided")
	}

	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 50
	}
	if cfg.MaxAttachmentMB <= 0 {
		cfg.MaxAttachmentMB = 25
	}

	return cfg, nil
}

func parseDuration(value, label string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", label, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", label)
	}
	return d, nil
}

func defaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "deskchat.db"
	}
	return filepath.Join(dir, "deskchat", "deskchat.db")
}
