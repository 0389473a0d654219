package shared

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// AutonextModes lists the accepted values of player.autonext.
var AutonextModes = []string{"related", "playlist", "trending"}

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	API         APIConfig         `toml:"api"`
	Cache       CacheConfig       `toml:"cache"`
	Player      PlayerConfig      `toml:"player"`
	History     HistoryConfig     `toml:"history"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	YouTube YouTubeConfig `toml:"youtube"`
}

// YouTubeConfig contains the YouTube Data API key set.
//
// Keys are tried in order; a quota or authorization failure advances to the next one.
type YouTubeConfig struct {
	APIKeys []string `toml:"api_keys"`
	BaseURL string   `toml:"base_url"`
}

// APIConfig controls the outbound request layer.
type APIConfig struct {
	RateLimit      float64  `toml:"rate_limit"` // requests per second
	Burst          int      `toml:"burst"`
	Timeout        Duration `toml:"timeout"`
	RotateStatuses []int    `toml:"rotate_statuses"`
	QuotaReasons   []string `toml:"quota_reasons"`
}

// CacheConfig controls the response cache.
//
// Bumping Version invalidates every stored entry.
type CacheConfig struct {
	Version    int       `toml:"version"`
	RedisURL   string    `toml:"redis_url"`
	KeyPrefix  string    `toml:"key_prefix"`
	MaxEntries int       `toml:"max_entries"`
	TTL        TTLConfig `toml:"ttl"`
}

// TTLConfig holds per-endpoint cache lifetimes.
type TTLConfig struct {
	Details       Duration `toml:"details"`
	Search        Duration `toml:"search"`
	Related       Duration `toml:"related"`
	Trending      Duration `toml:"trending"`
	PlaylistItems Duration `toml:"playlist_items"`
}

// PlayerConfig contains embed widget and autonext defaults.
type PlayerConfig struct {
	Autoplay bool   `toml:"autoplay"`
	Controls bool   `toml:"controls"`
	MountID  string `toml:"mount_id"`
	Autonext string `toml:"autonext"`
	Region   string `toml:"region"`
}

// HistoryConfig bounds the stored search history.
type HistoryConfig struct {
	Limit int `toml:"limit"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains settings for the local embed host.
type ServerConfig struct {
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	OpenBrowser bool   `toml:"open_browser"`
}

// Addr returns host:port for [net/http.Server].
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Duration is a [time.Duration] decoded from strings like "90s" or "10m".
type Duration struct {
	time.Duration
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q: %v", ErrInvalidConfig, text, err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their values from [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// LoadOrDefault loads path when it exists and falls back to [DefaultConfig] otherwise.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return DefaultConfig(), nil
	}
	return LoadConfig(path)
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Keys returns the configured API keys with blanks removed.
func (c *Config) Keys() []string {
	keys := make([]string, 0, len(c.Credentials.YouTube.APIKeys))
	for _, k := range c.Credentials.YouTube.APIKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// Validate reports settings that would leave the client unable to run.
func (c *Config) Validate() error {
	if len(c.Keys()) == 0 {
		return fmt.Errorf("%w: credentials.youtube.api_keys is empty", ErrMissingCredentials)
	}
	if c.Credentials.YouTube.BaseURL == "" {
		return fmt.Errorf("%w: credentials.youtube.base_url is empty", ErrInvalidConfig)
	}
	if !slices.Contains(AutonextModes, c.Player.Autonext) {
		return fmt.Errorf("%w: player.autonext must be one of %s, got %q",
			ErrInvalidConfig, strings.Join(AutonextModes, ", "), c.Player.Autonext)
	}
	if c.API.RateLimit < 0 {
		return fmt.Errorf("%w: api.rate_limit must not be negative", ErrInvalidConfig)
	}
	return nil
}
