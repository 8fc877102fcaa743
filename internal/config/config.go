package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const DefaultBaseURL = "https://auction-app-backend-7qzc.onrender.com"

type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Channel ChannelConfig `mapstructure:"channel"`
	Bidder  BidderConfig  `mapstructure:"bidder"`
	Tracker TrackerConfig `mapstructure:"tracker"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Redis   RedisConfig   `mapstructure:"redis"`
	MySQL   MySQLConfig   `mapstructure:"mysql"`
	Archive ToggleConfig  `mapstructure:"archive"`
	Publish ToggleConfig  `mapstructure:"publish"`
	Server  ServerConfig  `mapstructure:"server"`
	Stub    ServerConfig  `mapstructure:"stub"`
	Log     LogConfig     `mapstructure:"log"`
}

type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ChannelConfig struct {
	URL         string        `mapstructure:"url"`
	Path        string        `mapstructure:"path"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type BidderConfig struct {
	UserID int64 `mapstructure:"user_id"`
}

type TrackerConfig struct {
	TickInterval time.Duration `mapstructure:"tick_interval"`
	PollSchedule string        `mapstructure:"poll_schedule"`
	LoadTimeout  time.Duration `mapstructure:"load_timeout"`
}

type CacheConfig struct {
	Backend string        `mapstructure:"backend"`
	TTL     time.Duration `mapstructure:"ttl"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MySQLConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type ToggleConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", DefaultBaseURL)
	v.SetDefault("api.timeout", 10*time.Second)
	v.SetDefault("channel.url", "")
	v.SetDefault("channel.path", "/ws")
	v.SetDefault("channel.dial_timeout", 5*time.Second)
	v.SetDefault("bidder.user_id", 1)
	v.SetDefault("tracker.tick_interval", time.Second)
	v.SetDefault("tracker.poll_schedule", "@every 15s")
	v.SetDefault("tracker.load_timeout", 5*time.Second)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("mysql.dsn", "auction_user:auction_pass@tcp(localhost:3306)/auction_db?parseTime=true")
	v.SetDefault("mysql.max_open_conns", 5)
	v.SetDefault("mysql.max_idle_conns", 2)
	v.SetDefault("mysql.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("archive.enabled", false)
	v.SetDefault("publish.enabled", false)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("stub.port", 3000)
	v.SetDefault("stub.host", "127.0.0.1")
	v.SetDefault("log.level", "info")
}

func bindEnv(v *viper.Viper) {
	v.AutomaticEnv()

	// Environment variable mappings
	v.BindEnv("api.base_url", "API_URL")
	v.BindEnv("api.timeout", "API_TIMEOUT")
	v.BindEnv("channel.url", "CHANNEL_URL")
	v.BindEnv("bidder.user_id", "BIDDER_USER_ID")
	v.BindEnv("tracker.tick_interval", "TRACKER_TICK_INTERVAL")
	v.BindEnv("tracker.poll_schedule", "TRACKER_POLL_SCHEDULE")
	v.BindEnv("cache.backend", "CACHE_BACKEND")
	v.BindEnv("cache.ttl", "CACHE_TTL")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")
	v.BindEnv("mysql.dsn", "MYSQL_DSN")
	v.BindEnv("archive.enabled", "ARCHIVE_ENABLED")
	v.BindEnv("publish.enabled", "PUBLISH_ENABLED")
	v.BindEnv("server.port", "SERVER_PORT")
	v.BindEnv("server.host", "SERVER_HOST")
	v.BindEnv("stub.port", "STUB_PORT")
	v.BindEnv("log.level", "LOG_LEVEL")
}

func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Configuration file settings
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/auction-tracker/")

	bindEnv(v)

	// Read configuration file (optional - will use defaults/env vars if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	return unmarshal(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	if config.API.BaseURL == "" {
		config.API.BaseURL = DefaultBaseURL
	}
	config.API.BaseURL = strings.TrimRight(config.API.BaseURL, "/")
	if config.Tracker.TickInterval <= 0 {
		return nil, fmt.Errorf("tracker.tick_interval must be > 0")
	}
	return &config, nil
}

// ChannelURL is channel.url when set, otherwise the API base URL with a websocket scheme.
func (c *Config) ChannelURL() (string, error) {
	if c.Channel.URL != "" {
		return c.Channel.URL, nil
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse api.base_url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported api.base_url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + c.Channel.Path
	return u.String(), nil
}

// GetConfigString returns a formatted string representation of the config
func (c *Config) GetConfigString() string {
	return fmt.Sprintf(
		"API: %s, Cache: %s, Redis: %s, Archive: %t, Bidder: %d",
		c.API.BaseURL,
		c.Cache.Backend,
		c.Redis.Address,
		c.Archive.Enabled,
		c.Bidder.UserID,
	)
}
