package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Video    VideoConfig    `yaml:"video"`
	LiveKit  LiveKitConfig  `yaml:"livekit"`
	Auth     AuthConfig     `yaml:"auth"`
	Session  SessionConfig  `yaml:"session"`
	Logger   LoggerConfig   `yaml:"logger"`
}

type ServerConfig struct {
	Port         string `yaml:"port" env:"SERVER_PORT"`
	Host         string `yaml:"host" env:"SERVER_HOST"`
	ReadTimeout  int    `yaml:"readTimeout"`
	WriteTimeout int    `yaml:"writeTimeout"`
	CORSOrigins  string `yaml:"corsOrigins" env:"CORS_ORIGINS"`
}

type DatabaseConfig struct {
	Driver       string `yaml:"driver" env:"DB_DRIVER"` // postgres or sqlite
	DSN          string `yaml:"dsn" env:"DB_DSN"`       // sqlite file, or full postgres DSN
	Host         string `yaml:"host" env:"DB_HOST"`
	Port         string `yaml:"port" env:"DB_PORT"`
	User         string `yaml:"user" env:"DB_USER"`
	Password     string `yaml:"password" env:"DB_PASSWORD"`
	DBName       string `yaml:"dbname" env:"DB_NAME"`
	SSLMode      string `yaml:"sslmode"`
	MaxIdleConns int    `yaml:"maxIdleConns"`
	MaxOpenConns int    `yaml:"maxOpenConns"`
	MaxLifetime  int    `yaml:"maxLifetime"` // in minutes
	LogQueries   bool   `yaml:"logQueries"`
}

// VideoConfig selects and configures the remote video-room provider.
type VideoConfig struct {
	Provider       string `yaml:"provider" env:"VIDEO_PROVIDER"` // daily or livekit
	Domain         string `yaml:"domain" env:"VIDEO_DOMAIN"`
	RoomPrefix     string `yaml:"roomPrefix"`
	APIBase        string `yaml:"apiBase" env:"DAILY_API_BASE"`
	APIKey         string `yaml:"apiKey" env:"DAILY_API_KEY"`
	WebhookSecret  string `yaml:"webhookSecret" env:"DAILY_WEBHOOK_SECRET"`
	RequestTimeout int    `yaml:"requestTimeout"` // in seconds
}

type LiveKitConfig struct {
	Host      string `yaml:"host" env:"LIVEKIT_HOST"`
	APIKey    string `yaml:"apiKey" env:"LIVEKIT_API_KEY"`
	APISecret string `yaml:"apiSecret" env:"LIVEKIT_API_SECRET"`
}

type AuthConfig struct {
	JWTSecret     string `yaml:"jwtSecret" env:"JWT_SECRET"`
	TokenDuration int    `yaml:"tokenDuration"` // in hours
}

// SessionConfig controls join tokens and room housekeeping.
type SessionConfig struct {
	MeetingTokenTTL int `yaml:"meetingTokenTTL"`       // in minutes
	ReaperInterval  int `yaml:"reaperIntervalMinutes"` // 0 disables the reaper
}

type LoggerConfig struct {
	Level      string `yaml:"level" env:"LOG_LEVEL"`
	OutputPath string `yaml:"outputPath"`
}

const (
	ProviderDaily   = "daily"
	ProviderLiveKit = "livekit"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Load reads the configuration file, overlays environment variables and
// fills in defaults. The returned value is not modified afterwards.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8090"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverPostgres
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Video.Provider == "" {
		c.Video.Provider = ProviderDaily
	}
	if c.Video.RoomPrefix == "" {
		c.Video.RoomPrefix = "workshop"
	}
	if c.Video.APIBase == "" {
		c.Video.APIBase = "https://api.daily.co/v1"
	}
	if c.Video.RequestTimeout <= 0 {
		c.Video.RequestTimeout = 10
	}
	if c.Auth.TokenDuration <= 0 {
		c.Auth.TokenDuration = 24 * 7
	}
	if c.Session.MeetingTokenTTL <= 0 {
		c.Session.MeetingTokenTTL = 10
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
}

// Validate reports configuration that cannot produce a working server.
func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("database.driver: unsupported %q", c.Database.Driver))
	}
	switch c.Video.Provider {
	case ProviderDaily:
		if c.Video.APIKey == "" {
			errs = append(errs, errors.New("video.apiKey: required for daily provider"))
		}
	case ProviderLiveKit:
		if c.LiveKit.Host == "" || c.LiveKit.APIKey == "" || c.LiveKit.APISecret == "" {
			errs = append(errs, errors.New("livekit: host, apiKey and apiSecret are required"))
		}
	default:
		errs = append(errs, fmt.Errorf("video.provider: unsupported %q", c.Video.Provider))
	}
	if c.Video.Domain == "" {
		errs = append(errs, errors.New("video.domain: required"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwtSecret: required"))
	}
	return errors.Join(errs...)
}

// GetDSN returns the connection string for the configured driver
func (c *DatabaseConfig) GetDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	if c.Driver == DriverSQLite {
		return "workshops.db"
	}
	return "postgresql://" + c.User + ":" + c.Password + "@" + c.Host + ":" + c.Port + "/" + c.DBName + "?sslmode=" + c.SSLMode
}

// RequestTimeoutDuration bounds every outbound call to the video provider.
func (c *VideoConfig) RequestTimeoutDuration() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// RoomURL composes the public URL participants open for a room.
func (c *VideoConfig) RoomURL(roomName string) string {
	domain := strings.TrimSuffix(c.Domain, "/")
	if !strings.Contains(domain, "://") {
		domain = "https://" + domain
	}
	return domain + "/" + roomName
}

func (c *SessionConfig) MeetingTokenTTLDuration() time.Duration {
	return time.Duration(c.MeetingTokenTTL) * time.Minute
}

func (c *AuthConfig) TokenDurationHours() time.Duration {
	return time.Duration(c.TokenDuration) * time.Hour
}
