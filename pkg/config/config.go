package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Crawler  CrawlerConfig  `mapstructure:"crawler"`
	Analyzer AnalyzerConfig `mapstructure:"analyzer"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig contains database connection settings.
// When URL is set (typically via the DATABASE_URL environment variable)
// it takes precedence over the discrete host/port/user fields.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
	URL      string `mapstructure:"url"`
}

// CrawlerConfig contains Polymarket Gamma API crawler settings
type CrawlerConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	TargetEvents   int           `mapstructure:"target_events"`
	PageSize       int           `mapstructure:"page_size"`
	Concurrency    int           `mapstructure:"concurrency"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
	AnalysisDelay  time.Duration `mapstructure:"analysis_delay"`
}

// AnalyzerConfig contains Gemini analyzer settings
type AnalyzerConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	Model          string        `mapstructure:"model"`
	BaseURL        string        `mapstructure:"base_url"`
	Temperature    float64       `mapstructure:"temperature"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// AdminConfig contains settings for protected admin endpoints
type AdminConfig struct {
	Secret string `mapstructure:"secret"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	// Well-known environment variables override file values
	_ = viper.BindEnv("database.url", "DATABASE_URL")
	_ = viper.BindEnv("analyzer.api_key", "GEMINI_API_KEY")
	_ = viper.BindEnv("admin.secret", "ADMIN_SECRET_KEY")

	// Set defaults
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Database.ApplyURL(); err != nil {
		return nil, fmt.Errorf("invalid database url: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8000)
	viper.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.database", "prediction_oracle")

	// Crawler defaults
	viper.SetDefault("crawler.base_url", "https://gamma-api.polymarket.com")
	viper.SetDefault("crawler.target_events", 200)
	viper.SetDefault("crawler.page_size", 50)
	viper.SetDefault("crawler.concurrency", 5)
	viper.SetDefault("crawler.request_timeout", "30s")
	viper.SetDefault("crawler.user_agent",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	viper.SetDefault("crawler.analysis_delay", "500ms")

	// Analyzer defaults
	viper.SetDefault("analyzer.model", "gemini-2.0-flash")
	viper.SetDefault("analyzer.base_url", "https://generativelanguage.googleapis.com")
	viper.SetDefault("analyzer.temperature", 0.7)
	viper.SetDefault("analyzer.max_retries", 3)
	viper.SetDefault("analyzer.retry_delay", "2s")
	viper.SetDefault("analyzer.request_timeout", "60s")

	// Admin defaults
	viper.SetDefault("admin.secret", "change_me_in_production")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output_path", "stdout")
}

func validate(config *Config) error {
	if config.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if config.Database.Database == "" {
		return fmt.Errorf("database.database is required")
	}
	if config.Crawler.BaseURL == "" {
		return fmt.Errorf("crawler.base_url is required")
	}
	if config.Crawler.PageSize <= 0 {
		return fmt.Errorf("crawler.page_size must be positive")
	}
	if config.Crawler.Concurrency <= 0 {
		return fmt.Errorf("crawler.concurrency must be positive")
	}
	return nil
}

// ApplyURL parses c.URL, if set, into the discrete connection fields.
// Both postgres:// and postgresql:// schemes are accepted, so connection
// strings handed out by managed providers work unchanged.
func (c *DatabaseConfig) ApplyURL() error {
	if c.URL == "" {
		return nil
	}

	parsed, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("parse %q: %w", c.URL, err)
	}

	switch parsed.Scheme {
	case "postgres", "postgresql":
	default:
		return fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}

	if host := parsed.Hostname(); host != "" {
		c.Host = host
	}
	c.Port = 5432
	if portStr := parsed.Port(); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid port %q: %w", portStr, err)
		}
		c.Port = port
	}

	if parsed.User != nil {
		c.User = parsed.User.Username()
		if password, ok := parsed.User.Password(); ok {
			c.Password = password
		}
	}

	if dbName := strings.TrimPrefix(parsed.Path, "/"); dbName != "" {
		c.Database = dbName
	}

	if sslMode := parsed.Query().Get("sslmode"); sslMode != "" {
		c.SSLMode = sslMode
	}

	return nil
}
