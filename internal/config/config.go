package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Session SessionConfig `mapstructure:"session"`
	Google  GoogleConfig  `mapstructure:"google"`
	OpenAI  OpenAIConfig  `mapstructure:"openai"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Mailbox MailboxConfig `mapstructure:"mailbox"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	TemplateGlob string        `mapstructure:"template_glob"`
}

// SessionConfig holds cookie session configuration
type SessionConfig struct {
	Name   string `mapstructure:"name"`
	Secret string `mapstructure:"secret"`
}

// GoogleConfig holds the OAuth2 client configuration
type GoogleConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
	RedirectURL     string `mapstructure:"redirect_url"`
}

// OpenAIConfig holds language-model API configuration
type OpenAIConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	Model          string        `mapstructure:"model"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// CacheConfig holds summary cache configuration
type CacheConfig struct {
	Capacity             int           `mapstructure:"capacity"`
	TTL                  time.Duration `mapstructure:"ttl"`
	SweepIntervalMinutes int           `mapstructure:"sweep_interval_minutes"`
}

// MailboxConfig holds mail provider configuration
type MailboxConfig struct {
	PageSize     int    `mapstructure:"page_size"`
	UseIMAP      bool   `mapstructure:"use_imap"`
	IMAPHost     string `mapstructure:"imap_host"`
	IMAPPort     int    `mapstructure:"imap_port"`
	IMAPUser     string `mapstructure:"imap_user"`
	IMAPPassword string `mapstructure:"imap_password"`
}

// LoadConfig loads configuration from environment variables and config file
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Set defaults
	setDefaults()

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Environment variables override config file
	viper.AutomaticEnv()

	// Bind environment variables
	bindEnvVars()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.read_timeout", "30s")
	// Page loads block on enrichment calls, so writes get a generous bound.
	viper.SetDefault("server.write_timeout", "120s")
	viper.SetDefault("server.template_glob", "templates/*")

	viper.SetDefault("session.name", "inboxdigest")

	viper.SetDefault("google.credentials_file", "credentials.json")
	viper.SetDefault("google.redirect_url", "http://127.0.0.1:8080/oauth2callback")

	viper.SetDefault("openai.model", "gpt-3.5-turbo")
	viper.SetDefault("openai.request_timeout", "30s")

	viper.SetDefault("cache.capacity", 1000)
	viper.SetDefault("cache.ttl", "24h")
	viper.SetDefault("cache.sweep_interval_minutes", 10)

	viper.SetDefault("mailbox.page_size", 10)
	viper.SetDefault("mailbox.use_imap", false)
	viper.SetDefault("mailbox.imap_host", "imap.gmail.com")
	viper.SetDefault("mailbox.imap_port", 993)
}

// bindEnvVars binds environment variables to configuration keys
func bindEnvVars() {
	// Server
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	viper.BindEnv("server.write_timeout", "SERVER_WRITE_TIMEOUT")

	// Session
	viper.BindEnv("session.name", "SESSION_NAME")
	viper.BindEnv("session.secret", "SESSION_SECRET")

	// Google OAuth
	viper.BindEnv("google.credentials_file", "GOOGLE_CREDENTIALS_FILE")
	viper.BindEnv("google.redirect_url", "OAUTH_REDIRECT_URL")

	// OpenAI
	viper.BindEnv("openai.api_key", "OPENAI_API_KEY")
	viper.BindEnv("openai.model", "OPENAI_MODEL")
	viper.BindEnv("openai.request_timeout", "OPENAI_REQUEST_TIMEOUT")

	// Cache
	viper.BindEnv("cache.capacity", "CACHE_CAPACITY")
	viper.BindEnv("cache.ttl", "CACHE_TTL")
	viper.BindEnv("cache.sweep_interval_minutes", "CACHE_SWEEP_INTERVAL_MINUTES")

	// Mailbox
	viper.BindEnv("mailbox.page_size", "MAILBOX_PAGE_SIZE")
	viper.BindEnv("mailbox.use_imap", "MAILBOX_USE_IMAP")
	viper.BindEnv("mailbox.imap_host", "MAILBOX_IMAP_HOST")
	viper.BindEnv("mailbox.imap_port", "MAILBOX_IMAP_PORT")
	viper.BindEnv("mailbox.imap_user", "MAILBOX_IMAP_USER")
	viper.BindEnv("mailbox.imap_password", "MAILBOX_IMAP_PASSWORD")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if c.Session.Secret == "" {
		return fmt.Errorf("session secret is required")
	}

	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("OpenAI API key is required")
	}

	if !c.Mailbox.UseIMAP {
		if c.Google.CredentialsFile == "" || c.Google.RedirectURL == "" {
			return fmt.Errorf("Google credentials file and redirect URL are required when not using IMAP")
		}
	} else {
		if c.Mailbox.IMAPUser == "" || c.Mailbox.IMAPPassword == "" {
			return fmt.Errorf("IMAP credentials are required when using IMAP")
		}
	}

	if c.Cache.Capacity <= 0 {
		return fmt.Errorf("cache capacity must be greater than 0")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache TTL must be greater than 0")
	}
	if c.Cache.SweepIntervalMinutes <= 0 {
		return fmt.Errorf("cache sweep interval must be greater than 0")
	}

	if c.Mailbox.PageSize <= 0 {
		return fmt.Errorf("mailbox page size must be greater than 0")
	}

	return nil
}
