package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix              = "PRINTFORGE"
	defaultHTTPAddress     = "0.0.0.0:8080"
	defaultDatabasePath    = "printforge.db"
	defaultStoragePath     = "models"
	defaultLogLevel        = "info"
	defaultCurrency        = "USD"
	defaultTokenTTLMinutes = 60
	defaultMaxUploadBytes  = 64 << 20
)

// AppConfig captures runtime configuration for the storefront API server.
type AppConfig struct {
	HTTPAddress     string
	DatabasePath    string
	StoragePath     string
	LogLevel        string
	SigningSecret   string
	TokenTTL        time.Duration
	DefaultCurrency string
	MaxUploadBytes  int64
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("storage.path", defaultStoragePath)
	configViper.SetDefault("storage.max_upload_bytes", defaultMaxUploadBytes)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("token.ttl_minutes", defaultTokenTTLMinutes)
	configViper.SetDefault("pricing.default_currency", defaultCurrency)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:     configViper.GetString("http.address"),
		DatabasePath:    configViper.GetString("database.path"),
		StoragePath:     configViper.GetString("storage.path"),
		LogLevel:        configViper.GetString("log.level"),
		SigningSecret:   configViper.GetString("auth.signing_secret"),
		TokenTTL:        time.Duration(configViper.GetInt("token.ttl_minutes")) * time.Minute,
		DefaultCurrency: strings.ToUpper(strings.TrimSpace(configViper.GetString("pricing.default_currency"))),
		MaxUploadBytes:  configViper.GetInt64("storage.max_upload_bytes"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.SigningSecret) == "" {
		return fmt.Errorf("auth.signing_secret is required")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if strings.TrimSpace(c.StoragePath) == "" {
		return fmt.Errorf("storage.path is required")
	}
	if c.DefaultCurrency == "" {
		return fmt.Errorf("pricing.default_currency is required")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("storage.max_upload_bytes must be positive")
	}
	return nil
}
