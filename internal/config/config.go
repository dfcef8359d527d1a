package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix                = "CASHGAME"
	defaultHTTPAddress       = "0.0.0.0:8080"
	defaultDatabasePath      = "cashgame.db"
	defaultLogLevel          = "info"
	defaultCookieName        = "app_session"
	defaultTAuthIssuer       = "tauth"
	defaultReasoningModel    = "gpt-4o-mini"
	defaultReasoningTimeoutS = 60
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress     string
	TAuthSigningKey string
	TAuthCookieName string
	TAuthIssuer     string
	BypassUserID    string
	DatabasePath    string
	LogLevel        string
	Reasoning       ReasoningConfig
}

// ReasoningConfig configures the discrepancy-explanation collaborator. An empty APIKey
// leaves analysis unconfigured.
type ReasoningConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
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
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("tauth.cookie_name", defaultCookieName)
	configViper.SetDefault("tauth.issuer", defaultTAuthIssuer)
	configViper.SetDefault("auth.bypass_user_id", "")
	configViper.SetDefault("reasoning.api_key", "")
	configViper.SetDefault("reasoning.model", defaultReasoningModel)
	configViper.SetDefault("reasoning.base_url", "")
	configViper.SetDefault("reasoning.timeout_seconds", defaultReasoningTimeoutS)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:     configViper.GetString("http.address"),
		TAuthSigningKey: configViper.GetString("tauth.signing_secret"),
		TAuthCookieName: configViper.GetString("tauth.cookie_name"),
		TAuthIssuer:     configViper.GetString("tauth.issuer"),
		BypassUserID:    strings.TrimSpace(configViper.GetString("auth.bypass_user_id")),
		DatabasePath:    configViper.GetString("database.path"),
		LogLevel:        configViper.GetString("log.level"),
		Reasoning: ReasoningConfig{
			APIKey:  strings.TrimSpace(configViper.GetString("reasoning.api_key")),
			Model:   strings.TrimSpace(configViper.GetString("reasoning.model")),
			BaseURL: strings.TrimSpace(configViper.GetString("reasoning.base_url")),
			Timeout: time.Duration(configViper.GetInt("reasoning.timeout_seconds")) * time.Second,
		},
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.TAuthSigningKey) == "" {
		return fmt.Errorf("tauth.signing_secret is required")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if strings.TrimSpace(c.TAuthCookieName) == "" {
		return fmt.Errorf("tauth.cookie_name is required")
	}
	if c.Reasoning.Model == "" {
		return fmt.Errorf("reasoning.model is required")
	}
	if c.Reasoning.Timeout <= 0 {
		return fmt.Errorf("reasoning.timeout_seconds must be positive")
	}
	return nil
}
