package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/jfmyers9/spotlite/pkg/webapi"
)

// Output formats
const (
	OutputTable = "table"
	OutputJSON  = "json"
)

// Config holds application configuration
type Config struct {
	// Spotify application credentials. Leave both empty to use the
	// anonymous web player flow.
	ClientID     string `validate:"required_with=ClientSecret"`
	ClientSecret string `validate:"required_with=ClientID"`

	// Storefront country code, e.g. "US"
	Market string `validate:"omitempty,len=2,alpha"`

	// Number of results returned by search
	// Default: 20
	SearchLimit int `validate:"gte=1,lte=50"`

	RequestTimeout time.Duration `validate:"gt=0"`
	MintTimeout    time.Duration `validate:"gt=0"`
	SecretTTL      time.Duration `validate:"gt=0"`

	// Secret registry URL (override for mirrors)
	SecretsURL string `validate:"omitempty,url"`

	// Output format: table or json
	Output string `validate:"oneof=table json"`

	// Column width for titles in table output
	Width int `validate:"gte=0"`

	Log LogConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `validate:"omitempty,oneof=debug info warn warning error"`
	File  string
}

// LoadOptions controls where Load looks for configuration.
type LoadOptions struct {
	// File is an explicit config file. When empty, config.yaml is searched
	// for in the config directory and the working directory.
	File string

	// EnvFile is a dotenv file loaded into the environment before reading
	// SPOTLITE_* variables. Default: .env in the working directory.
	EnvFile string
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads configuration from file and environment
func Load(opts LoadOptions) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	// Optional; existing environment variables win
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	v := viper.New()

	if opts.File != "" {
		v.SetConfigFile(opts.File)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(GetConfigDir())
		v.AddConfigPath(".")
	}

	// Set defaults
	v.SetDefault("market", "")
	v.SetDefault("search_limit", webapi.DefaultSearchLimit)
	v.SetDefault("request_timeout", webapi.DefaultRequestTimeout)
	v.SetDefault("mint_timeout", webapi.DefaultMintTimeout)
	v.SetDefault("secret_ttl", webapi.DefaultSecretTTL)
	v.SetDefault("output", OutputTable)
	v.SetDefault("width", 40)
	v.SetDefault("log.level", "warn")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// An explicit file must exist; the search paths are optional
		if opts.File != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// Read from environment variables, e.g. SPOTLITE_LOG_LEVEL
	v.SetEnvPrefix("SPOTLITE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		ClientID:       v.GetString("client_id"),
		ClientSecret:   v.GetString("client_secret"),
		Market:         strings.ToUpper(v.GetString("market")),
		SearchLimit:    v.GetInt("search_limit"),
		RequestTimeout: v.GetDuration("request_timeout"),
		MintTimeout:    v.GetDuration("mint_timeout"),
		SecretTTL:      v.GetDuration("secret_ttl"),
		SecretsURL:     v.GetString("secrets_url"),
		Output:         strings.ToLower(v.GetString("output")),
		Width:          v.GetInt("width"),
		Log: LogConfig{
			Level: v.GetString("log.level"),
			File:  v.GetString("log.file"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// WebAPI converts the configuration into client options.
func (c *Config) WebAPI(logger *zerolog.Logger) webapi.Config {
	return webapi.Config{
		ClientID:       c.ClientID,
		ClientSecret:   c.ClientSecret,
		Market:         c.Market,
		Logger:         logger,
		RequestTimeout: c.RequestTimeout,
		MintTimeout:    c.MintTimeout,
		SecretTTL:      c.SecretTTL,
		SearchLimit:    c.SearchLimit,
		Endpoints: webapi.Endpoints{
			Secrets: c.SecretsURL,
		},
	}
}

// getConfigDir returns the configuration directory path
func getConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(homeDir, ".config", "spotlite")
}

// GetConfigDir returns the configuration directory path (public helper)
func GetConfigDir() string {
	return getConfigDir()
}
