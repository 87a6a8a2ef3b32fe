package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	OpenAI   OpenAIConfig
	Storage  StorageConfig
	Logging  LoggingConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string
	Environment     string
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// OpenAIConfig holds the language-model provider configuration.
// APIKey may be empty; the diagnosis pipeline then runs every agent on its
// rule-based strategy instead of calling the model.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// StorageConfig holds blob storage configuration for symptom images and
// pre-visit packet PDFs. All fields optional; uploads are skipped when unset.
type StorageConfig struct {
	AccountName     string
	AccountKey      string
	PacketContainer string
	ImageContainer  string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string // json or console
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)
	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.shutdowntimeout", 30*time.Second)

	v.SetDefault("database.maxopenconns", 25)
	v.SetDefault("database.connmaxlifetime", 5*time.Minute)

	v.SetDefault("openai.model", "gpt-4o-mini")

	v.SetDefault("storage.packetcontainer", "previsit-packets")
	v.SetDefault("storage.imagecontainer", "symptom-images")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// bindEnvVars binds environment variables to config keys
func bindEnvVars(v *viper.Viper) {
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.environment", "ENV", "ENVIRONMENT")

	v.BindEnv("database.url", "DATABASE_URL")

	v.BindEnv("openai.apikey", "OPENAI_API_KEY")
	v.BindEnv("openai.model", "OPENAI_MODEL")
	v.BindEnv("openai.baseurl", "OPENAI_BASE_URL")

	v.BindEnv("storage.accountname", "AZURE_STORAGE_ACCOUNT_NAME")
	v.BindEnv("storage.accountkey", "AZURE_STORAGE_ACCOUNT_KEY")

	v.BindEnv("logging.level", "LOG_LEVEL")
	v.BindEnv("logging.format", "LOG_FORMAT")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database.url is required")
	}

	// Blob storage is optional but must be all-or-nothing
	if (c.Storage.AccountName == "") != (c.Storage.AccountKey == "") {
		return fmt.Errorf("storage account name and key must be set together")
	}

	if c.OpenAI.APIKey != "" && c.OpenAI.Model == "" {
		return fmt.Errorf("openai.model is required when an API key is configured")
	}

	return nil
}

// ModelBacked reports whether the language-model provider is configured
func (c *Config) ModelBacked() bool {
	return c.OpenAI.APIKey != ""
}
