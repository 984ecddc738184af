package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
)

// Config holds the application configuration, loaded from environment
// variables. SMTP settings live with the mailer and are loaded separately.
type Config struct {
	HTTPAddr      string `env:"HTTP_ADDR"      envDefault:":8080"`
	MongoURI      string `env:"MONGO_URI"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"chatbot_db"`

	SessionSecret string        `env:"SESSION_SECRET"`
	SessionTTL    time.Duration `env:"SESSION_TTL"    envDefault:"720h"`
	CookieSecure  bool          `env:"COOKIE_SECURE"  envDefault:"false"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL"`

	CompletionAPIURL  string        `env:"OPENROUTER_API_URL" envDefault:"https://openrouter.ai/api/v1/chat/completions"`
	CompletionAPIKey  string        `env:"OPENROUTER_API_KEY"`
	CompletionModel   string        `env:"CHAT_MODEL"         envDefault:"openai/gpt-4o-mini"`
	CompletionTimeout time.Duration `env:"COMPLETION_TIMEOUT" envDefault:"10s"`
}

// Load creates a Config instance from environment variables.
func Load(logger *zerolog.Logger) *Config {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse environment variables")
	}

	if err := cfg.validate(); err != nil {
		logger.Fatal().Err(err).Msg("failed to validate configuration")
	}

	return &cfg
}

// validate checks if the configuration is valid.
func (c *Config) validate() error {
	if c.MongoURI == "" {
		return fmt.Errorf("missing MONGO_URI environment variable")
	}
	if c.SessionSecret == "" {
		return fmt.Errorf("missing SESSION_SECRET environment variable")
	}
	if c.GoogleClientID == "" {
		return fmt.Errorf("missing GOOGLE_CLIENT_ID environment variable")
	}
	if c.GoogleClientSecret == "" {
		return fmt.Errorf("missing GOOGLE_CLIENT_SECRET environment variable")
	}
	if c.GoogleRedirectURL == "" {
		return fmt.Errorf("missing GOOGLE_REDIRECT_URL environment variable")
	}
	if c.CompletionAPIKey == "" {
		return fmt.Errorf("missing OPENROUTER_API_KEY environment variable")
	}

	return nil
}
