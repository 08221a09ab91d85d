package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config carries all environment-driven settings. Everything comes from
// process environment variables (a .env file is loaded in main for local
// development).
type Config struct {
	Port        string
	Environment string

	DatabaseURL string

	DiscordClientID     string
	DiscordClientSecret string
	SessionSecret       string
	BaseURL             string

	WebhookSecret  string
	AllowedOrigins string
}

// Load reads configuration from the environment.
func Load() *Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "3000")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("BASE_URL", "http://localhost:3000")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")

	return &Config{
		Port:                v.GetString("PORT"),
		Environment:         v.GetString("ENVIRONMENT"),
		DatabaseURL:         v.GetString("DATABASE_URL"),
		DiscordClientID:     v.GetString("DISCORD_CLIENT_ID"),
		DiscordClientSecret: v.GetString("DISCORD_CLIENT_SECRET"),
		SessionSecret:       v.GetString("SESSION_SECRET"),
		BaseURL:             v.GetString("BASE_URL"),
		WebhookSecret:       v.GetString("WEBHOOK_SECRET"),
		AllowedOrigins:      v.GetString("ALLOWED_ORIGINS"),
	}
}

// Validate checks the settings the server cannot run without.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable not set")
	}
	if c.WebhookSecret == "" {
		return fmt.Errorf("WEBHOOK_SECRET environment variable not set")
	}
	return nil
}

// RedirectURL is the OAuth callback this app registers with Discord.
func (c *Config) RedirectURL() string {
	return c.BaseURL + "/auth/callback"
}
