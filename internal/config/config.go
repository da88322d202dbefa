package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type InviteConfig struct {
	TTLHours    int    `mapstructure:"ttl_hours"`
	TokenBytes  int    `mapstructure:"token_bytes"`
	URLTemplate string `mapstructure:"url_template"`
}

// TTL returns the configured invite lifetime as a duration.
func (c InviteConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

type EmailConfig struct {
	From            string   `mapstructure:"from"`
	SMTPHost        string   `mapstructure:"smtp_host"`
	SMTPPort        int      `mapstructure:"smtp_port"`
	Username        string   `mapstructure:"username"`
	Password        string   `mapstructure:"password"`
	AlertRecipients []string `mapstructure:"alert_recipients"`
}

type Config struct {
	DatabaseURL string       `mapstructure:"database_url"`
	ServerPort  string       `mapstructure:"server_port"`
	JWTSecret   string       `mapstructure:"jwt_secret"`
	Invite      InviteConfig `mapstructure:"invite"`
	Email       EmailConfig  `mapstructure:"email"`
}

// Load reads the configuration from a YAML file and returns a Config instance.
func Load() *Config {
	v := viper.New()

	// Look for config in the current directory and ./config
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.AddConfigPath("./config")
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file: %v", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		log.Fatalf("Error unmarshalling config: %v", err)
	}

	// Fallback defaults
	if config.ServerPort == "" {
		config.ServerPort = "8080"
	}

	if config.JWTSecret == "" {
		log.Fatal("JWT secret must be set in the config file")
	}

	if config.Invite.TTLHours <= 0 {
		config.Invite.TTLHours = 7 * 24
	}
	if config.Invite.TokenBytes <= 0 {
		config.Invite.TokenBytes = 32
	}
	if config.Invite.URLTemplate == "" {
		config.Invite.URLTemplate = "https://app.rosterline.dev/accept-invite?token=%s"
	}

	if config.Email.SMTPPort == 0 {
		config.Email.SMTPPort = 587
	}

	return &config
}
