// Package config provides YAML-based configuration loading for the
// dispatch engine.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level dispatch configuration, loaded from config.yaml.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Conversation ConversationConfig `yaml:"conversation"`
	Resilience   ResilienceConfig   `yaml:"resilience"`
	RateLimit    RateLimitConfig    `yaml:"rate_limit"`
	Model        ModelConfig        `yaml:"model"`
	Notify       NotifyConfig       `yaml:"notify"`
}

// ServerConfig holds webhook HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
	// DialogueDeadlineSeconds is the soft per-request budget for the
	// language model. It must stay under the carrier's webhook response
	// timeout, so a slow model degrades to the fallback sentence rather
	// than a missed webhook.
	DialogueDeadlineSeconds int `yaml:"dialogue_deadline_seconds"`
	// FallbackTransferNumber receives calls placed to numbers without a
	// dispatch configuration. Empty means such calls get a goodbye
	// instead of a transfer.
	FallbackTransferNumber string `yaml:"fallback_transfer_number"`
}

// DatabaseConfig selects the backing store. SQLite is the default;
// setting Host switches to MySQL.
type DatabaseConfig struct {
	Path     string `yaml:"path"` // sqlite file, ":memory:" allowed
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// ConversationConfig bounds a call's dialogue loop.
type ConversationConfig struct {
	MaxTurns              int `yaml:"max_turns"`
	HistoryCap            int `yaml:"history_cap"`
	SilenceTimeoutSeconds int `yaml:"silence_timeout_seconds"`
	ReplyWordBudget       int `yaml:"reply_word_budget"`
	ContextTTLSeconds     int `yaml:"context_ttl_seconds"`
	SessionReapSeconds    int `yaml:"session_reap_seconds"`
}

// ResilienceConfig holds retry and circuit-breaker parameters applied to
// every outbound dependency.
type ResilienceConfig struct {
	MaxRetries             int  `yaml:"max_retries"`
	BaseDelayMillis        int  `yaml:"base_delay_millis"`
	MaxDelayMillis         int  `yaml:"max_delay_millis"`
	Exponential            bool `yaml:"exponential"`
	FailureThreshold       int  `yaml:"failure_threshold"`
	RecoveryTimeoutSeconds int  `yaml:"recovery_timeout_seconds"`
}

// RateLimitConfig bounds session creation per caller number.
type RateLimitConfig struct {
	MaxAttempts   int `yaml:"max_attempts"`
	WindowMinutes int `yaml:"window_minutes"`
}

// ModelConfig points at the language-model completion endpoint. An
// empty key is allowed: completions fail and the dialogue engine
// degrades to its fallback sentence.
type ModelConfig struct {
	Endpoint  string `yaml:"endpoint"`
	APIKey    string `yaml:"api_key"`
	Name      string `yaml:"name"`
	MaxTokens int    `yaml:"max_tokens"`
}

// NotifyConfig holds credentials for appointment notification channels.
// Channels with empty credentials are disabled.
type NotifyConfig struct {
	SlackBotToken  string `yaml:"slack_bot_token"`
	SlackChannelID string `yaml:"slack_channel_id"`
	DiscordToken   string `yaml:"discord_token"`
	DiscordChannel string `yaml:"discord_channel"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a Config with every default applied, for callers that
// run without a config file.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.DialogueDeadlineSeconds == 0 {
		c.Server.DialogueDeadlineSeconds = 8
	}
	if c.Database.Path == "" && c.Database.Host == "" {
		c.Database.Path = "dispatch.db"
	}
	if c.Database.Host != "" && c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Conversation.MaxTurns == 0 {
		c.Conversation.MaxTurns = 10
	}
	if c.Conversation.HistoryCap == 0 {
		c.Conversation.HistoryCap = 20
	}
	if c.Conversation.SilenceTimeoutSeconds == 0 {
		c.Conversation.SilenceTimeoutSeconds = 5
	}
	if c.Conversation.ReplyWordBudget == 0 {
		c.Conversation.ReplyWordBudget = 50
	}
	if c.Conversation.ContextTTLSeconds == 0 {
		c.Conversation.ContextTTLSeconds = 60
	}
	if c.Conversation.SessionReapSeconds == 0 {
		c.Conversation.SessionReapSeconds = 300
	}
	if c.Resilience.MaxRetries == 0 {
		c.Resilience.MaxRetries = 3
	}
	if c.Resilience.BaseDelayMillis == 0 {
		c.Resilience.BaseDelayMillis = 250
	}
	if c.Resilience.MaxDelayMillis == 0 {
		c.Resilience.MaxDelayMillis = 2000
	}
	if c.Resilience.FailureThreshold == 0 {
		c.Resilience.FailureThreshold = 5
	}
	if c.Resilience.RecoveryTimeoutSeconds == 0 {
		c.Resilience.RecoveryTimeoutSeconds = 30
	}
	if c.Model.Endpoint == "" {
		c.Model.Endpoint = "https://api.openai.com/v1/chat/completions"
	}
	if c.Model.Name == "" {
		c.Model.Name = "gpt-4o-mini"
	}
	if c.Model.MaxTokens == 0 {
		c.Model.MaxTokens = 256
	}
	if c.RateLimit.MaxAttempts == 0 {
		c.RateLimit.MaxAttempts = 10
	}
	if c.RateLimit.WindowMinutes == 0 {
		c.RateLimit.WindowMinutes = 5
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 0 and 65535")
	}
	if c.Database.Host != "" && c.Database.Database == "" {
		errs = append(errs, "database.database is required when database.host is set")
	}
	if c.Conversation.MaxTurns < 1 {
		errs = append(errs, "conversation.max_turns must be at least 1")
	}
	if c.Conversation.HistoryCap < 2 {
		errs = append(errs, "conversation.history_cap must be at least 2")
	}
	if c.Notify.SlackBotToken != "" && c.Notify.SlackChannelID == "" {
		errs = append(errs, "notify.slack_channel_id is required when notify.slack_bot_token is set")
	}
	if c.Notify.DiscordToken != "" && c.Notify.DiscordChannel == "" {
		errs = append(errs, "notify.discord_channel is required when notify.discord_token is set")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// DialogueDeadline returns the per-request dialogue budget as a Duration.
func (c *Config) DialogueDeadline() time.Duration {
	return time.Duration(c.Server.DialogueDeadlineSeconds) * time.Second
}

// SilenceTimeout returns the carrier gather timeout as a Duration.
func (c *Config) SilenceTimeout() time.Duration {
	return time.Duration(c.Conversation.SilenceTimeoutSeconds) * time.Second
}

// ContextTTL returns the business-context cache TTL as a Duration.
func (c *Config) ContextTTL() time.Duration {
	return time.Duration(c.Conversation.ContextTTLSeconds) * time.Second
}

// SessionReapTTL returns how long terminated sessions are kept in memory.
func (c *Config) SessionReapTTL() time.Duration {
	return time.Duration(c.Conversation.SessionReapSeconds) * time.Second
}

// RetryBaseDelay returns the retry base delay as a Duration.
func (c *Config) RetryBaseDelay() time.Duration {
	return time.Duration(c.Resilience.BaseDelayMillis) * time.Millisecond
}

// RetryMaxDelay returns the retry delay cap as a Duration.
func (c *Config) RetryMaxDelay() time.Duration {
	return time.Duration(c.Resilience.MaxDelayMillis) * time.Millisecond
}

// RecoveryTimeout returns the breaker recovery timeout as a Duration.
func (c *Config) RecoveryTimeout() time.Duration {
	return time.Duration(c.Resilience.RecoveryTimeoutSeconds) * time.Second
}

// RateLimitWindow returns the rate-limit window as a Duration.
func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimit.WindowMinutes) * time.Minute
}
