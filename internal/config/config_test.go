package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const fullYAML = `
server:
  port: 9090
  dialogue_deadline_seconds: 6

database:
  host: 10.0.0.5
  port: 3307
  database: dispatch_prod
  user: dispatch
  password: hunter2

conversation:
  max_turns: 12
  history_cap: 30
  silence_timeout_seconds: 4
  reply_word_budget: 40
  context_ttl_seconds: 120
  session_reap_seconds: 600

resilience:
  max_retries: 2
  base_delay_millis: 100
  max_delay_millis: 1500
  exponential: true
  failure_threshold: 4
  recovery_timeout_seconds: 20

rate_limit:
  max_attempts: 5
  window_minutes: 10

model:
  endpoint: https://llm.internal/v1/chat/completions
  api_key: sk-test
  name: gpt-4o
  max_tokens: 128

notify:
  slack_bot_token: xoxb-test
  slack_channel_id: C12345
`

const minimalYAML = `
database:
  path: test.db
`

func TestParse_FullConfig(t *testing.T) {
	cfg, err := Parse([]byte(fullYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Database.Host != "10.0.0.5" {
		t.Errorf("Database.Host = %q, want 10.0.0.5", cfg.Database.Host)
	}
	if cfg.Database.Port != 3307 {
		t.Errorf("Database.Port = %d, want 3307", cfg.Database.Port)
	}
	if cfg.Conversation.MaxTurns != 12 {
		t.Errorf("MaxTurns = %d, want 12", cfg.Conversation.MaxTurns)
	}
	if !cfg.Resilience.Exponential {
		t.Error("Exponential = false, want true")
	}
	if cfg.Resilience.FailureThreshold != 4 {
		t.Errorf("FailureThreshold = %d, want 4", cfg.Resilience.FailureThreshold)
	}
	if cfg.DialogueDeadline() != 6*time.Second {
		t.Errorf("DialogueDeadline = %v, want 6s", cfg.DialogueDeadline())
	}
	if cfg.RateLimitWindow() != 10*time.Minute {
		t.Errorf("RateLimitWindow = %v, want 10m", cfg.RateLimitWindow())
	}
	if cfg.Notify.SlackBotToken != "xoxb-test" {
		t.Errorf("SlackBotToken = %q", cfg.Notify.SlackBotToken)
	}
	if cfg.Model.Name != "gpt-4o" || cfg.Model.MaxTokens != 128 {
		t.Errorf("Model = %+v", cfg.Model)
	}
}

func TestParse_MinimalAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want default 8080", cfg.Server.Port)
	}
	if cfg.Database.Path != "test.db" {
		t.Errorf("Database.Path = %q, want test.db", cfg.Database.Path)
	}
	if cfg.Conversation.MaxTurns != 10 {
		t.Errorf("MaxTurns = %d, want default 10", cfg.Conversation.MaxTurns)
	}
	if cfg.Conversation.HistoryCap != 20 {
		t.Errorf("HistoryCap = %d, want default 20", cfg.Conversation.HistoryCap)
	}
	if cfg.Resilience.FailureThreshold != 5 {
		t.Errorf("FailureThreshold = %d, want default 5", cfg.Resilience.FailureThreshold)
	}
	if cfg.RecoveryTimeout() != 30*time.Second {
		t.Errorf("RecoveryTimeout = %v, want 30s", cfg.RecoveryTimeout())
	}
	if cfg.SilenceTimeout() != 5*time.Second {
		t.Errorf("SilenceTimeout = %v, want 5s", cfg.SilenceTimeout())
	}
	if cfg.Model.Name != "gpt-4o-mini" {
		t.Errorf("Model.Name = %q, want default gpt-4o-mini", cfg.Model.Name)
	}
	if cfg.Model.MaxTokens != 256 {
		t.Errorf("Model.MaxTokens = %d, want default 256", cfg.Model.MaxTokens)
	}
}

func TestParse_EmptyDefaultsToSQLite(t *testing.T) {
	cfg, err := Parse([]byte("{}"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.Path != "dispatch.db" {
		t.Errorf("Database.Path = %q, want dispatch.db", cfg.Database.Path)
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "mysql without database name",
			yaml: "database:\n  host: 10.0.0.1\n",
			want: "database.database is required",
		},
		{
			name: "history cap too small",
			yaml: "conversation:\n  history_cap: 1\n",
			want: "history_cap",
		},
		{
			name: "slack token without channel",
			yaml: "notify:\n  slack_bot_token: xoxb-x\n",
			want: "slack_channel_id",
		},
		{
			name: "discord token without channel",
			yaml: "notify:\n  discord_token: abc\n",
			want: "discord_channel",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("server: [not a map"))
	if err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(fullYAML), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.Database != "dispatch_prod" {
		t.Errorf("Database.Database = %q, want dispatch_prod", cfg.Database.Database)
	}
}
