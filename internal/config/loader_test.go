package config

import (
	"strings"
	"testing"
	"time"
)

// minimalYAML carries just enough to pass validation without environment
// fallbacks.
const minimalYAML = `
gemini:
  api_key: test-key
`

// clearEnv blanks the environment fallbacks so tests see only the YAML.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, v := range []string{
		"TWILIO_ACCOUNT_SID", "TWILIO_AUTH_TOKEN", "TWILIO_FROM_NUMBER",
		"GEMINI_API_KEY", "DATABASE_URL", "DOMAIN",
	} {
		t.Setenv(v, "")
	}
}

func TestLoadFromReader_AppliesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadFromReader(strings.NewReader(minimalYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.ListenAddr != DefaultListenAddr {
		t.Errorf("listen_addr = %q, want %q", cfg.Server.ListenAddr, DefaultListenAddr)
	}
	if cfg.Server.LogLevel != LogInfo {
		t.Errorf("log_level = %q, want info", cfg.Server.LogLevel)
	}
	if cfg.Gemini.Voice != DefaultVoice {
		t.Errorf("voice = %q, want %q", cfg.Gemini.Voice, DefaultVoice)
	}
	if !strings.Contains(cfg.Agent.Instructions, "Rio") {
		t.Error("default instructions missing the Rio persona")
	}
	if cfg.Knowledge.EmbeddingDimensions != DefaultEmbeddingDimensions {
		t.Errorf("embedding_dimensions = %d, want %d", cfg.Knowledge.EmbeddingDimensions, DefaultEmbeddingDimensions)
	}
	if cfg.Relay.DrainWindow != DefaultDrainWindow {
		t.Errorf("drain_window = %s, want %s", cfg.Relay.DrainWindow, DefaultDrainWindow)
	}
}

func TestLoadFromReader_FullConfig(t *testing.T) {
	yaml := `
server:
  listen_addr: ":7070"
  domain: https://bridge.example.com/
  log_level: debug
twilio:
  account_sid: AC123
  auth_token: tok
  from_number: "+15550100"
gemini:
  api_key: key
  model: gemini-2.0-flash-exp
  voice: Kore
agent:
  greeting: Hello there.
store:
  postgres_dsn: postgres://localhost/rio
knowledge:
  embedding_dimensions: 768
relay:
  drain_window: 3s
`
	cfg, err := LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.Domain != "bridge.example.com" {
		t.Errorf("domain = %q, want scheme and slash stripped", cfg.Server.Domain)
	}
	if cfg.Gemini.Voice != "Kore" {
		t.Errorf("voice = %q", cfg.Gemini.Voice)
	}
	if cfg.Relay.DrainWindow != 3*time.Second {
		t.Errorf("drain_window = %s", cfg.Relay.DrainWindow)
	}
	if cfg.Agent.Greeting != "Hello there." {
		t.Errorf("greeting = %q", cfg.Agent.Greeting)
	}
}

func TestLoadFromReader_RejectsUnknownFields(t *testing.T) {
	yaml := `
gemini:
  api_key: key
  temprature: 0.7
`
	if _, err := LoadFromReader(strings.NewReader(yaml)); err == nil {
		t.Fatal("want error for unknown field, got nil")
	}
}

func TestLoadFromReader_EnvFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "env-key")

	cfg, err := LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Gemini.APIKey != "env-key" {
		t.Errorf("api_key = %q, want env fallback", cfg.Gemini.APIKey)
	}
}

func TestValidate_CollectsAllFailures(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{LogLevel: "loud"},
		Twilio: TwilioConfig{AccountSID: "AC123"},
		Relay:  RelayConfig{DrainWindow: -time.Second},
	}
	err := Validate(cfg)
	if err == nil {
		t.Fatal("want joined validation error, got nil")
	}
	for _, want := range []string{
		"server.log_level",
		"gemini.api_key",
		"twilio.auth_token",
		"twilio.from_number",
		"server.domain",
		"relay.drain_window",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("validation error missing %q: %v", want, err)
		}
	}
}

func TestValidate_TelephonyOptional(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{LogLevel: LogInfo},
		Gemini: GeminiConfig{APIKey: "key"},
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate without telephony: %v", err)
	}
}
