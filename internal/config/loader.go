package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path, applies environment
// fallbacks and defaults, and returns a validated [Config]. It is a
// convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies environment fallbacks
// and defaults, and validates the result. Useful in tests where configs are
// constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyEnv(cfg)
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv fills empty secret fields from the environment so credentials can
// stay out of the config file.
func applyEnv(cfg *Config) {
	fallback(&cfg.Twilio.AccountSID, "TWILIO_ACCOUNT_SID")
	fallback(&cfg.Twilio.AuthToken, "TWILIO_AUTH_TOKEN")
	fallback(&cfg.Twilio.FromNumber, "TWILIO_FROM_NUMBER")
	fallback(&cfg.Gemini.APIKey, "GEMINI_API_KEY")
	fallback(&cfg.Store.PostgresDSN, "DATABASE_URL")
	fallback(&cfg.Server.Domain, "DOMAIN")
}

func fallback(field *string, env string) {
	if *field == "" {
		*field = os.Getenv(env)
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Gemini.Voice == "" {
		cfg.Gemini.Voice = DefaultVoice
	}
	if cfg.Agent.Instructions == "" {
		cfg.Agent.Instructions = DefaultInstructions
	}
	if cfg.Agent.Greeting == "" {
		cfg.Agent.Greeting = DefaultGreeting
	}
	if cfg.Knowledge.EmbeddingDimensions == 0 {
		cfg.Knowledge.EmbeddingDimensions = DefaultEmbeddingDimensions
	}
	if cfg.Relay.DrainWindow == 0 {
		cfg.Relay.DrainWindow = DefaultDrainWindow
	}
	// The domain may arrive with a scheme or trailing slash; TwiML and
	// webhook URLs need the bare hostname.
	cfg.Server.Domain = strings.TrimSuffix(
		strings.TrimPrefix(strings.TrimPrefix(cfg.Server.Domain, "https://"), "http://"), "/")
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Gemini.APIKey == "" {
		errs = append(errs, errors.New("gemini.api_key is required (or set GEMINI_API_KEY)"))
	}

	// Telephony credentials come as a complete set or not at all.
	if cfg.Twilio.Configured() {
		if cfg.Twilio.AccountSID == "" {
			errs = append(errs, errors.New("twilio.account_sid is required when telephony is configured"))
		}
		if cfg.Twilio.AuthToken == "" {
			errs = append(errs, errors.New("twilio.auth_token is required when telephony is configured"))
		}
		if cfg.Twilio.FromNumber == "" {
			errs = append(errs, errors.New("twilio.from_number is required when telephony is configured"))
		}
		if cfg.Server.Domain == "" {
			errs = append(errs, errors.New("server.domain is required when telephony is configured (or set DOMAIN)"))
		}
	}

	if cfg.Knowledge.EmbeddingDimensions < 0 {
		errs = append(errs, fmt.Errorf("knowledge.embedding_dimensions %d is invalid", cfg.Knowledge.EmbeddingDimensions))
	}
	if cfg.Relay.DrainWindow < 0 {
		errs = append(errs, fmt.Errorf("relay.drain_window %s is invalid", cfg.Relay.DrainWindow))
	}

	return errors.Join(errs...)
}
