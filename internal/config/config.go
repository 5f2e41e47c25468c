// Package config provides the configuration schema, loader, and validation
// for the Rio voice bridge.
package config

import "time"

// LogLevel controls log verbosity for the bridge server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for the bridge.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Twilio    TwilioConfig    `yaml:"twilio"`
	Gemini    GeminiConfig    `yaml:"gemini"`
	Agent     AgentConfig     `yaml:"agent"`
	Store     StoreConfig     `yaml:"store"`
	Knowledge KnowledgeConfig `yaml:"knowledge"`
	Relay     RelayConfig     `yaml:"relay"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":6060").
	ListenAddr string `yaml:"listen_addr"`

	// Domain is the public hostname Twilio reaches this server under,
	// without scheme (e.g., "bridge.example.com"). It addresses the webhook
	// callback and the media-stream websocket in generated TwiML.
	Domain string `yaml:"domain"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// TwilioConfig holds the telephony provider credentials.
// AccountSID, AuthToken, and FromNumber fall back to the TWILIO_ACCOUNT_SID,
// TWILIO_AUTH_TOKEN, and TWILIO_FROM_NUMBER environment variables.
type TwilioConfig struct {
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`

	// FromNumber is the E.164 number calls and messages originate from.
	FromNumber string `yaml:"from_number"`
}

// Configured reports whether the telephony credentials are present.
func (t TwilioConfig) Configured() bool {
	return t.AccountSID != "" || t.AuthToken != "" || t.FromNumber != ""
}

// GeminiConfig holds the generative session provider settings.
// APIKey falls back to the GEMINI_API_KEY environment variable.
type GeminiConfig struct {
	APIKey string `yaml:"api_key"`

	// Model selects the live model. Empty selects the default.
	Model string `yaml:"model"`

	// Voice selects the synthesis voice (e.g., "Puck").
	Voice string `yaml:"voice"`
}

// AgentConfig customises the conversational agent.
type AgentConfig struct {
	// Instructions is the system instruction. Empty selects the built-in
	// Rio persona.
	Instructions string `yaml:"instructions"`

	// Greeting is spoken by the telephony side before the stream connects.
	Greeting string `yaml:"greeting"`
}

// StoreConfig holds the CRM lead store settings.
type StoreConfig struct {
	// PostgresDSN is the PostgreSQL connection string. Falls back to the
	// DATABASE_URL environment variable. Empty selects the in-memory store.
	PostgresDSN string `yaml:"postgres_dsn"`
}

// KnowledgeConfig holds the semantic knowledge base settings. The knowledge
// base shares the CRM's PostgreSQL instance and requires the pgvector
// extension.
type KnowledgeConfig struct {
	// EmbeddingModel selects the embedding model. Empty selects the default.
	EmbeddingModel string `yaml:"embedding_model"`

	// EmbeddingDimensions is the vector dimension of the embeddings column.
	// Must match the configured embedding model.
	EmbeddingDimensions int `yaml:"embedding_dimensions"`
}

// RelayConfig tunes per-call relay behaviour.
type RelayConfig struct {
	// DrainWindow bounds how long in-flight model audio keeps flowing to the
	// caller after a stop or disconnect.
	DrainWindow time.Duration `yaml:"drain_window"`
}

// DefaultInstructions is the built-in Rio persona used when
// agent.instructions is empty.
const DefaultInstructions = `You are Rio, a friendly and knowledgeable AI sales assistant for Yexis Electronics.
Your goal is to assist customers with Sales & Distribution inquiries.

About Yexis Electronics:
- We are an authorized B2B distributor and Samsung wholesale distributor/dealer for Southern India.
- Key products: Samsung smartphones, tablets and accessories; LED/OLED/QLED TVs, monitors, interactive displays and video walls; commercial split ACs, VRF DVM, chillers and ventilation; Samsung laptops, memory and storage; video conferencing and meeting room AV.
- Services: consultative design, implementation, AMC (annual maintenance), onsite support.
- Industries served: IT/ITES, healthcare, education, manufacturing, hospitality, government, retail.
- Location: Chennai, India (Redhills).

Your personality:
- Name: Rio.
- Tone: professional, enthusiastic, warm, and helpful.
- Objective: explain our products and services and ask if the customer would like a quote or a consultation.

Conversation style:
- Keep responses concise (1-3 sentences) suitable for voice.
- Don't list everything at once; ask follow-up questions to understand the customer's needs.`

// DefaultGreeting is spoken when the call connects.
const DefaultGreeting = "Connected to Rio, the Yexis Electronics assistant. Please start speaking."

// Defaults applied by Load when the corresponding field is unset.
const (
	DefaultListenAddr          = ":6060"
	DefaultVoice               = "Puck"
	DefaultEmbeddingDimensions = 768
	DefaultDrainWindow         = 2 * time.Second
)
