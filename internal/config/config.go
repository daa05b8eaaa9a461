// Package config provides configuration types and loading for commander.
package config

import "time"

// Config is the root configuration struct.
type Config struct {
	Paths        PathsConfig        `json:"paths"`
	Model        ModelConfig        `json:"model"`
	Providers    ProvidersConfig    `json:"providers"`
	Speech       SpeechConfig       `json:"speech"`
	Media        MediaConfig        `json:"media"`
	Gateway      GatewayConfig      `json:"gateway"`
	Scheduler    SchedulerConfig    `json:"scheduler"`
	Timeline     TimelineConfig     `json:"timeline"`
	Sinks        SinksConfig        `json:"sinks"`
	Capabilities CapabilitiesConfig `json:"capabilities"`
}

// ---------------------------------------------------------------------------
// Paths – filesystem locations
// ---------------------------------------------------------------------------

// PathsConfig groups all filesystem path settings.
type PathsConfig struct {
	DataDir  string `json:"dataDir" envconfig:"DATA_DIR"`
	VoiceDir string `json:"voiceDir" envconfig:"VOICE_DIR"`
}

// ---------------------------------------------------------------------------
// Model – chat fallback behaviour
// ---------------------------------------------------------------------------

// ModelConfig groups the chat-completion settings used for freeform replies.
type ModelConfig struct {
	Name         string  `json:"name" envconfig:"MODEL"`
	MaxTokens    int     `json:"maxTokens" envconfig:"MAX_TOKENS"`
	Temperature  float64 `json:"temperature" envconfig:"TEMPERATURE"`
	SystemPrompt string  `json:"systemPrompt" envconfig:"SYSTEM_PROMPT"`
	PersonaTag   string  `json:"personaTag" envconfig:"PERSONA_TAG"`
	OfflineReply string  `json:"offlineReply" envconfig:"OFFLINE_REPLY"`
}

// ---------------------------------------------------------------------------
// Providers – LLM API keys & endpoints
// ---------------------------------------------------------------------------

// ProvidersConfig contains LLM provider configurations.
type ProvidersConfig struct {
	Active string         `json:"active" envconfig:"ACTIVE"` // "openai" (default) or "xai"
	OpenAI ProviderConfig `json:"openai"`
	XAI    ProviderConfig `json:"xai"`
}

// ProviderConfig contains settings for a single LLM provider.
type ProviderConfig struct {
	APIKey  string `json:"apiKey" envconfig:"API_KEY"`
	APIBase string `json:"apiBase,omitempty" envconfig:"API_BASE"`
}

// ---------------------------------------------------------------------------
// Speech – voice synthesis
// ---------------------------------------------------------------------------

// SpeechConfig configures text-to-speech output.
type SpeechConfig struct {
	Voice     string   `json:"voice" envconfig:"VOICE"`
	Model     string   `json:"model" envconfig:"MODEL"`
	Format    string   `json:"format" envconfig:"FORMAT"`
	Retention Duration `json:"retention" envconfig:"RETENTION"` // Voice clips older than this are pruned once delivered.
}

// ---------------------------------------------------------------------------
// Media – video search
// ---------------------------------------------------------------------------

// MediaConfig configures the video search used by "play" commands.
type MediaConfig struct {
	YouTubeAPIKey string   `json:"youtubeApiKey" envconfig:"YOUTUBE_API_KEY"`
	APIBase       string   `json:"apiBase,omitempty" envconfig:"API_BASE"`
	WebBase       string   `json:"webBase,omitempty" envconfig:"WEB_BASE"`
	DefaultSongs  []string `json:"defaultSongs" envconfig:"DEFAULT_SONGS"`
}

// ---------------------------------------------------------------------------
// Gateway – HTTP server networking
// ---------------------------------------------------------------------------

// GatewayConfig contains gateway server settings.
type GatewayConfig struct {
	Host      string `json:"host" envconfig:"HOST"`
	Port      int    `json:"port" envconfig:"PORT"`
	AuthToken string `json:"authToken" envconfig:"AUTH_TOKEN"`
	PublicURL string `json:"publicUrl" envconfig:"PUBLIC_URL"`
}

// ---------------------------------------------------------------------------
// Scheduler – deferred reminders and alarms
// ---------------------------------------------------------------------------

// SchedulerConfig contains settings for deferred tasks and their queues.
type SchedulerConfig struct {
	MaxDelay           Duration `json:"maxDelay" envconfig:"MAX_DELAY"`
	MaxConcurrentFires int      `json:"maxConcurrentFires" envconfig:"MAX_CONCURRENT_FIRES"`
	MaxQueueDepth      int      `json:"maxQueueDepth" envconfig:"MAX_QUEUE_DEPTH"`
}

// ---------------------------------------------------------------------------
// Timeline – sqlite audit log
// ---------------------------------------------------------------------------

// TimelineConfig configures the audit timeline database.
type TimelineConfig struct {
	Enabled bool   `json:"enabled" envconfig:"ENABLED"`
	Driver  string `json:"driver" envconfig:"DRIVER"` // "sqlite" (pure Go) or "sqlite3" (cgo)
	Path    string `json:"path" envconfig:"DB_PATH"`
}

// ---------------------------------------------------------------------------
// Sinks – where fired notifications are mirrored
// ---------------------------------------------------------------------------

// SinksConfig groups the optional notification sinks.
type SinksConfig struct {
	Kafka KafkaSinkConfig `json:"kafka"`
	Slack SlackSinkConfig `json:"slack"`
}

// KafkaSinkConfig mirrors fired notifications to a Kafka topic.
type KafkaSinkConfig struct {
	Enabled bool   `json:"enabled" envconfig:"ENABLED"`
	Brokers string `json:"brokers" envconfig:"BROKERS"`
	Topic   string `json:"topic" envconfig:"TOPIC"`
}

// SlackSinkConfig posts fired notifications to a Slack channel.
type SlackSinkConfig struct {
	Enabled   bool   `json:"enabled" envconfig:"ENABLED"`
	BotToken  string `json:"botToken" envconfig:"BOT_TOKEN"`
	ChannelID string `json:"channelId" envconfig:"CHANNEL_ID"`
	APIBase   string `json:"apiBase,omitempty" envconfig:"API_BASE"`
}

// CapabilitiesConfig bounds calls to external services.
type CapabilitiesConfig struct {
	Timeout Duration `json:"timeout" envconfig:"TIMEOUT"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			DataDir:  "~/.commander",
			VoiceDir: "~/.commander/voice",
		},
		Model: ModelConfig{
			Name:         "gpt-4o-mini",
			MaxTokens:    512,
			Temperature:  0.6,
			SystemPrompt: "You are Elon Musk. Be concise and confident.",
			PersonaTag:   "ELON: ",
			OfflineReply: "AI offline. Please try again.",
		},
		Providers: ProvidersConfig{
			Active: "openai",
		},
		Speech: SpeechConfig{
			Voice:     "onyx",
			Model:     "tts-1",
			Format:    "mp3",
			Retention: D(time.Hour),
		},
		Media: MediaConfig{
			DefaultSongs: []string{"kesariya", "rocket man"},
		},
		Gateway: GatewayConfig{
			Host: "127.0.0.1", // Secure default
			Port: 5000,
		},
		Scheduler: SchedulerConfig{
			MaxDelay:           D(24 * time.Hour),
			MaxConcurrentFires: 4,
			MaxQueueDepth:      0,
		},
		Timeline: TimelineConfig{
			Enabled: true,
			Driver:  "sqlite",
			Path:    "~/.commander/timeline.db",
		},
		Sinks: SinksConfig{
			Kafka: KafkaSinkConfig{
				Topic: "commander.notifications",
			},
		},
		Capabilities: CapabilitiesConfig{
			Timeout: D(20 * time.Second),
		},
	}
}
