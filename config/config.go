// Package config loads gateway configuration from the environment.
//
// Every knob is an environment variable so the gateway behaves the same
// under systemd, launchd, or a plain shell session. CLI flags override
// only the listen address and log verbosity.
package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config contains all gateway configuration options.
type Config struct {
	// Server settings
	Addr string `env:"PAI_ADDR" envDefault:":8888"`

	// Credentials. The chat and voice clients read the same variables
	// themselves, so either layer can resolve them.
	AnthropicKey  string `env:"ANTHROPIC_API_KEY"`
	ElevenLabsKey string `env:"ELEVENLABS_API_KEY"`

	// Chat settings. An empty model uses the client default.
	ChatModel    string `env:"PAI_CHAT_MODEL"`
	SystemPrompt string `env:"PAI_SYSTEM_PROMPT"`

	// Voice settings. Empty means automatic provider selection.
	VoiceProvider string `env:"PAI_VOICE_PROVIDER"`

	// Skill discovery. Empty disables discovery.
	SkillsDir string `env:"PAI_SKILLS_DIR"`

	// Device registry backend. Redis wins when both are set; with
	// neither, registrations live in memory and drop on restart.
	DevicesFile string `env:"PAI_DEVICES_FILE"`
	RedisAddr   string `env:"PAI_REDIS_ADDR"`

	// Telemetry. Empty disables trace export.
	OTLPEndpoint string `env:"PAI_OTLP_ENDPOINT"`
}

// Load parses the gateway configuration from the environment and
// validates it.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks if the configuration is usable. Provider names are
// normalized here; whether the name refers to a real provider is
// decided by the voice manager at startup.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("listen address cannot be empty")
	}

	c.VoiceProvider = strings.ToLower(strings.TrimSpace(c.VoiceProvider))

	return nil
}
