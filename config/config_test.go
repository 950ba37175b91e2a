package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every variable Load reads so tests are hermetic no
// matter what the host shell has exported. t.Setenv registers the
// restore; the Unsetenv removes the value for the test body.
func clearEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{
		"PAI_ADDR",
		"ANTHROPIC_API_KEY",
		"ELEVENLABS_API_KEY",
		"PAI_CHAT_MODEL",
		"PAI_SYSTEM_PROMPT",
		"PAI_VOICE_PROVIDER",
		"PAI_SKILLS_DIR",
		"PAI_DEVICES_FILE",
		"PAI_REDIS_ADDR",
		"PAI_OTLP_ENDPOINT",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8888", cfg.Addr)
	assert.Empty(t, cfg.AnthropicKey)
	assert.Empty(t, cfg.ElevenLabsKey)
	assert.Empty(t, cfg.ChatModel)
	assert.Empty(t, cfg.SystemPrompt)
	assert.Empty(t, cfg.VoiceProvider)
	assert.Empty(t, cfg.SkillsDir)
	assert.Empty(t, cfg.DevicesFile)
	assert.Empty(t, cfg.RedisAddr)
	assert.Empty(t, cfg.OTLPEndpoint)
}

func TestLoad_FromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("PAI_ADDR", "127.0.0.1:9000")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	t.Setenv("ELEVENLABS_API_KEY", "el-test")
	t.Setenv("PAI_CHAT_MODEL", "claude-3-5-haiku-20241022")
	t.Setenv("PAI_SYSTEM_PROMPT", "You are a helpful assistant.")
	t.Setenv("PAI_VOICE_PROVIDER", "elevenlabs")
	t.Setenv("PAI_SKILLS_DIR", "/opt/pai/skills")
	t.Setenv("PAI_DEVICES_FILE", "/var/lib/pai/devices.json")
	t.Setenv("PAI_REDIS_ADDR", "localhost:6379")
	t.Setenv("PAI_OTLP_ENDPOINT", "http://localhost:4318/v1/traces")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Addr)
	assert.Equal(t, "sk-ant-test", cfg.AnthropicKey)
	assert.Equal(t, "el-test", cfg.ElevenLabsKey)
	assert.Equal(t, "claude-3-5-haiku-20241022", cfg.ChatModel)
	assert.Equal(t, "You are a helpful assistant.", cfg.SystemPrompt)
	assert.Equal(t, "elevenlabs", cfg.VoiceProvider)
	assert.Equal(t, "/opt/pai/skills", cfg.SkillsDir)
	assert.Equal(t, "/var/lib/pai/devices.json", cfg.DevicesFile)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, "http://localhost:4318/v1/traces", cfg.OTLPEndpoint)
}

func TestLoad_BlankAddr(t *testing.T) {
	clearEnv(t)
	t.Setenv("PAI_ADDR", "   ")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen address")
}

func TestValidate_EmptyAddr(t *testing.T) {
	cfg := Config{}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen address")
}

func TestValidate_NormalizesProvider(t *testing.T) {
	cfg := Config{Addr: ":8888", VoiceProvider: "  ElevenLabs "}

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "elevenlabs", cfg.VoiceProvider)
}
