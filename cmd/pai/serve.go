package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/g4mm4p4nd4/Personal-AI-Infrastructure/chat"
	"github.com/g4mm4p4nd4/Personal-AI-Infrastructure/config"
	"github.com/g4mm4p4nd4/Personal-AI-Infrastructure/devices"
	"github.com/g4mm4p4nd4/Personal-AI-Infrastructure/logger"
	prom "github.com/g4mm4p4nd4/Personal-AI-Infrastructure/metrics/prometheus"
	"github.com/g4mm4p4nd4/Personal-AI-Infrastructure/server"
	"github.com/g4mm4p4nd4/Personal-AI-Infrastructure/skills"
	"github.com/g4mm4p4nd4/Personal-AI-Infrastructure/telemetry"
	"github.com/g4mm4p4nd4/Personal-AI-Infrastructure/tts"
	"github.com/g4mm4p4nd4/Personal-AI-Infrastructure/version"
)

// shutdownTimeout bounds graceful shutdown, for HTTP draining and the
// trace exporter flush alike.
const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gateway server",
	Long: `Serve starts the gateway: the REST and websocket API, device
registration, Prometheus metrics, and the voice stack.

Configuration comes from the environment (PAI_ADDR, ANTHROPIC_API_KEY,
ELEVENLABS_API_KEY, PAI_SKILLS_DIR, ...); the --addr flag overrides the
listen address.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("addr", "a", "", "Listen address (overrides PAI_ADDR)")
}

func runServe(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("addr") {
		addr, err := cmd.Flags().GetString("addr")
		if err != nil {
			return fmt.Errorf("failed to get addr flag: %w", err)
		}
		cfg.Addr = addr
	}

	ctx := context.Background()

	registry := newSkillRegistry(cfg)
	manager := newVoiceManager(ctx, cfg)

	store, err := newDeviceStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	opts := []server.Option{
		server.WithAddr(cfg.Addr),
		server.WithChat(newGatewayChatClient(cfg, registry)),
		server.WithVoice(manager),
		server.WithSkills(registry),
		server.WithAuthenticator(devices.NewAuthenticator(store)),
	}

	if cfg.OTLPEndpoint != "" {
		tp, err := telemetry.NewTracerProvider(ctx, cfg.OTLPEndpoint, "pai-gateway")
		if err != nil {
			return fmt.Errorf("failed to set up tracing: %w", err)
		}
		telemetry.SetupPropagation()
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := tp.Shutdown(flushCtx); err != nil {
				logger.Warn("trace provider shutdown failed", "error", err)
			}
		}()
		opts = append(opts, server.WithTracerProvider(tp))
	}

	srv := server.NewServer(opts...)

	logger.Info("🤖 PAI Gateway Starting",
		append([]any{"addr", cfg.Addr}, version.GetBuildInfo()...)...)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("🛑 Shutting Down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

// newSkillRegistry discovers skills when a directory is configured.
// Returns nil when discovery is disabled.
func newSkillRegistry(cfg config.Config) *skills.Registry {
	if cfg.SkillsDir == "" {
		return nil
	}
	registry := skills.NewRegistry(version.GetVersion())
	if err := registry.Discover(cfg.SkillsDir); err != nil {
		logger.Warn("skill discovery failed", "dir", cfg.SkillsDir, "error", err)
	}
	return registry
}

// newGatewayChatClient builds the chat client, folding discovered skill
// descriptions into the system prompt.
func newGatewayChatClient(cfg config.Config, registry *skills.Registry) *chat.Client {
	var opts []chat.Option
	if cfg.ChatModel != "" {
		opts = append(opts, chat.WithModel(cfg.ChatModel))
	}
	if prompt := buildSystemPrompt(cfg.SystemPrompt, registry); prompt != "" {
		opts = append(opts, chat.WithSystemPrompt(prompt))
	}
	return chat.NewClient(cfg.AnthropicKey, opts...)
}

// buildSystemPrompt appends skill descriptions to the configured system
// prompt so the model knows what this gateway can do.
func buildSystemPrompt(base string, registry *skills.Registry) string {
	if registry == nil || registry.Count() == 0 {
		return base
	}

	var b strings.Builder
	b.WriteString(base)
	if base != "" {
		b.WriteString("\n\n")
	}
	b.WriteString("Available skills:\n")
	for _, skill := range registry.List() {
		fmt.Fprintf(&b, "- %s: %s\n", skill.Name, skill.Description)
	}
	return b.String()
}

// newVoiceManager builds the voice manager, runs provider detection, and
// publishes availability gauges.
func newVoiceManager(ctx context.Context, cfg config.Config) *tts.Manager {
	var opts []tts.ManagerOption
	if cfg.ElevenLabsKey != "" {
		opts = append(opts, tts.WithElevenLabsKey(cfg.ElevenLabsKey))
	}
	manager := tts.NewManager(opts...)
	_ = manager.Initialize(ctx)

	if cfg.VoiceProvider != "" {
		if err := manager.SetProvider(cfg.VoiceProvider); err != nil {
			logger.Warn("voice provider override failed",
				"provider", cfg.VoiceProvider, "error", err)
		}
	}

	for _, p := range manager.Providers() {
		prom.SetProviderAvailable(p.Name, p.Available)
	}
	prom.SetActiveProvider(manager.ActiveProviderName())

	return manager
}

// newDeviceStore picks the registration backend: Redis when configured,
// then the JSON file, then process memory.
func newDeviceStore(cfg config.Config) (devices.Store, error) {
	switch {
	case cfg.RedisAddr != "":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		logger.Info("🔐 Device Store", "backend", "redis", "addr", cfg.RedisAddr)
		return devices.NewRedisStore(client), nil
	case cfg.DevicesFile != "":
		store, err := devices.NewFileStore(cfg.DevicesFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open devices file: %w", err)
		}
		logger.Info("🔐 Device Store", "backend", "file", "path", cfg.DevicesFile)
		return store, nil
	default:
		logger.Info("🔐 Device Store", "backend", "memory")
		return devices.NewMemoryStore(), nil
	}
}
