package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/g4mm4p4nd4/Personal-AI-Infrastructure/config"
	"github.com/g4mm4p4nd4/Personal-AI-Infrastructure/tts"
)

var speakCmd = &cobra.Command{
	Use:   "speak [text...]",
	Short: "Speak text aloud on this machine",
	Long: `Speak runs the voice stack locally, without starting the gateway.
The first available provider is selected automatically; override with
--provider or PAI_VOICE_PROVIDER.

Examples:
  pai speak "Dinner is ready"
  pai speak --voice Samantha --rate 200 "Reading fast"
  pai speak --provider elevenlabs "Cloud voice"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSpeak(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(speakCmd)

	speakCmd.Flags().String("provider", "", "Voice provider to use")
	speakCmd.Flags().String("voice", "", "Voice to speak with")
	speakCmd.Flags().Float64("rate", 0, "Speech rate in words per minute")
	speakCmd.Flags().Float64("pitch", 0, "Voice pitch")
	speakCmd.Flags().Float64("volume", 0, "Playback volume (0-1)")
}

func runSpeak(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	opts, err := speakOptionsFromFlags(cmd)
	if err != nil {
		return err
	}

	// Ctrl+C cancels in-flight synthesis and playback.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	manager := newVoiceManager(ctx, cfg)
	if provider, err := cmd.Flags().GetString("provider"); err != nil {
		return fmt.Errorf("failed to get provider flag: %w", err)
	} else if provider != "" {
		if err := manager.SetProvider(provider); err != nil {
			return err
		}
	}

	return manager.Speak(ctx, strings.Join(args, " "), opts)
}

// speakOptionsFromFlags collects the voice tuning flags.
func speakOptionsFromFlags(cmd *cobra.Command) (tts.SpeakOptions, error) {
	var opts tts.SpeakOptions
	var err error

	if opts.Voice, err = cmd.Flags().GetString("voice"); err != nil {
		return opts, fmt.Errorf("failed to get voice flag: %w", err)
	}
	if opts.Rate, err = cmd.Flags().GetFloat64("rate"); err != nil {
		return opts, fmt.Errorf("failed to get rate flag: %w", err)
	}
	if opts.Pitch, err = cmd.Flags().GetFloat64("pitch"); err != nil {
		return opts, fmt.Errorf("failed to get pitch flag: %w", err)
	}
	if opts.Volume, err = cmd.Flags().GetFloat64("volume"); err != nil {
		return opts, fmt.Errorf("failed to get volume flag: %w", err)
	}
	return opts, nil
}
