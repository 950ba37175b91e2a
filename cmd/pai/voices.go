package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/g4mm4p4nd4/Personal-AI-Infrastructure/config"
)

var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "List available voices",
	Long: `Voices runs provider detection and lists the voices of the active
provider. Use --provider to list a specific provider instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runVoices(cmd)
	},
}

func init() {
	rootCmd.AddCommand(voicesCmd)

	voicesCmd.Flags().String("provider", "", "Voice provider to list")
	voicesCmd.Flags().Bool("providers", false, "List providers instead of voices")
}

func runVoices(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx := context.Background()
	manager := newVoiceManager(ctx, cfg)

	if listProviders, err := cmd.Flags().GetBool("providers"); err != nil {
		return fmt.Errorf("failed to get providers flag: %w", err)
	} else if listProviders {
		for _, p := range manager.Providers() {
			marker := " "
			if p.Active {
				marker = "*"
			}
			fmt.Printf("%s %-12s native=%-5v available=%v\n", marker, p.Name, p.Native, p.Available)
		}
		return nil
	}

	if provider, err := cmd.Flags().GetString("provider"); err != nil {
		return fmt.Errorf("failed to get provider flag: %w", err)
	} else if provider != "" {
		if err := manager.SetProvider(provider); err != nil {
			return err
		}
	}

	active := manager.ActiveProviderName()
	if active == "" {
		fmt.Println("No voice provider available")
		return nil
	}

	voices := manager.Voices(ctx)
	fmt.Printf("Provider: %s (%d voices)\n", active, len(voices))
	for _, v := range voices {
		line := fmt.Sprintf("  %-28s %-8s", v.Name, v.Language)
		if v.Gender != "" {
			line += fmt.Sprintf(" %-8s", v.Gender)
		}
		if v.Quality != "" {
			line += fmt.Sprintf(" [%s]", v.Quality)
		}
		fmt.Println(line)
	}
	return nil
}
