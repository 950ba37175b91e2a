// Command pai runs the personal AI gateway and its voice tooling.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/g4mm4p4nd4/Personal-AI-Infrastructure/logger"
	"github.com/g4mm4p4nd4/Personal-AI-Infrastructure/version"
)

var rootCmd = &cobra.Command{
	Use:           "pai",
	Short:         "Personal AI gateway - chat, voice, and skills for your devices",
	Version:       version.GetVersion(),
	SilenceUsage:  true,  // Don't print usage on error
	SilenceErrors: false, // Do print errors
	Long: `pai is a personal AI gateway. It fronts an Anthropic-style chat model,
a multi-provider text-to-speech layer, and device registration, so phones,
tablets, and desktops on a home network can share one assistant.

Run "pai serve" to start the gateway, or use "pai speak" and "pai voices"
to drive the voice stack directly from this machine.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Initialize logger based on verbose flag if present
		// This runs before all subcommands
		if cmd.Flags().Changed("verbose") {
			verbose, err := cmd.Flags().GetBool("verbose")
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error getting verbose flag: %v\n", err)
				return
			}
			logger.SetVerbose(verbose)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose debug logging")
}

// setupVersion configures the version display
func setupVersion() {
	rootCmd.SetVersionTemplate(version.GetVersionInfo() + "\n")
}

func Execute() {
	setupVersion()
	err := rootCmd.Execute()
	if err != nil {
		// Error already printed by cobra
		os.Exit(1)
	}
}

func main() {
	Execute()
}
