package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/g4mm4p4nd4/Personal-AI-Infrastructure/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.GetVersionInfo())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
