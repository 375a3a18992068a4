package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "voicefit",
	Short: "VoiceFit - voice-first fitness tracking backend",
	Long: `VoiceFit is the API backend for a voice-first fitness tracking app.
It parses spoken workout transcripts into structured logs, answers coach
chat with retrieval-grounded advice, assesses reported injuries and
generates training programs.

Run 'voicefit serve' to start the HTTP API server.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
