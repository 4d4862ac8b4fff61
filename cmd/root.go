// Package cmd implements the plantflow command-line interface.
package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "plantflow",
	Short: "Plantflow turns architecture descriptions into PlantUML diagrams",
	Long: `Plantflow is an HTTP service that turns natural-language architecture
descriptions into PlantUML diagrams using the Gemini API, validates every
candidate locally and against a real PlantUML render server, and supports
iterative plain-English edits.

Run "plantflow serve" to start the API server.`,
}

// Execute runs the root command.
func Execute() error {
	// Load .env if present; real environment variables win.
	_ = godotenv.Load()
	return rootCmd.Execute()
}
