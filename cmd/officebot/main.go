package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:           "officebot",
	Short:         "Workplace-presence bot for the office chat",
	Long:          "officebot collects weekly office-location plans and time-off requests through slash commands and modal forms, and mirrors the plan into user statuses.",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Load .env if present (for OFFICEBOT_BOT_TOKEN and friends).
	_ = godotenv.Load()

	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
