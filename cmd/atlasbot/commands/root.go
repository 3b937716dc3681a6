// Package commands wires the atlasbot CLI.
package commands

import (
	"github.com/spf13/cobra"
)

const Version = "0.1.0"

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "atlasbot",
	Short: "Atlasbot - conversational assistant for Jira and Confluence",
	Long: `Atlasbot is a conversational assistant that routes natural-language
messages to task agents for Jira issues and worklogs, Confluence page
search and creation, and a guided incident-report dialogue.`,
	Version: Version,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "atlasbot.yaml",
		"Path to the YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level (debug, info, warn, error). Overrides the config file.")

	rootCmd.AddCommand(chatCmd)
}
