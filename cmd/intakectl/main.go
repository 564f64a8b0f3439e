package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "intakectl",
	Short: "Run interactive intake conversations",
	Long: `intakectl drives intake conversations whose turns carry interactive
blocks: question rounds, info forms and next-step choices.

Commands:
  parse - parse a message and print the blocks it carries
  chat  - hold a conversation in the terminal
  serve - expose conversations over HTTP`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file (defaults and environment otherwise)")
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
