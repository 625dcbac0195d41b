package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "duel",
	Short: "Race crawling strategies against a URL and score the results",
	Long: "duel dispatches several crawling strategies (plain HTTP, headless browser,\n" +
		"stealth browser, LLM extraction) against one URL at the same time and\n" +
		"reports which one did best on speed, integrity and structure.",
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(raceCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
