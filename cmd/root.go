package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagRoot       string
	flagOllama     string
	flagChatModel  string
	flagEmbedModel string
	flagDB         string
	flagVerbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "repolens",
	Short: "Ask questions about a codebase and run automated reviews",
	Long: `Repolens indexes a repository with local embeddings, answers
questions about it with retrieved context, and runs an iterative
review agent over its files. All model calls go through a local
Ollama server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagRoot, "root", ".", "repository root to operate on")
	rootCmd.PersistentFlags().StringVar(&flagOllama, "ollama", "", "Ollama base URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagChatModel, "chat-model", "", "chat model name (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagEmbedModel, "embed-model", "", "embedding model name (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "index database path (default <root>/.repolens/index.db)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
}
