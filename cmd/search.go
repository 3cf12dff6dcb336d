package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var flagSearchK int

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed chunks by vector similarity",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.TrimSpace(strings.Join(args, " "))
		if query == "" {
			return errors.New("query must not be empty")
		}

		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		emb, err := app.builder.EmbedQuery(cmd.Context(), query)
		if err != nil {
			return fmt.Errorf("embed query: %w", err)
		}

		results, err := app.store.Search(emb, flagSearchK)
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}
		if len(results) == 0 {
			fmt.Printf("no results for %q\n", query)
			return nil
		}

		for i, r := range results {
			fmt.Printf("%d. %s #%d (similarity %.3f)\n", i+1, r.Chunk.Path, r.Chunk.ChunkIndex, r.Similarity)
			fmt.Println(indent(snippet(r.Chunk.Text, 240)))
		}
		return nil
	},
}

func snippet(text string, limit int) string {
	text = strings.TrimSpace(text)
	if len(text) > limit {
		text = text[:limit] + "..."
	}
	return text
}

func indent(text string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = "   " + l
	}
	return strings.Join(lines, "\n")
}

func init() {
	searchCmd.Flags().IntVar(&flagSearchK, "k", 8, "maximum number of chunks to return")
	rootCmd.AddCommand(searchCmd)
}
