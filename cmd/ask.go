package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question about the repository",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.TrimSpace(strings.Join(args, " "))
		if question == "" {
			return errors.New("question must not be empty")
		}

		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		answer, err := app.qa.Answer(cmd.Context(), question)
		if err != nil {
			return fmt.Errorf("answer question: %w", err)
		}
		fmt.Println(answer)

		if flagVerbose {
			stats := app.cache.Stats()
			app.log.Debug("answer cache", "hits", stats.Hits, "misses", stats.Misses, "hit_rate", app.cache.HitRate())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
}
