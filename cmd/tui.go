package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"repolens/internal/llm"
	"repolens/internal/review"
	"repolens/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Start the interactive terminal interface",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI()
	},
}

func runTUI() error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	deps := tui.Deps{
		Repo:       app.root,
		ChatModel:  app.cfg.Ollama.ChatModel,
		EmbedModel: app.cfg.Ollama.EmbedModel,

		CheckIndex: func() (tui.IndexStatus, string) {
			last, err := app.store.GetMeta("embedding_model")
			if err != nil || last == "" {
				return tui.IndexMissing, ""
			}
			if last != app.cfg.Ollama.EmbedModel {
				return tui.IndexStale, fmt.Sprintf("embedding model changed: %s to %s", last, app.cfg.Ollama.EmbedModel)
			}
			return tui.IndexReady, ""
		},

		BuildIndex: func(ctx context.Context, onProgress func(done, total int)) (int, int, error) {
			app.progress = onProgress
			defer func() { app.progress = nil }()
			indexCache.Invalidate(app.root)
			ix, err := app.index(ctx)
			if err != nil {
				return 0, 0, err
			}
			return ix.Files(), ix.Len(), nil
		},

		Answer: func(ctx context.Context, question string, history []llm.Message) (string, error) {
			return app.qa.AnswerWithHistory(ctx, question, history)
		},

		NewAgent: func(sink review.Sink) *review.Agent {
			return app.newAgent(sink)
		},
	}

	// Warm the index check against the Ollama server so a dead server
	// surfaces before the first question.
	if _, err := app.client.ListModels(context.Background()); err != nil {
		app.log.Warn("ollama not reachable", "url", app.cfg.Ollama.URL, "error", err)
	}

	return tui.Run(deps)
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}
