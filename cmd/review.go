package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"repolens/internal/review"
)

var flagFocus string

var reviewCmd = &cobra.Command{
	Use:   "review [paths...]",
	Short: "Run the review agent over files in the repository",
	Long: `Review plans one file at a time, reads it, asks the chat model
for findings, and replans until every candidate is reviewed or the
iteration cap is reached. With no paths it selects candidates from
the repository itself. Ctrl-C stops the run and keeps partial results.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sink := func(ev review.Event) {
			switch ev.Type {
			case review.EventPlan:
				fmt.Printf("[%d] planning\n", ev.Iteration)
			case review.EventReviewDone:
				fmt.Printf("[%d] reviewed %s: %d finding(s)\n", ev.Iteration, ev.Path, ev.Findings)
			case review.EventDone:
				fmt.Printf("[%d] done\n", ev.Iteration)
			}
		}

		agent := app.newAgent(sink)
		state := agent.Run(ctx, review.Request{Paths: args, Focus: flagFocus})

		fmt.Printf("\nreviewed %d file(s), %d finding(s)\n", len(state.ReviewedPaths), len(state.Findings))
		if len(state.Findings) > 0 {
			fmt.Println(review.FormatFindings(state.Findings))
		}
		if len(state.Observations) > 0 {
			fmt.Println("\n" + state.Observations[len(state.Observations)-1])
		}
		if ctx.Err() != nil {
			fmt.Fprintln(os.Stderr, "review interrupted; results are partial")
		}
		return nil
	},
}

func init() {
	reviewCmd.Flags().StringVar(&flagFocus, "focus", "", "what the review should concentrate on")
	rootCmd.AddCommand(reviewCmd)
}
