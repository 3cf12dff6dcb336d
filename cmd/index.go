package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build or refresh the embedding index for the repository",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		indexCache.Invalidate(app.root)
		ix, err := app.index(cmd.Context())
		if err != nil {
			return fmt.Errorf("build index: %w", err)
		}
		fmt.Printf("indexed %d files (%d chunks) with %s\n", ix.Files(), ix.Len(), app.builder.Model())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
}
