package main

import (
	"fmt"
	"log/slog"

	"github.com/aluiziolira/go-scrape-goodreads/pipeline"
	"github.com/spf13/cobra"
)

var cleanOutput string

var cleanCmd = &cobra.Command{
	Use:   "clean <input.csv> [--output <path>]",
	Short: "Rewrites the ratings_count column of an export as plain integers.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := pipeline.CleanRatingsCSV(args[0], cleanOutput)
		if err != nil {
			return fmt.Errorf("clean %s: %w", args[0], err)
		}
		if result.ParseErrors > 0 {
			slog.Warn("unparsable ratings counts written as 0", slog.Int("count", result.ParseErrors))
		}
		printCleanSummary(args[0], result)
		return nil
	},
}

func init() {
	cleanCmd.Flags().StringVarP(&cleanOutput, "output", "o", "", "Output file path (default <input>_cleaned.csv)")
	rootCmd.AddCommand(cleanCmd)
}
