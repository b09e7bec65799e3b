package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/vgrid/internal/datasource"
)

var seedCmd = &cobra.Command{
	Use:   "seed <path>",
	Short: "Create or extend a demo SQLite database",
	Long: `Create the demo "records" table in the database at <path> and append generated
rows. The file is created when it does not exist.`,
	Args: cobra.ExactArgs(1),
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().IntP("rows", "n", 10000, "number of rows to append")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	rows, _ := cmd.Flags().GetInt("rows")
	if rows < 0 {
		return fmt.Errorf("--rows must be non-negative, got %d", rows)
	}
	if err := datasource.Seed(cmd.Context(), args[0], rows); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d rows into %s (table %q)\n", rows, args[0], datasource.SeedTable)
	return nil
}
