package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/cdr3net/internal/workflow"
)

var directoryCmd = &cobra.Command{
	Use:   "directory <input-dir>",
	Short: "Compute over every file in a directory",
	Long: `Directory processes each file of <input-dir> (not recursively) in name
order. The output directory must exist.

With --distributed one backend session is opened for the whole directory;
files at or below --distributed-cutoff lines are still computed locally.

Example:
  cdr3net directory ./samples --column cdr3 --output-dir ./out --distributed`,
	Args: cobra.ExactArgs(1),
	RunE: runDirectory,
}

func init() {
	directoryCmd.Flags().String("column", "cdr3", "Column holding the sequences (empty: one sequence per line)")
	rootCmd.AddCommand(directoryCmd)
}

func runDirectory(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd.Flags())
	if err != nil {
		return err
	}
	defer a.close()

	column, _ := cmd.Flags().GetString("column")

	ctx, cancel := a.commandContext(cmd)
	defer cancel()

	return directoryWorkflow(ctx, a, args[0], column, cmd.OutOrStdout())
}

func directoryWorkflow(ctx context.Context, a *app, dir, column string, out io.Writer) error {
	d := workflow.NewDriver(&a.cfg.Run, a.selector(), a.engine(), nil, a.metrics, a.log)

	outcomes, err := d.Directory(ctx, dir, column)
	if outcomes != nil && outcomes.Len() > 0 {
		printOutcomes(out, fmt.Sprintf("Directory %s", dir), collectOutcomes(outcomes)...)
	}
	return err
}
