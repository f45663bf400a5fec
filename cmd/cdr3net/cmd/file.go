package cmd

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/cdr3net/internal/workflow"
)

var fileCmd = &cobra.Command{
	Use:   "file <input-path>",
	Short: "Compute over the sequences of one file",
	Long: `File reads the sequences in --column of a CSV or TSV file (or one
sequence per line when --column is empty) and writes
<output-dir>/<name>_graph.tsv and/or <output-dir>/<name>_degrees.tsv.

The backend is chosen from the file's line count.

Example:
  cdr3net file repertoire.tsv --column cdr3 --kind degrees`,
	Args: cobra.ExactArgs(1),
	RunE: runFile,
}

func init() {
	fileCmd.Flags().String("column", "cdr3", "Column holding the sequences (empty: one sequence per line)")
	rootCmd.AddCommand(fileCmd)
}

func runFile(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd.Flags())
	if err != nil {
		return err
	}
	defer a.close()

	column, _ := cmd.Flags().GetString("column")

	ctx, cancel := a.commandContext(cmd)
	defer cancel()

	return fileWorkflow(ctx, a, args[0], column, cmd.OutOrStdout())
}

func fileWorkflow(ctx context.Context, a *app, path, column string, out io.Writer) error {
	d := workflow.NewDriver(&a.cfg.Run, a.selector(), a.engine(), nil, a.metrics, a.log)

	outcome, err := d.File(ctx, path, column)
	if err != nil {
		return err
	}
	printOutcomes(out, "File", outcome)
	return nil
}
