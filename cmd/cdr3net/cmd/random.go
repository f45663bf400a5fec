package cmd

import (
	"context"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/cdr3net/internal/cdr3"
	"github.com/dbsmedya/cdr3net/internal/workflow"
)

var randomCmd = &cobra.Command{
	Use:   "random",
	Short: "Compute over a synthetic random corpus",
	Long: `Random generates --nstrings synthetic CDR3 sequences and computes the
configured output kind over them. Outputs are written to
<output-dir>/random_<n>_graph.tsv and <output-dir>/random_<n>_degrees.tsv.

Example:
  cdr3net random --nstrings 20000 --kind all --distributed`,
	Args: cobra.NoArgs,
	RunE: runRandom,
}

type randomOptions struct {
	n      int
	minLen int
	maxLen int
	seed   uint64
}

func init() {
	randomCmd.Flags().Int("nstrings", 1000, "Number of sequences to generate")
	addLengthFlags(randomCmd)
	rootCmd.AddCommand(randomCmd)
}

// addLengthFlags registers the generator flags shared by random and benchmark.
func addLengthFlags(c *cobra.Command) {
	c.Flags().Int("min-length", 10, "Minimum sequence length")
	c.Flags().Int("max-length", 20, "Maximum sequence length")
	c.Flags().Uint64("seed", 0, "Generator seed (default: time based)")
}

func generatorSeed(c *cobra.Command) uint64 {
	if c.Flags().Changed("seed") {
		seed, _ := c.Flags().GetUint64("seed")
		return seed
	}
	return uint64(time.Now().UnixNano())
}

func runRandom(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd.Flags())
	if err != nil {
		return err
	}
	defer a.close()

	opts := randomOptions{seed: generatorSeed(cmd)}
	opts.n, _ = cmd.Flags().GetInt("nstrings")
	opts.minLen, _ = cmd.Flags().GetInt("min-length")
	opts.maxLen, _ = cmd.Flags().GetInt("max-length")

	ctx, cancel := a.commandContext(cmd)
	defer cancel()

	return randomWorkflow(ctx, a, opts, cmd.OutOrStdout())
}

func randomWorkflow(ctx context.Context, a *app, opts randomOptions, out io.Writer) error {
	d := workflow.NewDriver(&a.cfg.Run, a.selector(), a.engine(), cdr3.NewGenerator(opts.seed), a.metrics, a.log)

	outcome, err := d.Random(ctx, opts.n, opts.minLen, opts.maxLen)
	if err != nil {
		return err
	}
	printOutcomes(out, "Random corpus", outcome)
	return nil
}
