package cmd

import (
	"context"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/cdr3net/internal/backend"
	"github.com/dbsmedya/cdr3net/internal/network"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Serve distributed computations",
	Long: `Worker connects to the --master Redis instance, announces --cores slots
and executes graph and degree tasks until interrupted.

Example:
  cdr3net worker --master redis://scheduler:6379/0 --cores 16`,
	Args: cobra.NoArgs,
	RunE: runWorker,
}

func init() {
	workerCmd.Flags().Int("cores", runtime.NumCPU(), "Parallel task slots to announce")
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd.Flags())
	if err != nil {
		return err
	}
	defer a.close()

	cores, _ := cmd.Flags().GetInt("cores")

	ctx, cancel := a.commandContext(cmd)
	defer cancel()

	return serveWorker(ctx, a, cores)
}

func serveWorker(ctx context.Context, a *app, cores int) error {
	client, err := backend.NewRedisClient(a.cfg.Run.MasterAddress)
	if err != nil {
		return err
	}
	defer client.Close()

	w := backend.NewWorker(client, a.cfg.Backend, cores, a.log)
	network.RegisterHandlers(w)
	return w.Run(ctx)
}
