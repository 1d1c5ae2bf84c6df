package cli

import (
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/raoulx24/media-backup/internal/app"
	"github.com/raoulx24/media-backup/internal/backup"
	"github.com/raoulx24/media-backup/internal/report"
)

type runConfig struct {
	DryRun bool
}

func newRunCmd(g *globals) *cobra.Command {
	cfg := runConfig{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Perform one backup run",
		Long:  "Validates prerequisites, stops the service, writes one archive, starts the service again and prunes old archives and logs.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackup(cmd, g, cfg)
		},
	}

	cmd.Flags().BoolVar(&cfg.DryRun, "dry-run", false,
		"Check prerequisites and show what pruning would delete without touching the service.")
	return cmd
}

func runBackup(cmd *cobra.Command, g *globals, rc runConfig) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	log, closer, err := g.logger(cfg, false)
	if err != nil {
		return err
	}
	defer closer.Close()
	defer log.Sync()

	ctx := cmd.Context()
	c, err := app.Build(ctx, cfg, afero.NewOsFs(), log, app.MetricsFor(cfg, false))
	if err != nil {
		return err
	}
	defer c.Close()

	res, err := c.Runner.Run(ctx, backup.RunOptions{DryRun: rc.DryRun})
	out := cmd.OutOrStdout()
	report.Summary(out, res, g.colored(cfg, out))
	if err != nil {
		return reportedError{err}
	}
	return nil
}
