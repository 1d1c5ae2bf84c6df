package cli

import (
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/raoulx24/media-backup/internal/app"
)

func newServeCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run backups on the configured cron schedule",
		Long:  `Runs in the foreground and performs a backup on every schedule.cron tick.
Triggers arriving while a backup is in progress collapse into a single follow-up run.
The configuration is reloaded on SIGHUP and, when configReload.enabled is set, whenever the file changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			log, closer, err := g.logger(cfg, true)
			if err != nil {
				return err
			}
			defer closer.Close()
			defer log.Sync()

			ctx := cmd.Context()
			fsys := afero.NewOsFs()
			m := app.MetricsFor(cfg, true)
			d, err := app.NewDaemon(ctx, g.configPath(), cfg, fsys, log, m, app.DefaultBuilder(fsys, log, m),
				app.WithLevelOverride(g.v.GetString("log-level")))
			if err != nil {
				return err
			}
			return d.Run(ctx)
		},
	}
}
