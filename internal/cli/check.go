package cli

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/raoulx24/media-backup/internal/app"
	"github.com/raoulx24/media-backup/internal/backup"
	"github.com/raoulx24/media-backup/internal/prereq"
)

func newCheckCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate prerequisites only",
		Long:  "Checks the source directory, the destination directory, the required tools and that the service exists.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
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
			c, err := app.Build(ctx, cfg, afero.NewOsFs(), log, nil)
			if err != nil {
				return err
			}
			defer c.Close()

			err = c.Checker.Check(ctx, prereq.Spec{
				SourceDir: cfg.Source.Path,
				DestDir:   cfg.Destination.Path,
				Service:   cfg.Service.Name,
				Tools:     cfg.RequiredTools(),
			})
			if err != nil {
				return fmt.Errorf("%w: %w", backup.ErrPrerequisite, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "prerequisites satisfied for %s\n", cfg.Service.Name)
			return nil
		},
	}
}
