package cli

import (
	"errors"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/raoulx24/media-backup/internal/backup"
	"github.com/raoulx24/media-backup/internal/report"
	"github.com/raoulx24/media-backup/internal/retention"
)

func newListCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List retained archives and run logs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}

			fsys := afero.NewOsFs()
			var sets []report.Set
			for _, rule := range backup.Rules(cfg) {
				artifacts, err := retention.Scan(fsys, rule.Dir, rule.Pattern)
				if err != nil && !errors.Is(err, os.ErrNotExist) {
					return err
				}
				sets = append(sets, report.Set{Kind: rule.Name, Artifacts: artifacts})
			}
			report.Artifacts(cmd.OutOrStdout(), sets)
			return nil
		},
	}
}
