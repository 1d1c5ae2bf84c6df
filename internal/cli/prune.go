package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/raoulx24/media-backup/internal/backup"
	"github.com/raoulx24/media-backup/internal/report"
	"github.com/raoulx24/media-backup/internal/retention"
)

type pruneConfig struct {
	DryRun bool
}

func newPruneCmd(g *globals) *cobra.Command {
	cfg := pruneConfig{}

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Apply the retention policy without running a backup",
		Long:  "Deletes the oldest archives and run logs beyond destination.retention.maxCount. The service is not touched.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrune(cmd, g, cfg)
		},
	}

	cmd.Flags().BoolVar(&cfg.DryRun, "dry-run", false, "Show what would be deleted without deleting anything.")
	return cmd
}

func runPrune(cmd *cobra.Command, g *globals, pc pruneConfig) error {
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

	if cfg.Lock.Enabled && !pc.DryRun {
		l, err := backup.FileLocker(cfg.Lock.Path)
		if err != nil {
			return fmt.Errorf("%w: %w", backup.ErrPrerequisite, err)
		}
		defer l.Release()
	}

	engine := retention.New(afero.NewOsFs(), log, pc.DryRun)
	results := engine.Apply(cmd.Context(), backup.Rules(cfg))

	out := cmd.OutOrStdout()
	warn := color.New(color.FgYellow)
	if !g.colored(cfg, out) {
		warn.DisableColor()
	}

	var sets []report.Set
	for _, rr := range results {
		verb := "deleted"
		if pc.DryRun {
			verb = "would delete"
		}
		for _, a := range rr.Deleted {
			fmt.Fprintf(out, "%s %s\n", verb, a.Path)
		}
		sets = append(sets, report.Set{Kind: rr.Rule.Name, Artifacts: rr.Remaining})
	}
	report.Artifacts(out, sets)

	for _, rr := range results {
		for _, w := range rr.Warnings {
			warn.Fprintf(out, "warning: %s: %v\n", rr.Rule.Name, w)
		}
	}
	return nil
}
