// Package report renders run outcomes and retained artifacts for the terminal.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/dsnet/golib/unitconv"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/raoulx24/media-backup/internal/backup"
	"github.com/raoulx24/media-backup/internal/snapshot"
)

// Set is one class of artifacts, e.g. archives or logs.
type Set struct {
	Kind      string
	Artifacts []snapshot.Artifact
}

// Size formats n bytes with IEC prefixes, e.g. "1.5KiB".
func Size(n int64) string {
	return unitconv.FormatPrefix(float64(n), unitconv.IEC, 1) + "B"
}

// Artifacts writes one table row per artifact, newest last.
func Artifacts(w io.Writer, sets []Set) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.Style().Format.Footer = text.FormatDefault
	t.AppendHeader(table.Row{"Kind", "Name", "Size", "Modified"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Size", Align: text.AlignRight},
	})

	var total int64
	for _, s := range sets {
		for _, a := range s.Artifacts {
			t.AppendRow(table.Row{s.Kind, a.Name, Size(a.Size), a.ModTime.UTC().Format(time.DateTime)})
			total += a.Size
		}
	}
	t.AppendFooter(table.Row{"", "Total", Size(total), ""})
	t.Render()
}

// Summary writes the status banner of a run followed by the retained set and
// any warnings.
func Summary(w io.Writer, res *backup.Result, colored bool) {
	ok := color.New(color.FgGreen, color.Bold)
	fail := color.New(color.FgRed, color.Bold)
	warn := color.New(color.FgYellow)
	for _, c := range []*color.Color{ok, fail, warn} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	took := res.End.Sub(res.Start).Round(time.Second)
	switch {
	case res.Err != nil:
		fail.Fprintf(w, "FAILED %s backup after %s: %v\n", res.Service, took, res.Err)
	case res.DryRun:
		ok.Fprintf(w, "DRY RUN %s: prerequisites satisfied\n", res.Service)
	default:
		size := "?"
		if res.Archive != nil {
			size = Size(res.Archive.Size)
		}
		ok.Fprintf(w, "OK %s backed up to %s (%s) in %s\n", res.Service, res.ArchivePath, size, took)
	}

	var sets []Set
	for _, rr := range res.Retention {
		sets = append(sets, Set{Kind: rr.Rule.Name, Artifacts: rr.Remaining})
		if res.DryRun {
			for _, a := range rr.Deleted {
				fmt.Fprintf(w, "would delete %s\n", a.Path)
			}
		}
	}
	if len(sets) > 0 {
		Artifacts(w, sets)
	}

	for _, err := range res.Warnings {
		warn.Fprintf(w, "warning: %v\n", err)
	}
}
