// Package retention keeps a fixed number of the most recently modified
// artifacts per class and deletes the rest.
package retention

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"

	"github.com/raoulx24/media-backup/internal/fs"
	"github.com/raoulx24/media-backup/internal/logging"
	"github.com/raoulx24/media-backup/internal/snapshot"
)

// Rule selects one artifact class: the files in Dir whose name matches Pattern.
type Rule struct {
	Name    string
	Dir     string
	Pattern string
	Keep    int
}

// Result is the outcome of applying one rule.
type Result struct {
	Rule      Rule
	Deleted   []snapshot.Artifact
	Remaining []snapshot.Artifact
	// Warnings holds per-file deletion failures. They never abort pruning.
	Warnings []error
}

type Engine struct {
	fs     afero.Fs
	log    logging.Logger
	dryRun bool
}

func New(fsys afero.Fs, log logging.Logger, dryRun bool) *Engine {
	return &Engine{fs: fsys, log: log, dryRun: dryRun}
}

// Apply runs every rule. A rule whose directory cannot be listed is reported
// in its Result and does not stop the remaining rules.
func (e *Engine) Apply(ctx context.Context, rules []Rule) []Result {
	results := make([]Result, 0, len(rules))
	for _, rule := range rules {
		res, err := e.ApplyRule(ctx, rule)
		if err != nil {
			e.log.Warn("retention: rule failed", "rule", rule.Name, "error", err)
			res.Warnings = append(res.Warnings, err)
		}
		results = append(results, res)
	}
	return results
}

// ApplyRule keeps only the rule.Keep most recently modified matching files.
func (e *Engine) ApplyRule(ctx context.Context, rule Rule) (Result, error) {
	res := Result{Rule: rule}
	if rule.Keep < 1 {
		return res, fmt.Errorf("rule %s: keep must be at least 1, got %d", rule.Name, rule.Keep)
	}

	artifacts, err := Scan(e.fs, rule.Dir, rule.Pattern)
	if err != nil {
		return res, err
	}

	excess := len(artifacts) - rule.Keep
	if excess <= 0 {
		e.log.Info("retention: nothing to prune", "rule", rule.Name, "count", len(artifacts), "max", rule.Keep)
		res.Remaining = artifacts
		return res, nil
	}

	e.log.Info("retention: pruning", "rule", rule.Name, "count", len(artifacts), "max", rule.Keep, "delete", excess)

	// oldest first, so the first excess entries are the ones to drop
	for _, a := range artifacts[:excess] {
		if e.dryRun {
			e.log.Info("retention: would delete", "rule", rule.Name, "file", a.Name)
			res.Deleted = append(res.Deleted, a)
			continue
		}
		if err := fs.Remove(ctx, e.fs, a.Path); err != nil {
			e.log.Warn("retention: could not delete", "rule", rule.Name, "file", a.Name, "error", err)
			res.Warnings = append(res.Warnings, fmt.Errorf("deleting %s: %w", a.Name, err))
			res.Remaining = append(res.Remaining, a)
			continue
		}
		e.log.Info("retention: deleted", "rule", rule.Name, "file", a.Name)
		res.Deleted = append(res.Deleted, a)
	}
	res.Remaining = append(res.Remaining, artifacts[excess:]...)
	sortByModTime(res.Remaining)

	return res, nil
}

// Scan lists the regular files in dir matching pattern, oldest first.
func Scan(fsys afero.Fs, dir, pattern string) ([]snapshot.Artifact, error) {
	entries, err := afero.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("reading folder: %w", err)
	}

	var artifacts []snapshot.Artifact
	for _, ent := range entries {
		if !ent.Mode().IsRegular() {
			continue
		}
		ok, err := doublestar.Match(pattern, ent.Name())
		if err != nil {
			return nil, fmt.Errorf("matching %q: %w", pattern, err)
		}
		if ok {
			artifacts = append(artifacts, snapshot.FromFileInfo(filepath.Join(dir, ent.Name()), ent))
		}
	}

	sortByModTime(artifacts)
	return artifacts, nil
}

// sortByModTime orders oldest → newest. Names only break exact ties.
func sortByModTime(artifacts []snapshot.Artifact) {
	sort.SliceStable(artifacts, func(i, j int) bool {
		if !artifacts[i].ModTime.Equal(artifacts[j].ModTime) {
			return artifacts[i].ModTime.Before(artifacts[j].ModTime)
		}
		return artifacts[i].Name < artifacts[j].Name
	})
}
