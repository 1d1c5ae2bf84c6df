package snapshot

import (
	"sort"
	"testing"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamesAreDistinctAndSortable(t *testing.T) {
	start := time.Date(2026, 1, 31, 23, 59, 58, 0, time.UTC)

	var names []string
	for i := range 5 {
		names = append(names, Name("plex_backup", start.Add(time.Duration(i)*time.Second), ".tar.gz"))
	}

	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	assert.Equal(t, names, sorted)

	seen := map[string]bool{}
	for _, n := range names {
		assert.False(t, seen[n], "duplicate name %s", n)
		seen[n] = true
	}
	assert.Equal(t, "plex_backup_2026-01-31T23-59-58.tar.gz", names[0])
	assert.Equal(t, "plex_backup_2026-02-01T00-00-00.tar.gz", names[2])
}

func TestNameUsesUTC(t *testing.T) {
	loc := time.FixedZone("CEST", 2*60*60)
	ts := time.Date(2026, 6, 1, 3, 0, 0, 0, loc)
	assert.Equal(t, "b_2026-06-01T01-00-00.log", Name("b", ts, LogExt))
}

func TestPatternMatchesOnlyOwnArtifacts(t *testing.T) {
	ts := time.Date(2026, 6, 1, 3, 0, 0, 0, time.UTC)
	archivePattern := Pattern("plex_backup", Extension("gzip"))

	ok, err := doublestar.Match(archivePattern, Name("plex_backup", ts, ".tar.gz"))
	require.NoError(t, err)
	assert.True(t, ok)

	for _, other := range []string{
		Name("plex_backup", ts, LogExt),
		Name("plex_backup", ts, ".tar.zst"),
		"other_2026-06-01T03-00-00.tar.gz",
	} {
		ok, err := doublestar.Match(archivePattern, other)
		require.NoError(t, err)
		assert.False(t, ok, other)
	}
}

func TestArchivePatternCoversBothCompressions(t *testing.T) {
	ts := time.Date(2026, 6, 1, 3, 0, 0, 0, time.UTC)
	for _, ext := range []string{Extension("gzip"), Extension("zstd")} {
		ok, err := doublestar.Match(ArchivePattern("plex_backup"), Name("plex_backup", ts, ext))
		require.NoError(t, err)
		assert.True(t, ok, ext)
	}
	ok, _ := doublestar.Match(ArchivePattern("plex_backup"), Name("plex_backup", ts, LogExt))
	assert.False(t, ok)
}
