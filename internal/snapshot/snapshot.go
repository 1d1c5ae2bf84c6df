// Package snapshot names and describes the artifacts a backup run leaves on
// disk: one compressed archive and one log record per run, both carrying the
// run's UTC timestamp so that lexical order equals creation order.
package snapshot

import "time"

// TimestampLayout sorts lexicographically in chronological order.
const TimestampLayout = "2006-01-02T15-04-05"

const LogExt = ".log"

// Extension maps a compression name to the archive file extension.
func Extension(compression string) string {
	switch compression {
	case "zstd":
		return ".tar.zst"
	default:
		return ".tar.gz"
	}
}

// Stamp formats ts the way every artifact name embeds it.
func Stamp(ts time.Time) string {
	return ts.UTC().Format(TimestampLayout)
}

// Name returns <prefix>_<timestamp><ext>.
func Name(prefix string, ts time.Time, ext string) string {
	return prefix + "_" + Stamp(ts) + ext
}

// Pattern is the glob matching every Name generated with prefix and ext.
func Pattern(prefix, ext string) string {
	return prefix + "_*" + ext
}

// ArchivePattern matches archives of either compression.
func ArchivePattern(prefix string) string {
	return prefix + "_*.tar.{gz,zst}"
}
