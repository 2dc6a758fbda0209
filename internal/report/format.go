package report

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

const sizeUnits = "KMGT"

// FormatSize renders bytes in base-1024 units: whole bytes below 1 KB,
// one decimal above, capped at TB.
func FormatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit && exp < len(sizeUnits)-1; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), sizeUnits[exp])
}

// FormatCount renders n with thousands separators
func FormatCount(n int64) string {
	return humanize.Comma(n)
}

// Plural picks one or many by n
func Plural(n int64, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// Severity buckets a folder size the way the listing highlights it.
func Severity(bytes int64) string {
	switch {
	case bytes > 500<<20:
		return "huge"
	case bytes > 100<<20:
		return "large"
	case bytes > 50<<20:
		return "medium"
	}
	return ""
}

func truncateLeft(s string, max int) string {
	if max <= 3 || len(s) <= max {
		return s
	}
	return "..." + s[len(s)-(max-3):]
}

func rule(headers ...string) string {
	parts := make([]string, len(headers))
	for i, h := range headers {
		parts[i] = strings.Repeat("-", len(h))
	}
	return strings.Join(parts, "\t")
}
