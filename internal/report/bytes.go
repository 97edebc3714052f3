package report

import (
	"fmt"
	"strconv"
	"strings"
)

const unit = 1024

var unitSuffixes = []string{"B", "KB", "MB", "GB", "TB", "PB", "EB"}

// FormatBytes renders a byte count for display, using 1024-based units
// with one decimal place.
func FormatBytes(n int64) string {
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for x := n / unit; x >= unit; x /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %s", float64(n)/float64(div), unitSuffixes[exp+1])
}

// ParseBytes is the inverse of FormatBytes. It accepts values like
// "123 B", "1.5 KB" or "2mb", with or without the space.
func ParseBytes(s string) (int64, error) {
	v := strings.ToUpper(strings.TrimSpace(s))

	mult := int64(1)
	for i := len(unitSuffixes) - 1; i >= 1; i-- {
		if strings.HasSuffix(v, unitSuffixes[i]) {
			v = strings.TrimSuffix(v, unitSuffixes[i])
			mult = 1
			for j := 0; j < i; j++ {
				mult *= unit
			}
			break
		}
	}
	if mult == 1 {
		v = strings.TrimSuffix(v, "B")
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size %q: %w", s, err)
	}
	if f < 0 {
		return 0, fmt.Errorf("invalid byte size %q: negative", s)
	}
	return int64(f * float64(mult)), nil
}
