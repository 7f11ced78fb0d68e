package plan

import (
	"fmt"
	"math"
	"strings"
)

// ParseHMS converts "ss", "mm:ss" or "hh:mm:ss" to seconds.
//
// Free-text input is expected, so anything malformed yields 0 which callers treat as unknown. Components are plain
// ASCII digits; signs, blanks and extra separators are rejected.
func ParseHMS(text string) int {
	parts := strings.Split(strings.TrimSpace(text), ":")
	if len(parts) > 3 { //nolint:mnd // hours, minutes and seconds.
		return 0
	}
	total := 0
	for _, part := range parts {
		if part == "" {
			return 0
		}
		n := 0
		for _, c := range part {
			if c < '0' || c > '9' {
				return 0
			}
			n = n*10 + int(c-'0') //nolint:mnd // decimal.
			if n > math.MaxInt32 {
				return 0
			}
		}
		total = total*60 + n //nolint:mnd // sexagesimal.
		if total > math.MaxInt32 {
			return 0
		}
	}
	return total
}

// FormatHMS renders seconds as "h:mm:ss" or "m:ss". Non-positive values render as an empty string.
func FormatHMS(seconds int) string {
	if seconds <= 0 {
		return ""
	}
	h, m, s := seconds/3600, seconds/60%60, seconds%60 //nolint:mnd // time units.
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// FormatPace renders seconds per kilometre as "m:ss/km".
func FormatPace(secondsPerKm int) string {
	if secondsPerKm <= 0 {
		return ""
	}
	return FormatHMS(secondsPerKm) + "/km"
}
