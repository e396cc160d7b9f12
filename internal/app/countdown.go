package app

import (
	"fmt"
	"strings"
	"time"
)

// FormatCountdown renders remaining time as "2d 4h 5m 12s", omitting leading
// zero units. Zero or negative remaining time renders the due banner.
func FormatCountdown(remaining time.Duration) string {
	if remaining <= 0 {
		return "Reset due now!"
	}

	total := int64(remaining / time.Second)
	days := total / 86400
	hours := (total % 86400) / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	parts := make([]string, 0, 4)
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 || len(parts) > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 || len(parts) > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	parts = append(parts, fmt.Sprintf("%ds", seconds))
	return strings.Join(parts, " ")
}
