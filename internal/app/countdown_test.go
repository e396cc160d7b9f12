package app_test

import (
	"testing"
	"time"

	"qa-training-service/internal/app"
)

func TestFormatCountdown(t *testing.T) {
	cases := []struct {
		remaining time.Duration
		want      string
	}{
		{0, "Reset due now!"},
		{-5 * time.Second, "Reset due now!"},
		{12 * time.Second, "12s"},
		{5*time.Minute + 12*time.Second, "5m 12s"},
		{3 * time.Minute, "3m 0s"},
		{4*time.Hour + 5*time.Minute + 12*time.Second, "4h 5m 12s"},
		{time.Hour, "1h 0m 0s"},
		{2*24*time.Hour + 4*time.Hour + 5*time.Minute + 12*time.Second, "2d 4h 5m 12s"},
		// A leading zero unit is omitted, inner zero units are kept.
		{24*time.Hour + 30*time.Second, "1d 0h 0m 30s"},
	}
	for _, c := range cases {
		if got := app.FormatCountdown(c.remaining); got != c.want {
			t.Fatalf("FormatCountdown(%v): expected %q, got %q", c.remaining, c.want, got)
		}
	}
}
