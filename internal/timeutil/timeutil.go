// Package timeutil holds the clock conventions shared by the store,
// recorder, and report: the canonical timestamp text format and the
// compact duration strings shown to the user.
package timeutil

import (
	"fmt"
	"math"
	"time"
)

// Layout is the canonical timestamp format for every persisted
// timestamp. Naive local time, fixed width, no timezone.
const Layout = "2006-01-02 15:04:05"

// Format renders t in the canonical layout, dropping any sub-second part.
func Format(t time.Time) string {
	return t.Format(Layout)
}

// Parse reads a canonical timestamp back into a local time.Time.
func Parse(s string) (time.Time, error) {
	t, err := time.ParseInLocation(Layout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// RoundSeconds converts a duration to whole seconds, rounding halves
// away from zero.
func RoundSeconds(d time.Duration) int64 {
	return int64(math.Round(d.Seconds()))
}

// FormatSeconds renders a second count as "XhYmZs", omitting leading
// zero units: 5 -> "5s", 123 -> "2m 3s", 3609 -> "1h 0m 9s".
func FormatSeconds(sec int64) string {
	if sec < 0 {
		sec = 0
	}
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
