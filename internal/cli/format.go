package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"bondval/internal/bond"
)

// FormatAmount formats a reported value with the engine's six decimal places.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(bond.Round(v, bond.OutputPlaces), 'f', bond.OutputPlaces, 64)
}

// FormatRate formats a yearly rate as a percentage, e.g. 0.1007 -> "10.0700%".
func FormatRate(rate float64) string {
	return fmt.Sprintf("%.4f%%", rate*100)
}

// FormatBasisPoints formats a rate in basis points, e.g. 0.0015 -> "15.0 bp".
func FormatBasisPoints(rate float64) string {
	return fmt.Sprintf("%.1f bp", rate*10000)
}

// FormatDays formats a day count.
func FormatDays(days int) string {
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}

// FormatDateTime formats a timestamp in local time.
func FormatDateTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05")
}

// FormatDuration formats an elapsed time.
func FormatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

// TruncateString truncates a string to max length with ellipsis.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// PadRight pads a string to the right.
func PadRight(s string, length int) string {
	if len(s) >= length {
		return s
	}
	return s + strings.Repeat(" ", length-len(s))
}
