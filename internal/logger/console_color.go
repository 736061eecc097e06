package logger

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
)

// colorScheme defines consistent colors for summary metrics.
// Green: reclaimable bytes
// Yellow: warnings and large values
// Cyan: labels
type colorScheme struct {
	success *color.Color
	warn    *color.Color
	label   *color.Color
	value   *color.Color
}

func newColorScheme() *colorScheme {
	return &colorScheme{
		success: color.New(color.FgGreen),
		warn:    color.New(color.FgYellow),
		label:   color.New(color.FgCyan),
		value:   color.New(color.FgWhite),
	}
}

// colorizeLevel returns the level tag wrapped in its ANSI color.
func colorizeLevel(level string) string {
	switch strings.ToUpper(level) {
	case "TRACE":
		return color.New(color.FgHiBlack).Sprint(level)
	case "DEBUG":
		return color.New(color.FgCyan).Sprint(level)
	case "INFO":
		return color.New(color.FgBlue).Sprint(level)
	case "WARN":
		return color.New(color.FgYellow).Sprint(level)
	case "ERROR":
		return color.New(color.FgRed).Sprint(level)
	default:
		return level
	}
}

// FormatBucketLine formats one summary line: "label: N files, SIZE (reclaim SIZE)".
// Colors are disabled automatically by fatih/color when stdout is not a TTY.
func FormatBucketLine(label string, count int, size, reclaimable int64) string {
	scheme := newColorScheme()

	labelColored := scheme.label.Sprintf("%-12s", label)
	countColored := scheme.value.Sprintf("%d files", count)
	sizeColored := scheme.value.Sprint(humanize.IBytes(uint64(nonNegative(size))))

	line := fmt.Sprintf("%s %s, %s", labelColored, countColored, sizeColored)
	if reclaimable > 0 {
		line += fmt.Sprintf(" (reclaim %s)", scheme.success.Sprint(humanize.IBytes(uint64(reclaimable))))
	}
	return line
}

// FormatTotalLine formats the total recoverable bytes line.
// Totals above 1 GiB are highlighted in yellow.
func FormatTotalLine(total int64) string {
	scheme := newColorScheme()
	value := humanize.IBytes(uint64(nonNegative(total)))
	if total >= 1<<30 {
		return fmt.Sprintf("%s %s", scheme.label.Sprint("recoverable:"), scheme.warn.Sprint(value))
	}
	return fmt.Sprintf("%s %s", scheme.label.Sprint("recoverable:"), scheme.success.Sprint(value))
}

func nonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
