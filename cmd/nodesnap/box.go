package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
)

const (
	colorGreen  = "\x1b[32m"
	colorYellow = "\x1b[33m"
	colorReset  = "\x1b[0m"
)

// printBox renders a titled, colored box (Unicode box-drawing characters)
// of summary lines to stderr, the way pack, unpack, and status report
// their results.
func printBox(title string, lines []string, color string) {
	maxWidth := len(title) + 4
	for _, l := range lines {
		if len(l) > maxWidth {
			maxWidth = len(l)
		}
	}
	width := maxWidth + 2

	fmt.Fprintf(os.Stderr, "%s┌─ %s %s─┐%s\n", color, title, strings.Repeat("─", clamp(width-len(title)-4)), colorReset)
	for _, l := range lines {
		pad := clamp(width - len(l) - 1)
		fmt.Fprintf(os.Stderr, "%s│%s %s%s %s│%s\n", color, colorReset, l, strings.Repeat(" ", pad), color, colorReset)
	}
	fmt.Fprintf(os.Stderr, "%s└%s┘%s\n", color, strings.Repeat("─", width), colorReset)
}

func clamp(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

func humanizeBytes(n int64) string {
	return humanize.Bytes(uint64(n))
}
