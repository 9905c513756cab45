package ui

import (
	"fmt"
	"strings"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
)

// Progress renders "[████░░░░] done/total" with the given bar width.
// done is clamped to [0, total].
func Progress(done, total, width int) string {
	if width <= 0 {
		width = 20
	}
	filled := 0
	if total > 0 {
		clamped := done
		if clamped > total {
			clamped = total
		}
		if clamped < 0 {
			clamped = 0
		}
		filled = clamped * width / total
	}

	bar := strings.Repeat(ProgressBar, filled) +
		strings.Repeat(ProgressEmpty, width-filled)

	return fmt.Sprintf("[%s] %d/%d", bar, done, total)
}
