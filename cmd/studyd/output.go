package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kalambet/studyd/internal/study"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorGreen, "✓ "+msg))
}

func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorRed, "✗ "+msg))
}

func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorYellow, "⚠ "+msg))
}

func printStatus(label string, format string, args ...any) {
	val := fmt.Sprintf(format, args...)
	l := colorize(colorBold, label+":")
	fmt.Fprintf(os.Stderr, "  %s %s\n", l, val)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeTurn prints one transcript turn. Schedules are shown as indented
// JSON below the text.
func writeTurn(w io.Writer, turn study.ChatTurn) {
	who := colorize(colorCyan, "planner")
	if turn.Role == study.RoleUser {
		who = colorize(colorBold, "you")
	}
	fmt.Fprintf(w, "%s: %s\n", who, turn.Text)
	if turn.HasSchedule() {
		var pretty strings.Builder
		var v any
		if json.Unmarshal(turn.Schedule, &v) == nil {
			enc := json.NewEncoder(&pretty)
			enc.SetIndent("  ", "  ")
			enc.Encode(v)
			fmt.Fprintf(w, "  %s\n  %s", colorize(colorYellow, "schedule:"), pretty.String())
		}
	}
	for _, m := range turn.Milestones {
		fmt.Fprintf(w, "  • %s (%s)\n", m.Title, m.Due)
	}
}

func progressBar(pct int) string {
	const width = 20
	pct = max(0, min(pct, 100))
	filled := pct * width / 100
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}
