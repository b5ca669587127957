// Package ui prints colored, prefixed console output for the CLI.
package ui

import (
	"fmt"

	"github.com/fatih/color"
)

// Shared printers. Commands use these directly for one-off styling; the
// helpers below cover the recurring message shapes.
var (
	Red    = color.New(color.FgRed)
	Green  = color.New(color.FgGreen)
	Yellow = color.New(color.FgYellow)
	Blue   = color.New(color.FgBlue)
	Cyan   = color.New(color.FgCyan)
	Bold   = color.New(color.Bold)
)

// Message prefixes. Status marks are plain glyphs; the dockside set
// tags lifecycle events.
const (
	markOK   = "✓ "
	markFail = "✗ "
	markWarn = "⚠ "

	tagCrate    = "📦 "
	tagShip     = "🚢 "
	tagAnchor   = "⚓ "
	tagSnapshot = "📸 "
)

func say(c *color.Color, prefix, format string, args ...any) {
	c.Printf(prefix+format+"\n", args...)
}

// Success prints a green message with a check mark.
func Success(format string, args ...any) {
	say(Green, markOK, format, args...)
}

// Error prints a red message with a cross.
func Error(format string, args ...any) {
	say(Red, markFail, format, args...)
}

// Warning prints a yellow warning.
func Warning(format string, args ...any) {
	say(Yellow, markWarn, format, args...)
}

// Info prints a plain blue line.
func Info(format string, args ...any) {
	say(Blue, "", format, args...)
}

// Header prints a bold section heading.
func Header(format string, args ...any) {
	say(Bold, "", format, args...)
}

// Step prints a numbered entry, the number in cyan.
func Step(n int, format string, args ...any) {
	Cyan.Printf("[%d] ", n)
	fmt.Printf(format+"\n", args...)
}

// Dockside lifecycle messages.

func Crate(format string, args ...any) {
	say(Green, tagCrate, format, args...)
}

func Ship(format string, args ...any) {
	say(Green, tagShip, format, args...)
}

func Anchor(format string, args ...any) {
	say(Blue, tagAnchor, format, args...)
}

func Snapshot(format string, args ...any) {
	say(Blue, tagSnapshot, format, args...)
}
