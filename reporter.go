package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	statusColor  = color.New(color.FgCyan)
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	failureColor = color.New(color.FgRed)
)

// reporter prints the operator-facing progress lines. Structured detail goes
// to the logger; these lines are for a human watching the terminal.
type reporter struct {
	out io.Writer
}

func newReporter(out io.Writer) *reporter {
	return &reporter{out: out}
}

func (r *reporter) line(c *color.Color, emoji, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	c.Fprintln(r.out, emoji+" "+msg)
}

func (r *reporter) status(emoji, format string, args ...any) {
	r.line(statusColor, emoji, format, args...)
}

func (r *reporter) success(emoji, format string, args ...any) {
	r.line(successColor, emoji, format, args...)
}

func (r *reporter) warn(emoji, format string, args ...any) {
	r.line(warnColor, emoji, format, args...)
}

func (r *reporter) failure(emoji, format string, args ...any) {
	r.line(failureColor, emoji, format, args...)
}

// prompt writes without a trailing newline so input lands on the same line.
func (r *reporter) prompt(emoji, msg string) {
	statusColor.Fprint(r.out, emoji+" "+msg)
}

func (r *reporter) clientSecretHelp(path string) {
	r.failure("❌", "Error: %s not found!", path)
	r.status("ℹ️", "Follow these steps to create it:")
	fmt.Fprintln(r.out, "1. Go to https://console.cloud.google.com/apis/credentials")
	fmt.Fprintln(r.out, "2. Create OAuth 2.0 Client ID (Desktop app type)")
	fmt.Fprintf(r.out, "3. Download the client secret JSON and save it as %s\n", path)
}
