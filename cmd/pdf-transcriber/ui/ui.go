// Package ui provides terminal output for the pdf-transcriber CLI.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
)

// UI writes status lines to Out and transient spinners to Err.
type UI struct {
	Out     io.Writer
	Err     io.Writer
	verbose bool
	spin    *spinner.Spinner

	success *color.Color
	failure *color.Color
	info    *color.Color
	dim     *color.Color
}

// New creates a UI. Colors are disabled when noColor is set or the output is
// not a terminal.
func New(out, errOut io.Writer, noColor, verbose bool) *UI {
	if noColor {
		color.NoColor = true
	}
	return &UI{
		Out:     out,
		Err:     errOut,
		verbose: verbose,
		success: color.New(color.FgGreen),
		failure: color.New(color.FgRed, color.Bold),
		info:    color.New(color.FgCyan),
		dim:     color.New(color.Faint),
	}
}

// Default writes to the process stdout and stderr.
func Default(noColor, verbose bool) *UI {
	return New(os.Stdout, os.Stderr, noColor, verbose)
}

// Verbose reports whether streamed model text should be echoed.
func (u *UI) Verbose() bool {
	return u.verbose
}

// Section displays a section header.
func (u *UI) Section(title string) {
	fmt.Fprintf(u.Out, "%s\n%s\n", title, strings.Repeat("=", 60))
}

// Info displays an informational message.
func (u *UI) Info(format string, args ...interface{}) {
	u.info.Fprintf(u.Out, "ℹ %s\n", fmt.Sprintf(format, args...))
}

// Success displays a success message.
func (u *UI) Success(format string, args ...interface{}) {
	u.success.Fprintf(u.Out, "✓ %s\n", fmt.Sprintf(format, args...))
}

// Error displays an error message on the error writer.
func (u *UI) Error(format string, args ...interface{}) {
	u.failure.Fprintf(u.Err, "✗ %s\n", fmt.Sprintf(format, args...))
}

// Status displays a plain progress line.
func (u *UI) Status(format string, args ...interface{}) {
	fmt.Fprintf(u.Out, format+"\n", args...)
}

// Chunk echoes streamed model output when verbose.
func (u *UI) Chunk(text string) {
	if u.verbose {
		u.dim.Fprint(u.Out, text)
	}
}

// StartSpinner shows an indeterminate spinner on the error writer.
// Spinners are suppressed in verbose mode, where model text streams instead.
func (u *UI) StartSpinner(message string) {
	if u.verbose {
		return
	}
	u.StopSpinner()
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	s.Writer = u.Err
	s.Start()
	u.spin = s
}

// StopSpinner stops the running spinner, if any, and clears its line.
func (u *UI) StopSpinner() {
	if u.spin != nil {
		u.spin.Stop()
		u.spin = nil
	}
}

// FormatDuration formats a duration in a human-readable way.
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	minutes := d / time.Minute
	seconds := (d - minutes*time.Minute) / time.Second
	return fmt.Sprintf("%dm%02ds", minutes, seconds)
}
