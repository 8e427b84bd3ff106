// Package logging implements htdeploy.Logger as a console writer that
// colors each message by severity and writes one line per operation.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/fatih/color"

	"github.com/bobg/htdeploy"
)

var colors = map[htdeploy.Severity]*color.Color{
	htdeploy.Info:    color.New(color.FgWhite),
	htdeploy.Success: color.New(color.FgGreen),
	htdeploy.Warning: color.New(color.FgYellow),
	htdeploy.Error:   color.New(color.FgRed, color.Bold),
	htdeploy.Ignored: color.New(color.FgCyan),
}

// Console is a Logger that writes one colored line per message to an
// underlying *log.Logger, and progress lines to Writer directly
// (carriage-return-terminated, so repeated progress updates overwrite
// in place).
type Console struct {
	logger *log.Logger
	writer io.Writer
}

var _ htdeploy.Logger = &Console{}
var _ htdeploy.Progress = &Console{}

// New constructs a Console writing to w.
func New(w io.Writer) *Console {
	return &Console{
		logger: log.New(w, "", log.LstdFlags),
		writer: w,
	}
}

// NewStderr constructs a Console writing to os.Stderr.
func NewStderr() *Console {
	return New(os.Stderr)
}

// Log implements htdeploy.Logger.
func (c *Console) Log(message string, severity htdeploy.Severity) {
	col, ok := colors[severity]
	if !ok {
		col = color.New()
	}
	c.logger.Print(col.Sprintf("[%s] %s", severity, message))
}

// Step implements htdeploy.Progress, reporting "label (n/total)" on a
// self-overwriting line when total is known, or just the label
// otherwise.
func (c *Console) Step(n, total int, label string) {
	if total > 0 {
		fmt.Fprintf(c.writer, "\r%s (%d/%d)", label, n, total)
		return
	}
	fmt.Fprintf(c.writer, "\r%s", label)
}

// Bytes implements htdeploy.Progress, reporting a transfer's
// completion percentage on a self-overwriting line.
func (c *Console) Bytes(percent int) {
	fmt.Fprintf(c.writer, "\r%d%%", percent)
}
