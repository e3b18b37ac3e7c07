package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"
)

// Context carries output settings and cancellation through a command.
type Context struct {
	context.Context

	// Output preferences
	OutputFormat string
	Verbose      bool
	Quiet        bool

	// Stdout receives formatted results, Stderr diagnostics.
	Stdout io.Writer
	Stderr io.Writer

	// DefaultTimeout bounds one simulated boot.
	DefaultTimeout time.Duration

	// ProgressCallback receives coarse progress of long operations.
	ProgressCallback func(message string, percent int)

	logger *log.Logger
}

// NewContext creates a context writing to the process streams.
func NewContext() *Context {
	return &Context{
		Context:        context.Background(),
		OutputFormat:   "table",
		Stdout:         os.Stdout,
		Stderr:         os.Stderr,
		DefaultTimeout: 30 * time.Second,
	}
}

// WithTimeout creates a context with timeout
func (c *Context) WithTimeout(timeout time.Duration) (*Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(c.Context, timeout)
	newCtx := *c
	newCtx.Context = ctx
	return &newCtx, cancel
}

// WithCancel creates a cancellable context
func (c *Context) WithCancel() (*Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(c.Context)
	newCtx := *c
	newCtx.Context = ctx
	return &newCtx, cancel
}

// SetProgress sets the progress callback function
func (c *Context) SetProgress(callback func(string, int)) {
	c.ProgressCallback = callback
}

// Progress reports progress if callback is set
func (c *Context) Progress(message string, percent int) {
	if c.ProgressCallback != nil {
		c.ProgressCallback(message, percent)
	}
}

func (c *Context) printer() *log.Logger {
	if c.logger == nil {
		out := c.Stderr
		if out == nil {
			out = io.Discard
		}
		c.logger = log.New(out, "lemola: ", 0)
	}
	return c.logger
}

// Log prints a diagnostic in verbose mode.
func (c *Context) Log(format string, args ...any) {
	if !c.Quiet && c.Verbose {
		c.printer().Printf(format, args...)
	}
}

// Error prints an error unless quiet.
func (c *Context) Error(format string, args ...any) {
	if !c.Quiet {
		c.printer().Print("error: " + fmt.Sprintf(format, args...))
	}
}
