// Package console is the pre-boot diagnostics sink. A Writer is created once
// from the firmware text output protocol and passed explicitly to whoever
// needs to print; there is no package level writer.
package console

import (
	"fmt"
	"strings"

	"github.com/lemolatoon/lemola-os/internal/interfaces"
	"github.com/lemolatoon/lemola-os/internal/parsers/efi"
	"github.com/lemolatoon/lemola-os/internal/status"
)

// Writer prints to a firmware text console. Output is best effort: a failed
// OutputString is counted, never returned, because there is nowhere else to
// report it.
type Writer struct {
	out      interfaces.SimpleTextOutputProtocol
	failures int
	lastErr  error
}

// New wraps out. A nil out gives a Writer that discards everything.
func New(out interfaces.SimpleTextOutputProtocol) *Writer {
	return &Writer{out: out}
}

// Write implements io.Writer. Line feeds become CR LF.
func (w *Writer) Write(p []byte) (int, error) {
	if w == nil || w.out == nil || len(p) == 0 {
		return len(p), nil
	}

	text := strings.ReplaceAll(string(p), "\r\n", "\n")
	text = strings.ReplaceAll(text, "\n", "\r\n")
	text = strings.ReplaceAll(text, "\x00", "")

	units, err := efi.EncodeUTF16(text)
	if err != nil {
		w.fail(err)
		return len(p), nil
	}
	if err := status.Check("OutputString", w.out.OutputString(units)); err != nil {
		w.fail(err)
	}
	return len(p), nil
}

// Printf formats according to a format specifier and writes to the console.
func (w *Writer) Printf(format string, args ...any) {
	fmt.Fprintf(w, format, args...)
}

// Println writes its operands followed by a newline.
func (w *Writer) Println(args ...any) {
	fmt.Fprintln(w, args...)
}

// Reset resets the console device.
func (w *Writer) Reset() {
	if w == nil || w.out == nil {
		return
	}
	if err := status.Check("Reset", w.out.Reset(true)); err != nil {
		w.fail(err)
	}
}

// Clear clears the screen.
func (w *Writer) Clear() {
	if w == nil || w.out == nil {
		return
	}
	if err := status.Check("ClearScreen", w.out.ClearScreen()); err != nil {
		w.fail(err)
	}
}

// Failures returns how many console calls failed and the last error.
func (w *Writer) Failures() (int, error) {
	return w.failures, w.lastErr
}

func (w *Writer) fail(err error) {
	w.failures++
	w.lastErr = err
}
