package console

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lemolatoon/lemola-os/internal/parsers/efi"
	"github.com/lemolatoon/lemola-os/internal/status"
	"github.com/lemolatoon/lemola-os/internal/types"
)

type mockTextOutput struct {
	lines   []string
	status  types.Status
	resets  int
	cleared int
}

func (m *mockTextOutput) Reset(bool) types.Status {
	m.resets++
	return m.status
}

func (m *mockTextOutput) OutputString(s []uint16) types.Status {
	if m.status != types.StatusSuccess {
		return m.status
	}
	text, _ := efi.DecodeUTF16(s)
	m.lines = append(m.lines, text)
	return types.StatusSuccess
}

func (m *mockTextOutput) ClearScreen() types.Status {
	m.cleared++
	return m.status
}

func TestWriter(t *testing.T) {
	out := &mockTextOutput{}
	w := New(out)

	w.Println("Hello World from macro")
	w.Printf("loaded %d bytes at %#x\n", 12345, 0x100000)
	n, err := w.Write([]byte("already\r\nterminated\n"))
	require.NoError(t, err)
	assert.Equal(t, len("already\r\nterminated\n"), n)

	assert.Equal(t, []string{
		"Hello World from macro\r\n",
		"loaded 12345 bytes at 0x100000\r\n",
		"already\r\nterminated\r\n",
	}, out.lines)

	w.Reset()
	w.Clear()
	assert.Equal(t, 1, out.resets)
	assert.Equal(t, 1, out.cleared)

	failures, _ := w.Failures()
	assert.Zero(t, failures)
}

func TestWriterBestEffort(t *testing.T) {
	out := &mockTextOutput{status: types.StatusDeviceError}
	w := New(out)

	n, err := w.Write([]byte("lost\n"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	failures, lastErr := w.Failures()
	assert.Equal(t, 1, failures)
	assert.ErrorIs(t, lastErr, status.ErrDeviceError)
}

func TestWriterWithoutConsole(t *testing.T) {
	w := New(nil)
	w.Println("nowhere")
	w.Reset()
	n, err := w.Write([]byte("x"))
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
}
