// Package fsaccess wraps the firmware file protocol: opening the boot volume,
// opening children by path, reading metadata and reading contents.
//
// Every failure is returned as a typed error carrying the path; nothing here
// retries a failed call except the metadata buffer resize in ReadInfo.
package fsaccess

import (
	"fmt"
	"strings"

	"github.com/lemolatoon/lemola-os/internal/interfaces"
	"github.com/lemolatoon/lemola-os/internal/parsers/efi"
	"github.com/lemolatoon/lemola-os/internal/status"
	"github.com/lemolatoon/lemola-os/internal/types"
)

const (
	// DefaultInfoBufferSize is the first buffer ReadInfo offers GetInfo. It
	// fits EFI_FILE_INFO for names up to 88 characters.
	DefaultInfoBufferSize = 256

	// maxInfoAttempts bounds the GetInfo resize loop.
	maxInfoAttempts = 3
)

// Handle is an open file protocol instance.
type Handle struct {
	fp   interfaces.FileProtocol
	path string
}

// Directory is a handle opened on a directory.
type Directory struct {
	Handle
}

// File is a handle opened on a regular file.
type File struct {
	Handle
}

// OpenRoot opens the root directory of the volume behind fs.
func OpenRoot(fs interfaces.SimpleFileSystemProtocol) (*Directory, error) {
	var root interfaces.FileProtocol
	if err := status.Check("OpenVolume", fs.OpenVolume(&root)); err != nil {
		return nil, fmt.Errorf("failed to open volume root: %w", err)
	}
	if root == nil {
		return nil, status.Wrap(status.ErrDeviceError, fmt.Errorf("volume root handle is nil"))
	}
	return &Directory{Handle{fp: root, path: `\`}}, nil
}

// NormalizePath converts a host style path to the firmware's backslash form.
func NormalizePath(path string) string {
	return strings.ReplaceAll(path, "/", `\`)
}

// Open opens path relative to d.
func (d *Directory) Open(path string, mode types.OpenMode, attrs types.FileAttribute) (*File, error) {
	fp, full, err := d.open(path, mode, attrs)
	if err != nil {
		return nil, err
	}
	return &File{Handle{fp: fp, path: full}}, nil
}

// OpenDir opens a subdirectory of d for reading.
func (d *Directory) OpenDir(path string) (*Directory, error) {
	fp, full, err := d.open(path, types.FileModeRead, types.FileDirectory)
	if err != nil {
		return nil, err
	}
	return &Directory{Handle{fp: fp, path: full}}, nil
}

func (d *Directory) open(path string, mode types.OpenMode, attrs types.FileAttribute) (interfaces.FileProtocol, string, error) {
	path = NormalizePath(path)
	name, err := efi.EncodeUTF16(path)
	if err != nil {
		return nil, path, status.Wrap(status.ErrInvalidParameter, fmt.Errorf("path %q: %w", path, err))
	}

	var child interfaces.FileProtocol
	if err := status.Check("Open", d.fp.Open(&child, name, mode, attrs)); err != nil {
		return nil, path, fmt.Errorf("failed to open %s: %w", path, err)
	}
	if child == nil {
		return nil, path, status.Wrap(status.ErrDeviceError, fmt.Errorf("open %s returned a nil handle", path))
	}
	return child, joinPath(d.path, path), nil
}

func joinPath(parent, child string) string {
	if strings.HasPrefix(child, `\`) {
		return child
	}
	return strings.TrimSuffix(parent, `\`) + `\` + child
}

// Path returns the path the handle was opened with.
func (h *Handle) Path() string {
	return h.path
}

// Close closes the handle.
func (h *Handle) Close() error {
	if err := status.Check("Close", h.fp.Close()); err != nil {
		return fmt.Errorf("failed to close %s: %w", h.path, err)
	}
	return nil
}

// ReadInfo reads the EFI_FILE_INFO record of the handle, starting with a
// DefaultInfoBufferSize buffer.
func (h *Handle) ReadInfo() (*types.FileInfo, error) {
	return h.ReadInfoSized(DefaultInfoBufferSize)
}

// ReadInfoSized is ReadInfo with an explicit first buffer size. When the
// firmware answers BufferTooSmall the call is repeated with exactly the size
// it wrote back. A reported size that does not grow the buffer is fatal.
func (h *Handle) ReadInfoSized(initial int) (*types.FileInfo, error) {
	if initial < 0 {
		return nil, status.Wrap(status.ErrInvalidParameter,
			fmt.Errorf("file info for %s: negative buffer size %d", h.path, initial))
	}
	buf := make([]byte, initial)
	var lastErr error

	for attempt := 0; attempt < maxInfoAttempts; attempt++ {
		size := uint64(len(buf))
		st := h.fp.GetInfo(types.FileInfoID, &size, buf)
		err := status.CheckSized("GetInfo", st, size, uint64(len(buf)))
		if err == nil {
			if size > uint64(len(buf)) {
				return nil, status.Wrap(status.ErrInvalidParameter,
					fmt.Errorf("file info for %s: firmware wrote %d bytes into %d", h.path, size, len(buf)))
			}
			info, err := efi.ParseFileInfo(buf[:size])
			if err != nil {
				return nil, status.Wrap(status.ErrVolumeCorrupted, fmt.Errorf("file info for %s: %w", h.path, err))
			}
			return info, nil
		}

		required, ok := status.RequiredSize(err)
		if !ok {
			return nil, fmt.Errorf("failed to read file info for %s: %w", h.path, err)
		}
		if required <= uint64(len(buf)) {
			return nil, fmt.Errorf("file info for %s: firmware reported %d bytes for a %d byte buffer: %w",
				h.path, required, len(buf), err)
		}
		lastErr = err
		buf = make([]byte, required)
	}

	return nil, fmt.Errorf("file info for %s: gave up after %d attempts: %w", h.path, maxInfoAttempts, lastErr)
}

// Read issues a single firmware Read into dest and returns the number of
// bytes the firmware delivered, which may be fewer than len(dest). Zero bytes
// with a nil error means end of file.
func (f *File) Read(dest []byte) (int, error) {
	n := uint64(len(dest))
	if err := status.Check("Read", f.fp.Read(&n, dest)); err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", f.path, err)
	}
	if n > uint64(len(dest)) {
		return 0, status.Wrap(status.ErrInvalidParameter,
			fmt.Errorf("read %s: firmware reported %d bytes for a %d byte buffer", f.path, n, len(dest)))
	}
	return int(n), nil
}

// SetPosition moves the read position.
func (f *File) SetPosition(pos uint64) error {
	if err := status.Check("SetPosition", f.fp.SetPosition(pos)); err != nil {
		return fmt.Errorf("failed to seek %s to %d: %w", f.path, pos, err)
	}
	return nil
}

// Position returns the read position.
func (f *File) Position() (uint64, error) {
	var pos uint64
	if err := status.Check("GetPosition", f.fp.GetPosition(&pos)); err != nil {
		return 0, fmt.Errorf("failed to get position of %s: %w", f.path, err)
	}
	return pos, nil
}
