package simfw

import (
	"errors"
	"io"
	"os"
	"path"
	"strings"

	"github.com/spf13/afero"

	"github.com/lemolatoon/lemola-os/internal/interfaces"
	"github.com/lemolatoon/lemola-os/internal/parsers/efi"
	"github.com/lemolatoon/lemola-os/internal/types"
)

// volume is EFI_SIMPLE_FILE_SYSTEM_PROTOCOL over an afero filesystem.
type volume struct {
	fw *Firmware
	fs afero.Fs
}

var _ interfaces.SimpleFileSystemProtocol = (*volume)(nil)

func (v *volume) OpenVolume(root *interfaces.FileProtocol) types.Status {
	v.fw.mu.Lock()
	defer v.fw.mu.Unlock()

	if v.fw.exited {
		return v.fw.record("OpenVolume", types.StatusUnsupported, 0)
	}
	*root = &file{fw: v.fw, fs: v.fs, path: "/", dir: true}
	return v.fw.record("OpenVolume", types.StatusSuccess, 0)
}

// file is an open EFI_FILE_PROTOCOL instance. The volume is read-only.
type file struct {
	fw   *Firmware
	fs   afero.Fs
	path string
	dir  bool
	pos  uint64
	f    afero.File
}

var _ interfaces.FileProtocol = (*file)(nil)

// hostPath resolves a firmware path relative to the handle.
func (h *file) hostPath(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	if strings.HasPrefix(name, "/") {
		return path.Clean(name)
	}
	return path.Clean(path.Join(h.path, name))
}

func (h *file) Open(newHandle *interfaces.FileProtocol, fileName []uint16, openMode types.OpenMode, _ types.FileAttribute) types.Status {
	h.fw.mu.Lock()
	defer h.fw.mu.Unlock()
	record := func(st types.Status) types.Status { return h.fw.record("Open", st, 0) }

	if h.fw.exited {
		return record(types.StatusUnsupported)
	}
	if newHandle == nil || !h.dir {
		return record(types.StatusInvalidParameter)
	}
	name, err := efi.DecodeUTF16(fileName)
	if err != nil {
		return record(types.StatusInvalidParameter)
	}
	if openMode&(types.FileModeWrite|types.FileModeCreate) != 0 {
		return record(types.StatusWriteProtected)
	}

	p := h.hostPath(name)
	if st, ok := h.fw.config.OpenFaults[p]; ok {
		return record(st)
	}

	info, err := h.fs.Stat(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return record(types.StatusNotFound)
		}
		return record(types.StatusDeviceError)
	}

	child := &file{fw: h.fw, fs: h.fs, path: p, dir: info.IsDir()}
	if !child.dir {
		child.f, err = h.fs.Open(p)
		if err != nil {
			return record(types.StatusDeviceError)
		}
	}
	*newHandle = child
	return record(types.StatusSuccess)
}

func (h *file) Close() types.Status {
	h.fw.mu.Lock()
	defer h.fw.mu.Unlock()

	if h.f != nil {
		_ = h.f.Close()
		h.f = nil
	}
	return h.fw.record("Close", types.StatusSuccess, 0)
}

func (h *file) Read(bufferSize *uint64, buffer []byte) types.Status {
	h.fw.mu.Lock()
	defer h.fw.mu.Unlock()
	record := func(st types.Status) types.Status { return h.fw.record("Read", st, 0) }

	if h.fw.exited {
		return record(types.StatusUnsupported)
	}
	if bufferSize == nil || *bufferSize > uint64(len(buffer)) {
		return record(types.StatusInvalidParameter)
	}
	if h.dir {
		*bufferSize = 0
		return record(types.StatusUnsupported)
	}
	if h.f == nil {
		return record(types.StatusInvalidParameter)
	}

	want := *bufferSize
	if chunk := uint64(h.fw.config.ReadChunk); chunk > 0 && want > chunk {
		want = chunk
	}
	n, err := h.f.ReadAt(buffer[:want], int64(h.pos))
	if err != nil && !errors.Is(err, io.EOF) {
		*bufferSize = 0
		return record(types.StatusDeviceError)
	}
	h.pos += uint64(n)
	*bufferSize = uint64(n)
	return record(types.StatusSuccess)
}

func (h *file) GetPosition(position *uint64) types.Status {
	h.fw.mu.Lock()
	defer h.fw.mu.Unlock()

	if h.fw.exited {
		return h.fw.record("GetPosition", types.StatusUnsupported, 0)
	}
	if h.dir {
		return h.fw.record("GetPosition", types.StatusUnsupported, 0)
	}
	*position = h.pos
	return h.fw.record("GetPosition", types.StatusSuccess, 0)
}

// SetPosition moves the position. ^0 seeks to the end of the file.
func (h *file) SetPosition(position uint64) types.Status {
	h.fw.mu.Lock()
	defer h.fw.mu.Unlock()

	if h.fw.exited {
		return h.fw.record("SetPosition", types.StatusUnsupported, 0)
	}
	if h.dir {
		if position != 0 {
			return h.fw.record("SetPosition", types.StatusUnsupported, 0)
		}
		return h.fw.record("SetPosition", types.StatusSuccess, 0)
	}
	if position == ^uint64(0) {
		info, err := h.fs.Stat(h.path)
		if err != nil {
			return h.fw.record("SetPosition", types.StatusDeviceError, 0)
		}
		position = uint64(info.Size())
	}
	h.pos = position
	return h.fw.record("SetPosition", types.StatusSuccess, 0)
}

func (h *file) GetInfo(infoType types.Capability, bufferSize *uint64, buffer []byte) types.Status {
	h.fw.mu.Lock()
	defer h.fw.mu.Unlock()
	record := func(st types.Status) types.Status { return h.fw.record("GetInfo", st, 0) }

	if h.fw.exited {
		return record(types.StatusUnsupported)
	}
	if infoType != types.FileInfoID {
		return record(types.StatusUnsupported)
	}
	if bufferSize == nil {
		return record(types.StatusInvalidParameter)
	}

	info, err := h.fs.Stat(h.path)
	if err != nil {
		return record(types.StatusDeviceError)
	}

	attr := types.FileReadOnly
	size := uint64(0)
	name := ""
	if h.path != "/" {
		name = path.Base(h.path)
	}
	if info.IsDir() {
		attr |= types.FileDirectory
	} else {
		attr |= types.FileArchive
		size = uint64(info.Size())
	}

	mod := types.NewTime(info.ModTime())
	rec, err := efi.EncodeFileInfo(types.FileInfo{
		FileSize:         size,
		PhysicalSize:     types.PagesFor(size) * types.PageSize,
		CreateTime:       mod,
		LastAccessTime:   mod,
		ModificationTime: mod,
		Attribute:        attr,
		FileName:         name,
	})
	if err != nil {
		return record(types.StatusDeviceError)
	}

	if *bufferSize < uint64(len(rec)) {
		*bufferSize = uint64(len(rec))
		return record(types.StatusBufferTooSmall)
	}
	*bufferSize = uint64(copy(buffer, rec))
	return record(types.StatusSuccess)
}
