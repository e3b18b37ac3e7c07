package app

import (
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/spf13/afero"

	"github.com/lemolatoon/lemola-os/internal/config"
	"github.com/lemolatoon/lemola-os/internal/loader"
	"github.com/lemolatoon/lemola-os/internal/simfw"
)

// StubKernelSize is the size of the generated kernel image.
const StubKernelSize = 3 * 4096

// hostFs is the host filesystem kernel files and volumes are read from.
var hostFs = afero.NewOsFs()

// BuildVolume assembles the boot volume: the host directory (read-only) when
// cfg names one, with the kernel file or a stub image overlaid in memory at
// the firmware kernel path.
func BuildVolume(cfg *config.Config, src KernelSource) (afero.Fs, error) {
	var base afero.Fs = afero.NewMemMapFs()
	if src.VolumePath != "" {
		info, err := hostFs.Stat(src.VolumePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open volume %s: %w", src.VolumePath, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("volume %s is not a directory", src.VolumePath)
		}
		base = afero.NewReadOnlyFs(afero.NewBasePathFs(hostFs, src.VolumePath))
	}
	volume := afero.NewCopyOnWriteFs(base, afero.NewMemMapFs())

	target := VolumePath(cfg.Boot.KernelPath)
	var image []byte
	switch {
	case src.KernelFile != "":
		data, err := afero.ReadFile(hostFs, src.KernelFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read kernel %s: %w", src.KernelFile, err)
		}
		image = data
	case src.Stub || src.VolumePath == "":
		image = loader.StubImage(cfg.Boot.Loader, StubKernelSize)
	}

	if image != nil {
		if err := volume.MkdirAll(path.Dir(target), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", path.Dir(target), err)
		}
		if err := afero.WriteFile(volume, target, image, 0o444); err != nil {
			return nil, fmt.Errorf("failed to place kernel at %s: %w", target, err)
		}
	}
	return volume, nil
}

// VolumePath converts a firmware path to the slash form used on the volume.
func VolumePath(p string) string {
	return path.Clean("/" + strings.ReplaceAll(p, `\`, "/"))
}

// NewMachine builds the simulated firmware for cfg with the given volume.
// Console output is echoed to echo when it is not nil.
func NewMachine(cfg *config.Config, volume afero.Fs, echo io.Writer) (*simfw.Firmware, error) {
	machine := cfg.Machine
	machine.Volume = volume
	machine.Echo = echo

	fw, err := simfw.New(machine)
	if err != nil {
		return nil, NewError(ErrCodeMachine, "invalid machine configuration", err)
	}
	return fw, nil
}
