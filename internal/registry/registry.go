// Package registry resolves firmware protocol interfaces by capability GUID.
package registry

import (
	"fmt"

	"github.com/lemolatoon/lemola-os/internal/interfaces"
	"github.com/lemolatoon/lemola-os/internal/status"
	"github.com/lemolatoon/lemola-os/internal/types"
)

// Registry asks the firmware for the first installed interface of a
// capability. It keeps no cache: every lookup is a LocateProtocol call.
type Registry struct {
	bs interfaces.BootServices
}

// New creates a registry over the boot services table.
func New(bs interfaces.BootServices) *Registry {
	return &Registry{bs: bs}
}

// Locate returns the interface installed for c. A missing provider, or a
// successful call that produced no interface, is ErrCapabilityNotFound.
func (r *Registry) Locate(c types.Capability) (any, error) {
	var iface any
	st := r.bs.LocateProtocol(c, &iface)
	if st == types.StatusNotFound {
		return nil, status.Wrap(status.ErrCapabilityNotFound, fmt.Errorf("no provider for %s (%s)", c.Name(), c.UUID))
	}
	if err := status.Check("LocateProtocol", st); err != nil {
		return nil, fmt.Errorf("failed to locate %s: %w", c.Name(), err)
	}
	if iface == nil {
		return nil, status.Wrap(status.ErrCapabilityNotFound, fmt.Errorf("%s: firmware returned no interface", c.Name()))
	}
	return iface, nil
}

// Locate resolves c and asserts the interface to T.
func Locate[T any](r *Registry, c types.Capability) (T, error) {
	var zero T
	iface, err := r.Locate(c)
	if err != nil {
		return zero, err
	}
	typed, ok := iface.(T)
	if !ok {
		return zero, status.Wrap(status.ErrUnsupported, fmt.Errorf("%s: interface has type %T", c.Name(), iface))
	}
	return typed, nil
}

// FileSystem resolves the simple filesystem protocol of the boot volume.
func (r *Registry) FileSystem() (interfaces.SimpleFileSystemProtocol, error) {
	return Locate[interfaces.SimpleFileSystemProtocol](r, types.SimpleFileSystemProtocolGUID)
}

// Graphics resolves the graphics output protocol.
func (r *Registry) Graphics() (interfaces.GraphicsOutputProtocol, error) {
	return Locate[interfaces.GraphicsOutputProtocol](r, types.GraphicsOutputProtocolGUID)
}

// TextOutput resolves a text console.
func (r *Registry) TextOutput() (interfaces.SimpleTextOutputProtocol, error) {
	return Locate[interfaces.SimpleTextOutputProtocol](r, types.SimpleTextOutputProtocolGUID)
}
