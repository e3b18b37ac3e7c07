package boot

import (
	"strings"

	"github.com/lemolatoon/lemola-os/pkg/app"
)

// maxStaleKeys bounds fault injection so a request cannot spin forever.
const maxStaleKeys = 64

// Validate validates a boot request
func (r *Request) Validate() error {
	if err := r.Source.Validate(); err != nil {
		return app.NewError(app.ErrCodeInvalidInput, "invalid kernel source", err)
	}

	if r.KernelPath != "" && !strings.HasPrefix(r.KernelPath, `\`) && !strings.HasPrefix(r.KernelPath, "/") {
		return app.NewError(app.ErrCodeInvalidInput, "kernel path must be absolute on the boot volume", nil)
	}

	if r.ReadChunk < 0 {
		return app.NewError(app.ErrCodeInvalidInput, "read chunk must not be negative", nil)
	}

	if r.StaleKeys < 0 || r.StaleKeys > maxStaleKeys {
		return app.NewError(app.ErrCodeInvalidInput, "stale keys must be between 0 and 64", nil)
	}

	return nil
}
