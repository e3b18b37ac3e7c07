package memory

import (
	"time"

	"github.com/lemolatoon/lemola-os/internal/config"
	"github.com/lemolatoon/lemola-os/internal/memmap"
	"github.com/lemolatoon/lemola-os/internal/types"
	"github.com/lemolatoon/lemola-os/pkg/app"
)

// Validate validates a memory map request
func (r *Request) Validate() error {
	if r.Usable && r.Type != "" {
		return app.NewError(app.ErrCodeInvalidInput, "cannot specify both usable and type", nil)
	}
	if r.Type != "" {
		if _, err := types.ParseMemoryType(r.Type); err != nil {
			return app.NewError(app.ErrCodeInvalidInput, "invalid memory type", err)
		}
	}
	return nil
}

// Handle queries the memory map of a freshly built machine. The query grows
// its buffer as the firmware asks, so it works with any descriptor size.
func Handle(ctx *app.Context, req *Request) (*Response, error) {
	startTime := time.Now()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	cfg, err := config.Load(req.ConfigPath)
	if err != nil {
		return nil, app.NewError(app.ErrCodeConfig, "failed to load configuration", err)
	}

	fw, err := app.NewMachine(cfg, nil, nil)
	if err != nil {
		return nil, err
	}

	initial := cfg.Boot.MemoryMapPages * types.PageSize
	snap, err := memmap.QueryResized(fw, initial)
	if err != nil {
		return nil, app.NewError(app.ErrCodeMachine, "failed to query memory map", err)
	}
	key, err := snap.TakeKey()
	if err != nil {
		return nil, app.NewError(app.ErrCodeMachine, "failed to read map key", err)
	}
	ctx.Log("memory map: %d descriptors at stride %d, key %d", snap.Count(), snap.Stride(), key.Value())

	summary, err := memmap.Summarize(snap.Iter())
	if err != nil {
		return nil, app.NewError(app.ErrCodeMachine, "failed to read memory map", err)
	}

	var seq memmap.Sequence = snap.Iter()
	switch {
	case req.Usable:
		seq = memmap.Filter(seq, memmap.Usable())
	case req.Type != "":
		t, _ := types.ParseMemoryType(req.Type)
		seq = memmap.Filter(seq, memmap.OfType(t))
	}
	descs, err := memmap.Collect(seq)
	if err != nil {
		return nil, app.NewError(app.ErrCodeMachine, "failed to read memory map", err)
	}

	response := &Response{
		MapKey:      key.Value(),
		Stride:      snap.Stride(),
		Version:     snap.Version(),
		Descriptors: snap.Count(),
		TotalPages:  summary.TotalPages,
		UsablePages: summary.UsablePages,
	}
	for _, d := range descs {
		response.Regions = append(response.Regions, Region{
			Type:      d.Type.String(),
			Start:     d.PhysicalStart,
			End:       d.PhysicalEnd() - 1,
			Pages:     d.NumberOfPages,
			Attribute: d.Attribute,
		})
	}
	for _, t := range summary.Types() {
		response.Totals = append(response.Totals, TypeTotal{Type: t.String(), Pages: summary.PagesByType[t]})
	}
	response.QueryTime = time.Since(startTime)

	return response, nil
}
