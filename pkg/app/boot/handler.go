package boot

import (
	"errors"
	"io"
	"time"

	"github.com/rs/xid"

	"github.com/lemolatoon/lemola-os/internal/config"
	"github.com/lemolatoon/lemola-os/internal/memmap"
	"github.com/lemolatoon/lemola-os/internal/simfw"
	"github.com/lemolatoon/lemola-os/internal/status"
	"github.com/lemolatoon/lemola-os/internal/transition"
	"github.com/lemolatoon/lemola-os/pkg/app"
)

// Handle runs one simulated boot. A boot that aborts is reported in the
// Response, not as an error; errors are reserved for requests that could
// not be set up.
func Handle(ctx *app.Context, req *Request) (*Response, error) {
	startTime := time.Now()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, app.NewError(app.ErrCodeTimeout, "boot cancelled", err)
	}

	cfg, err := config.Load(req.ConfigPath)
	if err != nil {
		return nil, app.NewError(app.ErrCodeConfig, "failed to load configuration", err)
	}
	src := applyOverrides(cfg, req)

	id := xid.New()
	ctx.Log("boot %s: %s", id, src.String())
	ctx.Progress("Building machine...", 10)

	volume, err := app.BuildVolume(cfg, src)
	if err != nil {
		return nil, app.NewError(app.ErrCodeInvalidInput, "failed to prepare boot volume", err)
	}

	var echo io.Writer
	if req.Echo {
		echo = ctx.Stderr
	}
	fw, err := app.NewMachine(cfg, volume, echo)
	if err != nil {
		return nil, err
	}
	injectStaleKeys(fw, req.StaleKeys)

	ctx.Progress("Booting...", 30)
	ctrl := transition.New(fw, fw, nil, cfg.Boot)
	halted := fw.Run(ctrl.Boot)

	response := buildResponse(ctrl, fw)
	response.AttemptID = id.String()
	response.Source = src.String()
	response.KernelPath = cfg.Boot.KernelPath
	response.Halted = halted
	response.Duration = time.Since(startTime)

	ctx.Progress("Complete", 100)
	ctx.Log("boot %s: %s at %s after %v", id, response.Outcome, response.FinalState, response.Duration)

	return response, nil
}

// applyOverrides folds request settings into cfg and returns the kernel
// source to use.
func applyOverrides(cfg *config.Config, req *Request) app.KernelSource {
	if req.KernelPath != "" {
		cfg.Boot.KernelPath = req.KernelPath
	}
	if req.ShowMemoryMap {
		cfg.Boot.ShowMemoryMap = true
	}
	if req.NoDisplay {
		cfg.Boot.Display = false
	}
	if req.ReadChunk > 0 {
		cfg.Machine.ReadChunk = req.ReadChunk
	}

	src := req.Source
	if src.KernelFile == "" && !src.Stub {
		src.KernelFile = cfg.KernelFile
	}
	if src.VolumePath == "" {
		src.VolumePath = cfg.VolumePath
	}
	return src
}

// injectStaleKeys makes the firmware change its map right after each of the
// first n successful GetMemoryMap calls.
func injectStaleKeys(fw *simfw.Firmware, n int) {
	if n == 0 {
		return
	}
	remaining := n
	fw.AfterGetMemoryMap = func(f *simfw.Firmware) {
		if remaining > 0 {
			remaining--
			f.Touch()
		}
	}
}

func buildResponse(ctrl *transition.Controller, fw *simfw.Firmware) *Response {
	response := &Response{
		FinalState: ctrl.State().String(),
		Console:    fw.Output(),
		Calls:      make(map[string]int),
	}

	for _, call := range fw.Trace() {
		response.Calls[call.Service]++
	}
	for _, c := range fw.Protocols() {
		response.Protocols = append(response.Protocols, c.Name())
	}

	for _, t := range ctrl.History() {
		info := TransitionInfo{From: t.From.String(), To: t.To.String(), Attempt: t.Attempt}
		if t.Err != nil {
			info.Error = t.Err.Error()
		}
		response.Transitions = append(response.Transitions, info)
	}

	if h := ctrl.Handoff(); h != nil {
		response.Attempts = h.Attempts
		response.Image = &ImageInfo{
			Base:  h.Image.Allocation.Base,
			Pages: h.Image.Allocation.Pages,
			Size:  h.Image.Size,
			Entry: h.Image.Entry,
		}
		response.MemoryMap = describeMap(h.MemoryMap)
	}

	if ctrl.State() == transition.ControlTransferred {
		response.Outcome = OutcomeTransferred
	} else {
		response.Outcome = OutcomeAborted
	}

	if err := ctrl.Err(); err != nil {
		info := &ErrorInfo{
			Code:    app.CodeFor(err),
			Kind:    status.Kind(err).Error(),
			Message: err.Error(),
		}
		var aborted *transition.AbortError
		if errors.As(err, &aborted) {
			info.State = aborted.State.String()
		}
		response.Error = info
	}

	return response
}

func describeMap(snap *memmap.Snapshot) *MemoryMapInfo {
	info := &MemoryMapInfo{
		Descriptors: snap.Count(),
		Stride:      snap.Stride(),
	}
	if summary, err := memmap.Summarize(snap.Iter()); err == nil {
		info.TotalPages = summary.TotalPages
		info.UsablePages = summary.UsablePages
	}
	if descs, err := snap.Descriptors(); err == nil {
		for _, d := range descs {
			info.Regions = append(info.Regions, RegionInfo{
				Type:  d.Type.String(),
				Start: d.PhysicalStart,
				Pages: d.NumberOfPages,
			})
		}
	}
	return info
}
