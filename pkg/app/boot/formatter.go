package boot

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/lemolatoon/lemola-os/internal/types"
)

// FormatOutput writes a boot response in the requested format.
func FormatOutput(w io.Writer, response *Response, format string) error {
	switch format {
	case "json":
		return formatJSON(w, response)
	case "yaml":
		return formatYAML(w, response)
	case "table":
		return formatTable(w, response)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func formatTable(out io.Writer, response *Response) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "Attempt:\t%s\n", response.AttemptID)
	fmt.Fprintf(w, "Source:\t%s\n", response.Source)
	fmt.Fprintf(w, "Outcome:\t%s (%s)\n", response.Outcome, response.FinalState)
	if len(response.Protocols) > 0 {
		fmt.Fprintf(w, "Protocols:\t%s\n", strings.Join(response.Protocols, ", "))
	}
	if img := response.Image; img != nil {
		fmt.Fprintf(w, "Kernel:\t%s, %s at %#x (%d pages), entry %#x\n",
			response.KernelPath, FormatBytes(img.Size), img.Base, img.Pages, img.Entry)
		fmt.Fprintf(w, "Surrender attempts:\t%d\n", response.Attempts)
	}
	if e := response.Error; e != nil {
		fmt.Fprintf(w, "Error:\t[%s] %s\n", e.Code, e.Message)
	}
	fmt.Fprintf(w, "Duration:\t%v\n", response.Duration)
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nTransitions:\n")
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "FROM\tTO\tATTEMPT\tERROR\n")
	fmt.Fprintf(w, "----\t--\t-------\t-----\n")
	for _, t := range response.Transitions {
		attempt := "-"
		if t.Attempt > 0 {
			attempt = fmt.Sprint(t.Attempt)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.From, t.To, attempt, t.Error)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if m := response.MemoryMap; m != nil {
		fmt.Fprintf(out, "\nMemory map handed to the kernel (%d descriptors, %d byte stride):\n", m.Descriptors, m.Stride)
		if err := writeRegions(out, m.Regions); err != nil {
			return err
		}
		fmt.Fprintf(out, "Usable: %s of %s\n",
			FormatBytes(m.UsablePages*types.PageSize), FormatBytes(m.TotalPages*types.PageSize))
	}

	if len(response.Calls) > 0 {
		services := make([]string, 0, len(response.Calls))
		for s := range response.Calls {
			services = append(services, s)
		}
		sort.Strings(services)
		parts := make([]string, len(services))
		for i, s := range services {
			parts[i] = fmt.Sprintf("%s=%d", s, response.Calls[s])
		}
		fmt.Fprintf(out, "\nFirmware calls: %s\n", strings.Join(parts, " "))
	}

	if len(response.Console) > 0 {
		fmt.Fprintf(out, "\nConsole:\n")
		for _, line := range strings.Split(strings.TrimRight(strings.Join(response.Console, ""), "\r\n"), "\r\n") {
			fmt.Fprintf(out, "  %s\n", line)
		}
	}

	return nil
}

// writeRegions prints memory regions as a table.
func writeRegions(out io.Writer, regions []RegionInfo) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "TYPE\tSTART\tEND\tPAGES\n")
	fmt.Fprintf(w, "----\t-----\t---\t-----\n")
	for _, r := range regions {
		end := r.Start + r.Pages*types.PageSize - 1
		fmt.Fprintf(w, "%s\t0x%08x\t0x%08x\t%d\n", r.Type, r.Start, end, r.Pages)
	}
	return w.Flush()
}

func formatJSON(w io.Writer, response *Response) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

func formatYAML(w io.Writer, response *Response) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(response); err != nil {
		return err
	}
	return encoder.Close()
}
