package memory

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/lemolatoon/lemola-os/internal/types"
)

// FormatOutput writes a memory map response in the requested format.
func FormatOutput(w io.Writer, response *Response, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(response)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return encoder.Close()
	case "table":
		return formatTable(w, response)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func formatTable(out io.Writer, response *Response) error {
	if len(response.Regions) == 0 {
		fmt.Fprintln(out, "No regions match.")
	} else {
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "TYPE\tSTART\tEND\tPAGES\tATTRIBUTE\n")
		fmt.Fprintf(w, "----\t-----\t---\t-----\t---------\n")
		for _, r := range response.Regions {
			fmt.Fprintf(w, "%s\t0x%08x\t0x%08x\t%d\t%#x\n", r.Type, r.Start, r.End, r.Pages, r.Attribute)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	fmt.Fprintf(out, "\n%d descriptors, %d byte stride, version %d, map key %d\n",
		response.Descriptors, response.Stride, response.Version, response.MapKey)
	fmt.Fprintf(out, "Usable after exit: %d of %d pages (%d MiB of %d MiB)\n",
		response.UsablePages, response.TotalPages,
		response.UsablePages*types.PageSize>>20, response.TotalPages*types.PageSize>>20)
	return nil
}
