package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
)

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return sysError("marshal JSON: %w", err)
	}
	fmt.Fprintln(w, string(out))
	return nil
}

// printViews writes one line per customization, or a JSON array in JSON mode.
func printViews(w io.Writer, jsonMode bool, views []view) error {
	if jsonMode {
		if views == nil {
			views = []view{}
		}
		return printJSON(w, views)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tID\tNAME\tPATH")
	for _, v := range views {
		c := v.Customization
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.Type(), c.ID(), v.Name, v.Path)
	}
	return tw.Flush()
}
