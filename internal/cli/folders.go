package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/tokenshelf/pkg/types"
)

func newFoldersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "folders",
		Short: "List the fixed root folders",
		Args:  cobra.NoArgs,
		// The catalog is static; no configuration is needed.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			roots := types.AllRootFolders()
			if a.jsonMode {
				return printJSON(out, roots)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tPATH\tHTML ID")
			for _, r := range roots {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, r.Name, r.Path, types.HTMLID(r.Path))
			}
			return tw.Flush()
		},
	}
}
