package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDeleteCmd(a *app) *cobra.Command {
	var children bool
	cmd := &cobra.Command{
		Use:   "delete <type> <id>",
		Short: "Remove a customization",
		Long: `Delete removes one customization. With --children the direct children of
the id are removed first.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			itemType, err := parseType(args[0])
			if err != nil {
				return err
			}
			id := args[1]

			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			if _, ok := s.store.Find(itemType, id); !ok {
				return userError("%s %q not found", itemType, id)
			}
			if children {
				if err := s.store.DeleteByParent(cmd.Context(), id); err != nil {
					return sysError("%w", err)
				}
			}
			if err := s.store.DeleteByTypeAndID(cmd.Context(), itemType, id); err != nil {
				return sysError("%w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s/%s\n", itemType, id)
			return nil
		},
	}
	cmd.Flags().BoolVar(&children, "children", false, "also remove direct children")
	return cmd
}
