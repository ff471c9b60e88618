package cli

import (
	"github.com/spf13/cobra"
)

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <type> <id>",
		Short: "Show one customization",
		Long: `Get prints a customization with its resolved name and full path.

Example:
  tokenshelf get monster 17
  tokenshelf get pc 1234`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			itemType, err := parseType(args[0])
			if err != nil {
				return err
			}
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			c, ok := s.store.Find(itemType, args[1])
			if !ok {
				return userError("%s %q not found", itemType, args[1])
			}
			return printJSON(cmd.OutOrStdout(), s.view(c))
		},
	}
}
