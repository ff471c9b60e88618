package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/tokenshelf/pkg/types"
)

func newSetCmd(a *app) *cobra.Command {
	var parentFlag string
	cmd := &cobra.Command{
		Use:   "set <type> <id> <key> [value]",
		Short: "Set or remove one option on a customization",
		Long: `Set creates the customization if needed and stores one option. Values are
coerced: "true"/"false" become booleans, numeric strings become numbers.
Omitting the value removes the option.

Example:
  tokenshelf set monster 17 imageSize 2
  tokenshelf set folder f1 name Goblins --parent myTokensFolder
  tokenshelf set pc 1234 hidden`,
		Args: cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			itemType, err := parseType(args[0])
			if err != nil {
				return err
			}
			parent := parentFlag
			if parent == "" {
				parent = defaultParent(itemType)
			}

			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			c, err := s.store.FindOrCreate(itemType, args[1], parent)
			if err != nil {
				return userError("%w", err)
			}
			if len(args) == 4 {
				c.SetOption(args[2], args[3])
			} else {
				c.SetOption(args[2], nil)
			}
			if err := persist(cmd, s, c); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), s.view(c))
		},
	}
	cmd.Flags().StringVar(&parentFlag, "parent", "", "parent folder id for a new customization")
	return cmd
}

// persist writes c back, mapping validation failures to user errors.
func persist(cmd *cobra.Command, s *session, c *types.Customization) error {
	if err := s.store.PersistOne(cmd.Context(), c); err != nil {
		if errors.Is(err, types.ErrInvalidCustomization) {
			return userError("%w", err)
		}
		return sysError("%w", err)
	}
	return nil
}
