package cli

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/tokenshelf/pkg/types"
)

func newImageCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "image",
		Short: "Manage alternative images of a customization",
	}

	edit := func(use, short string, args cobra.PositionalArgs, apply func(c *types.Customization, args []string) error) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  args,
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

				c, err := s.store.FindOrCreate(itemType, args[1], defaultParent(itemType))
				if err != nil {
					return userError("%w", err)
				}
				if err := apply(c, args[2:]); err != nil {
					return err
				}
				if err := persist(cmd, s, c); err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), c.AlternativeImages())
			},
		}
	}

	cmd.AddCommand(
		edit("add <type> <id> <url>", "Add an alternative image", cobra.ExactArgs(3),
			func(c *types.Customization, args []string) error {
				if !c.AddAlternativeImage(args[0]) {
					return userError("inline data: images are not stored")
				}
				return nil
			}),
		edit("remove <type> <id> <url>", "Remove an alternative image", cobra.ExactArgs(3),
			func(c *types.Customization, args []string) error {
				c.RemoveAlternativeImage(args[0])
				return nil
			}),
		edit("clear <type> <id>", "Remove every alternative image", cobra.ExactArgs(2),
			func(c *types.Customization, args []string) error {
				c.RemoveAllAlternativeImages()
				return nil
			}),
	)
	return cmd
}
