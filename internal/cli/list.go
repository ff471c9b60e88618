package cli

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/tokenshelf/internal/query"
	"github.com/mesh-intelligence/tokenshelf/pkg/types"
)

func newListCmd(a *app) *cobra.Command {
	var (
		typeFlag   string
		parentFlag string
		whereFlag  string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List token customizations",
		Long: `List prints the stored customizations with their resolved names and paths.

--where takes an expression evaluated per customization with the variables
id, tokenType, parentId, name, path, options and images.

Example:
  tokenshelf list --type monster
  tokenshelf list --parent myTokensFolder
  tokenshelf list --where 'tokenType == "pc" && len(images) > 0'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var itemType types.ItemType
			if typeFlag != "" {
				t, err := parseType(typeFlag)
				if err != nil {
					return err
				}
				itemType = t
			}
			var filter *query.Filter
			if whereFlag != "" {
				f, err := query.Compile(whereFlag)
				if err != nil {
					return userError("%w", err)
				}
				filter = f
			}

			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			candidates := s.store.All()
			if cmd.Flags().Changed("parent") {
				candidates = s.store.Children(parentFlag)
			}

			var views []view
			for _, c := range candidates {
				if itemType != "" && c.Type() != itemType {
					continue
				}
				v := s.view(c)
				if filter != nil {
					ok, err := filter.Match(query.Env(c, v.Name, v.Path))
					if err != nil {
						return userError("%w", err)
					}
					if !ok {
						continue
					}
				}
				views = append(views, v)
			}
			return printViews(cmd.OutOrStdout(), a.jsonMode, views)
		},
	}
	cmd.Flags().StringVar(&typeFlag, "type", "", "only list this type (folder, myToken, pc, monster)")
	cmd.Flags().StringVar(&parentFlag, "parent", "", "only list direct children of this folder id")
	cmd.Flags().StringVar(&whereFlag, "where", "", "filter expression")
	return cmd
}
