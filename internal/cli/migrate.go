package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/tokenshelf/internal/migrate"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Migrate legacy token customizations",
		Long: `Migrate converts the legacy PlayerTokenCustomizations, CustomTokenImageMap,
MyTokens and MyTokensFolders keys into token customizations. A completed
migration is not repeated; a failed one is rolled back.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			opts := []migrate.Option{
				migrate.WithLogger(s.logger),
				migrate.WithMetrics(true),
				migrate.WithFetchTimeout(a.settings.Migration.FetchTimeout),
			}
			if src := a.monsterSource(); src != nil {
				opts = append(opts, migrate.WithMonsterSource(src))
			}
			m := migrate.New(s.store, s.storage, opts...)
			runErr := m.Run(ctx)

			out := cmd.OutOrStdout()
			if a.jsonMode {
				result := map[string]any{"state": m.State(), "customizations": s.store.Len()}
				if runErr != nil {
					result["error"] = runErr.Error()
				}
				if err := printJSON(out, result); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(out, "migration %s (%d customizations)\n", m.State(), s.store.Len())
			}
			if runErr != nil {
				return sysError("%w", runErr)
			}
			return nil
		},
	}
}
