package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/tokenshelf/internal/paths"
	"github.com/mesh-intelligence/tokenshelf/pkg/storage"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize tokenshelf storage",
		Long:  "Create the configuration file and data directory, then initialize the storage backend.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.storageConfig()
			if err != nil {
				return sysError("%w", err)
			}
			backend, err := storage.Open(cfg)
			if err != nil {
				return sysError("initialize storage: %w", err)
			}
			if err := backend.Detach(); err != nil {
				return sysError("finalize storage: %w", err)
			}

			out := cmd.OutOrStdout()
			if a.jsonMode {
				return printJSON(out, map[string]string{
					"config":  paths.ConfigFile(a.configDir),
					"backend": cfg.Backend,
					"dataDir": cfg.DataDir,
				})
			}
			fmt.Fprintf(out, "tokenshelf initialized\nconfig:  %s\nbackend: %s\ndata:    %s\n",
				paths.ConfigFile(a.configDir), cfg.Backend, cfg.DataDir)
			return nil
		},
	}
}
