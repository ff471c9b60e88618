// Package cli implements the tokenshelf command-line interface.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// exitError carries the process exit code for a failed command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func userError(format string, args ...any) error {
	return &exitError{code: exitUserError, err: fmt.Errorf(format, args...)}
}

func sysError(format string, args ...any) error {
	return &exitError{code: exitSysError, err: fmt.Errorf(format, args...)}
}

// ExitCode maps an error returned by the root command to a process exit code.
// Errors not raised by a command (flag parsing, unknown commands) are user
// errors.
func ExitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitUserError
}

// app holds global flag values and the loaded configuration for one
// command invocation.
type app struct {
	configDir string
	dataDir   string
	jsonMode  bool

	settings settings
	logger   *zap.Logger
}

// NewRootCmd creates the top-level "tokenshelf" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "tokenshelf",
		Short: "Token customization storage for virtual tabletops",
		Long: "tokenshelf keeps per-player, per-monster and custom token overrides\n" +
			"organized in folders, and migrates them from legacy storage keys.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}

	root.PersistentFlags().StringVar(&a.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&a.dataDir, "data-dir", "", "data directory (default: platform data dir)")
	root.PersistentFlags().BoolVar(&a.jsonMode, "json", false, "output as JSON")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(a),
		newMigrateCmd(a),
		newFoldersCmd(a),
		newListCmd(a),
		newGetCmd(a),
		newSetCmd(a),
		newImageCmd(a),
		newDeleteCmd(a),
		newServeCmd(a),
	)
	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	err := root.Execute()
	if err != nil {
		printError(os.Stderr, err)
	}
	os.Exit(ExitCode(err))
}

func printError(w io.Writer, err error) {
	fmt.Fprintln(w, "tokenshelf:", err)
}
