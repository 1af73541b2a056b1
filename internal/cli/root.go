// Package cli is the gatewayd command tree.
package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// Options carries process-level inputs into the command tree.
type Options struct {
	Version string
	Out     io.Writer
	Err     io.Writer
}

// NewRootCmd builds the command tree. Running the root without a
// subcommand serves.
func NewRootCmd(opts Options) *cobra.Command {
	var settingsPath string
	root := &cobra.Command{
		Use:           "gatewayd",
		Short:         "Supervise the nanobot gateway and serve its admin API",
		Version:       opts.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(opts.Out)
	root.SetErr(opts.Err)
	root.PersistentFlags().StringVar(&settingsPath, "config", "", "Settings file (.yaml|.yml|.json|.toml); env GATEWAYD_* and flags override it")

	serve := newServeCmd(&settingsPath, opts)
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())
	root.AddCommand(serve)
	root.AddCommand(newConfigCmd(&settingsPath))
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the gatewayd version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "gatewayd %s\n", opts.Version)
			return err
		},
	})
	return root
}
