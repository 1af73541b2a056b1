package cli

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"gatewayd/internal/common/fsutil"
	"gatewayd/internal/config"
	"gatewayd/internal/control"
	"gatewayd/internal/gwconfig"
)

func newConfigCmd(settingsPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and check gateway config documents",
	}
	cmd.AddCommand(newConfigValidateCmd(), newConfigShowCmd(settingsPath))
	return cmd
}

func newConfigValidateCmd() *cobra.Command {
	var lenient bool
	cmd := &cobra.Command{
		Use:     "validate FILE",
		Short:   "Validate a gateway config document (.json, .yaml, .toml)",
		Example: "  gatewayd config validate ~/.nanobot/config.json\n  gatewayd config validate draft.yaml --lenient",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			_, err = gwconfig.Parse(b, gwconfig.FormatForPath(args[0]), gwconfig.Options{AllowUnknown: lenient})
			if ve, ok := gwconfig.AsValidation(err); ok {
				for _, fe := range ve {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", fe.Path, fe.Reason)
				}
				return fmt.Errorf("%s: %d problem(s)", args[0], len(ve))
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&lenient, "lenient", false, "Accept unknown keys")
	return cmd
}

func newConfigShowCmd(settingsPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the stored gateway config with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := config.Load(*settingsPath, nil)
			if err != nil {
				return err
			}
			cfg := gwconfig.Default()
			if fsutil.PathExists(s.GatewayConfig) {
				b, err := os.ReadFile(s.GatewayConfig)
				if err != nil {
					return err
				}
				if cfg, err = gwconfig.Parse(b, gwconfig.FormatForPath(s.GatewayConfig), gwconfig.Options{AllowUnknown: true}); err != nil {
					return fmt.Errorf("%s: %w", s.GatewayConfig, err)
				}
			}
			out, err := json.MarshalIndent(control.ConfigView(cfg), "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}
}
