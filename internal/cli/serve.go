package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"gatewayd/internal/auth"
	"gatewayd/internal/config"
	"gatewayd/internal/control"
	"gatewayd/internal/gwconfig"
	"gatewayd/internal/httpapi"
	"gatewayd/internal/manager"
	"gatewayd/internal/services"
)

// flagKeys maps serve flags to settings keys.
var flagKeys = map[string]string{
	"addr":           "addr",
	"data-dir":       "data_dir",
	"gateway-config": "gateway_config",
	"gateway-bin":    "gateway.bin",
	"gateway-arg":    "gateway.args",
	"autostart":      "gateway.autostart",
	"lenient":        "gateway.lenient",
	"log-level":      "log.level",
	"log-format":     "log.format",
	"swagger":        "http.swagger",
}

func newServeCmd(settingsPath *string, opts Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the admin API and supervise the gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := config.Load(*settingsPath, flagOverrides(cmd.Flags()))
			if err != nil {
				return err
			}
			return Serve(cmd.Context(), s, opts)
		},
	}
	f := cmd.Flags()
	f.String("addr", "", "HTTP listen address, e.g. :8080 (env GATEWAYD_ADDR or PORT)")
	f.String("data-dir", "", "Working directory of the gateway and home of its config")
	f.String("gateway-config", "", "Gateway config file (default <data-dir>/config.json)")
	f.String("gateway-bin", "", "Gateway executable (default nanobot)")
	f.StringArray("gateway-arg", nil, "Gateway argument; repeat for several (default: gateway)")
	f.Bool("autostart", true, "Start the gateway when gatewayd starts")
	f.Bool("lenient", false, "Accept unknown keys in gateway config documents")
	f.String("log-level", "", "Log level: trace|debug|info|warn|error")
	f.String("log-format", "", "Log format: json|console")
	f.Bool("swagger", false, "Serve the Swagger UI under /swagger/")
	return cmd
}

// flagOverrides returns settings overrides for the flags the user set.
func flagOverrides(fs *pflag.FlagSet) map[string]any {
	out := map[string]any{}
	fs.Visit(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return
		}
		switch f.Value.Type() {
		case "stringArray":
			v, _ := fs.GetStringArray(f.Name)
			out[key] = v
		case "bool":
			v, _ := fs.GetBool(f.Name)
			out[key] = v
		default:
			out[key] = f.Value.String()
		}
	})
	return out
}

// Serve wires the supervisor, config store, control service and HTTP API
// and runs them until ctx is canceled.
func Serve(ctx context.Context, s config.Settings, opts Options) error {
	log := NewLogger(opts.Err, s.Log.Level, s.Log.Format)

	if err := os.MkdirAll(s.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	store, src, err := gwconfig.Open(s.GatewayConfig, s.SeedConfig, log)
	if err != nil {
		return err
	}

	password, generated := s.Admin.Password, ""
	if password == "" {
		if password, err = auth.GeneratePassword(0); err != nil {
			return err
		}
		generated = password
	}
	creds, err := auth.NewCredentials(s.Admin.Username, password, s.Admin.BcryptCost)
	if err != nil {
		return err
	}
	gate := auth.NewGate(creds)

	bus := manager.NewBroadcaster(0)
	mgr := manager.NewWithConfig(manager.ManagerConfig{
		Bin:               s.Gateway.Bin,
		Args:              s.Gateway.Args,
		Dir:               s.DataDir,
		PassthroughPrefix: s.Gateway.EnvPrefix,
		Source:            store,
		GracePeriod:       s.Gateway.GracePeriod,
		KillTimeout:       s.Gateway.KillTimeout,
		StartupTimeout:    s.Gateway.StartupTimeout,
		StartupGrace:      s.Gateway.StartupGrace,
		ProbeResolver: func() string {
			return s.ProbeAddress(store.Snapshot().Gateway.Port)
		},
		LogCapacity:  s.Gateway.LogLines,
		MaxLineBytes: s.Gateway.MaxLineBytes,
		Logger:       log,
		Publisher:    bus,
	})
	svc := control.New(store, mgr, bus, gwconfig.Options{AllowUnknown: s.Gateway.Lenient}, log)

	httpapi.SetLogger(log.With().Str("component", "http").Logger())
	httpapi.SetRequestLogLevel(s.Log.Requests)
	httpapi.SetMaxBodyBytes(s.HTTP.MaxBodyBytes)
	httpapi.SetCORSOptions(s.HTTP.CORSEnabled, s.HTTP.CORSOrigins, s.HTTP.CORSMethods, s.HTTP.CORSHeaders)
	httpapi.SetRateLimit(s.HTTP.RateLimit, s.HTTP.RateWindow)
	httpapi.SetSwaggerEnabled(s.HTTP.Swagger)
	httpapi.SetBaseContext(ctx)

	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           httpapi.NewMux(svc, gate),
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopBudget := s.Gateway.GracePeriod + s.Gateway.KillTimeout + time.Second
	shutdown := s.HTTP.ShutdownTimeout
	if shutdown <= stopBudget {
		shutdown = stopBudget + 5*time.Second
	}
	tree := services.NewTree(log, services.TreeConfig{ShutdownTimeout: shutdown})
	tree.AddGatewayService(services.NewGatewayService(mgr, s.Gateway.Autostart, stopBudget, log))
	tree.AddAPIService(services.NewHTTPServerService(srv, s.Addr, s.HTTP.ShutdownTimeout, log))

	printBanner(opts.Out, bannerInfo{
		Version:           opts.Version,
		Addr:              s.Addr,
		GatewayConfig:     store.Path(),
		ConfigSource:      string(src),
		Command:           strings.TrimSpace(s.Gateway.Bin + " " + strings.Join(s.Gateway.Args, " ")),
		Username:          s.Admin.Username,
		GeneratedPassword: generated,
	})
	log.Info().Str("addr", s.Addr).Str("gateway_config", store.Path()).Str("config_source", string(src)).
		Bool("autostart", s.Gateway.Autostart).Bool("password_generated", generated != "").Msg("starting gatewayd")

	err = tree.Serve(ctx)
	if report, rerr := tree.UnstoppedServiceReport(); rerr == nil && len(report) > 0 {
		log.Error().Int("count", len(report)).Msg("services did not stop within the shutdown timeout")
	}
	if err != nil && ctx.Err() == nil {
		return err
	}
	log.Info().Msg("gatewayd stopped")
	return nil
}
