// Package commands implements CLI command handlers for rbcore.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/rbcore/pkg/config"
	"github.com/Sumatoshi-tech/rbcore/pkg/observability"
	"github.com/Sumatoshi-tech/rbcore/pkg/version"
)

// Persistent flag names.
const (
	flagConfig  = "config"
	flagVerbose = "verbose"
	flagQuiet   = "quiet"
	flagNoColor = "no-color"
)

// NewRootCommand creates the rbcore command tree.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "rbcore",
		Short: "Arena red-black tree core: scenarios, demo and benchmark",
		Long: `rbcore drives the arena red-black tree core.

Commands:
  run       Execute scenario files
  demo      Execute the built-in demonstration scenario
  bench     Run a randomized workload over a sharded forest
  version   Show version information`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String(flagConfig, "", "config file (default: .rbcore.yaml in CWD or $HOME)")
	rootCmd.PersistentFlags().BoolP(flagVerbose, "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolP(flagQuiet, "q", false, "suppress output")
	rootCmd.PersistentFlags().Bool(flagNoColor, false, "disable colored output")

	rootCmd.AddCommand(NewRunCommand())
	rootCmd.AddCommand(NewDemoCommand())
	rootCmd.AddCommand(NewBenchCommand())
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

// session is the per-command runtime: loaded configuration and telemetry.
type session struct {
	cfg       *config.Config
	providers observability.Providers
	quiet     bool
}

func boolFlag(cmd *cobra.Command, name string) bool {
	value, err := cmd.Flags().GetBool(name)
	if err != nil {
		return false
	}

	return value
}

func stringFlag(cmd *cobra.Command, name string) string {
	value, err := cmd.Flags().GetString(name)
	if err != nil {
		return ""
	}

	return value
}

// openSession loads the configuration and initializes logging, tracing and metrics.
func openSession(cmd *cobra.Command, mode observability.AppMode) (*session, error) {
	cfg, err := config.LoadConfig(stringFlag(cmd, flagConfig))
	if err != nil {
		return nil, err
	}

	if boolFlag(cmd, flagNoColor) {
		color.NoColor = true
	}

	quiet := boolFlag(cmd, flagQuiet)

	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Environment = cfg.Telemetry.Environment
	obsCfg.Mode = mode
	obsCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	obsCfg.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))
	obsCfg.SampleRatio = cfg.Telemetry.SampleRatio
	obsCfg.LogJSON = cfg.Logging.JSON
	obsCfg.LogLevel = cfg.Logging.SlogLevel()
	obsCfg.LogWriter = cmd.ErrOrStderr()

	switch {
	case boolFlag(cmd, flagVerbose):
		obsCfg.LogLevel = slog.LevelDebug
	case quiet:
		obsCfg.LogLevel = slog.LevelWarn
	}

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	return &session{cfg: cfg, providers: providers, quiet: quiet}, nil
}

func (s *session) close() {
	if err := s.providers.Shutdown(context.Background()); err != nil {
		s.providers.Logger.Warn("observability shutdown failed", "error", err)
	}
}
