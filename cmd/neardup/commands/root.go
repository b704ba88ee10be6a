// Package commands implements CLI command handlers for neardup.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/neardup/internal/observability"
	"github.com/Sumatoshi-tech/neardup/internal/report"
	"github.com/Sumatoshi-tech/neardup/pkg/config"
	"github.com/Sumatoshi-tech/neardup/pkg/detector"
	"github.com/Sumatoshi-tech/neardup/pkg/version"
)

var (
	// ErrUnknownDocument indicates a query argument names no indexed document.
	ErrUnknownDocument = errors.New("no indexed document with that id or path")
	// ErrInvalidRange indicates an evaluation sweep with an empty range.
	ErrInvalidRange = errors.New("threshold range is empty")
)

// app carries state shared by all subcommands of one invocation.
type app struct {
	configPath string
	verbose    bool
	quiet      bool
	noColor    bool

	cfg       *config.Config
	providers observability.Providers
	logger    *slog.Logger
}

// NewRootCommand creates the neardup root command with every subcommand.
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "neardup",
		Short: "Neardup - near-duplicate document detection with MinHash and LSH",
		Long: `Neardup finds near-duplicate text documents in a corpus.

Commands:
  index     Shingle a corpus, generate signatures and save the model
  query     Rank the near-duplicates of one document
  pairs     List every near-duplicate pair in the model
  eval      Sweep precision and recall over thresholds
  curve     Show the banding S-curve for a parameter choice
  serve     Answer queries over HTTP`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.teardown(cmd.Context())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "config file (default .neardup.yaml in . or $HOME)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")
	flags.BoolVarP(&a.quiet, "quiet", "q", false, "suppress output")
	flags.BoolVar(&a.noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(
		newIndexCommand(a),
		newQueryCommand(a),
		newPairsCommand(a),
		newEvalCommand(a),
		newCurveCommand(a),
		newServeCommand(a),
		versionCmd(),
	)

	return rootCmd
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "version" {
		return nil
	}

	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return err
	}

	level, err := observability.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}

	switch {
	case a.verbose:
		level = slog.LevelDebug
	case a.quiet:
		level = slog.LevelError
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(cfg.Telemetry.OTLPHeaders)
	obsCfg.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	obsCfg.SampleRatio = cfg.Telemetry.SampleRatio
	obsCfg.LogLevel = level
	obsCfg.LogJSON = cfg.Logging.JSON
	obsCfg.LogWriter = cmd.ErrOrStderr()

	if cmd.Name() == "serve" {
		obsCfg.Mode = observability.ModeServe
		obsCfg.Prometheus = true
	}

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return fmt.Errorf("observability init: %w", err)
	}

	a.cfg = cfg
	a.providers = providers
	a.logger = providers.Logger
	slog.SetDefault(a.logger)

	return nil
}

func (a *app) teardown(ctx context.Context) error {
	if a.providers.Shutdown == nil {
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}

	err := a.providers.Shutdown(ctx)
	if err != nil {
		a.logger.Warn("observability shutdown failed", "error", err)
	}

	return nil
}

// detectorOptions returns the logging and metrics options for Build and Load.
func (a *app) detectorOptions() ([]detector.Option, error) {
	metrics, err := observability.NewDetectorMetrics(a.providers.Meter)
	if err != nil {
		return nil, err
	}

	return []detector.Option{detector.WithLogger(a.logger), detector.WithMetrics(metrics)}, nil
}

// loadModel reads the model saved in the configured artifacts directory.
func (a *app) loadModel() (*detector.Model, error) {
	codec, err := a.cfg.ArtifactCodec()
	if err != nil {
		return nil, err
	}

	opts, err := a.detectorOptions()
	if err != nil {
		return nil, err
	}

	m, err := detector.Load(a.cfg.Artifacts.Dir, codec, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w (run \"neardup index\" first)", err)
	}

	return m, nil
}

// writer builds a report writer for cmd's output in format.
func (a *app) writer(cmd *cobra.Command, format string) (*report.Writer, error) {
	f, err := report.ParseFormat(format)
	if err != nil {
		return nil, err
	}

	var opts []report.Option
	if a.noColor {
		opts = append(opts, report.WithColor(false))
	}

	return report.NewWriter(cmd.OutOrStdout(), f, opts...), nil
}

// resolveDocument accepts a numeric document id or a corpus-relative path.
func resolveDocument(m *detector.Model, arg string) (uint32, error) {
	if id, ok := m.Lookup(arg); ok {
		return id, nil
	}

	v, err := strconv.ParseUint(arg, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownDocument, arg)
	}

	return uint32(v), nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "neardup %s\n", version.String())
		},
	}
}
