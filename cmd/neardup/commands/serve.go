package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/neardup/internal/observability"
	"github.com/Sumatoshi-tech/neardup/internal/server"
)

// ServeCommand holds the flags of the serve command.
type ServeCommand struct {
	app *app

	addr string
}

func newServeCommand(a *app) *cobra.Command {
	sc := &ServeCommand{app: a}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve similarity queries over HTTP",
		Long: `Load the saved model and answer queries over HTTP.

Endpoints:
  GET  /v1/query?doc=ID|path=P   rank near-duplicates of an indexed document
  POST /v1/query                 rank near-duplicates of the request body
  GET  /v1/candidates?doc=ID     raw LSH candidates
  GET  /v1/pairs                 all near-duplicate pairs
  GET  /v1/stats                 model parameters and build statistics
  GET  /healthz, /readyz         liveness and readiness
  GET  /metrics                  Prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: sc.Run,
	}

	cmd.Flags().StringVarP(&sc.addr, "addr", "a", "", "listen address (default from config)")

	return cmd
}

// Run executes the serve command. It blocks until SIGINT or SIGTERM.
func (sc *ServeCommand) Run(cmd *cobra.Command, _ []string) error {
	cfg := sc.app.cfg

	if cmd.Flags().Changed("addr") {
		cfg.Server.Addr = sc.addr
	}

	m, err := sc.app.loadModel()
	if err != nil {
		return err
	}

	sh, err := cfg.Shingler()
	if err != nil {
		return err
	}

	red, err := observability.NewREDMetrics(sc.app.providers.Meter)
	if err != nil {
		return err
	}

	srv := server.New(server.Config{
		Addr:           cfg.Server.Addr,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		Threshold:      cfg.Similarity.Threshold,
		QueryCacheSize: cfg.Server.QueryCacheSize,
	},
		server.WithLogger(sc.app.logger),
		server.WithTracer(sc.app.providers.Tracer),
		server.WithREDMetrics(red),
		server.WithMetricsHandler(sc.app.providers.MetricsHandler),
		server.WithShingler(sh),
	)
	srv.SetModel(m)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sc.app.logger.Info("model loaded", "documents", m.Stats().Documents, "dir", cfg.Artifacts.Dir)

	return srv.Run(ctx)
}
