package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/conneroisu/isle/internal/metrics"
	"github.com/conneroisu/isle/internal/server"
)

var serveFlags *StandardFlags

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Start the dev server",
	Long: `Serve starts the development server. Pages, documents, styles and islands
are recomputed on every request. Pages reload when /__reload__ is posted to;
isle dev does that for you on every change.

Examples:
  isle serve
  isle serve --port 8080 --host 0.0.0.0`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveFlags = AddStandardFlags(serveCmd, "server")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger := newLogger(cmd.ErrOrStderr())

	cfg, err := loadConfig(cmd, serveFlags)
	if err != nil {
		return err
	}
	islands, err := loadIslands(cfg)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	srv := server.New(cfg, islands, logger, metrics.NewPrometheusRecorder(reg))
	srv.MetricsHandler = metrics.HTTPHandler(reg)
	return srv.Start(ctx)
}
