package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/taieye/internal/metrics"
	"github.com/ppiankov/taieye/internal/pipeline"
	"github.com/ppiankov/taieye/internal/server"
)

var serveAddr string

// serveCmd runs the HTTP API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis API over HTTP",
	Long: `Serve exposes the analyzer as a JSON API:
  POST /v1/analyze   score and explain a text
  POST /v1/features  extract linguistic features only
  GET  /healthz      artifact availability
  GET  /metrics      Prometheus metrics

Example:
  taieye serve --addr :8080`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	metrics.Init()

	analyzer, err := pipeline.NewAnalyzer(cfg, logger)
	if err != nil {
		return err
	}

	// Load artifacts up front so the first request does not pay for it
	if _, err := analyzer.Registry().Pipeline(); err != nil {
		logger.Warn("Model artifacts unavailable; /v1/analyze will fail until restart", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.New(cfg, analyzer, logger).Listen(ctx)
}
