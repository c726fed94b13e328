package cli

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ppiankov/gradelens/internal/pipeline"
	"github.com/ppiankov/gradelens/internal/server"
)

var (
	serveAddr    string
	serveOrigins []string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the session API for the dashboard",
	Long: `Serve starts the HTTP API used by the dashboard front end. Each upload
opens a session holding its own dataset and filter; sessions expire after
the configured TTL.

Endpoints:
  POST   /api/sessions                    upload CSV, TSV or JSON
  POST   /api/sessions/sample             open a session on synthetic data
  GET    /api/sessions/:id/metrics        metrics of the current view
  GET    /api/sessions/:id/records        records of the current view
  GET    /api/sessions/:id/review-queue   flagged records by priority
  PUT    /api/sessions/:id/filters        replace the filter
  DELETE /api/sessions/:id/filters        clear the filter
  GET    /api/sessions/:id/export/:kind   analysis, review-queue, report, metrics
  DELETE /api/sessions/:id
  GET    /healthz, /metrics

Example:
  gradelens serve --addr :8080 --cors-origin http://localhost:5173`,
	Args: cobra.NoArgs,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(zerolog.InfoLevel)
	},
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, :8080)")
	serveCmd.Flags().StringSliceVar(&serveOrigins, "cors-origin", nil, "allowed CORS origins (repeatable, * for any)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if len(serveOrigins) > 0 {
		cfg.Server.CORSOrigins = serveOrigins
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}

	srv, err := server.New(cfg, pipeline.NewPipeline(cfg, logger), logger)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}
	return srv.Run(cmd.Context())
}
