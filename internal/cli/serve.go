package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jobforge/jobforge/internal/api"
)

var serveListen string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the posting generation API server",
	Long: `Start the HTTP API for posting workflows.

Endpoints:
  POST   /api/v1/postings               start a workflow from a hiring request
  GET    /api/v1/postings/:id           current workflow state
  POST   /api/v1/postings/:id/feedback  resolve a paused workflow
  DELETE /api/v1/postings/:id           cancel a workflow
  GET    /api/v1/postings/:id/history   superseded drafts and reports
  GET    /api/v1/companies              search ingested companies (q, limit)
  GET    /api/v1/companies/:ref         one company by reference
  GET    /healthz                       liveness probe`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if serveListen != "" {
			cfg.HTTP.Listen = serveListen
		}

		backing, closeStore, err := openBacking(cfg)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer func() { _ = closeStore() }()

		engine, err := buildEngine(cfg, backing)
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr:              cfg.HTTP.Listen,
			Handler:           api.NewServer(engine, backing).Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			fmt.Fprintf(os.Stderr, "jobforge listening on %s\n", cfg.HTTP.Listen)
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "listen address (overrides config, default :8080)")
	rootCmd.AddCommand(serveCmd)
}
