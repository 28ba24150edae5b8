package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	demo "github.com/tendant/chi-demo/app"
	"github.com/tendant/simple-blurhash/pkg/blurhasher"
	"github.com/tendant/simple-blurhash/pkg/blurhasher/api"
	"github.com/tendant/simple-blurhash/pkg/blurhasher/scan"
)

// NewServeCommand creates the webhook server command
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Receive host events over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, app, log, err := loadApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			app.Bus.EmitInit(ctx, blurhasher.EventInit)

			hooks := api.NewWebhookHandler(app.Bus,
				api.WithJWTSecret(cfg.WebhookJWTSecret),
				api.WithLogger(log))

			httpServer := &http.Server{
				Addr:    ":" + cfg.Port,
				Handler: newServeRouter(hooks, log),
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info("blurhash server starting",
					"port", cfg.Port,
					"env", cfg.Environment,
					"renderer", cfg.Renderer,
					"database", cfg.DatabaseType,
					"jwt", cfg.WebhookJWTSecret != "")
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("server error: %w", err)
				}
			case <-ctx.Done():
			}

			log.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server forced to shutdown: %w", err)
			}
			hooks.Wait()

			log.Info("server exiting")
			return nil
		},
	}
}

// newServeRouter exposes the liveness probes next to the hook routes
func newServeRouter(hooks *api.WebhookHandler, log *slog.Logger) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(api.RequestLogger(log))
	r.Use(middleware.Recoverer)

	demo.RoutesHealthz(r)
	demo.RoutesHealthzReady(r)
	r.Mount("/", hooks.Routes())
	return r
}

// NewBootstrapCommand creates the schema bootstrap command
func NewBootstrapCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap",
		Short: "Ensure the blurhash field exists on the files collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, app, _, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Service.Bootstrap(cmd.Context()); err != nil {
				return fmt.Errorf("bootstrap failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Field %s.%s is ready\n", blurhasher.FilesCollection, blurhasher.FieldName)
			return nil
		},
	}
}

// NewBackfillCommand creates the backfill command
func NewBackfillCommand() *cobra.Command {
	var (
		force     bool
		dryRun    bool
		batchSize int
	)

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Compute blurhashes for every existing file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, app, log, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			scanner := scan.New(app.Files, app.Service,
				scan.WithFileService(app.Files),
				scan.WithLogger(log))

			out := cmd.OutOrStdout()
			result, err := scanner.Scan(cmd.Context(), scan.ScanOptions{
				BatchSize: batchSize,
				Force:     force,
				DryRun:    dryRun,
				OnProgress: func(processed, found int64) {
					fmt.Fprintf(out, "Progress: %d/%d\n", processed, found)
				},
			})
			if err != nil {
				return fmt.Errorf("backfill failed: %w", err)
			}

			fmt.Fprintf(out, "Found: %d\nHashed: %d\nSkipped: %d\nFailed: %d\n",
				result.TotalFound, result.TotalHashed, result.TotalSkipped, result.TotalFailed)
			for _, id := range result.FailedIDs {
				fmt.Fprintf(out, "  failed: %s\n", id)
			}
			if result.TotalFailed > 0 {
				return fmt.Errorf("%d files failed", result.TotalFailed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Recompute hashes that already exist")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would be processed without writing")
	cmd.Flags().IntVar(&batchSize, "batch-size", scan.DefaultBatchSize, "Number of files listed per page")

	return cmd
}

// NewHashCommand creates the single-file command
func NewHashCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "hash <file-id>",
		Short: "Compute the blurhash of one file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, app, _, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.Service.Process(cmd.Context(), args[0], force)
			if err != nil {
				return fmt.Errorf("hash failed: %w", err)
			}

			out := cmd.OutOrStdout()
			switch result.Outcome {
			case blurhasher.OutcomeSkipped:
				fmt.Fprintf(out, "Skipped %s: %v\n", result.FileID, result.Reason)
			default:
				fmt.Fprintf(out, "%s %s\n", result.FileID, result.Hash)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Recompute an existing hash")

	return cmd
}

