// catalogd — Layout document catalog.
//
// Serves GET/PUT /api/products/{slug}/schema from a SQLite database and
// manages its contents.
//
// Usage:
//
//	catalogd serve [--addr :8081] [--db catalog.db]
//	catalogd import <dir>
//	catalogd list
//	catalogd export <slug>
//	catalogd delete <slug>
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xob0t/GoStorefront/internal/config"
	"github.com/xob0t/GoStorefront/internal/logging"
	"github.com/xob0t/GoStorefront/internal/metrics"
	"github.com/xob0t/GoStorefront/pkg/catalog"
	"github.com/xob0t/GoStorefront/pkg/catalog/sqlstore"
)

var (
	cfgPath string
	dbPath  string
	verbose bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:          "catalogd",
	Short:        "catalogd - layout document catalog",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("db") || cfg.Catalog.DB == "" {
			cfg.Catalog.DB = dbPath
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		logger, err = logging.New(cfg.Logging.Level, cfg.Logging.Format)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the catalog API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := sqlstore.Open(cfg.Catalog.DB, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		rec := metrics.NewRecorder(true)
		mux := http.NewServeMux()
		mux.Handle("/api/products/", rec.Middleware("schema_api", catalog.NewHandler(store, logger)))
		mux.Handle("GET /metrics", rec.Handler())

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, serveAddr, mux, cfg.GetShutdownTimeout())
	},
}

func serve(ctx context.Context, addr string, h http.Handler, shutdownTimeout time.Duration) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 10 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("catalog listening", zap.String("addr", ln.Addr().String()), zap.String("db", cfg.Catalog.DB))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

var importCmd = &cobra.Command{
	Use:   "import <dir>",
	Short: "Import every {slug}.json in a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(store *sqlstore.Store) error {
			n, err := store.ImportDir(cmd.Context(), args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d documents\n", n)
			return err
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored documents",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withStore(func(store *sqlstore.Store) error {
			entries, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SLUG\tTITLE\tVERSION\tUPDATED")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Slug, e.Title, e.Version, e.UpdatedAt.Format(time.RFC3339))
			}
			return tw.Flush()
		})
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <slug>",
	Short: "Print a stored document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(store *sqlstore.Store) error {
			body, err := store.Raw(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(body)
			return err
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <slug>",
	Short: "Delete a stored document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(store *sqlstore.Store) error {
			if err := store.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		})
	},
}

func withStore(fn func(*sqlstore.Store) error) error {
	store, err := sqlstore.Open(cfg.Catalog.DB, logger)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "storefront.yaml", "Config file (missing file uses defaults)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "catalog.db", "SQLite database path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8081", "Listen address")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(deleteCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
