package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xob0t/GoStorefront/clients/server"
	"github.com/xob0t/GoStorefront/internal/metrics"
)

var serveFlags struct {
	addr       string
	catalogURL string
	catalogDir string
	catalogDB  string
	assets     string
	dev        bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve product pages over HTTP",
	Long: `Serves server-rendered product pages at /products/{slug}, quick-add
modals at /products/{slug}/quick-add, the cart at /cart, generated media
under /media/ and Prometheus metrics at /metrics.

The catalog backend is chosen from the config: catalog.url, then
catalog.dir, then catalog.db. Flags override the config file.`,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveFlags.addr, "addr", "", "Listen address (default from config)")
	f.StringVar(&serveFlags.catalogURL, "catalog-url", "", "Catalog API base URL")
	f.StringVar(&serveFlags.catalogDir, "catalog-dir", "", "Directory of {slug}.json documents")
	f.StringVar(&serveFlags.catalogDB, "catalog-db", "", "SQLite catalog database")
	f.StringVar(&serveFlags.assets, "assets", "", "Directory with storefront.wasm and wasm_exec.js")
	f.BoolVar(&serveFlags.dev, "dev", false, "Show diagnostics for unknown and failing blocks")
}

func runServe(cmd *cobra.Command, _ []string) error {
	f := cmd.Flags()
	if f.Changed("addr") {
		cfg.Server.Addr = serveFlags.addr
	}
	// A catalog flag selects that backend exclusively.
	switch {
	case f.Changed("catalog-url"):
		cfg.Catalog.URL, cfg.Catalog.Dir, cfg.Catalog.DB = serveFlags.catalogURL, "", ""
	case f.Changed("catalog-dir"):
		cfg.Catalog.URL, cfg.Catalog.Dir, cfg.Catalog.DB = "", serveFlags.catalogDir, ""
	case f.Changed("catalog-db"):
		cfg.Catalog.URL, cfg.Catalog.Dir, cfg.Catalog.DB = "", "", serveFlags.catalogDB
	}
	if f.Changed("dev") {
		cfg.Render.Dev = serveFlags.dev
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	source, closeSource, err := openSource(cfg, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	opts := server.Options{
		Addr:            cfg.Server.Addr,
		Source:          source,
		Locale:          locale(),
		FontPath:        cfg.Render.FontPath,
		AssetsDir:       serveFlags.assets,
		Logger:          logger,
		Dev:             cfg.Render.Dev,
		ReadTimeout:     cfg.GetReadTimeout(),
		WriteTimeout:    cfg.GetWriteTimeout(),
		ShutdownTimeout: cfg.GetShutdownTimeout(),
		FetchTimeout:    cfg.GetFetchTimeout(),
	}
	if cfg.Server.MetricsEnabled {
		opts.Metrics = metrics.NewRecorder(true)
	}
	srv, err := server.New(opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting storefront",
		zap.String("addr", cfg.Server.Addr),
		zap.String("catalog", cfg.CatalogKind()),
		zap.Bool("dev", cfg.Render.Dev))
	return srv.Run(ctx)
}
