// storefront — Schema-driven product pages.
//
// Usage:
//
//	storefront serve [--addr :8080] [--catalog-dir catalog]
//	storefront render <slug|file.json> [--context page|modal] [--query size=M]
//	storefront schema <file.json>
//	storefront validate <file.json>...
//	storefront init
//	storefront swatch --color "#c0392b" -o red.png
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/xob0t/GoStorefront/internal/config"
	"github.com/xob0t/GoStorefront/internal/logging"
)

var (
	cfgPath string
	verbose bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "storefront",
	Short: "Storefront - schema-driven product pages",
	Long: `Storefront composes product pages and quick-add modals from layout
documents served by the catalog. Every block, attribute and rule comes from
the document; the binary only knows how to render them.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
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

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "storefront.yaml", "Config file (missing file uses defaults)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(swatchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func locale() language.Tag {
	tag, err := language.Parse(cfg.Render.Locale)
	if err != nil {
		return language.English
	}
	return tag
}
