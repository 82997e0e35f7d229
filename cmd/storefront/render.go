package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xob0t/GoStorefront/pkg/compose"
	"github.com/xob0t/GoStorefront/pkg/schema"
)

var renderFlags struct {
	context string
	query   string
	output  string
	dev     bool
}

var renderCmd = &cobra.Command{
	Use:   "render <slug|file.json>",
	Short: "Render a product composition to HTML",
	Long: `Renders one product the way the server would, without the page shell.
A .json argument is read from disk; anything else is treated as a slug and
fetched from the configured catalog.

Example:
  storefront render product.json --context modal --query "size=S&color=blue"`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	f := renderCmd.Flags()
	f.StringVar(&renderFlags.context, "context", "page", "Layout context: page or modal")
	f.StringVar(&renderFlags.query, "query", "", "Selection as a URL query, e.g. size=M&color=red")
	f.StringVarP(&renderFlags.output, "output", "o", "", "Output file (default stdout)")
	f.BoolVar(&renderFlags.dev, "dev", false, "Show diagnostics for unknown and failing blocks")
}

func runRender(cmd *cobra.Command, args []string) error {
	c := schema.Context(renderFlags.context)
	if !c.Valid() {
		return fmt.Errorf("--context must be page or modal")
	}
	seed, err := url.ParseQuery(renderFlags.query)
	if err != nil {
		return fmt.Errorf("parse --query: %w", err)
	}

	opts := compose.Options{
		Context: c,
		Locale:  locale(),
		Logger:  logger,
		Dev:     renderFlags.dev || cfg.Render.Dev,
	}

	var e *compose.Engine
	target := args[0]
	if strings.HasSuffix(target, ".json") {
		doc, warnings, err := schema.LoadFile(target)
		if err != nil {
			return err
		}
		printWarnings(cmd.ErrOrStderr(), warnings)
		e = compose.New(opts)
		if err := e.Hydrate(doc.Product.Slug, doc, seed); err != nil {
			return err
		}
	} else {
		source, closeSource, err := openSource(cfg, logger)
		if err != nil {
			return err
		}
		defer closeSource()

		opts.Source = source
		e = compose.New(opts)
		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.GetFetchTimeout())
		defer cancel()
		if err := e.Load(ctx, target, seed); err != nil {
			// The unavailable state is still rendered below.
			fmt.Fprintln(cmd.ErrOrStderr(), "Warning:", err)
		}
	}

	var w io.Writer = cmd.OutOrStdout()
	if renderFlags.output != "" {
		f, err := os.Create(renderFlags.output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}
	return e.Render(w)
}

func printWarnings(w io.Writer, warnings []string) {
	for _, warning := range warnings {
		fmt.Fprintf(w, "Warning: %s\n", warning)
	}
}
