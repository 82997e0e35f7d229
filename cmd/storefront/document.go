package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/xob0t/GoStorefront/pkg/schema"
)

var schemaCmd = &cobra.Command{
	Use:   "schema <file.json>",
	Short: "Summarize a layout document",
	Long:  `Prints the blocks, attributes, combinations, sellers and rules of a document.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, warnings, err := schema.LoadFile(args[0])
		if err != nil {
			return err
		}
		printWarnings(cmd.ErrOrStderr(), warnings)
		fmt.Fprint(cmd.OutOrStdout(), schema.FormatSchema(doc))
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate <file.json>...",
	Short: "Validate layout documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		failed := 0
		for _, path := range args {
			_, warnings, err := schema.LoadFile(path)
			if err != nil {
				failed++
				fmt.Fprintf(cmd.ErrOrStderr(), "FAIL %s: %v\n", path, err)
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "OK   %s\n", path)
			printWarnings(cmd.ErrOrStderr(), warnings)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d documents invalid", failed, len(args))
		}
		return nil
	},
}

var initFlags struct {
	document string
	config   string
	force    bool
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a sample document and config",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if !initFlags.force {
			for _, p := range []string{initFlags.document, initFlags.config} {
				if _, err := os.Stat(p); err == nil {
					return fmt.Errorf("%s exists (use --force to overwrite)", p)
				} else if !errors.Is(err, os.ErrNotExist) {
					return err
				}
			}
		}
		if err := os.MkdirAll(filepath.Dir(initFlags.document), 0o755); err != nil {
			return fmt.Errorf("create document directory: %w", err)
		}
		if err := os.WriteFile(initFlags.document, []byte(schema.ExampleJSON()), 0o644); err != nil {
			return fmt.Errorf("write document: %w", err)
		}
		if err := cfg.Save(initFlags.config); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created: %s, %s\n", initFlags.document, initFlags.config)
		fmt.Fprintf(cmd.OutOrStdout(), "Run: storefront render %s --query \"size=S&color=blue\"\n", initFlags.document)
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&initFlags.document, "document", "catalog/classic-tee.json", "Output path for the sample document")
	initCmd.Flags().StringVar(&initFlags.config, "out", "storefront.yaml", "Output path for the config")
	initCmd.Flags().BoolVar(&initFlags.force, "force", false, "Overwrite existing files")
}
