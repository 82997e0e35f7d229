package main

import (
	"fmt"
	"image"

	"github.com/spf13/cobra"

	"github.com/xob0t/GoStorefront/pkg/generator"
)

var swatchFlags struct {
	color  string
	text   string
	size   int
	output string
}

var swatchCmd = &cobra.Command{
	Use:   "swatch",
	Short: "Generate a color swatch or placeholder image",
	Long: `Writes a PNG. With --text a placeholder is drawn (the color is derived
from the text unless --color is given); otherwise a bordered swatch of
--color.

Examples:
  storefront swatch --color "#c0392b" -o red.png
  storefront swatch --text "Classic Tee" --size 640 -o tee.png`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if swatchFlags.output == "" {
			return fmt.Errorf("output file is required (-o)")
		}
		var (
			img image.Image
			err error
		)
		switch {
		case swatchFlags.text != "":
			img, err = generator.Placeholder(generator.Config{
				Width:    swatchFlags.size,
				Height:   swatchFlags.size,
				Color:    swatchFlags.color,
				Text:     swatchFlags.text,
				FontPath: cfg.Render.FontPath,
			})
		case swatchFlags.color != "":
			img, err = generator.Swatch(swatchFlags.color, swatchFlags.size)
		default:
			return fmt.Errorf("--color or --text is required")
		}
		if err != nil {
			return err
		}
		if err := generator.WriteFile(swatchFlags.output, img); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Done: %s\n", swatchFlags.output)
		return nil
	},
}

func init() {
	f := swatchCmd.Flags()
	f.StringVar(&swatchFlags.color, "color", "", "Hex color (#rrggbb or #rgb)")
	f.StringVar(&swatchFlags.text, "text", "", "Placeholder label")
	f.IntVar(&swatchFlags.size, "size", 64, "Square size in pixels")
	f.StringVarP(&swatchFlags.output, "output", "o", "", "Output file (.png)")
}
