package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/panyam/vizfix/raster"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Renders a diagram source file and exports it as a PNG",
	Run: func(cmd *cobra.Command, args []string) {
		outputFile, _ := cmd.Flags().GetString("output")
		background, _ := cmd.Flags().GetString("background")
		width, _ := cmd.Flags().GetInt("width")
		if outputFile == "" {
			fail("output PNG file must be specified with -o or --output")
		}

		source, err := readSourceFile()
		if err != nil {
			fail("%v", err)
		}
		engine, err := buildEngine()
		if err != nil {
			fail("%v", err)
		}

		svg, _, err := renderWithRepair(context.Background(), engine, source)
		if err != nil {
			fail("%v", err)
		}

		opts := raster.Options{Width: width}
		if background != "" {
			opts.Background, err = raster.ParseHexColor(background)
			if err != nil {
				fail("%v", err)
			}
		}
		data, err := raster.Export(svg, opts)
		if err != nil {
			fail("%v", err)
		}
		if err := os.WriteFile(outputFile, data, 0644); err != nil {
			fail("writing %s: %v", outputFile, err)
		}
		fmt.Println(color.GreenString("Wrote %s (%d bytes)", outputFile, len(data)))
	},
}

func init() {
	exportCmd.Flags().StringP("output", "o", "", "Output PNG file")
	exportCmd.Flags().String("background", "", "Background color as #rgb or #rrggbb (default: transparent)")
	exportCmd.Flags().Int("width", 0, "Output width in pixels (default 1200)")
	addFixEndpointFlag(exportCmd)
	AddCommand(exportCmd)
}
