package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/panyam/vizfix/oracle"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Renders a diagram source file to SVG, repairing it if needed",
	Run: func(cmd *cobra.Command, args []string) {
		outputFile, _ := cmd.Flags().GetString("output")

		source, err := readSourceFile()
		if err != nil {
			fail("%v", err)
		}
		engine, err := buildEngine()
		if err != nil {
			fail("%v", err)
		}

		svg, candidate, err := renderWithRepair(context.Background(), engine, source)
		if err != nil {
			fail("%v", err)
		}
		if candidate != source {
			fmt.Fprintln(os.Stderr, color.YellowString("Note: the source was auto-repaired before rendering."))
		}

		if outputFile == "" {
			fmt.Println(svg)
			return
		}
		if err := os.WriteFile(outputFile, []byte(svg), 0644); err != nil {
			fail("writing %s: %v", outputFile, err)
		}
		fmt.Println(color.GreenString("Wrote %s", outputFile))
	},
}

// renderWithRepair renders source directly, and on failure runs the repair
// loop once and renders the fixed candidate. Returns the SVG and the
// candidate that produced it.
func renderWithRepair(ctx context.Context, engine oracle.Oracle, source string) (svg string, candidate string, err error) {
	candidate = source
	svg, err = engine.Render(ctx, "viz-cli", candidate)
	if err == nil {
		return svg, candidate, nil
	}

	fix, err := buildFixer(ctx, engine)
	if err != nil {
		return "", candidate, err
	}
	outcome := fix.AutoFix(ctx, candidate)
	if !outcome.Success {
		return "", outcome.FixedCode, fmt.Errorf("%s", outcome.Err)
	}
	candidate = outcome.FixedCode
	svg, err = engine.Render(ctx, "viz-cli", candidate)
	if err != nil {
		return "", candidate, fmt.Errorf("rendering repaired source: %w", err)
	}
	return svg, candidate, nil
}

func init() {
	renderCmd.Flags().StringP("output", "o", "", "Output SVG file (default: stdout)")
	addFixEndpointFlag(renderCmd)
	AddCommand(renderCmd)
}
