package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	gfn "github.com/panyam/goutils/fn"
	"github.com/spf13/cobra"
)

var fixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Runs the auto-repair loop over a diagram source file",
	Long: `Runs the bounded repair loop (deterministic pass plus assistant
corrections) over the source and reports the outcome. Set OPENAI_API_KEY to
enable assistant-backed corrections; without it only the deterministic pass
can succeed.`,
	Run: func(cmd *cobra.Command, args []string) {
		source, err := readSourceFile()
		if err != nil {
			fail("%v", err)
		}
		engine, err := buildEngine()
		if err != nil {
			fail("%v", err)
		}

		fix, err := buildFixer(context.Background(), engine)
		if err != nil {
			fail("%v", err)
		}
		outcome := fix.AutoFix(context.Background(), source)
		if outcome.Success {
			fmt.Println(color.GreenString("Source is valid after %d assistant attempt(s).", outcome.Attempts))
		} else {
			fmt.Println(color.RedString("Could not repair the source: %s", outcome.Err))
			fmt.Println(color.YellowString("Best candidate after %d attempt(s):", outcome.Attempts))
		}
		fmt.Println(numberedLines(outcome.FixedCode))
	},
}

// numberedLines renders source with 1-based line numbers for terminal output.
func numberedLines(code string) string {
	lines := gfn.Map(strings.Split(code, "\n"), func(line string) string {
		return strings.TrimRight(line, " \t")
	})
	width := len(fmt.Sprint(len(lines)))
	for i, line := range lines {
		lines[i] = fmt.Sprintf("%*d | %s", width, i+1, line)
	}
	return strings.Join(lines, "\n")
}

func init() {
	addFixEndpointFlag(fixCmd)
	AddCommand(fixCmd)
}
