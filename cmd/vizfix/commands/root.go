package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	sourceFilePath string
	oracleURL      string
	fixEndpoint    string
	serveHost      string
	servePort      int
)

var rootCmd = &cobra.Command{
	Use:   "vizfix",
	Short: "vizfix renders diagram source and auto-repairs invalid syntax",
	Long: `vizfix turns diagram-description text into SVG/PNG through an external
rendering engine, and runs a bounded repair loop (a deterministic text pass
plus LLM-assisted corrections) before giving up on invalid source.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&sourceFilePath, "file", "f", "", "Path to the diagram source file (required by most commands)")
	rootCmd.PersistentFlags().StringVar(&oracleURL, "oracle", "", "Rendering service URL (default: VIZFIX_ORACLE_URL env var)")
}

// addFixEndpointFlag registers --fix-endpoint on commands that run the
// repair loop, pointing them at a remote assistant over a websocket.
func addFixEndpointFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(&fixEndpoint, "fix-endpoint", "", "Websocket URL of a remote fix assistant (default: in-process assistant via OPENAI_API_KEY)")
}

// AddCommand allows adding subcommands from other files.
func AddCommand(cmd *cobra.Command) {
	rootCmd.AddCommand(cmd)
}
