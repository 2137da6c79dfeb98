package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/panyam/vizfix/fixchan"
	"github.com/panyam/vizfix/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Runs the diagram editing session server",
	Long: `Starts the websocket host: each connected client gets its own
debounced render pipeline. With OPENAI_API_KEY set the server answers fix
requests itself; otherwise fix requests are bridged back to the client.`,
	Run: func(cmd *cobra.Command, args []string) {
		configFile, _ := cmd.Flags().GetString("config")

		cfg := web.DefaultConfig()
		if configFile != "" {
			var err error
			cfg, err = web.LoadConfig(configFile)
			if err != nil {
				fail("%v", err)
			}
		}
		if serveHost != "" {
			cfg.Host = serveHost
		}
		if servePort != 0 {
			cfg.Port = servePort
		}
		if oracleURL != "" {
			cfg.OracleURL = oracleURL
		}
		if cfg.OracleURL == "" {
			cfg.OracleURL = os.Getenv("VIZFIX_ORACLE_URL")
		}
		if cfg.OracleURL == "" {
			fail("rendering service URL required (--oracle, config file, or VIZFIX_ORACLE_URL)")
		}

		engine, err := buildEngineFor(cfg.OracleURL)
		if err != nil {
			fail("%v", err)
		}

		var assistant fixchan.Responder
		if os.Getenv("OPENAI_API_KEY") != "" {
			client, err := fixchan.NewOpenAIClient()
			if err != nil {
				fail("%v", err)
			}
			assistant = fixchan.NewAssistant(client)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		server := web.NewServer(cfg, engine, assistant)
		if err := server.Start(ctx); err != nil {
			fail("%v", err)
		}
	},
}

func init() {
	serveCmd.Flags().String("config", "", "Path to a TOML config file")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Server host (default from config file or localhost)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Server port (default from config file or 8080)")
	AddCommand(serveCmd)
}
