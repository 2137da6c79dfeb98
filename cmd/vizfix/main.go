package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/panyam/vizfix/cmd/vizfix/commands"
)

func main() {
	if os.Getenv("VIZFIX_ENV") == "dev" {
		logger := slog.New(NewPrettyHandler(os.Stderr, PrettyHandlerOptions{
			SlogOpts: slog.HandlerOptions{
				Level: slog.LevelDebug,
			},
		}))
		slog.SetDefault(logger)
	}

	if err := godotenv.Load(); err != nil {
		// A missing .env file is fine; everything can come from the shell.
		slog.Debug("No .env file loaded", "error", err)
	}

	commands.Execute()
}
