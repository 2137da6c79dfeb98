package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/panyam/vizfix/fixchan"
	"github.com/panyam/vizfix/fixer"
	"github.com/panyam/vizfix/oracle"
)

// buildEngine resolves the rendering service from the --oracle flag or the
// environment.
func buildEngine() (oracle.Oracle, error) {
	if oracleURL != "" {
		return oracle.NewHTTPOracle(oracleURL), nil
	}
	return oracle.NewHTTPOracleFromEnv()
}

// buildEngineFor creates an engine for an already-resolved service URL.
func buildEngineFor(url string) (oracle.Oracle, error) {
	return oracle.NewHTTPOracle(url), nil
}

// buildFixer wires a fix loop for one-shot commands: a remote assistant when
// --fix-endpoint is given, an in-process LLM assistant when OPENAI_API_KEY
// is configured, a hard decline otherwise. The websocket connection lives
// for the remainder of the process.
func buildFixer(ctx context.Context, engine oracle.Oracle) (*fixer.Fixer, error) {
	var channel *fixchan.Channel
	if fixEndpoint != "" {
		_, ch, err := fixchan.DialWS(ctx, fixEndpoint)
		if err != nil {
			return nil, err
		}
		channel = ch
	}
	if channel == nil && os.Getenv("OPENAI_API_KEY") != "" {
		client, err := fixchan.NewOpenAIClient()
		if err == nil {
			_, channel = fixchan.NewLoopback(fixchan.NewAssistant(client))
		}
	}
	if channel == nil {
		channel = fixchan.NewChannel(fixchan.UnavailableTransport{})
	}
	return fixer.New(oracle.NewValidator(engine), channel), nil
}

// readSourceFile loads the diagram source named by -f/--file.
func readSourceFile() (string, error) {
	if sourceFilePath == "" {
		return "", fmt.Errorf("diagram source file must be specified with -f or --file")
	}
	data, err := os.ReadFile(sourceFilePath)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", sourceFilePath, err)
	}
	return string(data), nil
}

func fail(format string, args ...any) {
	fmt.Fprintln(os.Stderr, color.RedString("Error: "+fmt.Sprintf(format, args...)))
	os.Exit(1)
}
