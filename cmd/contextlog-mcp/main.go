package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	arbor_models "github.com/ternarybob/arbor/models"
	"github.com/ternarybob/contextlog/internal/app"
	"github.com/ternarybob/contextlog/internal/common"
)

func main() {
	var configFiles []string
	if paths := os.Getenv("CONTEXTLOG_CONFIG"); paths != "" {
		configFiles = strings.Split(paths, string(os.PathListSeparator))
	} else if _, err := os.Stat("contextlog.toml"); err == nil {
		configFiles = []string{"contextlog.toml"}
	}

	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Warn level keeps the stdio protocol stream quiet
	logger := arbor.NewLogger().WithConsoleWriter(arbor_models.WriterConfiguration{
		Type:             arbor_models.LogWriterTypeConsole,
		TimeFormat:       "15:04:05",
		DisableTimestamp: false,
	}).WithLevelFromString("warn")

	application, err := app.NewReadOnly(config, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open result store: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	if err := server.ServeStdio(application.MCPServer); err != nil {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		os.Exit(1)
	}
}
