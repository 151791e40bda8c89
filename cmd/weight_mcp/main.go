// Package main runs the weight MCP server over stdio (for local assistant use).
// The service also mounts a read-only variant at /mcp over HTTP; this one can add entries.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/2beens/weightcontrol/internal"
	"github.com/2beens/weightcontrol/internal/config"
	"github.com/2beens/weightcontrol/internal/logging"
	weightmcp "github.com/2beens/weightcontrol/internal/weight/mcp"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	log "github.com/sirupsen/logrus"
)

func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path to TOML config file")
	readOnly := flag.Bool("read-only", false, "do not expose the add_weight_entry tool")
	flag.Parse()

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	// stdout belongs to the MCP transport
	if cfg.LogsPath != "" {
		logging.Setup(logging.LoggerSetupParams{
			LogFileName: cfg.LogsPath,
			LogLevel:    cfg.LogLevel,
			Environment: cfg.Environment,
		})
	} else {
		log.SetOutput(os.Stderr)
		log.SetLevel(logging.GetLevel(cfg.LogLevel))
	}

	ctx := context.Background()
	analysis, closeAnalysis, err := internal.OpenAnalysis(ctx, internal.OpenAnalysisParams{
		Config:     cfg,
		DBUser:     os.Getenv("WEIGHT_DB_USER"),
		DBPassword: os.Getenv("WEIGHT_DB_PASS"),
	})
	if err != nil {
		log.Fatalf("open analysis: %v", err)
	}
	defer closeAnalysis()

	server := weightmcp.NewServer(weightmcp.NewServerParams{
		Analysis:    analysis,
		AllowWrites: !*readOnly,
	})

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		log.Errorf("mcp server: %v", err)
	}
}
