// Package main provides the MCP server entry point for sonardash.
// This server implements the Model Context Protocol, enabling AI
// assistants to query cached code-quality metrics.
package main

import (
	"fmt"
	"log"
	"os"

	"sonardash/src/config"
	"sonardash/src/logger"
	"sonardash/src/mcp"
	"sonardash/src/metrics"
	"sonardash/src/pipeline"
	"sonardash/src/sonar"
	"sonardash/src/tablestore"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	table, err := tablestore.Open(cfg.StorageProvider, cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Storage error: %v\n", err)
		os.Exit(1)
	}

	// Stdio transport carries the protocol; logging must stay silent.
	cache := metrics.NewStore(table, logger.NewSilentLogger())
	if cfg.MaxRows > 0 {
		cache.SetMaxRows(cfg.MaxRows)
	}
	defer cache.Close()

	client := sonar.NewClient(cfg.SonarToken)
	p := pipeline.New(client, cache, nil, logger.NewSilentLogger())

	server := mcp.NewServer(p, cache)
	if err := server.Run(); err != nil {
		log.Fatalf("MCP server error: %v", err)
	}
}
