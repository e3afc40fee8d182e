// Package mcp exposes the metrics cache to AI assistants over the
// Model Context Protocol. Tools read through the same pipeline the CLI
// uses, so a cache miss transparently refreshes from the remote service.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"sonardash/src/contracts"
	"sonardash/src/metrics"
	"sonardash/src/pipeline"
)

// Server is the MCP server for sonardash.
type Server struct {
	mcpServer *server.MCPServer
	pipeline  *pipeline.Pipeline
	cache     *metrics.Store
}

// NewServer creates a new MCP server over a pipeline and its cache.
func NewServer(p *pipeline.Pipeline, cache *metrics.Store) *Server {
	s := server.NewMCPServer(
		"sonardash",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	srv := &Server{
		mcpServer: s,
		pipeline:  p,
		cache:     cache,
	}
	srv.registerTools()

	return srv
}

// registerTools registers all available tools.
func (s *Server) registerTools() {
	listTool := mcp.NewTool("list_projects",
		mcp.WithDescription("List every project and branch the metrics cache has seen. Use this to discover valid project_key/branch arguments for the other tools."),
	)

	historyTool := mcp.NewTool("metric_history",
		mcp.WithDescription("Get the code-quality metric history for one project branch over a trailing window of days. Serves cached data when it is fresh and complete; otherwise fetches from SonarCloud and caches the result."),
		mcp.WithString("project_key",
			mcp.Required(),
			mcp.Description("SonarCloud project key"),
		),
		mcp.WithString("branch",
			mcp.Required(),
			mcp.Description("Branch name"),
		),
		mcp.WithNumber("days",
			mcp.Description("Trailing window in days (default: 30)"),
		),
	)

	coverageTool := mcp.NewTool("data_coverage",
		mcp.WithDescription("Report whether the cache holds fresh, complete data for one project branch over a window, without fetching anything. Explains why a window is not covered."),
		mcp.WithString("project_key",
			mcp.Required(),
			mcp.Description("SonarCloud project key"),
		),
		mcp.WithString("branch",
			mcp.Required(),
			mcp.Description("Branch name"),
		),
		mcp.WithNumber("days",
			mcp.Description("Trailing window in days (default: 30)"),
		),
	)

	s.mcpServer.AddTool(listTool, s.handleListProjects)
	s.mcpServer.AddTool(historyTool, s.handleMetricHistory)
	s.mcpServer.AddTool(coverageTool, s.handleDataCoverage)
}

// Run starts the MCP server on stdio.
func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}

// handleListProjects handles the list_projects tool call.
func (s *Server) handleListProjects(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	refs, err := s.cache.ListKnownProjects(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list projects: %v", err)), nil
	}

	response := struct {
		Projects []contracts.ProjectRef `json:"projects"`
		Count    int                    `json:"count"`
	}{
		Projects: refs,
		Count:    len(refs),
	}

	jsonBytes, err := json.Marshal(response)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}

	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// metricPoint is one observation of one metric in a history response.
type metricPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// historyResponse groups the history of one identity by metric.
type historyResponse struct {
	ProjectKey string                   `json:"project_key"`
	Branch     string                   `json:"branch"`
	Days       int                      `json:"days"`
	FromCache  bool                     `json:"from_cache"`
	Truncated  bool                     `json:"truncated,omitempty"`
	Metrics    map[string][]metricPoint `json:"metrics"`
}

// handleMetricHistory handles the metric_history tool call.
func (s *Server) handleMetricHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectKey := request.GetString("project_key", "")
	if projectKey == "" {
		return mcp.NewToolResultError("project_key parameter is required"), nil
	}
	branch := request.GetString("branch", "")
	if branch == "" {
		return mcp.NewToolResultError("branch parameter is required"), nil
	}
	days := request.GetInt("days", 30)

	result, err := s.pipeline.FetchMetrics(ctx, projectKey, branch, days)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("fetch failed: %v", err)), nil
	}

	response := historyResponse{
		ProjectKey: projectKey,
		Branch:     branch,
		Days:       days,
		FromCache:  result.FromCache,
		Truncated:  result.Truncated,
		Metrics:    make(map[string][]metricPoint),
	}
	for _, rec := range result.Records {
		name := string(rec.Metric)
		response.Metrics[name] = append(response.Metrics[name], metricPoint{
			Date:  rec.ObservedAt.UTC().Format(time.RFC3339),
			Value: rec.Value,
		})
	}

	jsonBytes, err := json.Marshal(response)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}

	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// handleDataCoverage handles the data_coverage tool call.
func (s *Server) handleDataCoverage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectKey := request.GetString("project_key", "")
	if projectKey == "" {
		return mcp.NewToolResultError("project_key parameter is required"), nil
	}
	branch := request.GetString("branch", "")
	if branch == "" {
		return mcp.NewToolResultError("branch parameter is required"), nil
	}
	days := request.GetInt("days", 30)

	report, err := s.cache.CheckCoverage(ctx, projectKey, branch, days, time.Now().UTC())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("coverage check failed: %v", err)), nil
	}

	jsonBytes, err := json.Marshal(report)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal report: %v", err)), nil
	}

	return mcp.NewToolResultText(string(jsonBytes)), nil
}
