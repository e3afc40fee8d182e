// Package pipeline coordinates one refresh cycle: decide whether the
// cache covers a request, fetch from the remote service when it does
// not, persist what was fetched, and announce the write.
// This package is used by both the CLI and the MCP server.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"sonardash/src/broker"
	"sonardash/src/contracts"
	"sonardash/src/logger"
	"sonardash/src/metrics"
)

// Fetcher is the remote metrics source. The sonar client implements it.
type Fetcher interface {
	ListProjects(ctx context.Context, org string) ([]contracts.Project, error)
	ListBranches(ctx context.Context, projectKey string) ([]contracts.BranchInfo, error)
	Measures(ctx context.Context, projectKey, branch string) ([]contracts.MetricRecord, error)
	History(ctx context.Context, projectKey, branch string, from, to time.Time) ([]contracts.MetricRecord, error)
}

// Pipeline runs refresh cycles against one cache and one remote source.
type Pipeline struct {
	fetcher Fetcher
	cache   *metrics.Store
	broker  broker.Broker
	logger  logger.Logger
}

// New creates a pipeline. The broker is optional; pass nil to skip
// publishing cache events.
func New(fetcher Fetcher, cache *metrics.Store, brk broker.Broker, log logger.Logger) *Pipeline {
	if log == nil {
		log = logger.NewSilentLogger()
	}
	return &Pipeline{
		fetcher: fetcher,
		cache:   cache,
		broker:  brk,
		logger:  log,
	}
}

// Result describes where one identity's data came from.
type Result struct {
	ProjectKey string
	Branch     string
	Records    []contracts.MetricRecord
	FromCache  bool
	Truncated  bool
}

// FetchMetrics returns the metric records of one identity over the
// trailing window of `days` days, serving from the cache when it has
// coverage and refreshing from the remote service when it does not.
// Fetched records are written back before the call returns, so a
// subsequent identical request is a cache hit.
func (p *Pipeline) FetchMetrics(ctx context.Context, projectKey, branch string, days int) (Result, error) {
	requestID := uuid.New().String()
	now := time.Now().UTC()
	since := now.AddDate(0, 0, -days)

	report, err := p.cache.CheckCoverage(ctx, projectKey, branch, days, now)
	if err != nil {
		return Result{}, fmt.Errorf("coverage check for %s/%s failed: %w", projectKey, branch, err)
	}

	if report.HasCoverage {
		p.logger.Info("[Pipeline] %s: cache hit for %s/%s (%d observations)",
			requestID, projectKey, branch, report.RecordCount)
		records, truncated, err := p.cache.ReadRange(ctx, projectKey, branch, since, now, 0)
		if err != nil {
			return Result{}, fmt.Errorf("cache read for %s/%s failed: %w", projectKey, branch, err)
		}
		return Result{
			ProjectKey: projectKey,
			Branch:     branch,
			Records:    records,
			FromCache:  true,
			Truncated:  truncated,
		}, nil
	}

	p.logger.Info("[Pipeline] %s: refreshing %s/%s (%s)", requestID, projectKey, branch, report.Reason)

	fetched, err := p.fetcher.History(ctx, projectKey, branch, since, now)
	if err != nil {
		return Result{}, fmt.Errorf("history fetch for %s/%s failed: %w", projectKey, branch, err)
	}
	if len(fetched) == 0 {
		// Projects without analysis history may still expose current
		// measures.
		fetched, err = p.fetcher.Measures(ctx, projectKey, branch)
		if err != nil {
			return Result{}, fmt.Errorf("measures fetch for %s/%s failed: %w", projectKey, branch, err)
		}
	}
	if len(fetched) == 0 {
		p.logger.Warn("[Pipeline] %s: no data available for %s/%s", requestID, projectKey, branch)
		return Result{ProjectKey: projectKey, Branch: branch}, nil
	}

	if err := p.cache.WriteBatch(ctx, fetched); err != nil {
		return Result{}, fmt.Errorf("cache write for %s/%s failed: %w", projectKey, branch, err)
	}
	p.logger.Info("[Pipeline] %s: cached %d records for %s/%s", requestID, len(fetched), projectKey, branch)

	p.publishCached(ctx, requestID, projectKey, branch, len(fetched))

	records, truncated, err := p.cache.ReadRange(ctx, projectKey, branch, since, now, 0)
	if err != nil {
		return Result{}, fmt.Errorf("cache read for %s/%s failed: %w", projectKey, branch, err)
	}
	return Result{
		ProjectKey: projectKey,
		Branch:     branch,
		Records:    records,
		Truncated:  truncated,
	}, nil
}

// RefreshOrganization walks every project and branch of an organization
// and runs a refresh cycle for each. Failures on individual identities
// are logged and skipped so one broken project does not abort the walk.
func (p *Pipeline) RefreshOrganization(ctx context.Context, org string, days int) ([]Result, error) {
	projects, err := p.fetcher.ListProjects(ctx, org)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects for %s: %w", org, err)
	}
	p.logger.Info("[Pipeline] Found %d projects in %s", len(projects), org)

	var results []Result
	for _, project := range projects {
		branches, err := p.fetcher.ListBranches(ctx, project.Key)
		if err != nil {
			p.logger.Error("[Pipeline] Failed to list branches for %s: %v", project.Key, err)
			continue
		}
		for _, b := range branches {
			result, err := p.FetchMetrics(ctx, project.Key, b.Name, days)
			if err != nil {
				p.logger.Error("[Pipeline] Failed to refresh %s/%s: %v", project.Key, b.Name, err)
				continue
			}
			results = append(results, result)
		}
	}
	return results, nil
}

func (p *Pipeline) publishCached(ctx context.Context, requestID, projectKey, branch string, records int) {
	if p.broker == nil {
		return
	}
	event := contracts.MetricsCachedEvent{
		RequestID:  requestID,
		ProjectKey: projectKey,
		Branch:     branch,
		Records:    records,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("[Pipeline] Failed to marshal cache event: %v", err)
		return
	}
	if err := p.broker.Publish(ctx, contracts.TopicMetricsCached, projectKey, data); err != nil {
		p.logger.Error("[Pipeline] Failed to publish cache event: %v", err)
	}
}
