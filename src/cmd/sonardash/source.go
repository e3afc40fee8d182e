package main

import (
	"context"
	"time"

	"sonardash/src/contracts"
	"sonardash/src/metrics"
	"sonardash/src/pipeline"
)

// pipelineSource adapts the pipeline and cache to the dashboard's data
// source interface.
type pipelineSource struct {
	pipeline *pipeline.Pipeline
	cache    *metrics.Store
}

func (s *pipelineSource) ListKnownProjects(ctx context.Context) ([]contracts.ProjectRef, error) {
	return s.cache.ListKnownProjects(ctx)
}

func (s *pipelineSource) FetchMetrics(ctx context.Context, projectKey, branch string, days int) ([]contracts.MetricRecord, error) {
	result, err := s.pipeline.FetchMetrics(ctx, projectKey, branch, days)
	if err != nil {
		return nil, err
	}
	return result.Records, nil
}

func timeNowUTC() time.Time {
	return time.Now().UTC()
}
