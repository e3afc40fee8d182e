// Package sonar provides a client for the SonarCloud web API.
package sonar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"sonardash/src/contracts"
)

// errTransient marks failures worth retrying.
var errTransient = errors.New("transient error")

const (
	// APIBaseURL is the base URL for the SonarCloud API.
	APIBaseURL = "https://sonarcloud.io/api"

	// projectPageSize is the page size for project listing.
	projectPageSize = 500

	// historyPageSize is the page size for historical measures, large
	// enough to cover a year of daily data points in one page.
	historyPageSize = 1000
)

// Client is a SonarCloud API client. Transient failures (timeouts,
// network errors, 429, 5xx) are retried with exponential backoff and
// jitter up to a fixed attempt ceiling; other client errors fail fast.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client

	// retry tuning, overridden in tests
	maxRetries      uint64
	initialInterval time.Duration
}

// NewClient creates a new SonarCloud API client.
func NewClient(token string) *Client {
	return &Client{
		token:   token,
		baseURL: APIBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxRetries:      3,
		initialInterval: 500 * time.Millisecond,
	}
}

// metricKeys renders the metric set as the comma-separated list the API
// expects.
func metricKeys() string {
	names := make([]string, len(contracts.AllMetrics))
	for i, m := range contracts.AllMetrics {
		names[i] = string(m)
	}
	return strings.Join(names, ",")
}

// get issues an authenticated GET and decodes the JSON response into
// out, retrying transient failures. Cancelling ctx stops the retry loop
// at the next boundary.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, params.Encode())

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			// Timeouts and network errors are retryable.
			return fmt.Errorf("%w: %v", errTransient, err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return backoff.Permanent(fmt.Errorf("failed to decode response: %w", err))
			}
			return nil
		case resp.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v (status %d)", errTransient, ErrRateLimited, resp.StatusCode)
		case resp.StatusCode >= 500:
			return fmt.Errorf("%w: server error (status %d)", errTransient, resp.StatusCode)
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return backoff.Permanent(fmt.Errorf("%w (status %d)", ErrAuthFailed, resp.StatusCode))
		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(fmt.Errorf("%w: %s", ErrNotFound, endpoint))
		default:
			return backoff.Permanent(fmt.Errorf("API request failed with status %d", resp.StatusCode))
		}
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.initialInterval
	policy := backoff.WithMaxRetries(backoff.WithContext(bo, ctx), c.maxRetries)

	err := backoff.Retry(op, policy)
	if err == nil {
		return nil
	}
	// Fail-fast errors surface as-is; an exhausted retry budget is
	// reported as a recoverable fetch failure.
	if errors.Is(err, errTransient) {
		return fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	return err
}

// ListProjects fetches all projects of an organization.
func (c *Client) ListProjects(ctx context.Context, organization string) ([]contracts.Project, error) {
	params := url.Values{}
	params.Set("organization", organization)
	params.Set("ps", fmt.Sprintf("%d", projectPageSize))

	var resp struct {
		Components []contracts.Project `json:"components"`
	}
	if err := c.get(ctx, "projects/search", params, &resp); err != nil {
		return nil, err
	}
	return resp.Components, nil
}

// ListBranches fetches all branches of a project.
func (c *Client) ListBranches(ctx context.Context, projectKey string) ([]contracts.BranchInfo, error) {
	params := url.Values{}
	params.Set("project", projectKey)

	var resp struct {
		Branches []contracts.BranchInfo `json:"branches"`
	}
	if err := c.get(ctx, "project_branches/list", params, &resp); err != nil {
		return nil, err
	}
	return resp.Branches, nil
}

// Measures fetches the current value of every tracked metric for a
// project and branch. The records carry the fetch time as their
// observation time.
func (c *Client) Measures(ctx context.Context, projectKey, branch string) ([]contracts.MetricRecord, error) {
	params := url.Values{}
	params.Set("component", projectKey)
	params.Set("metricKeys", metricKeys())
	if b := strings.TrimSpace(branch); b != "" {
		params.Set("branch", b)
	}

	var resp struct {
		Component struct {
			Measures []struct {
				Metric string `json:"metric"`
				Value  string `json:"value"`
			} `json:"measures"`
		} `json:"component"`
	}
	if err := c.get(ctx, "measures/component", params, &resp); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	records := make([]contracts.MetricRecord, 0, len(resp.Component.Measures))
	for _, m := range resp.Component.Measures {
		name := contracts.MetricName(m.Metric)
		if !name.IsValid() {
			continue
		}
		records = append(records, contracts.MetricRecord{
			ProjectKey: projectKey,
			Branch:     branch,
			Metric:     name,
			Value:      name.ParseValue(m.Value),
			ObservedAt: now,
		})
	}
	return records, nil
}

// History fetches historical measures for a project and branch over a
// date range. Ordering follows whatever the remote service returns.
func (c *Client) History(ctx context.Context, projectKey, branch string, since, until time.Time) ([]contracts.MetricRecord, error) {
	params := url.Values{}
	params.Set("component", projectKey)
	params.Set("metrics", metricKeys())
	params.Set("from", since.Format("2006-01-02"))
	params.Set("to", until.Format("2006-01-02"))
	params.Set("ps", fmt.Sprintf("%d", historyPageSize))
	if b := strings.TrimSpace(branch); b != "" {
		params.Set("branch", b)
	}

	var resp struct {
		Measures []struct {
			Metric  string `json:"metric"`
			History []struct {
				Date  string `json:"date"`
				Value string `json:"value"`
			} `json:"history"`
		} `json:"measures"`
	}
	if err := c.get(ctx, "measures/search_history", params, &resp); err != nil {
		return nil, err
	}

	var records []contracts.MetricRecord
	for _, m := range resp.Measures {
		name := contracts.MetricName(m.Metric)
		if !name.IsValid() {
			continue
		}
		for _, point := range m.History {
			observed, err := parseHistoryDate(point.Date)
			if err != nil {
				continue
			}
			records = append(records, contracts.MetricRecord{
				ProjectKey: projectKey,
				Branch:     branch,
				Metric:     name,
				Value:      name.ParseValue(point.Value),
				ObservedAt: observed,
			})
		}
	}
	return records, nil
}

// parseHistoryDate accepts the timestamp formats the history endpoint
// uses.
func parseHistoryDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05-0700", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date: %q", s)
}
