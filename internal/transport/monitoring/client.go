package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/gphotosync/internal/domain"
	"github.com/kailas-cloud/gphotosync/internal/domain/quota"
)

const (
	defaultBaseURL = "https://monitoring.googleapis.com/v3"
	defaultService = "photoslibrary.googleapis.com"
	requestMetric  = "serviceruntime.googleapis.com/api/request_count"
)

// Client reads today's request count for one API service from Cloud Monitoring.
type Client struct {
	baseURL    string
	httpClient *http.Client
	project    string
	service    string
	tokens     TokenSource
	clock      quota.Clock
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL sets a custom API base URL.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithService sets the consumed API service name.
func WithService(s string) Option {
	return func(c *Client) { c.service = s }
}

// New creates a monitoring client for project. The day window follows clock's reference timezone.
func New(project string, tokens TokenSource, clock quota.Clock, opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		project:    project,
		service:    defaultService,
		tokens:     tokens,
		clock:      clock,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type timeSeriesResponse struct {
	TimeSeries []struct {
		Points []struct {
			Value struct {
				Int64Value string `json:"int64Value"`
			} `json:"value"`
		} `json:"points"`
	} `json:"timeSeries"`
	NextPageToken string `json:"nextPageToken"`
}

// RequestCount sums the service's request_count points since local midnight.
// An empty result is reported as domain.ErrReconcileUnavailable, not as zero.
func (c *Client) RequestCount(ctx context.Context) (int64, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return 0, fmt.Errorf("monitoring token: %w", err)
	}

	now := c.clock.Now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var (
		total     int64
		points    int
		pageToken string
	)
	for {
		resp, err := c.listPage(ctx, token, start, now, pageToken)
		if err != nil {
			return 0, err
		}
		for _, ts := range resp.TimeSeries {
			for _, p := range ts.Points {
				v, err := strconv.ParseInt(p.Value.Int64Value, 10, 64)
				if err != nil {
					return 0, fmt.Errorf("monitoring: parse point %q: %w", p.Value.Int64Value, err)
				}
				total += v
				points++
			}
		}
		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	if points == 0 {
		return 0, fmt.Errorf("monitoring: no request_count data for %s: %w", c.service, domain.ErrReconcileUnavailable)
	}
	return total, nil
}

func (c *Client) listPage(
	ctx context.Context, token string, start, end time.Time, pageToken string,
) (timeSeriesResponse, error) {
	q := url.Values{}
	q.Set("filter", fmt.Sprintf(`metric.type=%q AND resource.type="consumed_api" AND resource.labels.service=%q`,
		requestMetric, c.service))
	q.Set("interval.startTime", start.UTC().Format(time.RFC3339))
	q.Set("interval.endTime", end.UTC().Format(time.RFC3339))
	q.Set("aggregation.alignmentPeriod", strconv.Itoa(int(end.Sub(start).Seconds())+60)+"s")
	q.Set("aggregation.perSeriesAligner", "ALIGN_SUM")
	q.Set("aggregation.crossSeriesReducer", "REDUCE_SUM")
	if pageToken != "" {
		q.Set("pageToken", pageToken)
	}

	u := fmt.Sprintf("%s/projects/%s/timeSeries?%s", c.baseURL, url.PathEscape(c.project), q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return timeSeriesResponse{}, fmt.Errorf("monitoring: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return timeSeriesResponse{}, fmt.Errorf("monitoring: request: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(httpResp.Body, 4096))
		return timeSeriesResponse{}, fmt.Errorf("monitoring: status %d: %s",
			httpResp.StatusCode, strings.TrimSpace(string(body)))
	}

	var resp timeSeriesResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return timeSeriesResponse{}, fmt.Errorf("monitoring: decode response: %w", err)
	}
	return resp, nil
}
