package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/trackboard/trackboard/internal/metrics"
)

var (
	// ErrAuthRejected means the reporting service rejected the API key (HTTP 401)
	ErrAuthRejected = errors.New("reporting service rejected API key")
	// ErrUnavailable covers any other non-2xx response or transport failure
	ErrUnavailable = errors.New("reporting service unavailable")
	// ErrInvalidQuery means the query parameters failed local validation
	ErrInvalidQuery = errors.New("invalid report query")
)

// Config contains client settings for the reporting service
type Config struct {
	BaseURL          string
	Timezone         string
	CampaignsPerPage int
	ReportPerPage    int
	Timeout          time.Duration
}

// Client is a reporting service API client.
// Every call performs a fresh network round trip: the underlying report can
// change between calls (rolling conversion attribution), so results are
// never memoized.
type Client struct {
	baseURL      string
	timezone     string
	campaignsPer int
	reportPer    int
	httpClient   *http.Client
}

// NewClient creates a new reporting service client
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	campaignsPer := cfg.CampaignsPerPage
	if campaignsPer == 0 {
		campaignsPer = 100
	}
	reportPer := cfg.ReportPerPage
	if reportPer == 0 {
		reportPer = 1000
	}
	return &Client{
		baseURL:      cfg.BaseURL,
		timezone:     cfg.Timezone,
		campaignsPer: campaignsPer,
		reportPer:    reportPer,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// CampaignQuery selects the date range for the campaign list
type CampaignQuery struct {
	APIKey   string
	DateFrom time.Time
	DateTo   time.Time
}

// ReportQuery selects one campaign report
type ReportQuery struct {
	APIKey     string
	CampaignID string
	DateFrom   time.Time
	DateTo     time.Time
	Group      Group
	SortBy     string
	Direction  Direction
}

// Validate checks the query parameters before any network call is made
func (q ReportQuery) Validate() error {
	if q.APIKey == "" {
		return fmt.Errorf("%w: api key is required", ErrInvalidQuery)
	}
	if q.CampaignID == "" {
		return fmt.Errorf("%w: campaign id is required", ErrInvalidQuery)
	}
	if q.DateTo.Before(q.DateFrom) {
		return fmt.Errorf("%w: date_from must not be after date_to", ErrInvalidQuery)
	}
	if q.SortBy != "" && !ValidSortField(q.SortBy) {
		return fmt.Errorf("%w: cannot sort by %q", ErrInvalidQuery, q.SortBy)
	}
	return nil
}

type campaignsResponse struct {
	Items []Campaign `json:"items"`
	Total Stat       `json:"total"`
}

type reportResponse struct {
	Items []Row `json:"items"`
	Total Row   `json:"total"`
}

// Campaigns fetches the active campaign list with aggregate totals for the
// date range
func (c *Client) Campaigns(ctx context.Context, q CampaignQuery) ([]Campaign, Stat, error) {
	if q.APIKey == "" {
		return nil, Stat{}, fmt.Errorf("%w: api key is required", ErrInvalidQuery)
	}
	if q.DateTo.Before(q.DateFrom) {
		return nil, Stat{}, fmt.Errorf("%w: date_from must not be after date_to", ErrInvalidQuery)
	}

	params := url.Values{}
	params.Set("api_key", q.APIKey)
	params.Set("date_from", q.DateFrom.Format("2006-01-02"))
	params.Set("date_to", q.DateTo.Format("2006-01-02"))
	params.Set("status", "1")
	params.Set("with_clicks", "false")
	params.Set("page", "1")
	params.Set("per", strconv.Itoa(c.campaignsPer))
	params.Set("sortby", "clicks")
	params.Set("direction", "desc")
	params.Set("timezone", c.timezone)
	params.Set("total", "true")

	var resp campaignsResponse
	if err := c.get(ctx, "/api/campaigns", params, &resp); err != nil {
		return nil, Stat{}, err
	}
	return resp.Items, resp.Total, nil
}

// Report fetches one campaign's rows grouped by the requested dimension,
// plus the aggregate totals record. Rows are ordered per the server's sort;
// totals cover the full filtered range independent of row pagination.
func (c *Client) Report(ctx context.Context, q ReportQuery) ([]Row, Row, error) {
	if err := q.Validate(); err != nil {
		return nil, Row{}, err
	}

	direction := q.Direction
	if direction == "" {
		direction = Asc
	}
	sortBy := q.SortBy
	if sortBy == "" {
		sortBy = "profit"
	}

	params := url.Values{}
	params.Set("api_key", q.APIKey)
	params.Set("date_from", q.DateFrom.Format("2006-01-02"))
	params.Set("date_to", q.DateTo.Format("2006-01-02"))
	params.Set("timezone", c.timezone)
	params.Set("direction", string(direction))
	params.Set("group", q.Group.Param())
	params.Set("sortby", sortBy)
	params.Set("total", "true")
	params.Set("page", "1")
	params.Set("per", strconv.Itoa(c.reportPer))
	params.Set("table_settings_name", "table_campaigns_report")
	params.Set("campaign_id", q.CampaignID)

	var resp reportResponse
	if err := c.get(ctx, "/api/report", params, &resp); err != nil {
		return nil, Row{}, err
	}
	return resp.Items, resp.Total, nil
}

// get performs a GET request against the reporting service
func (c *Client) get(ctx context.Context, path string, params url.Values, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.track(path, "error", start)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	c.track(path, strconv.Itoa(resp.StatusCode), start)

	if resp.StatusCode == http.StatusUnauthorized {
		if m := metrics.Global(); m != nil {
			m.UpstreamAuthRejectedTotal.Inc()
		}
		return ErrAuthRejected
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: HTTP %d", ErrUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	return nil
}

func (c *Client) track(path, status string, start time.Time) {
	m := metrics.Global()
	if m == nil {
		return
	}
	m.UpstreamRequestsTotal.WithLabelValues(path, status).Inc()
	m.UpstreamRequestDurationSeconds.WithLabelValues(path).Observe(time.Since(start).Seconds())
}
