package tracker

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func newTestClient(handler http.HandlerFunc) (*Client, func()) {
	srv := httptest.NewServer(handler)
	c := NewClient(Config{
		BaseURL:  srv.URL,
		Timezone: "America/New_York",
	})
	return c, srv.Close
}

func TestCampaignsQueryParams(t *testing.T) {
	var got url.Values
	client, cleanup := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/campaigns" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		got = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items":[],"total":{}}`))
	})
	defer cleanup()

	_, _, err := client.Campaigns(context.Background(), CampaignQuery{
		APIKey:   "test-key",
		DateFrom: day("2024-03-01"),
		DateTo:   day("2024-03-07"),
	})
	if err != nil {
		t.Fatalf("campaigns request failed: %v", err)
	}

	want := map[string]string{
		"api_key":     "test-key",
		"date_from":   "2024-03-01",
		"date_to":     "2024-03-07",
		"status":      "1",
		"with_clicks": "false",
		"page":        "1",
		"per":         "100",
		"sortby":      "clicks",
		"direction":   "desc",
		"timezone":    "America/New_York",
		"total":       "true",
	}
	for k, v := range want {
		if got.Get(k) != v {
			t.Errorf("param %s = %q, want %q", k, got.Get(k), v)
		}
	}
}

func TestCampaignsDecodesItemsAndTotals(t *testing.T) {
	client, cleanup := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"items": [
				{"id": 101, "title": "Campaign A", "stat": {"profit": -72.5, "clicks": 900}},
				{"id": "102", "title": "Campaign B", "stat": {"profit": 14.2, "clicks": 300}}
			],
			"total": {"profit": -58.3, "clicks": 1200}
		}`))
	})
	defer cleanup()

	items, total, err := client.Campaigns(context.Background(), CampaignQuery{
		APIKey:   "test-key",
		DateFrom: day("2024-03-01"),
		DateTo:   day("2024-03-01"),
	})
	if err != nil {
		t.Fatalf("campaigns request failed: %v", err)
	}

	if len(items) != 2 {
		t.Fatalf("expected 2 campaigns, got %d", len(items))
	}
	// Numeric and string ids both decode
	if items[0].ID.String() != "101" {
		t.Errorf("expected id 101, got %s", items[0].ID.String())
	}
	if items[1].ID.String() != "102" {
		t.Errorf("expected id 102, got %s", items[1].ID.String())
	}
	if items[0].Stat.Profit != -72.5 {
		t.Errorf("expected profit -72.5, got %v", items[0].Stat.Profit)
	}
	if total.Clicks != 1200 {
		t.Errorf("expected total clicks 1200, got %v", total.Clicks)
	}
}

func TestReportQueryParams(t *testing.T) {
	var got url.Values
	client, cleanup := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/report" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		got = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items":[],"total":{}}`))
	})
	defer cleanup()

	_, _, err := client.Report(context.Background(), ReportQuery{
		APIKey:     "test-key",
		CampaignID: "101",
		DateFrom:   day("2024-03-01"),
		DateTo:     day("2024-03-07"),
		Group:      GroupSite,
		SortBy:     "cost",
		Direction:  Desc,
	})
	if err != nil {
		t.Fatalf("report request failed: %v", err)
	}

	want := map[string]string{
		"api_key":             "test-key",
		"campaign_id":         "101",
		"date_from":           "2024-03-01",
		"date_to":             "2024-03-07",
		"group":               "sub1",
		"sortby":              "cost",
		"direction":           "desc",
		"total":               "true",
		"page":                "1",
		"per":                 "1000",
		"table_settings_name": "table_campaigns_report",
		"timezone":            "America/New_York",
	}
	for k, v := range want {
		if got.Get(k) != v {
			t.Errorf("param %s = %q, want %q", k, got.Get(k), v)
		}
	}
}

func TestReportDefaultsSortAndDirection(t *testing.T) {
	var got url.Values
	client, cleanup := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items":[],"total":{}}`))
	})
	defer cleanup()

	_, _, err := client.Report(context.Background(), ReportQuery{
		APIKey:     "test-key",
		CampaignID: "101",
		DateFrom:   day("2024-03-01"),
		DateTo:     day("2024-03-01"),
		Group:      GroupNameID,
	})
	if err != nil {
		t.Fatalf("report request failed: %v", err)
	}

	if got.Get("sortby") != "profit" {
		t.Errorf("expected default sortby profit, got %q", got.Get("sortby"))
	}
	if got.Get("direction") != "asc" {
		t.Errorf("expected default direction asc, got %q", got.Get("direction"))
	}
	if got.Get("group") != "sub4,sub7" {
		t.Errorf("expected group sub4,sub7, got %q", got.Get("group"))
	}
}

func TestReportTotalsWithEmptyItems(t *testing.T) {
	client, cleanup := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items":[],"total":{"cost":55.5,"profit":-55.5}}`))
	})
	defer cleanup()

	rows, total, err := client.Report(context.Background(), ReportQuery{
		APIKey:     "test-key",
		CampaignID: "101",
		DateFrom:   day("2024-03-01"),
		DateTo:     day("2024-03-01"),
	})
	if err != nil {
		t.Fatalf("report request failed: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected no rows, got %d", len(rows))
	}
	if total.Cost != 55.5 || total.Profit != -55.5 {
		t.Errorf("totals must decode independently of rows, got %+v", total)
	}
}

func TestAuthRejected(t *testing.T) {
	client, cleanup := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	defer cleanup()

	_, _, err := client.Campaigns(context.Background(), CampaignQuery{
		APIKey:   "bad-key",
		DateFrom: day("2024-03-01"),
		DateTo:   day("2024-03-01"),
	})
	if !errors.Is(err, ErrAuthRejected) {
		t.Errorf("expected ErrAuthRejected, got %v", err)
	}
}

func TestServerErrorIsUnavailable(t *testing.T) {
	client, cleanup := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	defer cleanup()

	_, _, err := client.Report(context.Background(), ReportQuery{
		APIKey:     "test-key",
		CampaignID: "101",
		DateFrom:   day("2024-03-01"),
		DateTo:     day("2024-03-01"),
	})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestQueryValidation(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://unreachable.invalid"})

	tests := []struct {
		name string
		q    ReportQuery
	}{
		{"missing api key", ReportQuery{CampaignID: "101", DateFrom: day("2024-03-01"), DateTo: day("2024-03-01")}},
		{"missing campaign id", ReportQuery{APIKey: "k", DateFrom: day("2024-03-01"), DateTo: day("2024-03-01")}},
		{"inverted range", ReportQuery{APIKey: "k", CampaignID: "101", DateFrom: day("2024-03-07"), DateTo: day("2024-03-01")}},
		{"bad sort field", ReportQuery{APIKey: "k", CampaignID: "101", DateFrom: day("2024-03-01"), DateTo: day("2024-03-01"), SortBy: "epc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := client.Report(context.Background(), tt.q)
			if !errors.Is(err, ErrInvalidQuery) {
				t.Errorf("expected ErrInvalidQuery, got %v", err)
			}
		})
	}
}
