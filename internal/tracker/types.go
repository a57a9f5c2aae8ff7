package tracker

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Group is the dimension the reporting service aggregates report rows by.
type Group string

const (
	// GroupSite produces one row per traffic source site (sub1)
	GroupSite Group = "site"
	// GroupNameID produces one row per placement name + numeric id (sub4, sub7)
	GroupNameID Group = "name_id"
)

// Param returns the value sent as the "group" query parameter
func (g Group) Param() string {
	if g == GroupSite {
		return "sub1"
	}
	return "sub4,sub7"
}

// ParseGroup parses a grouping dimension name
func ParseGroup(s string) (Group, error) {
	switch s {
	case string(GroupSite), "sub1":
		return GroupSite, nil
	case string(GroupNameID), "sub4,sub7", "":
		return GroupNameID, nil
	}
	return "", fmt.Errorf("unknown grouping dimension %q", s)
}

// Direction is the server-side sort direction
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection parses a sort direction, defaulting to ascending
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "asc", "":
		return Asc, nil
	case "desc":
		return Desc, nil
	}
	return "", fmt.Errorf("unknown sort direction %q", s)
}

// sortFields is the subset of metric names the report can be sorted by
var sortFields = map[string]bool{
	"cost":          true,
	"total_revenue": true,
	"profit":        true,
	"convtype1":     true,
	"clicks":        true,
}

// ValidSortField reports whether the report can be sorted by the given metric
func ValidSortField(s string) bool {
	return sortFields[s]
}

// Row is one report record for a grouping key within a campaign.
// Metric fields can be absent from the source JSON and decode to zero.
type Row struct {
	Date           string  `json:"date,omitempty"`
	Sub1           string  `json:"sub1"`
	Sub4           string  `json:"sub4"`
	Sub7           int64   `json:"sub7"`
	PrelpClicksCTR float64 `json:"prelp_clicks_ctr"`
	Cost           float64 `json:"cost"`
	TotalRevenue   float64 `json:"total_revenue"`
	Profit         float64 `json:"profit"`
	Convtype1      float64 `json:"convtype1"`
	Convtype2      float64 `json:"convtype2"`
	Convtype3      float64 `json:"convtype3"`
	Type1CPA       float64 `json:"type1_cpa"`
	LPClicks       float64 `json:"lp_clicks"`
	Clicks         float64 `json:"clicks"`
	EPC            float64 `json:"epc"`
}

// StatusKey returns the key used to correlate this row with its persisted
// status entry. For the composite grouping the numeric sub7 id is the key
// even though both sub7 and sub4 columns are displayed.
func (r Row) StatusKey(g Group) string {
	if g == GroupSite {
		return r.Sub1
	}
	return strconv.FormatInt(r.Sub7, 10)
}

// StatusKeys extracts the status keys of all rows in order
func StatusKeys(rows []Row, g Group) []string {
	keys := make([]string, len(rows))
	for i, r := range rows {
		keys[i] = r.StatusKey(g)
	}
	return keys
}

// Stat is the aggregate metric block attached to a campaign
type Stat struct {
	Cost           float64 `json:"cost"`
	TotalRevenue   float64 `json:"total_revenue"`
	Profit         float64 `json:"profit"`
	Convtype1      float64 `json:"convtype1"`
	Convtype2      float64 `json:"convtype2"`
	Convtype3      float64 `json:"convtype3"`
	Type1CPA       float64 `json:"type1_cpa"`
	Type1CR        float64 `json:"type1_cr"`
	Type1ROI       float64 `json:"type1_roi"`
	Clicks         float64 `json:"clicks"`
	EPC            float64 `json:"epc"`
	PrelpClicks    float64 `json:"prelp_clicks"`
	PrelpClicksCTR float64 `json:"prelp_clicks_ctr"`
	LPViews        float64 `json:"lp_views"`
	LPClicks       float64 `json:"lp_clicks"`
}

// Campaign is one active campaign with its aggregate stats.
// The id arrives as a bare number from some tracker versions and as a
// string from others, so it is kept as json.Number.
type Campaign struct {
	ID    json.Number `json:"id"`
	Title string      `json:"title"`
	Stat  Stat        `json:"stat"`
}
