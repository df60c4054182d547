package model

import (
	"bytes"
	"encoding/json"
)

// InsightsRequest one Graph API insights call
type InsightsRequest struct {
	AccessToken string
	AccountID   string // act_<id>
	Since       string // YYYY-MM-DD
	Until       string // YYYY-MM-DD
	Fields      []string
	Level       InsightsLevel
	Breakdowns  []string
	Limit       int
}

// InsightsResponse GET /{account}/insights body. Exactly one of Data or Error is meaningful.
// Data rows are decoded one by one so a single malformed row cannot void the page.
type InsightsResponse struct {
	Data   []json.RawMessage `json:"data"`
	Error  *GraphError       `json:"error,omitempty"`
	Paging *struct {
		Next string `json:"next,omitempty"`
	} `json:"paging,omitempty"`
}

// GraphError error object returned by the Graph API
type GraphError struct {
	Message      string `json:"message"`
	Type         string `json:"type"`
	Code         int    `json:"code"`
	ErrorSubcode int    `json:"error_subcode,omitempty"`
	FBTraceID    string `json:"fbtrace_id,omitempty"`
}

// InsightRow raw insights row; the Graph API sends numbers as strings.
type InsightRow struct {
	AccountID         string          `json:"account_id"`
	CampaignID        string          `json:"campaign_id"`
	CampaignName      string          `json:"campaign_name"`
	AdsetID           string          `json:"adset_id"`
	AdsetName         string          `json:"adset_name"`
	AdID              string          `json:"ad_id"`
	AdName            string          `json:"ad_name"`
	DateStart         string          `json:"date_start"`
	DateStop          string          `json:"date_stop"`
	Age               string          `json:"age"`
	Gender            string          `json:"gender"`
	Country           string          `json:"country"`
	PublisherPlatform string          `json:"publisher_platform"`
	PlatformPosition  string          `json:"platform_position"`
	ImpressionDevice  string          `json:"impression_device"`
	Spend             FlexNumber      `json:"spend"`
	Impressions       FlexNumber      `json:"impressions"`
	Clicks            FlexNumber      `json:"clicks"`
	Reach             FlexNumber      `json:"reach"`
	Frequency         FlexNumber      `json:"frequency"`
	CTR               FlexNumber      `json:"ctr"`
	CPC               FlexNumber      `json:"cpc"`
	CPM               FlexNumber      `json:"cpm"`
	Actions           json.RawMessage `json:"actions,omitempty"`
	ActionValues      json.RawMessage `json:"action_values,omitempty"`
	CostPerAction     json.RawMessage `json:"cost_per_action_type,omitempty"`

	// DecodeErr set when the row arrived but could not be decoded; mapping rejects it.
	DecodeErr error `json:"-"`
}

// FlexNumber numeric field accepted both as a JSON string and as a JSON number.
// The raw text is kept; validation happens when the row is mapped.
type FlexNumber string

func (n *FlexNumber) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*n = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = FlexNumber(s)
		return nil
	}
	*n = FlexNumber(b)
	return nil
}
