package facebook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/fouadsmari/DIA360-sub000/internal/config"
	"github.com/fouadsmari/DIA360-sub000/internal/interfaces"
	"github.com/fouadsmari/DIA360-sub000/internal/model"
	"github.com/fouadsmari/DIA360-sub000/internal/utils/httpclient"

	"github.com/sirupsen/logrus"
)

// maxErrorBody bytes of a non-JSON error body kept in the error message
const maxErrorBody = 512

// Client Graph API insights client. It performs exactly one GET per call and never retries.
type Client struct {
	baseURL    string
	version    string
	httpClient *http.Client
	logger     *logrus.Logger
}

var _ interfaces.InsightsClient = (*Client)(nil)

// NewClient builds a client from configuration.
func NewClient(cfg *config.FacebookConfig, logger *logrus.Logger) *Client {
	hc := httpclient.NewHTTPClient(httpclient.Options{Timeout: cfg.Timeout, Proxy: cfg.Proxy}, logger)
	return NewClientWithHTTP(cfg.BaseURL, cfg.APIVersion, hc, logger)
}

// NewClientWithHTTP builds a client on an existing *http.Client.
func NewClientWithHTTP(baseURL, version string, hc *http.Client, logger *logrus.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		version:    strings.Trim(version, "/"),
		httpClient: hc,
		logger:     logger,
	}
}

type timeRange struct {
	Since string `json:"since"`
	Until string `json:"until"`
}

// insightsURL GET /{version}/{account}/insights with the query the sync needs
func (c *Client) insightsURL(req model.InsightsRequest) (string, error) {
	tr, err := json.Marshal(timeRange{Since: req.Since, Until: req.Until})
	if err != nil {
		return "", err
	}
	q := url.Values{}
	q.Set("fields", strings.Join(req.Fields, ","))
	q.Set("time_range", string(tr))
	q.Set("time_increment", "1")
	q.Set("access_token", req.AccessToken)
	if req.Limit > 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}
	if req.Level != "" {
		q.Set("level", string(req.Level))
	}
	if len(req.Breakdowns) > 0 {
		q.Set("breakdowns", strings.Join(req.Breakdowns, ","))
	}

	path := req.AccountID + "/insights"
	if c.version != "" {
		path = c.version + "/" + path
	}
	return fmt.Sprintf("%s/%s?%s", c.baseURL, path, q.Encode()), nil
}

// FetchInsights returns the data rows, an *APIError when the remote reports an error,
// or a *RequestError when no usable response was received.
func (c *Client) FetchInsights(ctx context.Context, req model.InsightsRequest) ([]model.InsightRow, error) {
	if req.AccountID == "" {
		return nil, &RequestError{Err: fmt.Errorf("account id is required")}
	}
	endpoint, err := c.insightsURL(req)
	if err != nil {
		return nil, &RequestError{AccountID: req.AccountID, Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &RequestError{AccountID: req.AccountID, Err: err}
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.WithError(err).WithField("account_id", req.AccountID).Warn("facebook insights request failed")
		return nil, &RequestError{AccountID: req.AccountID, Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.WithError(err).Warn("close facebook response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RequestError{AccountID: req.AccountID, Err: fmt.Errorf("read body: %w", err)}
	}

	var parsed model.InsightsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, &APIError{StatusCode: resp.StatusCode, Code: resp.StatusCode, Message: truncate(string(body))}
		}
		return nil, &RequestError{AccountID: req.AccountID, Err: fmt.Errorf("decode body: %w", err)}
	}

	if parsed.Error != nil {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Message:    parsed.Error.Message,
			Type:       parsed.Error.Type,
			Code:       parsed.Error.Code,
			Subcode:    parsed.Error.ErrorSubcode,
			TraceID:    parsed.Error.FBTraceID,
		}
		c.logger.WithFields(logrus.Fields{
			"account_id": req.AccountID,
			"status":     resp.StatusCode,
			"code":       apiErr.Code,
			"fbtrace_id": apiErr.TraceID,
		}).Warn(apiErr.Message)
		return nil, apiErr
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Code: resp.StatusCode, Message: truncate(string(body))}
	}

	rows := decodeRows(parsed.Data)
	if parsed.Paging != nil && parsed.Paging.Next != "" {
		c.logger.WithFields(logrus.Fields{
			"account_id": req.AccountID,
			"since":      req.Since,
			"rows":       len(rows),
		}).Warn("insights response truncated by limit; raise facebook.limit")
	}
	c.logger.WithFields(logrus.Fields{
		"account_id": req.AccountID,
		"since":      req.Since,
		"until":      req.Until,
		"rows":       len(rows),
	}).Debug("facebook insights fetched")
	return rows, nil
}

// decodeRows decodes each data element on its own. An element that is null or does not
// decode is kept with DecodeErr set, so the caller skips that row and keeps the rest.
func decodeRows(raw []json.RawMessage) []model.InsightRow {
	rows := make([]model.InsightRow, len(raw))
	for i, r := range raw {
		if trimmed := bytes.TrimSpace(r); len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
			rows[i].DecodeErr = errors.New("empty row")
			continue
		}
		if err := json.Unmarshal(r, &rows[i]); err != nil {
			rows[i] = model.InsightRow{DecodeErr: err}
		}
	}
	return rows
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxErrorBody {
		return s
	}
	return s[:maxErrorBody] + "..."
}
