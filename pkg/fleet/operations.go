package fleet

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/frousselet/unifi-mcp/pkg/adapter"
)

// Cursor is the Site Manager page state: an opaque continuation token.
type Cursor struct {
	NextToken string
}

func (c Cursor) HasMore() bool { return c.NextToken != "" }

// CursorOf returns the cursor attached to a list result.
func CursorOf(r adapter.Result) (Cursor, bool) {
	c, ok := r.Page.(Cursor)
	return c, ok
}

// PageRequest selects one page of a list endpoint.
type PageRequest struct {
	PageSize  int
	NextToken string
}

func (p PageRequest) query() url.Values {
	size := p.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	q := url.Values{}
	q.Set("pageSize", strconv.Itoa(size))
	if p.NextToken != "" {
		q.Set("nextToken", p.NextToken)
	}
	return q
}

// DeviceFilter narrows ListDevices to hosts and an update time.
type DeviceFilter struct {
	HostIDs []string
	Time    string
	Page    PageRequest
}

// MetricsWindow bounds GetISPMetrics. Duration and the timestamps are
// mutually exclusive on the server side.
type MetricsWindow struct {
	Duration       string
	BeginTimestamp string
	EndTimestamp   string
}

// SiteSelector is one entry of an ISP metrics query body.
type SiteSelector struct {
	HostID         string `json:"hostId"`
	SiteID         string `json:"siteId"`
	BeginTimestamp string `json:"beginTimestamp,omitempty"`
	EndTimestamp   string `json:"endTimestamp,omitempty"`
}

type metricsQuery struct {
	Sites []SiteSelector `json:"sites"`
}

// ──────────────────────────────────────────────────────────────────────────────
// Hosts & sites
// ──────────────────────────────────────────────────────────────────────────────

func (c *Client) ListHosts(ctx context.Context, page PageRequest) (adapter.Result, error) {
	return c.Execute(ctx, adapter.Get("/hosts", page.query()))
}

func (c *Client) GetHost(ctx context.Context, hostID string) (adapter.Result, error) {
	return c.Execute(ctx, adapter.Get("/hosts/"+url.PathEscape(hostID), nil))
}

func (c *Client) ListSites(ctx context.Context, page PageRequest) (adapter.Result, error) {
	return c.Execute(ctx, adapter.Get("/sites", page.query()))
}

func (c *Client) ListDevices(ctx context.Context, f DeviceFilter) (adapter.Result, error) {
	q := f.Page.query()
	for _, id := range f.HostIDs {
		q.Add("hostIds[]", id)
	}
	if f.Time != "" {
		q.Set("time", f.Time)
	}
	return c.Execute(ctx, adapter.Get("/devices", q))
}

// ──────────────────────────────────────────────────────────────────────────────
// ISP metrics
// ──────────────────────────────────────────────────────────────────────────────

// GetISPMetrics fetches metrics of the given interval ("5m" or "1h") for all sites.
func (c *Client) GetISPMetrics(ctx context.Context, metricType string, w MetricsWindow) (adapter.Result, error) {
	q := url.Values{}
	if w.Duration != "" {
		q.Set("duration", w.Duration)
	}
	if w.BeginTimestamp != "" {
		q.Set("beginTimestamp", w.BeginTimestamp)
	}
	if w.EndTimestamp != "" {
		q.Set("endTimestamp", w.EndTimestamp)
	}
	return c.Execute(ctx, adapter.Get("/isp-metrics/"+url.PathEscape(metricType), q))
}

// QueryISPMetrics posts explicit site selectors. The selectors travel in the
// body, not the query string.
func (c *Client) QueryISPMetrics(ctx context.Context, metricType string, sites []SiteSelector) (adapter.Result, error) {
	if sites == nil {
		sites = []SiteSelector{}
	}
	return c.Execute(ctx, adapter.Request{
		Method: http.MethodPost,
		Path:   "/isp-metrics/" + url.PathEscape(metricType) + "/query",
		Body:   metricsQuery{Sites: sites},
	})
}

// ──────────────────────────────────────────────────────────────────────────────
// SD-WAN
// ──────────────────────────────────────────────────────────────────────────────

func (c *Client) ListSDWANConfigs(ctx context.Context) (adapter.Result, error) {
	return c.Execute(ctx, adapter.Get("/sd-wan-configs", nil))
}

func (c *Client) GetSDWANConfig(ctx context.Context, configID string) (adapter.Result, error) {
	return c.Execute(ctx, adapter.Get("/sd-wan-configs/"+url.PathEscape(configID), nil))
}

func (c *Client) GetSDWANConfigStatus(ctx context.Context, configID string) (adapter.Result, error) {
	return c.Execute(ctx, adapter.Get("/sd-wan-configs/"+url.PathEscape(configID)+"/status", nil))
}
