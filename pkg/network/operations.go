package network

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/frousselet/unifi-mcp/pkg/adapter"
)

// Window is the Network page state. It mirrors the fields the console returns
// alongside every list.
type Window struct {
	Offset     int
	Limit      int
	Count      int
	TotalCount int
}

func (w Window) HasMore() bool { return w.Offset+w.Count < w.TotalCount }

// NextOffset is the offset of the page following this one.
func (w Window) NextOffset() int { return w.Offset + w.Count }

// WindowOf returns the window attached to a list result.
func WindowOf(r adapter.Result) (Window, bool) {
	w, ok := r.Page.(Window)
	return w, ok
}

// ListParams selects a slice of a Network collection. A zero Limit means
// DefaultLimit.
type ListParams struct {
	Offset int
	Limit  int
}

func (p ListParams) query() url.Values {
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	offset := p.Offset
	if offset < 0 {
		offset = 0
	}
	return url.Values{
		"offset": {strconv.Itoa(offset)},
		"limit":  {strconv.Itoa(limit)},
	}
}

func sitePath(siteID string, parts ...string) string {
	p := "/v1/sites/" + url.PathEscape(siteID)
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

func (c *Client) list(ctx context.Context, path string, p ListParams) (adapter.Result, error) {
	return c.Execute(ctx, adapter.Get(path, p.query()))
}

func (c *Client) send(ctx context.Context, method, path string, body any) (adapter.Result, error) {
	return c.Execute(ctx, adapter.Request{Method: method, Path: path, Body: body})
}

// ──────────────────────────────────────────────────────────────────────────────
// Info & sites
// ──────────────────────────────────────────────────────────────────────────────

func (c *Client) Info(ctx context.Context) (adapter.Result, error) {
	return c.Execute(ctx, adapter.Get("/v1/info", nil))
}

func (c *Client) ListSites(ctx context.Context, p ListParams) (adapter.Result, error) {
	return c.list(ctx, "/v1/sites", p)
}

// ──────────────────────────────────────────────────────────────────────────────
// Devices
// ──────────────────────────────────────────────────────────────────────────────

func (c *Client) ListDevices(ctx context.Context, siteID string, p ListParams) (adapter.Result, error) {
	return c.list(ctx, sitePath(siteID, "devices"), p)
}

func (c *Client) GetDevice(ctx context.Context, siteID, deviceID string) (adapter.Result, error) {
	return c.Execute(ctx, adapter.Get(sitePath(siteID, "devices", url.PathEscape(deviceID)), nil))
}

func (c *Client) GetDeviceStatistics(ctx context.Context, siteID, deviceID string) (adapter.Result, error) {
	return c.Execute(ctx, adapter.Get(
		sitePath(siteID, "devices", url.PathEscape(deviceID), "statistics", "latest"), nil))
}

// ExecuteDeviceAction posts an action such as {"action":"RESTART"}.
func (c *Client) ExecuteDeviceAction(ctx context.Context, siteID, deviceID string, action any) (adapter.Result, error) {
	return c.send(ctx, http.MethodPost, sitePath(siteID, "devices", url.PathEscape(deviceID), "actions"), action)
}

// ──────────────────────────────────────────────────────────────────────────────
// Clients
// ──────────────────────────────────────────────────────────────────────────────

func (c *Client) ListClients(ctx context.Context, siteID string, p ListParams) (adapter.Result, error) {
	return c.list(ctx, sitePath(siteID, "clients"), p)
}

func (c *Client) GetClient(ctx context.Context, siteID, clientID string) (adapter.Result, error) {
	return c.Execute(ctx, adapter.Get(sitePath(siteID, "clients", url.PathEscape(clientID)), nil))
}

func (c *Client) ExecuteClientAction(ctx context.Context, siteID, clientID string, action any) (adapter.Result, error) {
	return c.send(ctx, http.MethodPost, sitePath(siteID, "clients", url.PathEscape(clientID), "actions"), action)
}

// ──────────────────────────────────────────────────────────────────────────────
// Networks
// ──────────────────────────────────────────────────────────────────────────────

func (c *Client) ListNetworks(ctx context.Context, siteID string, p ListParams) (adapter.Result, error) {
	return c.list(ctx, sitePath(siteID, "networks"), p)
}

func (c *Client) GetNetwork(ctx context.Context, siteID, networkID string) (adapter.Result, error) {
	return c.Execute(ctx, adapter.Get(sitePath(siteID, "networks", url.PathEscape(networkID)), nil))
}

func (c *Client) CreateNetwork(ctx context.Context, siteID string, data any) (adapter.Result, error) {
	return c.send(ctx, http.MethodPost, sitePath(siteID, "networks"), data)
}

func (c *Client) UpdateNetwork(ctx context.Context, siteID, networkID string, data any) (adapter.Result, error) {
	return c.send(ctx, http.MethodPut, sitePath(siteID, "networks", url.PathEscape(networkID)), data)
}

func (c *Client) DeleteNetwork(ctx context.Context, siteID, networkID string) (adapter.Result, error) {
	return c.send(ctx, http.MethodDelete, sitePath(siteID, "networks", url.PathEscape(networkID)), nil)
}

// ──────────────────────────────────────────────────────────────────────────────
// WiFi broadcasts
// ──────────────────────────────────────────────────────────────────────────────

func (c *Client) ListWiFi(ctx context.Context, siteID string, p ListParams) (adapter.Result, error) {
	return c.list(ctx, sitePath(siteID, "wifi", "broadcasts"), p)
}

func (c *Client) GetWiFi(ctx context.Context, siteID, wifiID string) (adapter.Result, error) {
	return c.Execute(ctx, adapter.Get(sitePath(siteID, "wifi", "broadcasts", url.PathEscape(wifiID)), nil))
}

func (c *Client) CreateWiFi(ctx context.Context, siteID string, data any) (adapter.Result, error) {
	return c.send(ctx, http.MethodPost, sitePath(siteID, "wifi", "broadcasts"), data)
}

func (c *Client) UpdateWiFi(ctx context.Context, siteID, wifiID string, data any) (adapter.Result, error) {
	return c.send(ctx, http.MethodPut, sitePath(siteID, "wifi", "broadcasts", url.PathEscape(wifiID)), data)
}

func (c *Client) DeleteWiFi(ctx context.Context, siteID, wifiID string) (adapter.Result, error) {
	return c.send(ctx, http.MethodDelete, sitePath(siteID, "wifi", "broadcasts", url.PathEscape(wifiID)), nil)
}

// ──────────────────────────────────────────────────────────────────────────────
// Firewall & DNS
// ──────────────────────────────────────────────────────────────────────────────

func (c *Client) ListFirewallZones(ctx context.Context, siteID string, p ListParams) (adapter.Result, error) {
	return c.list(ctx, sitePath(siteID, "firewall", "zones"), p)
}

func (c *Client) ListFirewallPolicies(ctx context.Context, siteID string, p ListParams) (adapter.Result, error) {
	return c.list(ctx, sitePath(siteID, "firewall", "policies"), p)
}

func (c *Client) CreateFirewallPolicy(ctx context.Context, siteID string, data any) (adapter.Result, error) {
	return c.send(ctx, http.MethodPost, sitePath(siteID, "firewall", "policies"), data)
}

func (c *Client) UpdateFirewallPolicy(ctx context.Context, siteID, policyID string, data any) (adapter.Result, error) {
	return c.send(ctx, http.MethodPut, sitePath(siteID, "firewall", "policies", url.PathEscape(policyID)), data)
}

func (c *Client) DeleteFirewallPolicy(ctx context.Context, siteID, policyID string) (adapter.Result, error) {
	return c.send(ctx, http.MethodDelete, sitePath(siteID, "firewall", "policies", url.PathEscape(policyID)), nil)
}

func (c *Client) ListDNSPolicies(ctx context.Context, siteID string, p ListParams) (adapter.Result, error) {
	return c.list(ctx, sitePath(siteID, "dns", "policies"), p)
}

// ──────────────────────────────────────────────────────────────────────────────
// Hotspot vouchers
// ──────────────────────────────────────────────────────────────────────────────

func (c *Client) ListVouchers(ctx context.Context, siteID string, p ListParams) (adapter.Result, error) {
	return c.list(ctx, sitePath(siteID, "hotspot", "vouchers"), p)
}

func (c *Client) CreateVouchers(ctx context.Context, siteID string, data any) (adapter.Result, error) {
	return c.send(ctx, http.MethodPost, sitePath(siteID, "hotspot", "vouchers"), data)
}

func (c *Client) DeleteVoucher(ctx context.Context, siteID, voucherID string) (adapter.Result, error) {
	return c.send(ctx, http.MethodDelete, sitePath(siteID, "hotspot", "vouchers", url.PathEscape(voucherID)), nil)
}

// ──────────────────────────────────────────────────────────────────────────────
// Supporting resources
// ──────────────────────────────────────────────────────────────────────────────

func (c *Client) ListWANs(ctx context.Context, siteID string, p ListParams) (adapter.Result, error) {
	return c.list(ctx, sitePath(siteID, "wans"), p)
}

func (c *Client) ListVPNTunnels(ctx context.Context, siteID string, p ListParams) (adapter.Result, error) {
	return c.list(ctx, sitePath(siteID, "vpn", "site-to-site-tunnels"), p)
}

func (c *Client) ListVPNServers(ctx context.Context, siteID string, p ListParams) (adapter.Result, error) {
	return c.list(ctx, sitePath(siteID, "vpn", "servers"), p)
}

func (c *Client) ListRADIUSProfiles(ctx context.Context, siteID string, p ListParams) (adapter.Result, error) {
	return c.list(ctx, sitePath(siteID, "radius", "profiles"), p)
}
