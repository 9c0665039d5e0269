package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/frousselet/unifi-mcp/pkg/adapter"
	"github.com/frousselet/unifi-mcp/pkg/network"
)

type siteListArgs struct {
	SiteID string `json:"site_id" jsonschema:"The site ID (get from network_info)"`
	Offset int    `json:"offset,omitempty" jsonschema:"Pagination offset (default 0)"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Items per page (default 25, max 200)"`
}

func (a siteListArgs) params() network.ListParams {
	return network.ListParams{Offset: a.Offset, Limit: a.Limit}
}

// Single-resource tools keep the argument names agents already know
// (network_id, wifi_id, ...) while sharing one handler shape.
type siteRef interface {
	site() string
	item() string
}

type siteRefData interface {
	siteRef
	payload() map[string]any
}

type networkRef struct {
	SiteID    string `json:"site_id" jsonschema:"The site ID"`
	NetworkID string `json:"network_id" jsonschema:"The network ID"`
}

func (a networkRef) site() string { return a.SiteID }
func (a networkRef) item() string { return a.NetworkID }

type wifiRef struct {
	SiteID string `json:"site_id" jsonschema:"The site ID"`
	WiFiID string `json:"wifi_id" jsonschema:"The WiFi broadcast ID"`
}

func (a wifiRef) site() string { return a.SiteID }
func (a wifiRef) item() string { return a.WiFiID }

type policyRef struct {
	SiteID   string `json:"site_id" jsonschema:"The site ID"`
	PolicyID string `json:"policy_id" jsonschema:"The firewall policy ID"`
}

func (a policyRef) site() string { return a.SiteID }
func (a policyRef) item() string { return a.PolicyID }

type voucherRef struct {
	SiteID    string `json:"site_id" jsonschema:"The site ID"`
	VoucherID string `json:"voucher_id" jsonschema:"The voucher ID"`
}

func (a voucherRef) site() string { return a.SiteID }
func (a voucherRef) item() string { return a.VoucherID }

type networkUpdate struct {
	SiteID    string         `json:"site_id" jsonschema:"The site ID"`
	NetworkID string         `json:"network_id" jsonschema:"The network ID to update"`
	Data      map[string]any `json:"data" jsonschema:"Updated network configuration"`
}

func (a networkUpdate) site() string            { return a.SiteID }
func (a networkUpdate) item() string            { return a.NetworkID }
func (a networkUpdate) payload() map[string]any { return a.Data }

type wifiUpdate struct {
	SiteID string         `json:"site_id" jsonschema:"The site ID"`
	WiFiID string         `json:"wifi_id" jsonschema:"The WiFi broadcast ID to update"`
	Data   map[string]any `json:"data" jsonschema:"Updated WiFi configuration"`
}

func (a wifiUpdate) site() string            { return a.SiteID }
func (a wifiUpdate) item() string            { return a.WiFiID }
func (a wifiUpdate) payload() map[string]any { return a.Data }

type policyUpdate struct {
	SiteID   string         `json:"site_id" jsonschema:"The site ID"`
	PolicyID string         `json:"policy_id" jsonschema:"The firewall policy ID to update"`
	Data     map[string]any `json:"data" jsonschema:"Updated firewall policy configuration"`
}

func (a policyUpdate) site() string            { return a.SiteID }
func (a policyUpdate) item() string            { return a.PolicyID }
func (a policyUpdate) payload() map[string]any { return a.Data }

type siteCreateArgs struct {
	SiteID string         `json:"site_id" jsonschema:"The site ID"`
	Data   map[string]any `json:"data" jsonschema:"Resource configuration as accepted by the console"`
}

type deviceGetArgs struct {
	SiteID            string `json:"site_id" jsonschema:"The site ID"`
	DeviceID          string `json:"device_id" jsonschema:"The device ID"`
	IncludeStatistics bool   `json:"include_statistics,omitempty" jsonschema:"If true, also fetch latest device statistics"`
}

type deviceActionArgs struct {
	SiteID   string `json:"site_id" jsonschema:"The site ID"`
	DeviceID string `json:"device_id" jsonschema:"The device ID"`
	Action   string `json:"action" jsonschema:"The action to execute (e.g. restart, locate, adopt)"`
}

type clientGetArgs struct {
	SiteID   string `json:"site_id" jsonschema:"The site ID"`
	ClientID string `json:"client_id" jsonschema:"The client ID"`
}

type clientActionArgs struct {
	SiteID   string `json:"site_id" jsonschema:"The site ID"`
	ClientID string `json:"client_id" jsonschema:"The client ID"`
	Action   string `json:"action" jsonschema:"The action to execute (e.g. block, reconnect)"`
}

type networkListFunc func(*network.Client, context.Context, string, network.ListParams) (adapter.Result, error)
type networkGetFunc func(*network.Client, context.Context, string, string) (adapter.Result, error)
type networkCreateFunc func(*network.Client, context.Context, string, any) (adapter.Result, error)
type networkUpdateFunc func(*network.Client, context.Context, string, string, any) (adapter.Result, error)

// Collection tools share one shape: a site, an offset window, one list call.
var networkLists = []struct {
	name, description string
	call              networkListFunc
}{
	{"network_list_devices", "List all adopted devices on a local UniFi site.", (*network.Client).ListDevices},
	{"network_list_clients", "List all connected clients on a local UniFi site.", (*network.Client).ListClients},
	{"network_list_networks", "List all configured networks (VLANs) on a local UniFi site.", (*network.Client).ListNetworks},
	{"network_list_wifi", "List all WiFi broadcasts (SSIDs) on a local UniFi site.", (*network.Client).ListWiFi},
	{"network_list_firewall_zones", "List firewall zones on a local UniFi site.", (*network.Client).ListFirewallZones},
	{"network_list_firewall_policies", "List firewall policies on a local UniFi site.", (*network.Client).ListFirewallPolicies},
	{"network_list_dns_policies", "List DNS policies on a local UniFi site.", (*network.Client).ListDNSPolicies},
	{"network_list_vouchers", "List hotspot vouchers on a local UniFi site.", (*network.Client).ListVouchers},
	{"network_list_wans", "List WAN interfaces on a local UniFi site.", (*network.Client).ListWANs},
	{"network_list_vpn_tunnels", "List site-to-site VPN tunnels on a local UniFi site.", (*network.Client).ListVPNTunnels},
	{"network_list_vpn_servers", "List VPN servers on a local UniFi site.", (*network.Client).ListVPNServers},
	{"network_list_radius_profiles", "List RADIUS profiles on a local UniFi site.", (*network.Client).ListRADIUSProfiles},
}

var networkCreates = []struct {
	name, description, ack string
	call                   networkCreateFunc
}{
	{"network_create_network", "Create a new network on a local UniFi site.", "Network created", (*network.Client).CreateNetwork},
	{"network_create_wifi", "Create a new WiFi broadcast on a local UniFi site.", "WiFi broadcast created", (*network.Client).CreateWiFi},
	{"network_create_firewall_policy", "Create a firewall policy on a local UniFi site.", "Firewall policy created", (*network.Client).CreateFirewallPolicy},
	{"network_create_vouchers", "Create hotspot vouchers on a local UniFi site.", "Vouchers created", (*network.Client).CreateVouchers},
}

func done(action string) string { return action + " completed successfully." }

func (ts *toolset) registerNetwork(s *mcp.Server) {
	addTool(s, ts, "network_info",
		"Get UniFi Network application info and list all local sites. Use this first to discover site IDs needed by other network_* tools.",
		func(ctx context.Context, _ struct{}) (reply, error) {
			nc, err := ts.set.Network()
			if err != nil {
				return reply{}, err
			}
			info, err := nc.Info(ctx)
			if err != nil {
				return reply{}, err
			}
			sites, err := nc.ListSites(ctx, network.ListParams{})
			if err != nil {
				return reply{}, err
			}
			return renderSections(
				section{title: "Application", res: info},
				section{title: "Sites", res: sites},
			), nil
		})

	for _, t := range networkLists {
		call := t.call
		addTool(s, ts, t.name, t.description, func(ctx context.Context, in siteListArgs) (reply, error) {
			nc, err := ts.set.Network()
			if err != nil {
				return reply{}, err
			}
			res, err := call(nc, ctx, in.SiteID, in.params())
			if err != nil {
				return reply{}, err
			}
			return render(res, ""), nil
		})
	}

	for _, t := range networkCreates {
		call, ack := t.call, done(t.ack)
		addTool(s, ts, t.name, t.description, func(ctx context.Context, in siteCreateArgs) (reply, error) {
			nc, err := ts.set.Network()
			if err != nil {
				return reply{}, err
			}
			res, err := call(nc, ctx, in.SiteID, in.Data)
			if err != nil {
				return reply{}, err
			}
			return render(res, ack), nil
		})
	}

	addNetworkItem[networkRef](s, ts, "network_get_network", "Get detailed information about a specific network.", "", (*network.Client).GetNetwork)
	addNetworkUpdate[networkUpdate](s, ts, "network_update_network", "Update an existing network on a local UniFi site.", "Network updated", (*network.Client).UpdateNetwork)
	addNetworkItem[networkRef](s, ts, "network_delete_network", "Delete a network from a local UniFi site.", done("Network deleted"), (*network.Client).DeleteNetwork)

	addNetworkItem[wifiRef](s, ts, "network_get_wifi", "Get detailed information about a specific WiFi broadcast.", "", (*network.Client).GetWiFi)
	addNetworkUpdate[wifiUpdate](s, ts, "network_update_wifi", "Update an existing WiFi broadcast on a local UniFi site.", "WiFi broadcast updated", (*network.Client).UpdateWiFi)
	addNetworkItem[wifiRef](s, ts, "network_delete_wifi", "Delete a WiFi broadcast from a local UniFi site.", done("WiFi broadcast deleted"), (*network.Client).DeleteWiFi)

	addNetworkUpdate[policyUpdate](s, ts, "network_update_firewall_policy", "Update a firewall policy on a local UniFi site.", "Firewall policy updated", (*network.Client).UpdateFirewallPolicy)
	addNetworkItem[policyRef](s, ts, "network_delete_firewall_policy", "Delete a firewall policy from a local UniFi site.", done("Firewall policy deleted"), (*network.Client).DeleteFirewallPolicy)

	addNetworkItem[voucherRef](s, ts, "network_delete_voucher", "Delete a hotspot voucher from a local UniFi site.", done("Voucher deleted"), (*network.Client).DeleteVoucher)

	// ── Devices & clients ───────────────────────────────────────────────

	addTool(s, ts, "network_get_device",
		"Get detailed information about a specific device, optionally with its latest statistics.",
		func(ctx context.Context, in deviceGetArgs) (reply, error) {
			nc, err := ts.set.Network()
			if err != nil {
				return reply{}, err
			}
			dev, err := nc.GetDevice(ctx, in.SiteID, in.DeviceID)
			if err != nil {
				return reply{}, err
			}
			if !in.IncludeStatistics {
				return render(dev, ""), nil
			}
			stats, err := nc.GetDeviceStatistics(ctx, in.SiteID, in.DeviceID)
			if err != nil {
				return reply{}, err
			}
			return renderSections(
				section{res: dev},
				section{title: "Latest Statistics", res: stats},
			), nil
		})

	addTool(s, ts, "network_device_action",
		"Execute an action on a UniFi device (restart, locate, adopt).",
		func(ctx context.Context, in deviceActionArgs) (reply, error) {
			nc, err := ts.set.Network()
			if err != nil {
				return reply{}, err
			}
			res, err := nc.ExecuteDeviceAction(ctx, in.SiteID, in.DeviceID, map[string]string{"action": in.Action})
			if err != nil {
				return reply{}, err
			}
			return render(res, "Action executed successfully."), nil
		})

	addTool(s, ts, "network_get_client",
		"Get detailed information about a specific connected client.",
		func(ctx context.Context, in clientGetArgs) (reply, error) {
			nc, err := ts.set.Network()
			if err != nil {
				return reply{}, err
			}
			res, err := nc.GetClient(ctx, in.SiteID, in.ClientID)
			if err != nil {
				return reply{}, err
			}
			return render(res, ""), nil
		})

	addTool(s, ts, "network_client_action",
		"Execute an action on a connected client (block, reconnect).",
		func(ctx context.Context, in clientActionArgs) (reply, error) {
			nc, err := ts.set.Network()
			if err != nil {
				return reply{}, err
			}
			res, err := nc.ExecuteClientAction(ctx, in.SiteID, in.ClientID, map[string]string{"action": in.Action})
			if err != nil {
				return reply{}, err
			}
			return render(res, "Action executed successfully."), nil
		})
}

// addNetworkItem registers a tool acting on one site resource. ack is empty
// for reads.
func addNetworkItem[In siteRef](s *mcp.Server, ts *toolset, name, description, ack string, call networkGetFunc) {
	addTool(s, ts, name, description, func(ctx context.Context, in In) (reply, error) {
		nc, err := ts.set.Network()
		if err != nil {
			return reply{}, err
		}
		res, err := call(nc, ctx, in.site(), in.item())
		if err != nil {
			return reply{}, err
		}
		return render(res, ack), nil
	})
}

func addNetworkUpdate[In siteRefData](s *mcp.Server, ts *toolset, name, description, action string, call networkUpdateFunc) {
	ack := done(action)
	addTool(s, ts, name, description, func(ctx context.Context, in In) (reply, error) {
		nc, err := ts.set.Network()
		if err != nil {
			return reply{}, err
		}
		res, err := call(nc, ctx, in.site(), in.item(), in.payload())
		if err != nil {
			return reply{}, err
		}
		return render(res, ack), nil
	})
}
