package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/frousselet/unifi-mcp/pkg/fleet"
)

type hostPageArgs struct {
	PageSize  int    `json:"page_size,omitempty" jsonschema:"Number of items per page (default 25)"`
	NextToken string `json:"next_token,omitempty" jsonschema:"Pagination token from a previous response to get the next page"`
}

type hostArgs struct {
	HostID string `json:"host_id" jsonschema:"The unique identifier of the host"`
}

type deviceListArgs struct {
	HostIDs   []string `json:"host_ids,omitempty" jsonschema:"Optional list of host IDs to filter devices by specific hosts"`
	Time      string   `json:"time,omitempty" jsonschema:"Optional ISO 8601 timestamp to filter by last update time"`
	PageSize  int      `json:"page_size,omitempty" jsonschema:"Number of items per page (default 25)"`
	NextToken string   `json:"next_token,omitempty" jsonschema:"Pagination token from a previous response to get the next page"`
}

type ispMetricsArgs struct {
	MetricType     string `json:"metric_type" jsonschema:"Interval granularity: 5m for 5-minute or 1h for hourly"`
	Duration       string `json:"duration,omitempty" jsonschema:"Lookback duration (24h, 7d, 30d). Cannot be used with timestamps"`
	BeginTimestamp string `json:"begin_timestamp,omitempty" jsonschema:"Start time in ISO 8601 format. Use with end_timestamp"`
	EndTimestamp   string `json:"end_timestamp,omitempty" jsonschema:"End time in ISO 8601 format. Use with begin_timestamp"`
}

type ispQueryArgs struct {
	MetricType     string               `json:"metric_type" jsonschema:"Interval granularity: 5m for 5-minute or 1h for hourly"`
	Sites          []fleet.SiteSelector `json:"sites" jsonschema:"Site selectors, each with hostId and siteId and optionally beginTimestamp and endTimestamp"`
	BeginTimestamp string               `json:"begin_timestamp,omitempty" jsonschema:"Start time applied to selectors that do not set their own"`
	EndTimestamp   string               `json:"end_timestamp,omitempty" jsonschema:"End time applied to selectors that do not set their own"`
}

type sdwanArgs struct {
	ConfigID      string `json:"config_id,omitempty" jsonschema:"Optional SD-WAN config ID. Omit to list all configs"`
	IncludeStatus bool   `json:"include_status,omitempty" jsonschema:"If true and config_id is provided, also fetch deployment status"`
}

func (ts *toolset) registerFleet(s *mcp.Server) {
	fc := ts.set.Fleet()

	addTool(s, ts, "list_hosts",
		"List all UniFi hosts (consoles/gateways) associated with your account, with type, IP address, firmware version, and connectivity status.",
		func(ctx context.Context, in hostPageArgs) (reply, error) {
			res, err := fc.ListHosts(ctx, fleet.PageRequest{PageSize: in.PageSize, NextToken: in.NextToken})
			if err != nil {
				return reply{}, err
			}
			return render(res, ""), nil
		})

	addTool(s, ts, "get_host",
		"Get detailed information about a specific UniFi host. Use list_hosts first to find host IDs.",
		func(ctx context.Context, in hostArgs) (reply, error) {
			res, err := fc.GetHost(ctx, in.HostID)
			if err != nil {
				return reply{}, err
			}
			return render(res, ""), nil
		})

	addTool(s, ts, "list_sites",
		"List all UniFi Network sites across all hosts in your account, with timezone, device/client counts, ISP info, and permissions.",
		func(ctx context.Context, in hostPageArgs) (reply, error) {
			res, err := fc.ListSites(ctx, fleet.PageRequest{PageSize: in.PageSize, NextToken: in.NextToken})
			if err != nil {
				return reply{}, err
			}
			return render(res, ""), nil
		})

	addTool(s, ts, "list_devices",
		"List all UniFi network devices (access points, switches, gateways, etc.), optionally filtered by host.",
		func(ctx context.Context, in deviceListArgs) (reply, error) {
			res, err := fc.ListDevices(ctx, fleet.DeviceFilter{
				HostIDs: in.HostIDs,
				Time:    in.Time,
				Page:    fleet.PageRequest{PageSize: in.PageSize, NextToken: in.NextToken},
			})
			if err != nil {
				return reply{}, err
			}
			return render(res, ""), nil
		})

	addTool(s, ts, "get_isp_metrics",
		"Get ISP performance metrics (latency, speeds, uptime, packet loss) across all sites. 5-minute metrics cover 24h, hourly metrics cover 30 days.",
		func(ctx context.Context, in ispMetricsArgs) (reply, error) {
			res, err := fc.GetISPMetrics(ctx, in.MetricType, fleet.MetricsWindow{
				Duration:       in.Duration,
				BeginTimestamp: in.BeginTimestamp,
				EndTimestamp:   in.EndTimestamp,
			})
			if err != nil {
				return reply{}, err
			}
			return render(res, ""), nil
		})

	addTool(s, ts, "query_isp_metrics",
		"Query ISP metrics for specific sites. Use list_sites first to get site and host IDs.",
		func(ctx context.Context, in ispQueryArgs) (reply, error) {
			sites := make([]fleet.SiteSelector, len(in.Sites))
			for i, sel := range in.Sites {
				if sel.BeginTimestamp == "" {
					sel.BeginTimestamp = in.BeginTimestamp
				}
				if sel.EndTimestamp == "" {
					sel.EndTimestamp = in.EndTimestamp
				}
				sites[i] = sel
			}
			res, err := fc.QueryISPMetrics(ctx, in.MetricType, sites)
			if err != nil {
				return reply{}, err
			}
			return render(res, ""), nil
		})

	addTool(s, ts, "get_sdwan_config",
		"Get SD-WAN configurations. Without config_id lists all configurations; with config_id returns one, plus its deployment status when include_status is set.",
		func(ctx context.Context, in sdwanArgs) (reply, error) {
			if in.ConfigID == "" {
				res, err := fc.ListSDWANConfigs(ctx)
				if err != nil {
					return reply{}, err
				}
				return render(res, ""), nil
			}

			cfg, err := fc.GetSDWANConfig(ctx, in.ConfigID)
			if err != nil {
				return reply{}, err
			}
			parts := []section{{title: "Configuration", res: cfg}}
			if in.IncludeStatus {
				status, err := fc.GetSDWANConfigStatus(ctx, in.ConfigID)
				if err != nil {
					return reply{}, err
				}
				parts = append(parts, section{title: "Deployment Status", res: status})
			}
			return renderSections(parts...), nil
		})
}
