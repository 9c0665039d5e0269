package tools

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/frousselet/unifi-mcp/pkg/audit"
	"github.com/frousselet/unifi-mcp/pkg/backends"
	"github.com/frousselet/unifi-mcp/pkg/fleet"
	"github.com/frousselet/unifi-mcp/pkg/network"
	"github.com/frousselet/unifi-mcp/pkg/protect"
)

type fakeRecorder struct {
	mu   sync.Mutex
	invs []*audit.Invocation
}

func (f *fakeRecorder) Record(_ context.Context, inv *audit.Invocation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invs = append(f.invs, inv)
	return nil
}

func (f *fakeRecorder) last() *audit.Invocation {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.invs) == 0 {
		return nil
	}
	return f.invs[len(f.invs)-1]
}

// backendsHandlers are the fake consoles a test wires in. A nil console
// handler leaves that adapter unconfigured.
type backendsHandlers struct {
	fleet   http.HandlerFunc
	network http.HandlerFunc
	protect http.HandlerFunc
}

func newTestSession(t *testing.T, h backendsHandlers, rec Recorder) *mcp.ClientSession {
	t.Helper()
	t.Setenv(network.EnvHost, "")
	t.Setenv(protect.EnvHost, "")

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	lax := false

	fleetHandler := h.fleet
	if fleetHandler == nil {
		fleetHandler = func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`{"data":[]}`)) }
	}
	fsrv := httptest.NewServer(fleetHandler)
	t.Cleanup(fsrv.Close)

	opts := backends.Options{
		Fleet:  fleet.Config{APIKey: "k", BaseURL: fsrv.URL + "/v1", Timeout: 2 * time.Second},
		Logger: log,
	}
	if h.network != nil {
		nsrv := httptest.NewTLSServer(h.network)
		t.Cleanup(nsrv.Close)
		opts.Network = network.Config{APIKey: "k", BaseURL: nsrv.URL, VerifyTLS: &lax, Timeout: 2 * time.Second}
	}
	if h.protect != nil {
		psrv := httptest.NewTLSServer(h.protect)
		t.Cleanup(psrv.Close)
		opts.Protect = protect.Config{APIKey: "k", BaseURL: psrv.URL, VerifyTLS: &lax, Timeout: 2 * time.Second}
	}

	set, err := backends.New(opts)
	if err != nil {
		t.Fatalf("backends: %v", err)
	}
	t.Cleanup(func() { set.Close() })

	ctx := context.Background()
	server := New(set, "tester", Options{Version: "test", Logger: log, Recorder: rec})
	ct, st := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, st, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	t.Cleanup(func() { ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { cs.Close() })
	return cs
}

func callTool(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	if args == nil {
		args = map[string]any{}
	}
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("call %s: %v", name, err)
	}
	return res
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	tc, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", res.Content[0])
	}
	return tc.Text
}

// ──────────────────────────────────────────────────────────────────────────────
// Registration
// ──────────────────────────────────────────────────────────────────────────────

func TestTools_Registered(t *testing.T) {
	cs := newTestSession(t, backendsHandlers{}, nil)

	names := map[string]bool{}
	for tool, err := range cs.Tools(context.Background(), nil) {
		if err != nil {
			t.Fatalf("list tools: %v", err)
		}
		names[tool.Name] = true
	}
	for _, want := range []string{
		"list_hosts", "query_isp_metrics", "get_sdwan_config",
		"network_info", "network_list_devices", "network_delete_voucher", "network_update_firewall_policy",
		"protect_info", "protect_list_cameras", "protect_get_snapshot", "protect_update_viewer", "protect_create_liveview",
	} {
		if !names[want] {
			t.Errorf("tool %q not registered", want)
		}
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Pagination hints
// ──────────────────────────────────────────────────────────────────────────────

func TestListHosts_CursorHint(t *testing.T) {
	cs := newTestSession(t, backendsHandlers{
		fleet: func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("nextToken") != "prev" {
				t.Errorf("expected token to be passed through, got %q", r.URL.RawQuery)
			}
			w.Write([]byte(`{"data":[{"id":"h1"},{"id":"h2"}],"nextToken":"abc"}`))
		},
	}, nil)

	text := textOf(t, callTool(t, cs, "list_hosts", map[string]any{"next_token": "prev"}))
	if !strings.HasPrefix(text, "Found 2 item(s).") {
		t.Errorf("unexpected header in %q", text)
	}
	if !strings.Contains(text, `Use next_token="abc"`) {
		t.Errorf("expected cursor hint in %q", text)
	}
}

func TestNetworkListClients_OffsetHint(t *testing.T) {
	cs := newTestSession(t, backendsHandlers{
		network: func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/v1/sites/s1/clients" {
				t.Errorf("unexpected path %q", r.URL.Path)
			}
			items := make([]map[string]int, 20)
			for i := range items {
				items[i] = map[string]int{"n": i}
			}
			json.NewEncoder(w).Encode(map[string]any{"data": items, "offset": 0, "totalCount": 45})
		},
	}, nil)

	text := textOf(t, callTool(t, cs, "network_list_clients", map[string]any{"site_id": "s1"}))
	if !strings.Contains(text, "20 of 45 shown. Use offset=20 to get the next page.") {
		t.Errorf("expected offset hint in %q", text)
	}
}

func TestProtectListCameras_NoHint(t *testing.T) {
	cs := newTestSession(t, backendsHandlers{
		protect: func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[{"id":"c1"},{"id":"c2"},{"id":"c3"}]`))
		},
	}, nil)

	text := textOf(t, callTool(t, cs, "protect_list_cameras", nil))
	if !strings.HasPrefix(text, "Found 3 item(s).") || strings.Contains(text, "next page") {
		t.Errorf("unexpected text %q", text)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Errors
// ──────────────────────────────────────────────────────────────────────────────

func TestGetHost_ErrorWithTraceID(t *testing.T) {
	rec := &fakeRecorder{}
	cs := newTestSession(t, backendsHandlers{
		fleet: func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message":"host not found","traceId":"tr-9"}`))
		},
	}, rec)

	res := callTool(t, cs, "get_host", map[string]any{"host_id": "missing"})
	if !res.IsError {
		t.Fatal("expected error result")
	}
	if got := textOf(t, res); got != "Error 404: host not found\nTrace ID: tr-9" {
		t.Errorf("unexpected error text %q", got)
	}

	inv := rec.last()
	if inv == nil {
		t.Fatal("expected audit record")
	}
	if inv.Tool != "get_host" || inv.Caller != "tester" || inv.Outcome.Status != audit.StatusError {
		t.Errorf("unexpected invocation %+v", inv)
	}
	if inv.Outcome.ErrorKind != "client_error" || inv.Outcome.StatusCode != 404 || inv.Outcome.TraceID != "tr-9" {
		t.Errorf("unexpected outcome %+v", inv.Outcome)
	}
}

func TestNetworkTools_NotConfigured(t *testing.T) {
	cs := newTestSession(t, backendsHandlers{}, nil)

	res := callTool(t, cs, "network_list_devices", map[string]any{"site_id": "s1"})
	if !res.IsError {
		t.Fatal("expected error result")
	}
	text := textOf(t, res)
	if !strings.HasPrefix(text, "Error 0: ") || !strings.Contains(text, network.EnvHost) {
		t.Errorf("unexpected text %q", text)
	}

	res = callTool(t, cs, "protect_info", nil)
	if !res.IsError || !strings.Contains(textOf(t, res), protect.EnvHost) {
		t.Errorf("expected protect not configured, got %q", textOf(t, res))
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Composite and write tools
// ──────────────────────────────────────────────────────────────────────────────

func TestGetSDWANConfig_WithStatus(t *testing.T) {
	var paths []string
	var mu sync.Mutex
	cs := newTestSession(t, backendsHandlers{
		fleet: func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			paths = append(paths, r.URL.Path)
			mu.Unlock()
			if strings.HasSuffix(r.URL.Path, "/status") {
				w.Write([]byte(`{"data":{"state":"deployed"}}`))
				return
			}
			w.Write([]byte(`{"data":{"id":"cfg1","name":"hub"}}`))
		},
	}, nil)

	text := textOf(t, callTool(t, cs, "get_sdwan_config", map[string]any{"config_id": "cfg1", "include_status": true}))
	if !strings.Contains(text, "## Configuration") || !strings.Contains(text, "## Deployment Status") {
		t.Errorf("expected both sections in %q", text)
	}
	if !strings.Contains(text, `"deployed"`) {
		t.Errorf("expected status payload in %q", text)
	}
	if len(paths) != 2 {
		t.Errorf("expected two backend calls, got %v", paths)
	}
}

func TestQueryISPMetrics_DefaultsTimestamps(t *testing.T) {
	var body struct {
		Sites []fleet.SiteSelector `json:"sites"`
	}
	cs := newTestSession(t, backendsHandlers{
		fleet: func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/v1/isp-metrics/1h/query" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			json.NewDecoder(r.Body).Decode(&body)
			w.Write([]byte(`{"data":{"metrics":[]}}`))
		},
	}, nil)

	callTool(t, cs, "query_isp_metrics", map[string]any{
		"metric_type":     "1h",
		"begin_timestamp": "2025-01-01T00:00:00Z",
		"sites": []map[string]any{
			{"hostId": "h1", "siteId": "s1"},
			{"hostId": "h2", "siteId": "s2", "beginTimestamp": "2025-02-01T00:00:00Z"},
		},
	})

	if len(body.Sites) != 2 {
		t.Fatalf("expected two selectors, got %+v", body.Sites)
	}
	if body.Sites[0].BeginTimestamp != "2025-01-01T00:00:00Z" {
		t.Errorf("expected global begin on first selector, got %+v", body.Sites[0])
	}
	if body.Sites[1].BeginTimestamp != "2025-02-01T00:00:00Z" {
		t.Errorf("expected selector begin to win, got %+v", body.Sites[1])
	}
	if body.Sites[0].EndTimestamp != "" {
		t.Errorf("expected no end timestamp, got %+v", body.Sites[0])
	}
}

func TestNetworkDeleteNetwork_Ack(t *testing.T) {
	cs := newTestSession(t, backendsHandlers{
		network: func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodDelete || r.URL.Path != "/v1/sites/s1/networks/n1" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			w.WriteHeader(http.StatusNoContent)
		},
	}, nil)

	text := textOf(t, callTool(t, cs, "network_delete_network", map[string]any{"site_id": "s1", "network_id": "n1"}))
	if text != "Network deleted completed successfully." {
		t.Errorf("unexpected text %q", text)
	}
}

func TestNetworkDeviceAction_Body(t *testing.T) {
	cs := newTestSession(t, backendsHandlers{
		network: func(w http.ResponseWriter, r *http.Request) {
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			if body["action"] != "RESTART" {
				t.Errorf("unexpected body %v", body)
			}
			w.WriteHeader(http.StatusNoContent)
		},
	}, nil)

	text := textOf(t, callTool(t, cs, "network_device_action",
		map[string]any{"site_id": "s1", "device_id": "d1", "action": "RESTART"}))
	if text != "Action executed successfully." {
		t.Errorf("unexpected text %q", text)
	}
}

func TestProtectUpdateCamera_Patch(t *testing.T) {
	cs := newTestSession(t, backendsHandlers{
		protect: func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPatch || r.URL.Path != "/v1/cameras/c1" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			w.Write([]byte(`{"id":"c1","name":"Porch"}`))
		},
	}, nil)

	text := textOf(t, callTool(t, cs, "protect_update_camera",
		map[string]any{"camera_id": "c1", "data": map[string]any{"name": "Porch"}}))
	if !strings.Contains(text, `"name": "Porch"`) {
		t.Errorf("expected updated camera in %q", text)
	}
}

func TestProtectSnapshot_Image(t *testing.T) {
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10}
	rec := &fakeRecorder{}
	cs := newTestSession(t, backendsHandlers{
		protect: func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/v1/cameras/c1/snapshot" || r.URL.Query().Get("highQuality") != "true" {
				t.Errorf("unexpected request %s", r.URL.String())
			}
			w.Header().Set("Content-Type", "image/jpeg")
			w.Write(jpeg)
		},
	}, rec)

	res := callTool(t, cs, "protect_get_snapshot", map[string]any{"camera_id": "c1", "high_quality": true})
	if res.IsError || len(res.Content) != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	img, ok := res.Content[0].(*mcp.ImageContent)
	if !ok {
		t.Fatalf("expected image content, got %T", res.Content[0])
	}
	if img.MIMEType != "image/jpeg" || string(img.Data) != string(jpeg) {
		t.Errorf("unexpected image %s %x", img.MIMEType, img.Data)
	}
	if inv := rec.last(); inv == nil || inv.Outcome.ResultKind != "bytes" {
		t.Errorf("expected bytes outcome, got %+v", inv)
	}
}

func TestServers_PerCaller(t *testing.T) {
	t.Setenv(network.EnvHost, "")
	t.Setenv(protect.EnvHost, "")
	set, err := backends.New(backends.Options{
		Fleet:  fleet.Config{APIKey: "k", BaseURL: "http://127.0.0.1:1/v1"},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("backends: %v", err)
	}
	defer set.Close()

	servers := NewServers(set, Options{})
	if servers.For("alice") != servers.For("alice") {
		t.Error("expected the same server for the same caller")
	}
	if servers.For("alice") == servers.For("bob") {
		t.Error("expected distinct servers per caller")
	}
}
