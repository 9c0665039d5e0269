package network

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/frousselet/unifi-mcp/pkg/adapter"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	t.Setenv(EnvVerifyTLS, "")
	srv := httptest.NewTLSServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{APIKey: "test-key", BaseURL: srv.URL, Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestListDevices_Window(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/sites/s1/devices" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("offset") != "0" || r.URL.Query().Get("limit") != "20" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		items := make([]map[string]int, 20)
		for i := range items {
			items[i] = map[string]int{"n": i}
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": items, "offset": 0, "limit": 20, "count": 20, "totalCount": 45,
		})
	})

	res, err := c.ListDevices(context.Background(), "s1", ListParams{Limit: 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	items, _ := res.Items()
	if len(items) != 20 {
		t.Errorf("expected 20 items, got %d", len(items))
	}
	win, ok := WindowOf(res)
	if !ok {
		t.Fatal("expected window page state")
	}
	if win.TotalCount != 45 || !win.HasMore() || win.NextOffset() != 20 {
		t.Errorf("unexpected window %+v", win)
	}
}

func TestListClients_WindowWithoutCount(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		items := make([]map[string]int, 20)
		for i := range items {
			items[i] = map[string]int{"n": i}
		}
		json.NewEncoder(w).Encode(map[string]any{"data": items, "offset": 0, "totalCount": 45})
	})

	res, err := c.ListClients(context.Background(), "s1", ListParams{Offset: 0, Limit: 25})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	win, ok := WindowOf(res)
	if !ok {
		t.Fatal("expected window page state")
	}
	if win.Count != 20 || win.NextOffset() != 20 || !win.HasMore() {
		t.Errorf("unexpected window %+v", win)
	}
}

func TestListSites_DefaultParams(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("offset") != "0" || r.URL.Query().Get("limit") != "25" {
			t.Errorf("expected default 0/25, got %q", r.URL.RawQuery)
		}
		w.Write([]byte(`{"data":[{"id":"s1"}],"offset":0,"limit":25,"count":1,"totalCount":1}`))
	})

	res, err := c.ListSites(context.Background(), ListParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	win, _ := WindowOf(res)
	if win.HasMore() {
		t.Error("expected final page")
	}
}

func TestDeleteNetwork_NoContent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/v1/sites/s1/networks/n1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	res, err := c.DeleteNetwork(context.Background(), "s1", "n1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != adapter.KindAcknowledged {
		t.Errorf("expected acknowledged, got %s", res.Kind)
	}
}

func TestUpdateWiFi_PutBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/v1/sites/s1/wifi/broadcasts/w1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["name"] != "Guest" {
			t.Errorf("unexpected body %v", body)
		}
		w.Write([]byte(`{"id":"w1","name":"Guest"}`))
	})

	res, err := c.UpdateWiFi(context.Background(), "s1", "w1", map[string]any{"name": "Guest"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != adapter.KindObject {
		t.Errorf("expected object, got %s", res.Kind)
	}
}

func TestExecuteDeviceAction(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/sites/s1/devices/d1/actions" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"status":"ok"}`))
	})

	if _, err := c.ExecuteDeviceAction(context.Background(), "s1", "d1", map[string]string{"action": "RESTART"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestListPaths(t *testing.T) {
	var paths []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.Write([]byte(`{"data":[],"offset":0,"limit":25,"count":0,"totalCount":0}`))
	})

	ctx := context.Background()
	p := ListParams{}
	c.ListFirewallZones(ctx, "s1", p)
	c.ListDNSPolicies(ctx, "s1", p)
	c.ListVouchers(ctx, "s1", p)
	c.ListVPNTunnels(ctx, "s1", p)
	c.ListRADIUSProfiles(ctx, "s1", p)

	want := []string{
		"/v1/sites/s1/firewall/zones",
		"/v1/sites/s1/dns/policies",
		"/v1/sites/s1/hotspot/vouchers",
		"/v1/sites/s1/vpn/site-to-site-tunnels",
		"/v1/sites/s1/radius/profiles",
	}
	if len(paths) != len(want) {
		t.Fatalf("expected %d calls, got %d", len(want), len(paths))
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("call %d: expected %q, got %q", i, want[i], paths[i])
		}
	}
}

func TestExecute_ErrorMessages(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind adapter.Kind
		wantMsg  string
	}{
		{"message", 400, `{"message":"invalid vlan"}`, adapter.KindClient, "invalid vlan"},
		{"error key", 401, `{"error":"bad api key"}`, adapter.KindClient, "bad api key"},
		{"raw text", 500, `internal failure`, adapter.KindServer, "internal failure"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			_, err := c.GetNetwork(context.Background(), "s1", "n1")
			e, ok := adapter.AsError(err)
			if !ok {
				t.Fatalf("expected adapter error, got %v", err)
			}
			if e.Kind != tt.wantKind || e.StatusCode != tt.status || e.Message != tt.wantMsg {
				t.Errorf("unexpected error %+v", e)
			}
			if e.Error() != "UniFi Network API error "+strconv.Itoa(tt.status)+": "+tt.wantMsg {
				t.Errorf("unexpected error string %q", e.Error())
			}
		})
	}
}

func TestExecute_RateLimited(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "12")
		w.WriteHeader(http.StatusTooManyRequests)
	})
	_, err := c.Info(context.Background())
	e, ok := adapter.AsError(err)
	if !ok || e.Kind != adapter.KindRateLimited || e.Message != "Rate limited. Retry after 12 seconds." {
		t.Errorf("unexpected error %v", err)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Configuration
// ──────────────────────────────────────────────────────────────────────────────

func TestNew_VerifyTLS(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"applicationVersion":"9.0"}`))
	}))
	defer srv.Close()

	verify := true
	strict, err := New(Config{APIKey: "k", BaseURL: srv.URL, VerifyTLS: &verify})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer strict.Close()
	if _, err := strict.Info(context.Background()); !adapter.IsKind(err, adapter.KindUnreachable) {
		t.Errorf("expected certificate failure as unreachable, got %v", err)
	}

	t.Setenv(EnvVerifyTLS, "")
	lax, err := New(Config{APIKey: "k", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer lax.Close()
	if _, err := lax.Info(context.Background()); err != nil {
		t.Errorf("expected self-signed certificate to be accepted by default, got %v", err)
	}
}

func TestNew_KeyFallback(t *testing.T) {
	t.Setenv(EnvHost, "192.168.1.1")
	t.Setenv(EnvAPIKey, "")
	t.Setenv("UNIFI_API_KEY", "shared")

	c, err := New(Config{})
	if err != nil {
		t.Fatalf("expected shared key fallback, got %v", err)
	}
	defer c.Close()
	if c.transport.BaseURL() != "https://192.168.1.1/proxy/network/integration" {
		t.Errorf("unexpected base url %q", c.transport.BaseURL())
	}
}

func TestNew_Misconfigured(t *testing.T) {
	t.Setenv(EnvHost, "")
	t.Setenv(EnvAPIKey, "")
	t.Setenv("UNIFI_API_KEY", "")

	_, err := New(Config{APIKey: "k"})
	if e, ok := adapter.AsError(err); !ok || e.Kind != adapter.KindMisconfigured || e.Field != EnvHost {
		t.Errorf("expected missing host, got %v", err)
	}

	_, err = New(Config{Host: "10.0.0.1"})
	if e, ok := adapter.AsError(err); !ok || e.Kind != adapter.KindMisconfigured || e.Field != EnvAPIKey {
		t.Errorf("expected missing key, got %v", err)
	}
}
