package protect

import (
	"context"
	"net/http"
	"net/url"

	"github.com/frousselet/unifi-mcp/pkg/adapter"
)

// SnapshotOptions tunes Snapshot.
type SnapshotOptions struct {
	HighQuality bool
}

func devicePath(collection, id string, parts ...string) string {
	p := "/v1/" + collection + "/" + url.PathEscape(id)
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

func (c *Client) get(ctx context.Context, path string) (adapter.Result, error) {
	return c.Execute(ctx, adapter.Get(path, nil))
}

func (c *Client) send(ctx context.Context, method, path string, body any) (adapter.Result, error) {
	return c.Execute(ctx, adapter.Request{Method: method, Path: path, Body: body})
}

// patch is the only update verb Protect accepts.
func (c *Client) patch(ctx context.Context, path string, body any) (adapter.Result, error) {
	return c.send(ctx, http.MethodPatch, path, body)
}

// ──────────────────────────────────────────────────────────────────────────────
// Application & NVR
// ──────────────────────────────────────────────────────────────────────────────

func (c *Client) AppInfo(ctx context.Context) (adapter.Result, error) {
	return c.get(ctx, "/v1/meta/info")
}

func (c *Client) NVRs(ctx context.Context) (adapter.Result, error) {
	return c.get(ctx, "/v1/nvrs")
}

// ──────────────────────────────────────────────────────────────────────────────
// Cameras
// ──────────────────────────────────────────────────────────────────────────────

func (c *Client) ListCameras(ctx context.Context) (adapter.Result, error) {
	return c.get(ctx, "/v1/cameras")
}

func (c *Client) GetCamera(ctx context.Context, cameraID string) (adapter.Result, error) {
	return c.get(ctx, devicePath("cameras", cameraID))
}

func (c *Client) UpdateCamera(ctx context.Context, cameraID string, data any) (adapter.Result, error) {
	return c.patch(ctx, devicePath("cameras", cameraID), data)
}

// Snapshot fetches a JPEG still. The body is returned as bytes without any
// JSON interpretation.
func (c *Client) Snapshot(ctx context.Context, cameraID string, opts SnapshotOptions) (adapter.Result, error) {
	var q url.Values
	if opts.HighQuality {
		q = url.Values{"highQuality": {"true"}}
	}
	return c.raw(ctx, adapter.Get(devicePath("cameras", cameraID, "snapshot"), q))
}

// ──────────────────────────────────────────────────────────────────────────────
// Lights, sensors, chimes, door locks
// ──────────────────────────────────────────────────────────────────────────────

func (c *Client) ListLights(ctx context.Context) (adapter.Result, error) {
	return c.get(ctx, "/v1/lights")
}

func (c *Client) GetLight(ctx context.Context, lightID string) (adapter.Result, error) {
	return c.get(ctx, devicePath("lights", lightID))
}

func (c *Client) UpdateLight(ctx context.Context, lightID string, data any) (adapter.Result, error) {
	return c.patch(ctx, devicePath("lights", lightID), data)
}

func (c *Client) ListSensors(ctx context.Context) (adapter.Result, error) {
	return c.get(ctx, "/v1/sensors")
}

func (c *Client) GetSensor(ctx context.Context, sensorID string) (adapter.Result, error) {
	return c.get(ctx, devicePath("sensors", sensorID))
}

func (c *Client) UpdateSensor(ctx context.Context, sensorID string, data any) (adapter.Result, error) {
	return c.patch(ctx, devicePath("sensors", sensorID), data)
}

func (c *Client) ListChimes(ctx context.Context) (adapter.Result, error) {
	return c.get(ctx, "/v1/chimes")
}

func (c *Client) GetChime(ctx context.Context, chimeID string) (adapter.Result, error) {
	return c.get(ctx, devicePath("chimes", chimeID))
}

func (c *Client) UpdateChime(ctx context.Context, chimeID string, data any) (adapter.Result, error) {
	return c.patch(ctx, devicePath("chimes", chimeID), data)
}

func (c *Client) ListDoorLocks(ctx context.Context) (adapter.Result, error) {
	return c.get(ctx, "/v1/doorlocks")
}

func (c *Client) GetDoorLock(ctx context.Context, lockID string) (adapter.Result, error) {
	return c.get(ctx, devicePath("doorlocks", lockID))
}

func (c *Client) UpdateDoorLock(ctx context.Context, lockID string, data any) (adapter.Result, error) {
	return c.patch(ctx, devicePath("doorlocks", lockID), data)
}

// ──────────────────────────────────────────────────────────────────────────────
// Events
// ──────────────────────────────────────────────────────────────────────────────

// ListEvents returns every event the NVR still holds (the console caps this
// at roughly ten thousand).
func (c *Client) ListEvents(ctx context.Context) (adapter.Result, error) {
	return c.get(ctx, "/v1/events")
}

// ──────────────────────────────────────────────────────────────────────────────
// Liveviews & viewers
// ──────────────────────────────────────────────────────────────────────────────

func (c *Client) ListLiveviews(ctx context.Context) (adapter.Result, error) {
	return c.get(ctx, "/v1/liveviews")
}

func (c *Client) GetLiveview(ctx context.Context, liveviewID string) (adapter.Result, error) {
	return c.get(ctx, devicePath("liveviews", liveviewID))
}

func (c *Client) CreateLiveview(ctx context.Context, data any) (adapter.Result, error) {
	return c.send(ctx, http.MethodPost, "/v1/liveviews", data)
}

func (c *Client) UpdateLiveview(ctx context.Context, liveviewID string, data any) (adapter.Result, error) {
	return c.patch(ctx, devicePath("liveviews", liveviewID), data)
}

func (c *Client) ListViewers(ctx context.Context) (adapter.Result, error) {
	return c.get(ctx, "/v1/viewers")
}

func (c *Client) GetViewer(ctx context.Context, viewerID string) (adapter.Result, error) {
	return c.get(ctx, devicePath("viewers", viewerID))
}

func (c *Client) UpdateViewer(ctx context.Context, viewerID string, data any) (adapter.Result, error) {
	return c.patch(ctx, devicePath("viewers", viewerID), data)
}
