package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/frousselet/unifi-mcp/pkg/adapter"
	"github.com/frousselet/unifi-mcp/pkg/protect"
)

type protectRef interface {
	item() string
}

type protectPatch interface {
	protectRef
	payload() map[string]any
}

type cameraRef struct {
	CameraID string `json:"camera_id" jsonschema:"The camera ID (get from protect_list_cameras)"`
}

func (a cameraRef) item() string { return a.CameraID }

type cameraUpdate struct {
	CameraID string         `json:"camera_id" jsonschema:"The camera ID to update"`
	Data     map[string]any `json:"data" jsonschema:"Camera settings to change"`
}

func (a cameraUpdate) item() string            { return a.CameraID }
func (a cameraUpdate) payload() map[string]any { return a.Data }

type snapshotArgs struct {
	CameraID    string `json:"camera_id" jsonschema:"The camera ID"`
	HighQuality bool   `json:"high_quality,omitempty" jsonschema:"Request a full resolution snapshot"`
}

type lightRef struct {
	LightID string `json:"light_id" jsonschema:"The light ID"`
}

func (a lightRef) item() string { return a.LightID }

type lightUpdate struct {
	LightID string         `json:"light_id" jsonschema:"The light ID to update"`
	Data    map[string]any `json:"data" jsonschema:"Light settings to change"`
}

func (a lightUpdate) item() string            { return a.LightID }
func (a lightUpdate) payload() map[string]any { return a.Data }

type sensorRef struct {
	SensorID string `json:"sensor_id" jsonschema:"The sensor ID"`
}

func (a sensorRef) item() string { return a.SensorID }

type sensorUpdate struct {
	SensorID string         `json:"sensor_id" jsonschema:"The sensor ID to update"`
	Data     map[string]any `json:"data" jsonschema:"Sensor settings to change"`
}

func (a sensorUpdate) item() string            { return a.SensorID }
func (a sensorUpdate) payload() map[string]any { return a.Data }

type chimeRef struct {
	ChimeID string `json:"chime_id" jsonschema:"The chime ID"`
}

func (a chimeRef) item() string { return a.ChimeID }

type chimeUpdate struct {
	ChimeID string         `json:"chime_id" jsonschema:"The chime ID to update"`
	Data    map[string]any `json:"data" jsonschema:"Chime settings to change"`
}

func (a chimeUpdate) item() string            { return a.ChimeID }
func (a chimeUpdate) payload() map[string]any { return a.Data }

type doorlockRef struct {
	DoorlockID string `json:"doorlock_id" jsonschema:"The door lock ID"`
}

func (a doorlockRef) item() string { return a.DoorlockID }

type doorlockUpdate struct {
	DoorlockID string         `json:"doorlock_id" jsonschema:"The door lock ID to update"`
	Data       map[string]any `json:"data" jsonschema:"Door lock settings to change"`
}

func (a doorlockUpdate) item() string            { return a.DoorlockID }
func (a doorlockUpdate) payload() map[string]any { return a.Data }

type liveviewRef struct {
	LiveviewID string `json:"liveview_id" jsonschema:"The liveview ID"`
}

func (a liveviewRef) item() string { return a.LiveviewID }

type liveviewUpdate struct {
	LiveviewID string         `json:"liveview_id" jsonschema:"The liveview ID to update"`
	Data       map[string]any `json:"data" jsonschema:"Liveview layout and slots to change"`
}

func (a liveviewUpdate) item() string            { return a.LiveviewID }
func (a liveviewUpdate) payload() map[string]any { return a.Data }

type liveviewCreate struct {
	Data map[string]any `json:"data" jsonschema:"Liveview definition (name, layout, slots)"`
}

type viewerRef struct {
	ViewerID string `json:"viewer_id" jsonschema:"The viewer ID"`
}

func (a viewerRef) item() string { return a.ViewerID }

type viewerUpdate struct {
	ViewerID string         `json:"viewer_id" jsonschema:"The viewer ID to update"`
	Data     map[string]any `json:"data" jsonschema:"Viewer settings to change, such as the liveview it shows"`
}

func (a viewerUpdate) item() string            { return a.ViewerID }
func (a viewerUpdate) payload() map[string]any { return a.Data }

type protectListFunc func(*protect.Client, context.Context) (adapter.Result, error)
type protectGetFunc func(*protect.Client, context.Context, string) (adapter.Result, error)
type protectUpdateFunc func(*protect.Client, context.Context, string, any) (adapter.Result, error)

var protectLists = []struct {
	name, description string
	call              protectListFunc
}{
	{"protect_list_cameras", "List all cameras managed by UniFi Protect.", (*protect.Client).ListCameras},
	{"protect_list_lights", "List all floodlights managed by UniFi Protect.", (*protect.Client).ListLights},
	{"protect_list_sensors", "List all sensors managed by UniFi Protect.", (*protect.Client).ListSensors},
	{"protect_list_chimes", "List all chimes managed by UniFi Protect.", (*protect.Client).ListChimes},
	{"protect_list_doorlocks", "List all door locks managed by UniFi Protect.", (*protect.Client).ListDoorLocks},
	{"protect_list_events", "List events recorded by the NVR (motion, smart detections, rings).", (*protect.Client).ListEvents},
	{"protect_list_liveviews", "List all liveviews configured in UniFi Protect.", (*protect.Client).ListLiveviews},
	{"protect_list_viewers", "List all viewers (Viewport devices) managed by UniFi Protect.", (*protect.Client).ListViewers},
}

func (ts *toolset) registerProtect(s *mcp.Server) {
	addTool(s, ts, "protect_info",
		"Get UniFi Protect application info and NVR details. Use this first to confirm the Protect console is reachable.",
		func(ctx context.Context, _ struct{}) (reply, error) {
			pc, err := ts.set.Protect()
			if err != nil {
				return reply{}, err
			}
			info, err := pc.AppInfo(ctx)
			if err != nil {
				return reply{}, err
			}
			nvrs, err := pc.NVRs(ctx)
			if err != nil {
				return reply{}, err
			}
			return renderSections(
				section{title: "Application", res: info},
				section{title: "NVR", res: nvrs},
			), nil
		})

	for _, t := range protectLists {
		call := t.call
		addTool(s, ts, t.name, t.description, func(ctx context.Context, _ struct{}) (reply, error) {
			pc, err := ts.set.Protect()
			if err != nil {
				return reply{}, err
			}
			res, err := call(pc, ctx)
			if err != nil {
				return reply{}, err
			}
			return render(res, ""), nil
		})
	}

	// ── Cameras ─────────────────────────────────────────────────────────

	addProtectGet[cameraRef](s, ts, "protect_get_camera", "Get detailed information about a specific camera.", (*protect.Client).GetCamera)
	addProtectUpdate[cameraUpdate](s, ts, "protect_update_camera", "Update camera settings (name, recording, overlays, etc.).", "Camera updated", (*protect.Client).UpdateCamera)

	addTool(s, ts, "protect_get_snapshot",
		"Take a snapshot from a camera and return it as an image.",
		func(ctx context.Context, in snapshotArgs) (reply, error) {
			pc, err := ts.set.Protect()
			if err != nil {
				return reply{}, err
			}
			res, err := pc.Snapshot(ctx, in.CameraID, protect.SnapshotOptions{HighQuality: in.HighQuality})
			if err != nil {
				return reply{}, err
			}
			return render(res, ""), nil
		})

	// ── Other devices ───────────────────────────────────────────────────

	addProtectGet[lightRef](s, ts, "protect_get_light", "Get detailed information about a specific floodlight.", (*protect.Client).GetLight)
	addProtectUpdate[lightUpdate](s, ts, "protect_update_light", "Update floodlight settings.", "Light updated", (*protect.Client).UpdateLight)

	addProtectGet[sensorRef](s, ts, "protect_get_sensor", "Get detailed information about a specific sensor.", (*protect.Client).GetSensor)
	addProtectUpdate[sensorUpdate](s, ts, "protect_update_sensor", "Update sensor settings.", "Sensor updated", (*protect.Client).UpdateSensor)

	addProtectGet[chimeRef](s, ts, "protect_get_chime", "Get detailed information about a specific chime.", (*protect.Client).GetChime)
	addProtectUpdate[chimeUpdate](s, ts, "protect_update_chime", "Update chime settings.", "Chime updated", (*protect.Client).UpdateChime)

	addProtectGet[doorlockRef](s, ts, "protect_get_doorlock", "Get detailed information about a specific door lock.", (*protect.Client).GetDoorLock)
	addProtectUpdate[doorlockUpdate](s, ts, "protect_update_doorlock", "Update door lock settings.", "Door lock updated", (*protect.Client).UpdateDoorLock)

	// ── Liveviews & viewers ─────────────────────────────────────────────

	addProtectGet[liveviewRef](s, ts, "protect_get_liveview", "Get a specific liveview.", (*protect.Client).GetLiveview)
	addProtectUpdate[liveviewUpdate](s, ts, "protect_update_liveview", "Update a liveview.", "Liveview updated", (*protect.Client).UpdateLiveview)

	addTool(s, ts, "protect_create_liveview",
		"Create a new liveview.",
		func(ctx context.Context, in liveviewCreate) (reply, error) {
			pc, err := ts.set.Protect()
			if err != nil {
				return reply{}, err
			}
			res, err := pc.CreateLiveview(ctx, in.Data)
			if err != nil {
				return reply{}, err
			}
			return render(res, done("Liveview created")), nil
		})

	addProtectGet[viewerRef](s, ts, "protect_get_viewer", "Get a specific viewer.", (*protect.Client).GetViewer)
	addProtectUpdate[viewerUpdate](s, ts, "protect_update_viewer", "Update a viewer, for example to switch its liveview.", "Viewer updated", (*protect.Client).UpdateViewer)
}

func addProtectGet[In protectRef](s *mcp.Server, ts *toolset, name, description string, call protectGetFunc) {
	addTool(s, ts, name, description, func(ctx context.Context, in In) (reply, error) {
		pc, err := ts.set.Protect()
		if err != nil {
			return reply{}, err
		}
		res, err := call(pc, ctx, in.item())
		if err != nil {
			return reply{}, err
		}
		return render(res, ""), nil
	})
}

// addProtectUpdate registers a PATCH tool; Protect answers with the updated
// device, or nothing, which renders as the ack sentence.
func addProtectUpdate[In protectPatch](s *mcp.Server, ts *toolset, name, description, action string, call protectUpdateFunc) {
	ack := done(action)
	addTool(s, ts, name, description, func(ctx context.Context, in In) (reply, error) {
		pc, err := ts.set.Protect()
		if err != nil {
			return reply{}, err
		}
		res, err := call(pc, ctx, in.item(), in.payload())
		if err != nil {
			return reply{}, err
		}
		return render(res, ack), nil
	})
}
