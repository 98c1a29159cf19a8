package commands

import "context"

// Event names recorded by the portal commands. Layout events keep the
// dashboard.* prefix, data and scope events use portal.*.
const (
	EventWidgetAssign     = "dashboard.widget.assign"
	EventWidgetUpdate     = "dashboard.widget.update"
	EventWidgetRemove     = "dashboard.widget.remove"
	EventWidgetReorder    = "dashboard.widget.reorder"
	EventWidgetRefresh    = "dashboard.widget.refresh"
	EventPreferencesSave  = "dashboard.preferences.save"
	EventSeed             = "dashboard.seed"
	EventScopeSelect      = "portal.scope.select"
	EventUpload           = "portal.upload"
	EventUploadFailed     = "portal.upload.failed"
	EventActionItemSave   = "portal.action_item.save"
	EventActionItemDelete = "portal.action_item.delete"
)

// Telemetry receives command events; telemetry.Recorder logs them with zap.
type Telemetry interface {
	Record(ctx context.Context, event string, payload map[string]any)
}

type noopTelemetry struct{}

func (noopTelemetry) Record(context.Context, string, map[string]any) {}

func normalizeTelemetry(t Telemetry) Telemetry {
	if t == nil {
		return noopTelemetry{}
	}
	return t
}
