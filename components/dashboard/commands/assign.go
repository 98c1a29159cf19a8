package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"

	"github.com/goliatone/go-portal-metrics/components/dashboard"
)

// AssignWidgetInput wraps an add request. Result, when set, receives the
// created instance.
type AssignWidgetInput struct {
	Request dashboard.AddWidgetRequest
	Result  *dashboard.WidgetInstance `json:"-"`
}

type assignService interface {
	AddWidget(ctx context.Context, req dashboard.AddWidgetRequest) (dashboard.WidgetInstance, error)
}

// AssignWidgetCommand translates incoming requests into service calls and emits
// telemetry so operators can observe widget assignment activity.
type AssignWidgetCommand struct {
	service   assignService
	telemetry Telemetry
}

// NewAssignWidgetCommand creates a command instance.
func NewAssignWidgetCommand(service assignService, telemetry Telemetry) *AssignWidgetCommand {
	return &AssignWidgetCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[AssignWidgetInput] = (*AssignWidgetCommand)(nil)

// Execute delegates to the dashboard service.
func (c *AssignWidgetCommand) Execute(ctx context.Context, msg AssignWidgetInput) error {
	if c.service == nil {
		return errors.New("assign command requires service")
	}
	instance, err := c.service.AddWidget(ctx, msg.Request)
	if err != nil {
		return err
	}
	if msg.Result != nil {
		*msg.Result = instance
	}
	c.telemetry.Record(ctx, EventWidgetAssign, map[string]any{
		"widget_id":     instance.ID,
		"definition_id": msg.Request.DefinitionID,
		"area_code":     msg.Request.AreaCode,
	})
	return nil
}
