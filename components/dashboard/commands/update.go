package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"

	"github.com/goliatone/go-portal-metrics/components/dashboard"
)

// UpdateWidgetInput captures widget configuration changes.
type UpdateWidgetInput struct {
	WidgetID      string                    `json:"widget_id"`
	Configuration map[string]any            `json:"config"`
	Result        *dashboard.WidgetInstance `json:"-"`
}

type updateService interface {
	UpdateWidget(ctx context.Context, widgetID string, configuration map[string]any) (dashboard.WidgetInstance, error)
}

// UpdateWidgetCommand wraps Service.UpdateWidget.
type UpdateWidgetCommand struct {
	service   updateService
	telemetry Telemetry
}

// NewUpdateWidgetCommand creates the command.
func NewUpdateWidgetCommand(service updateService, telemetry Telemetry) *UpdateWidgetCommand {
	return &UpdateWidgetCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[UpdateWidgetInput] = (*UpdateWidgetCommand)(nil)

// Execute updates widget configuration.
func (c *UpdateWidgetCommand) Execute(ctx context.Context, msg UpdateWidgetInput) error {
	if c.service == nil {
		return errors.New("update command requires service")
	}
	if msg.WidgetID == "" {
		return errors.New("update command requires widget id")
	}
	instance, err := c.service.UpdateWidget(ctx, msg.WidgetID, msg.Configuration)
	if err != nil {
		return err
	}
	if msg.Result != nil {
		*msg.Result = instance
	}
	c.telemetry.Record(ctx, EventWidgetUpdate, map[string]any{
		"widget_id": msg.WidgetID,
	})
	return nil
}
