package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"

	"github.com/goliatone/go-portal-metrics/components/dashboard"
	"github.com/goliatone/go-portal-metrics/pkg/metrics"
)

// SaveActionItemInput creates an item when Item.ID is empty and updates it
// otherwise.
type SaveActionItemInput struct {
	Item   metrics.ActionItemInput
	Result *metrics.ActionItem
}

// DeleteActionItemInput identifies the item to delete.
type DeleteActionItemInput struct {
	ID string `json:"id"`
}

type actionItemService interface {
	SaveActionItem(ctx context.Context, input metrics.ActionItemInput) (metrics.ActionItem, error)
	DeleteActionItem(ctx context.Context, id string) error
}

// SaveActionItemCommand wraps metrics.Service.SaveActionItem.
type SaveActionItemCommand struct {
	service   actionItemService
	notifier  refreshNotifier
	telemetry Telemetry
}

// NewSaveActionItemCommand creates the command. notifier may be nil.
func NewSaveActionItemCommand(service actionItemService, notifier refreshNotifier, telemetry Telemetry) *SaveActionItemCommand {
	return &SaveActionItemCommand{service: service, notifier: notifier, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SaveActionItemInput] = (*SaveActionItemCommand)(nil)

// Execute validates and stores the item.
func (c *SaveActionItemCommand) Execute(ctx context.Context, msg SaveActionItemInput) error {
	if c.service == nil {
		return errors.New("action item command requires service")
	}
	created := msg.Item.ID == ""
	item, err := c.service.SaveActionItem(ctx, msg.Item)
	if err != nil {
		return err
	}
	if msg.Result != nil {
		*msg.Result = item
	}
	c.telemetry.Record(ctx, EventActionItemSave, map[string]any{
		"id":      item.ID,
		"product": item.Product,
		"created": created,
	})
	return notifyActionItems(ctx, c.notifier, item.Product)
}

// DeleteActionItemCommand wraps metrics.Service.DeleteActionItem.
type DeleteActionItemCommand struct {
	service   actionItemService
	notifier  refreshNotifier
	telemetry Telemetry
}

// NewDeleteActionItemCommand creates the command. notifier may be nil.
func NewDeleteActionItemCommand(service actionItemService, notifier refreshNotifier, telemetry Telemetry) *DeleteActionItemCommand {
	return &DeleteActionItemCommand{service: service, notifier: notifier, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[DeleteActionItemInput] = (*DeleteActionItemCommand)(nil)

// Execute deletes the item.
func (c *DeleteActionItemCommand) Execute(ctx context.Context, msg DeleteActionItemInput) error {
	if c.service == nil {
		return errors.New("action item command requires service")
	}
	if err := c.service.DeleteActionItem(ctx, msg.ID); err != nil {
		return err
	}
	c.telemetry.Record(ctx, EventActionItemDelete, map[string]any{"id": msg.ID})
	return notifyActionItems(ctx, c.notifier, "")
}

func notifyActionItems(ctx context.Context, notifier refreshNotifier, product string) error {
	if notifier == nil {
		return nil
	}
	return notifier.NotifyWidgetUpdated(ctx, dashboard.WidgetEvent{
		AreaCode: dashboard.AreaSidebar,
		Instance: dashboard.WidgetInstance{DefinitionID: dashboard.WidgetActionItems},
		Reason:   dashboard.ReasonUpdate,
		Product:  product,
	})
}
