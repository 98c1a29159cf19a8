package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"

	"github.com/goliatone/go-portal-metrics/components/dashboard"
	"github.com/goliatone/go-portal-metrics/pkg/metrics"
)

// SelectScopeInput changes the product and quarter a user is looking at.
type SelectScopeInput struct {
	UserID  string         `json:"-"`
	Product string         `json:"product"`
	Quarter string         `json:"quarter"`
	Result  *metrics.Scope `json:"-"`
}

type scopeSelector interface {
	SelectScope(ctx context.Context, userID string, scope metrics.Scope) (metrics.Scope, error)
}

// SelectScopeCommand persists the selection and notifies refresh hooks.
type SelectScopeCommand struct {
	scopes    scopeSelector
	notifier  refreshNotifier
	telemetry Telemetry
}

// NewSelectScopeCommand creates the command. notifier may be nil.
func NewSelectScopeCommand(scopes scopeSelector, notifier refreshNotifier, telemetry Telemetry) *SelectScopeCommand {
	return &SelectScopeCommand{scopes: scopes, notifier: notifier, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SelectScopeInput] = (*SelectScopeCommand)(nil)

// Execute validates and stores the selection.
func (c *SelectScopeCommand) Execute(ctx context.Context, msg SelectScopeInput) error {
	if c.scopes == nil {
		return errors.New("scope command requires metrics service")
	}
	scope, err := c.scopes.SelectScope(ctx, msg.UserID, metrics.Scope{Product: msg.Product, Quarter: msg.Quarter})
	if err != nil {
		return err
	}
	if msg.Result != nil {
		*msg.Result = scope
	}
	c.telemetry.Record(ctx, EventScopeSelect, map[string]any{
		"user_id": msg.UserID,
		"product": scope.Product,
		"quarter": scope.Quarter,
	})
	if c.notifier == nil {
		return nil
	}
	return c.notifier.NotifyWidgetUpdated(ctx, dashboard.WidgetEvent{
		Reason:  dashboard.ReasonScope,
		Product: scope.Product,
	})
}
