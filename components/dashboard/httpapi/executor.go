package httpapi

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"

	"github.com/goliatone/go-portal-metrics/components/dashboard/commands"
)

// ErrCommandUnavailable is returned when a transport calls a command that was
// not wired.
var ErrCommandUnavailable = errors.New("httpapi: command not configured")

// Executor is the set of write operations transports can trigger.
type Executor interface {
	Assign(ctx context.Context, input commands.AssignWidgetInput) error
	Remove(ctx context.Context, input commands.RemoveWidgetInput) error
	Reorder(ctx context.Context, input commands.ReorderWidgetsInput) error
	Update(ctx context.Context, input commands.UpdateWidgetInput) error
	Refresh(ctx context.Context, input commands.RefreshWidgetInput) error
	Preferences(ctx context.Context, input commands.SaveLayoutPreferencesInput) error
	Import(ctx context.Context, input commands.ImportDatasetInput) error
	SelectScope(ctx context.Context, input commands.SelectScopeInput) error
	SaveActionItem(ctx context.Context, input commands.SaveActionItemInput) error
	DeleteActionItem(ctx context.Context, input commands.DeleteActionItemInput) error
}

// CommandExecutor adapts go-command commanders to the Executor interface.
type CommandExecutor struct {
	AssignCommander           gocommand.Commander[commands.AssignWidgetInput]
	RemoveCommander           gocommand.Commander[commands.RemoveWidgetInput]
	ReorderCommander          gocommand.Commander[commands.ReorderWidgetsInput]
	UpdateCommander           gocommand.Commander[commands.UpdateWidgetInput]
	RefreshCommander          gocommand.Commander[commands.RefreshWidgetInput]
	PreferencesCommander      gocommand.Commander[commands.SaveLayoutPreferencesInput]
	ImportCommander           gocommand.Commander[commands.ImportDatasetInput]
	ScopeCommander            gocommand.Commander[commands.SelectScopeInput]
	SaveActionItemCommander   gocommand.Commander[commands.SaveActionItemInput]
	DeleteActionItemCommander gocommand.Commander[commands.DeleteActionItemInput]
}

var _ Executor = (*CommandExecutor)(nil)

func (e *CommandExecutor) Assign(ctx context.Context, input commands.AssignWidgetInput) error {
	return execute(ctx, e.AssignCommander, input)
}

func (e *CommandExecutor) Remove(ctx context.Context, input commands.RemoveWidgetInput) error {
	return execute(ctx, e.RemoveCommander, input)
}

func (e *CommandExecutor) Reorder(ctx context.Context, input commands.ReorderWidgetsInput) error {
	return execute(ctx, e.ReorderCommander, input)
}

func (e *CommandExecutor) Update(ctx context.Context, input commands.UpdateWidgetInput) error {
	return execute(ctx, e.UpdateCommander, input)
}

func (e *CommandExecutor) Refresh(ctx context.Context, input commands.RefreshWidgetInput) error {
	return execute(ctx, e.RefreshCommander, input)
}

func (e *CommandExecutor) Preferences(ctx context.Context, input commands.SaveLayoutPreferencesInput) error {
	return execute(ctx, e.PreferencesCommander, input)
}

func (e *CommandExecutor) Import(ctx context.Context, input commands.ImportDatasetInput) error {
	return execute(ctx, e.ImportCommander, input)
}

func (e *CommandExecutor) SelectScope(ctx context.Context, input commands.SelectScopeInput) error {
	return execute(ctx, e.ScopeCommander, input)
}

func (e *CommandExecutor) SaveActionItem(ctx context.Context, input commands.SaveActionItemInput) error {
	return execute(ctx, e.SaveActionItemCommander, input)
}

func (e *CommandExecutor) DeleteActionItem(ctx context.Context, input commands.DeleteActionItemInput) error {
	return execute(ctx, e.DeleteActionItemCommander, input)
}

func execute[T any](ctx context.Context, cmd gocommand.Commander[T], msg T) error {
	if cmd == nil {
		return ErrCommandUnavailable
	}
	return cmd.Execute(ctx, msg)
}
