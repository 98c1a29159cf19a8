package dashboard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStoreWithDefinitions(t *testing.T) *MemoryWidgetStore {
	t.Helper()
	store := NewMemoryWidgetStore()
	require.NoError(t, RegisterAreas(context.Background(), store))
	require.NoError(t, RegisterDefinitions(context.Background(), store, nil))
	return store
}

func TestMemoryWidgetStoreEnsureIsIdempotent(t *testing.T) {
	store := NewMemoryWidgetStore()
	created, err := store.EnsureArea(context.Background(), WidgetAreaDefinition{Code: AreaMain})
	require.NoError(t, err)
	assert.True(t, created)
	created, err = store.EnsureArea(context.Background(), WidgetAreaDefinition{Code: AreaMain})
	require.NoError(t, err)
	assert.False(t, created)

	_, err = store.EnsureArea(context.Background(), WidgetAreaDefinition{})
	assert.ErrorIs(t, err, errInvalidArea)
	_, err = store.EnsureDefinition(context.Background(), WidgetDefinition{})
	assert.ErrorIs(t, err, errInvalidDefinition)
}

func TestMemoryWidgetStoreCreateAndAssign(t *testing.T) {
	store := newStoreWithDefinitions(t)
	ctx := context.Background()

	first, err := store.CreateInstance(ctx, CreateWidgetInstanceInput{DefinitionID: WidgetForums})
	require.NoError(t, err)
	second, err := store.CreateInstance(ctx, CreateWidgetInstanceInput{ID: "pinned", DefinitionID: WidgetActionItems})
	require.NoError(t, err)
	assert.Equal(t, "forums-1", first.ID)
	assert.Equal(t, "pinned", second.ID)

	_, err = store.CreateInstance(ctx, CreateWidgetInstanceInput{ID: "pinned", DefinitionID: WidgetForums})
	assert.Error(t, err, "duplicate ids are rejected")
	_, err = store.CreateInstance(ctx, CreateWidgetInstanceInput{DefinitionID: "portal.widget.unknown"})
	assert.Error(t, err)

	require.NoError(t, store.AssignInstance(ctx, AssignWidgetInput{AreaCode: AreaSidebar, InstanceID: first.ID}))
	zero := 0
	require.NoError(t, store.AssignInstance(ctx, AssignWidgetInput{AreaCode: AreaSidebar, InstanceID: second.ID, Position: &zero}))

	resolved, err := store.ResolveArea(ctx, ResolveAreaInput{AreaCode: AreaSidebar})
	require.NoError(t, err)
	assert.Equal(t, []string{"pinned", "forums-1"}, ids(resolved.Widgets))
	assert.Equal(t, 1, resolved.Widgets[1].Position)
	assert.True(t, store.HasAssignments(AreaSidebar))
	assert.False(t, store.HasAssignments(AreaMain))
}

func TestMemoryWidgetStoreAssignMovesBetweenAreas(t *testing.T) {
	store := newStoreWithDefinitions(t)
	ctx := context.Background()
	inst, err := store.CreateInstance(ctx, CreateWidgetInstanceInput{DefinitionID: WidgetForums})
	require.NoError(t, err)
	require.NoError(t, store.AssignInstance(ctx, AssignWidgetInput{AreaCode: AreaSidebar, InstanceID: inst.ID}))
	require.NoError(t, store.AssignInstance(ctx, AssignWidgetInput{AreaCode: AreaMain, InstanceID: inst.ID}))

	assert.False(t, store.HasAssignments(AreaSidebar))
	got, err := store.Instance(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, AreaMain, got.AreaCode)
}

func TestMemoryWidgetStoreRolesLimitAudience(t *testing.T) {
	store := newStoreWithDefinitions(t)
	ctx := context.Background()
	inst, err := store.CreateInstance(ctx, CreateWidgetInstanceInput{DefinitionID: WidgetUploadHistory, Roles: []string{"Admin"}})
	require.NoError(t, err)
	require.NoError(t, store.AssignInstance(ctx, AssignWidgetInput{AreaCode: AreaSidebar, InstanceID: inst.ID}))

	resolved, err := store.ResolveArea(ctx, ResolveAreaInput{AreaCode: AreaSidebar, Audience: []string{"member"}})
	require.NoError(t, err)
	assert.Empty(t, resolved.Widgets)

	resolved, err = store.ResolveArea(ctx, ResolveAreaInput{AreaCode: AreaSidebar, Audience: []string{"admin"}})
	require.NoError(t, err)
	assert.Len(t, resolved.Widgets, 1)
}

func TestMemoryWidgetStoreReorderMergesUnlisted(t *testing.T) {
	store := newStoreWithDefinitions(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		_, err := store.CreateInstance(ctx, CreateWidgetInstanceInput{ID: id, DefinitionID: WidgetForums})
		require.NoError(t, err)
		require.NoError(t, store.AssignInstance(ctx, AssignWidgetInput{AreaCode: AreaMain, InstanceID: id}))
	}

	require.NoError(t, store.ReorderArea(ctx, ReorderAreaInput{AreaCode: AreaMain, WidgetIDs: []string{"c", "ghost", "c", "a"}}))

	resolved, err := store.ResolveArea(ctx, ResolveAreaInput{AreaCode: AreaMain})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, ids(resolved.Widgets))
}

func TestMemoryWidgetStoreUpdateAndDelete(t *testing.T) {
	store := newStoreWithDefinitions(t)
	ctx := context.Background()
	inst, err := store.CreateInstance(ctx, CreateWidgetInstanceInput{ID: "forums", DefinitionID: WidgetForums})
	require.NoError(t, err)
	require.NoError(t, store.AssignInstance(ctx, AssignWidgetInput{AreaCode: AreaSidebar, InstanceID: inst.ID}))

	config := map[string]any{"title": "Forums"}
	updated, err := store.UpdateInstance(ctx, "forums", config)
	require.NoError(t, err)
	config["title"] = "mutated"
	assert.Equal(t, "Forums", updated.Configuration["title"])
	assert.Equal(t, AreaSidebar, updated.AreaCode)

	require.NoError(t, store.DeleteInstance(ctx, "forums"))
	assert.ErrorIs(t, store.DeleteInstance(ctx, "forums"), ErrWidgetNotFound)
	_, err = store.UpdateInstance(ctx, "forums", nil)
	assert.ErrorIs(t, err, ErrWidgetNotFound)
	assert.ErrorIs(t, store.AssignInstance(ctx, AssignWidgetInput{AreaCode: AreaMain, InstanceID: "forums"}), ErrWidgetNotFound)
	assert.False(t, store.HasAssignments(AreaSidebar))
}

func TestApplyOrderOverride(t *testing.T) {
	widgets := []WidgetInstance{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	got := applyOrderOverride(widgets, []string{"c", "missing", "c", "a"})
	assert.Equal(t, []string{"c", "a", "b"}, ids(got))
	assert.Equal(t, 2, got[2].Position)
	assert.Equal(t, widgets, applyOrderOverride(widgets, nil))
}

func TestApplyHiddenFilter(t *testing.T) {
	widgets := []WidgetInstance{{ID: "a"}, {ID: "b", Position: 1}, {ID: "c", Position: 2}}
	visible, removed := applyHiddenFilter(widgets, map[string]bool{"b": true, "c": false})
	assert.Equal(t, []string{"a", "c"}, ids(visible))
	assert.Equal(t, 1, visible[1].Position)
	assert.Equal(t, []string{"b"}, removed)
}
