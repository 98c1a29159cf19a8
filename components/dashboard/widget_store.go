package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrWidgetNotFound is returned when a widget instance id is unknown.
var ErrWidgetNotFound = errors.New("dashboard: widget not found")

// MemoryWidgetStore keeps areas, definitions and instances in memory. The
// portal seeds it at boot with stable instance ids, so per-user preferences
// that reference those ids survive restarts.
type MemoryWidgetStore struct {
	mu          sync.RWMutex
	areas       map[string]WidgetAreaDefinition
	definitions map[string]WidgetDefinition
	instances   map[string]WidgetInstance
	roles       map[string][]string
	assignments map[string][]string
	next        int
}

var _ WidgetStore = (*MemoryWidgetStore)(nil)

// NewMemoryWidgetStore returns an empty store.
func NewMemoryWidgetStore() *MemoryWidgetStore {
	return &MemoryWidgetStore{
		areas:       map[string]WidgetAreaDefinition{},
		definitions: map[string]WidgetDefinition{},
		instances:   map[string]WidgetInstance{},
		roles:       map[string][]string{},
		assignments: map[string][]string{},
	}
}

// EnsureArea stores the area and reports whether it was new.
func (s *MemoryWidgetStore) EnsureArea(_ context.Context, def WidgetAreaDefinition) (bool, error) {
	if def.Code == "" {
		return false, errInvalidArea
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.areas[def.Code]
	s.areas[def.Code] = def
	return !exists, nil
}

// EnsureDefinition stores the definition and reports whether it was new.
func (s *MemoryWidgetStore) EnsureDefinition(_ context.Context, def WidgetDefinition) (bool, error) {
	if def.Code == "" {
		return false, errInvalidDefinition
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.definitions[def.Code]
	s.definitions[def.Code] = def
	return !exists, nil
}

// CreateInstance adds an unassigned instance. Without an explicit id one is
// derived from the definition code.
func (s *MemoryWidgetStore) CreateInstance(_ context.Context, input CreateWidgetInstanceInput) (WidgetInstance, error) {
	if input.DefinitionID == "" {
		return WidgetInstance{}, errInvalidDefinition
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.definitions[input.DefinitionID]; !ok && len(s.definitions) > 0 {
		return WidgetInstance{}, fmt.Errorf("dashboard: unknown widget definition %q", input.DefinitionID)
	}
	id := input.ID
	if id == "" {
		s.next++
		base := input.DefinitionID[strings.LastIndex(input.DefinitionID, ".")+1:]
		id = fmt.Sprintf("%s-%d", base, s.next)
	}
	if _, exists := s.instances[id]; exists {
		return WidgetInstance{}, fmt.Errorf("dashboard: widget %q already exists", id)
	}
	instance := WidgetInstance{
		ID:            id,
		DefinitionID:  input.DefinitionID,
		Configuration: cloneMap(input.Configuration),
		Metadata:      cloneMap(input.Metadata),
	}
	s.instances[id] = instance
	if len(input.Roles) > 0 {
		s.roles[id] = append([]string(nil), input.Roles...)
	}
	return instance, nil
}

// UpdateInstance replaces the configuration of an instance.
func (s *MemoryWidgetStore) UpdateInstance(_ context.Context, instanceID string, configuration map[string]any) (WidgetInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instances[instanceID]
	if !ok {
		return WidgetInstance{}, fmt.Errorf("%w: %s", ErrWidgetNotFound, instanceID)
	}
	inst.Configuration = cloneMap(configuration)
	s.instances[instanceID] = inst
	return s.withArea(inst), nil
}

// DeleteInstance removes the instance and its assignment.
func (s *MemoryWidgetStore) DeleteInstance(_ context.Context, instanceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.instances[instanceID]; !ok {
		return fmt.Errorf("%w: %s", ErrWidgetNotFound, instanceID)
	}
	delete(s.instances, instanceID)
	delete(s.roles, instanceID)
	for area, ids := range s.assignments {
		s.assignments[area] = without(ids, instanceID)
	}
	return nil
}

// AssignInstance places the instance in an area, at Position when given.
func (s *MemoryWidgetStore) AssignInstance(_ context.Context, input AssignWidgetInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.instances[input.InstanceID]; !ok {
		return fmt.Errorf("%w: %s", ErrWidgetNotFound, input.InstanceID)
	}
	for area, ids := range s.assignments {
		s.assignments[area] = without(ids, input.InstanceID)
	}
	order := s.assignments[input.AreaCode]
	if input.Position != nil && *input.Position >= 0 && *input.Position <= len(order) {
		idx := *input.Position
		order = append(order[:idx], append([]string{input.InstanceID}, order[idx:]...)...)
	} else {
		order = append(order, input.InstanceID)
	}
	s.assignments[input.AreaCode] = order
	return nil
}

// ReorderArea applies a new order. Unknown ids are dropped; assigned widgets
// missing from the list keep their relative order after the listed ones.
func (s *MemoryWidgetStore) ReorderArea(_ context.Context, input ReorderAreaInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.assignments[input.AreaCode]
	member := make(map[string]bool, len(current))
	for _, id := range current {
		member[id] = true
	}
	next := make([]string, 0, len(current))
	placed := map[string]bool{}
	for _, id := range input.WidgetIDs {
		if member[id] && !placed[id] {
			next = append(next, id)
			placed[id] = true
		}
	}
	for _, id := range current {
		if !placed[id] {
			next = append(next, id)
		}
	}
	s.assignments[input.AreaCode] = next
	return nil
}

// ResolveArea returns the instances of an area visible to the audience.
// Instances created with roles require one of them in the audience.
func (s *MemoryWidgetStore) ResolveArea(_ context.Context, input ResolveAreaInput) (ResolvedArea, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.assignments[input.AreaCode]
	widgets := make([]WidgetInstance, 0, len(ids))
	for pos, id := range ids {
		inst, ok := s.instances[id]
		if !ok || !audienceMatches(s.roles[id], input.Audience) {
			continue
		}
		inst.AreaCode = input.AreaCode
		inst.Position = pos
		inst.Configuration = cloneMap(inst.Configuration)
		inst.Metadata = cloneMap(inst.Metadata)
		widgets = append(widgets, inst)
	}
	return ResolvedArea{AreaCode: input.AreaCode, Widgets: widgets}, nil
}

// Instance returns a single instance with its area filled in.
func (s *MemoryWidgetStore) Instance(_ context.Context, instanceID string) (WidgetInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.instances[instanceID]
	if !ok {
		return WidgetInstance{}, fmt.Errorf("%w: %s", ErrWidgetNotFound, instanceID)
	}
	inst.Configuration = cloneMap(inst.Configuration)
	return s.withArea(inst), nil
}

// HasAssignments reports whether any widget is placed in the area.
func (s *MemoryWidgetStore) HasAssignments(area string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.assignments[area]) > 0
}

func (s *MemoryWidgetStore) withArea(inst WidgetInstance) WidgetInstance {
	for area, ids := range s.assignments {
		for pos, id := range ids {
			if id == inst.ID {
				inst.AreaCode = area
				inst.Position = pos
				return inst
			}
		}
	}
	return inst
}

func audienceMatches(required, audience []string) bool {
	if len(required) == 0 {
		return true
	}
	for _, r := range required {
		for _, a := range audience {
			if strings.EqualFold(r, a) {
				return true
			}
		}
	}
	return false
}

func without(ids []string, drop string) []string {
	out := ids[:0]
	for _, id := range ids {
		if id != drop {
			out = append(out, id)
		}
	}
	return out
}
