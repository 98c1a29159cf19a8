package dashboard

import "sort"

func applyOrderOverride(widgets []WidgetInstance, order []string) []WidgetInstance {
	if len(order) == 0 {
		return widgets
	}
	index := make(map[string]WidgetInstance, len(widgets))
	for _, w := range widgets {
		index[w.ID] = w
	}
	result := make([]WidgetInstance, 0, len(widgets))
	seen := make(map[string]struct{}, len(order))
	for _, id := range order {
		if _, dup := seen[id]; dup {
			continue
		}
		if w, ok := index[id]; ok {
			result = append(result, w)
			seen[id] = struct{}{}
		}
	}
	for _, w := range widgets {
		if _, ok := seen[w.ID]; !ok {
			result = append(result, w)
		}
	}
	for i := range result {
		result[i].Position = i
	}
	return result
}

// applyHiddenFilter drops hidden widgets, renumbers the rest and returns the
// ids it removed.
func applyHiddenFilter(widgets []WidgetInstance, hidden map[string]bool) ([]WidgetInstance, []string) {
	if len(hidden) == 0 {
		return widgets, nil
	}
	visible := make([]WidgetInstance, 0, len(widgets))
	var removed []string
	for _, w := range widgets {
		if hidden[w.ID] {
			removed = append(removed, w.ID)
			continue
		}
		w.Position = len(visible)
		visible = append(visible, w)
	}
	return visible, removed
}

func sortedIDs(ids []string) []string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	return out
}
