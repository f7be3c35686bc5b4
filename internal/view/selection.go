package view

import (
	"sort"

	"github.com/fleet-console/fleet-console/internal/models"
)

// Selection is a set of record identifiers. It is independent of the order
// of the collection it refers to. The zero value is empty and ready to use.
type Selection struct {
	ids map[string]struct{}
}

// NewSelection creates a selection holding ids.
func NewSelection(ids ...string) *Selection {
	s := &Selection{}
	for _, id := range ids {
		s.add(id)
	}
	return s
}

func (s *Selection) add(id string) {
	if s.ids == nil {
		s.ids = make(map[string]struct{})
	}
	s.ids[id] = struct{}{}
}

// Has reports whether id is selected.
func (s *Selection) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of selected ids.
func (s *Selection) Len() int { return len(s.ids) }

// IDs returns the selected ids in sorted order.
func (s *Selection) IDs() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Toggle flips the selection state of id.
func (s *Selection) Toggle(id string) {
	if s.Has(id) {
		delete(s.ids, id)
		return
	}
	s.add(id)
}

// Clear empties the selection.
func (s *Selection) Clear() {
	s.ids = nil
}

// AllSelected reports whether the selection is as large as the non-empty
// visible view.
func (s *Selection) AllSelected(visible []string) bool {
	return len(visible) > 0 && s.Len() == len(visible)
}

// ToggleAll clears the selection when it already covers the visible view and
// otherwise replaces it with exactly the visible ids.
func (s *Selection) ToggleAll(visible []string) {
	if s.AllSelected(visible) {
		s.Clear()
		return
	}
	s.Clear()
	for _, id := range visible {
		s.add(id)
	}
}

// Reconcile drops removed ids from the selection.
func (s *Selection) Reconcile(removed []string) {
	for _, id := range removed {
		delete(s.ids, id)
	}
}

// RemoveByID returns list without the records whose id is in ids, along with
// the ids that were actually removed in collection order.
func RemoveByID[T models.Record](list []T, ids []string) ([]T, []string) {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	kept := make([]T, 0, len(list))
	var removed []string
	for _, item := range list {
		if _, ok := drop[item.RecordID()]; ok {
			removed = append(removed, item.RecordID())
			continue
		}
		kept = append(kept, item)
	}
	return kept, removed
}

// BatchDelete removes the selected records from list and clears sel.
func BatchDelete[T models.Record](list []T, sel *Selection) ([]T, []string) {
	kept, removed := RemoveByID(list, sel.IDs())
	sel.Clear()
	return kept, removed
}
