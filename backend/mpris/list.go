package mpris

import "slices"

// orderedList is the ordered, id-unique collection shared by the track list
// and playlist trackers. ids[i] is always the id of items[i].
type orderedList[T comparable] struct {
	ids   []string
	items []T
	idOf  func(T) string
}

func newOrderedList[T comparable](idOf func(T) string) *orderedList[T] {
	return &orderedList[T]{idOf: idOf}
}

func (l *orderedList[T]) Len() int {
	return len(l.items)
}

// IDs returns a copy of the ids in order.
func (l *orderedList[T]) IDs() []string {
	return slices.Clone(l.ids)
}

// Items returns a copy of the items in order.
func (l *orderedList[T]) Items() []T {
	return slices.Clone(l.items)
}

func (l *orderedList[T]) index(id string) int {
	return slices.Index(l.ids, id)
}

func (l *orderedList[T]) has(id string) bool {
	return l.index(id) >= 0
}

func (l *orderedList[T]) get(id string) (T, bool) {
	if i := l.index(id); i >= 0 {
		return l.items[i], true
	}
	var zero T
	return zero, false
}

// replace swaps the whole content. Later duplicates are dropped.
// It reports whether the visible content changed.
func (l *orderedList[T]) replace(items []T) bool {
	ids := make([]string, 0, len(items))
	kept := make([]T, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		id := l.idOf(item)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
		kept = append(kept, item)
	}

	if slices.Equal(kept, l.items) {
		return false
	}
	l.ids, l.items = ids, kept
	return true
}

// patch overwrites the entry oldID in place. The new id must not collide with
// another entry.
func (l *orderedList[T]) patch(oldID string, item T) bool {
	i := l.index(oldID)
	if i < 0 {
		return false
	}
	newID := l.idOf(item)
	if j := l.index(newID); j >= 0 && j != i {
		return false
	}
	l.ids[i] = newID
	l.items[i] = item
	return true
}

func (l *orderedList[T]) clear() bool {
	if len(l.items) == 0 {
		return false
	}
	l.ids, l.items = nil, nil
	return true
}

// dedupeIDs keeps the first occurrence of each id accepted by valid.
func dedupeIDs(ids []string, valid func(string) bool) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if !valid(id) {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// insertAfter returns a copy of ids with id inserted right after anchor, or
// prepended when anchor is the no-track sentinel. ok is false when the anchor
// is unknown.
func insertAfter(ids []string, anchor, id string) ([]string, bool) {
	if anchor == MPRIS_NO_TRACK {
		return append([]string{id}, ids...), true
	}
	i := slices.Index(ids, anchor)
	if i < 0 {
		return nil, false
	}
	return slices.Insert(slices.Clone(ids), i+1, id), true
}

// without returns a copy of ids without id.
func without(ids []string, id string) []string {
	return slices.DeleteFunc(slices.Clone(ids), func(s string) bool { return s == id })
}
