package tableau

// ReferenceTracker accumulates identifiers discovered as referenced during
// one harvest pass so a later pass fetches only the referenced subset.
// Insertion order of first occurrence is preserved; duplicates are silently
// dropped. Not safe for concurrent use: the harvest is single-threaded and
// one tracker is owned by exactly one harvester for the run.
type ReferenceTracker struct {
	seen map[string]struct{}
	ids  []string
}

// NewReferenceTracker returns an empty tracker.
func NewReferenceTracker() *ReferenceTracker {
	return &ReferenceTracker{seen: make(map[string]struct{})}
}

// Record adds an identifier. Idempotent; empty identifiers are ignored.
func (t *ReferenceTracker) Record(id string) {
	if id == "" {
		return
	}
	if _, ok := t.seen[id]; ok {
		return
	}
	t.seen[id] = struct{}{}
	t.ids = append(t.ids, id)
}

// Len returns the number of distinct identifiers recorded.
func (t *ReferenceTracker) Len() int {
	return len(t.ids)
}

// Snapshot returns the identifiers in first-occurrence order. The returned
// slice is a copy.
func (t *ReferenceTracker) Snapshot() []string {
	out := make([]string, len(t.ids))
	copy(out, t.ids)
	return out
}
