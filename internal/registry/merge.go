package registry

// Merge overlays incoming onto the stored session state for incoming.SID(),
// recomputes the model's best session, and emits a change event for every
// property whose effective value on the best session changed.
//
// This is the core algorithm of the whole library: everything the
// dispatcher learns about a model's live state funnels through here.
func (r *Registry) Merge(m *Model, incoming SessionState) {
	m.mu.Lock()

	sid := incoming.SID()
	if incoming.UID() == 0 && sid > 0 {
		incoming.Set("uid", sid)
	}

	before := m.sessions[sid]
	if before == nil {
		before = NewSessionState()
	}
	bestBefore := m.sessions[m.bestSessionID].Clone()

	merged := overlay(before, incoming)
	m.sessions[sid] = merged

	m.bestSessionID = selectBest(m.sessions)
	bestAfter := m.sessions[m.bestSessionID]

	changes := diff(bestBefore, bestAfter)
	if len(changes) == 0 {
		m.mu.Unlock()
		return
	}

	// emit releases m.mu while calling out to listeners and reacquires it
	// before returning, so the lock is still held as we enter the next
	// iteration and must be released once after the last one.
	for _, c := range changes {
		ev := ChangeEvent{Model: m, Property: c.property, Previous: c.previous, Next: c.next}
		m.emit(ev, r.fireGlobal)
	}
	m.mu.Unlock()
}

// overlay returns a new SessionState with incoming's fields written onto a
// clone of existing. Nested bags are overlaid key-by-key; scalars overwrite
// outright. Set already treats a nil value as a no-op, satisfying "a write
// of undefined leaves the field unchanged."
func overlay(existing, incoming SessionState) SessionState {
	out := existing.Clone()
	if out == nil {
		out = NewSessionState()
	}
	for _, bagKey := range NestedBagKeys {
		incomingBag, ok := incoming[bagKey].(SessionState)
		if !ok {
			continue
		}
		outBag := out.Bag(bagKey)
		for k, v := range incomingBag {
			outBag.Set(k, v)
		}
	}
	for k, v := range incoming {
		if isNestedBagKey(k) {
			continue
		}
		out.Set(k, v)
	}
	return out
}

func isNestedBagKey(k string) bool {
	for _, b := range NestedBagKeys {
		if k == b {
			return true
		}
	}
	return false
}

// selectBest chooses the sid maximizing (isOnline, camScore, sid)
// lexicographically. The synthetic sid-0 session is considered only when
// it is the model's sole session.
func selectBest(sessions map[int32]SessionState) int32 {
	var bestSID int32
	first := true
	var bestOnline bool
	var bestScore float64
	for sid, s := range sessions {
		if sid == 0 && len(sessions) > 1 {
			continue
		}
		online := s.IsOnline()
		score := s.CamScore()
		if first || better(online, score, sid, bestOnline, bestScore, bestSID) {
			bestOnline, bestScore, bestSID = online, score, sid
			first = false
		}
	}
	return bestSID
}

func better(online bool, score float64, sid int32, bestOnline bool, bestScore float64, bestSID int32) bool {
	if online != bestOnline {
		return online
	}
	if score != bestScore {
		return score > bestScore
	}
	return sid > bestSID
}

type propertyChange struct {
	property string
	previous any
	next     any
}

// diff walks every key present in either state and returns one
// propertyChange per key whose value differs. Nested bags are diffed
// recursively, each changed leaf named "<bag>.<key>" so a listener can
// register on the exact leaf that changed; no change is reported for a bag
// as a whole, and AnyProperty listeners receive the same per-leaf changes.
func diff(before, after SessionState) []propertyChange {
	var changes []propertyChange
	seen := make(map[string]bool)
	for k := range before {
		seen[k] = true
	}
	for k := range after {
		seen[k] = true
	}
	for k := range seen {
		bVal, bPresent := before[k]
		aVal, aPresent := after[k]
		bBag, bIsBag := bVal.(SessionState)
		aBag, aIsBag := aVal.(SessionState)
		if bIsBag || aIsBag {
			if !bIsBag {
				bBag = NewSessionState()
			}
			if !aIsBag {
				aBag = NewSessionState()
			}
			for _, c := range diff(bBag, aBag) {
				changes = append(changes, propertyChange{
					property: k + "." + c.property,
					previous: c.previous,
					next:     c.next,
				})
			}
			continue
		}
		if !bPresent && !aPresent {
			continue
		}
		if bPresent && aPresent && equalValue(bVal, aVal) {
			continue
		}
		changes = append(changes, propertyChange{property: k, previous: bVal, next: aVal})
	}
	return changes
}

// equalValue compares two property values for change-detection purposes.
// Session fields are scalars in the common case, but list-valued fields
// (e.g. a raw array payload) are not comparable with ==, so those fall back
// to a length-and-element check rather than panicking.
func equalValue(a, b any) bool {
	aSlice, aOK := a.([]any)
	bSlice, bOK := b.([]any)
	if aOK || bOK {
		if !aOK || !bOK || len(aSlice) != len(bSlice) {
			return false
		}
		for i := range aSlice {
			if !equalValue(aSlice[i], bSlice[i]) {
				return false
			}
		}
		return true
	}
	return a == b
}

// MergeTags union-inserts tags into model.tags, emitting one TagsProperty
// change event if the set actually grew.
func (r *Registry) MergeTags(m *Model, tags []string) {
	m.mu.Lock()
	before := make([]string, 0, len(m.tags))
	for t := range m.tags {
		before = append(before, t)
	}
	changed := false
	for _, t := range tags {
		if _, ok := m.tags[t]; !ok {
			m.tags[t] = struct{}{}
			changed = true
		}
	}
	if !changed {
		m.mu.Unlock()
		return
	}
	after := make([]string, 0, len(m.tags))
	for t := range m.tags {
		after = append(after, t)
	}
	ev := ChangeEvent{Model: m, Property: TagsProperty, Previous: before, Next: after}
	m.emit(ev, r.fireGlobal)
	m.mu.Unlock()
}
