package registry

import "testing"

func TestMergeSelectsHighestCamScoreOnlineSession(t *testing.T) {
	r := New()
	m := r.Model(42)

	r.Merge(m, sessionState(map[string]any{"sid": int32(5), "vs": int32(1), "camscore": float64(10)}))
	r.Merge(m, sessionState(map[string]any{"sid": int32(6), "vs": int32(1), "camscore": float64(20)}))

	if got := m.BestSessionID(); got != 6 {
		t.Fatalf("BestSessionID = %d, want 6 (higher camscore)", got)
	}
}

func TestMergeBreaksCamScoreTieBySid(t *testing.T) {
	r := New()
	m := r.Model(42)

	r.Merge(m, sessionState(map[string]any{"sid": int32(5), "vs": int32(1), "camscore": float64(10)}))
	r.Merge(m, sessionState(map[string]any{"sid": int32(9), "vs": int32(1), "camscore": float64(10)}))

	if got := m.BestSessionID(); got != 9 {
		t.Fatalf("BestSessionID = %d, want 9 (tie broken by higher sid)", got)
	}
}

func TestMergeOnlineBeatsOfflineRegardlessOfSid(t *testing.T) {
	r := New()
	m := r.Model(42)

	r.Merge(m, sessionState(map[string]any{"sid": int32(99), "vs": Offline}))
	r.Merge(m, sessionState(map[string]any{"sid": int32(5), "vs": int32(1), "camscore": float64(1)}))

	if got := m.BestSessionID(); got != 5 {
		t.Fatalf("BestSessionID = %d, want 5 (online beats higher-sid offline)", got)
	}
}

func TestMergeEmitsChangeEventWithPreviousAndNext(t *testing.T) {
	r := New()
	m := r.Model(42)
	r.Merge(m, sessionState(map[string]any{"sid": int32(5), "vs": int32(1)}))

	var events []ChangeEvent
	m.On("camscore", func(ev ChangeEvent) { events = append(events, ev) })

	r.Merge(m, sessionState(map[string]any{"sid": int32(5), "vs": int32(1), "camscore": float64(7)}))

	if len(events) != 1 {
		t.Fatalf("got %d camscore events, want 1", len(events))
	}
	if events[0].Previous != nil {
		t.Errorf("Previous = %v, want nil", events[0].Previous)
	}
	if events[0].Next != float64(7) {
		t.Errorf("Next = %v, want 7", events[0].Next)
	}
}

func TestMergeNoEventWhenBestSessionValueUnchanged(t *testing.T) {
	r := New()
	m := r.Model(42)
	r.Merge(m, sessionState(map[string]any{"sid": int32(5), "vs": int32(1), "camscore": float64(7)}))

	var count int
	m.On(AnyProperty, func(ChangeEvent) { count++ })
	r.Merge(m, sessionState(map[string]any{"sid": int32(5), "vs": int32(1), "camscore": float64(7)}))

	if count != 0 {
		t.Fatalf("got %d events on a no-op merge, want 0", count)
	}
}

func TestMergeNormalizesZeroUIDFromSid(t *testing.T) {
	r := New()
	m := r.Model(42)
	r.Merge(m, sessionState(map[string]any{"sid": int32(5), "uid": int32(0), "vs": int32(1)}))

	s, ok := m.Session(5)
	if !ok {
		t.Fatal("session 5 not found")
	}
	if s.UID() != 5 {
		t.Errorf("UID = %d, want 5 (normalized from sid)", s.UID())
	}
}

func TestMergeOverlaysNestedBagKeyByKey(t *testing.T) {
	r := New()
	m := r.Model(42)
	r.Merge(m, sessionState(map[string]any{"sid": int32(5), "vs": int32(1), "m": sessionState(map[string]any{"rc": int32(3)})}))
	r.Merge(m, sessionState(map[string]any{"sid": int32(5), "vs": int32(1), "m": sessionState(map[string]any{"topic": "hello"})}))

	s, _ := m.Session(5)
	bag := s.Bag("m")
	if rc, _ := bag.Get("rc"); rc != int32(3) {
		t.Errorf("m.rc = %v, want 3 (preserved across second merge)", rc)
	}
	if topic, _ := bag.Get("topic"); topic != "hello" {
		t.Errorf("m.topic = %v, want hello", topic)
	}
}

func TestMergeTagsUnionInsertsAndEmitsOnce(t *testing.T) {
	r := New()
	m := r.Model(42)

	var events []ChangeEvent
	m.On(TagsProperty, func(ev ChangeEvent) { events = append(events, ev) })

	r.MergeTags(m, []string{"blonde", "petite"})
	r.MergeTags(m, []string{"petite", "tattoo"})

	if len(events) != 2 {
		t.Fatalf("got %d tags events, want 2 (one per call that actually grew the set)", len(events))
	}
	if !m.HasTag("blonde") || !m.HasTag("petite") || !m.HasTag("tattoo") {
		t.Errorf("tags = %v, missing an expected entry", m.Tags())
	}
}

func TestMergeTagsNoEventWhenSetUnchanged(t *testing.T) {
	r := New()
	m := r.Model(42)
	r.MergeTags(m, []string{"blonde"})

	var count int
	m.On(TagsProperty, func(ChangeEvent) { count++ })
	r.MergeTags(m, []string{"blonde"})

	if count != 0 {
		t.Fatalf("got %d events re-inserting an existing tag, want 0", count)
	}
}

func TestWhenFiresOnlyOnFalseToTrueEdge(t *testing.T) {
	r := New()
	m := r.Model(42)

	var trueCount, falseCount int
	m.When(
		func(m *Model) bool { return m.BestSession().IsOnline() },
		func(*Model) { trueCount++ },
		func(*Model) { falseCount++ },
	)

	r.Merge(m, sessionState(map[string]any{"sid": int32(5), "vs": int32(1)}))
	r.Merge(m, sessionState(map[string]any{"sid": int32(5), "camscore": float64(2)}))
	if trueCount != 1 {
		t.Fatalf("onTrue fired %d times, want 1 (only on the edge)", trueCount)
	}

	r.Merge(m, sessionState(map[string]any{"sid": int32(5), "vs": Offline}))
	if falseCount != 1 {
		t.Fatalf("onFalse fired %d times, want 1", falseCount)
	}
}

func sessionState(fields map[string]any) SessionState {
	s := NewSessionState()
	for k, v := range fields {
		s.Set(k, v)
	}
	return s
}
