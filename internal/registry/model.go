package registry

import "sync"

// Listener receives one ChangeEvent at a time, called synchronously from
// the registry's merge path.
type Listener func(ChangeEvent)

// WhenCallback is invoked on a "when" binding transition.
type WhenCallback func(*Model)

type whenBinding struct {
	predicate func(*Model) bool
	onTrue    WhenCallback
	onFalse   WhenCallback // nil if onFalseAfterTrue was not supplied
	lastTrue  bool
}

// Model is one broadcaster, identified by UID. It is created on first
// reference and destroyed only by Registry.Reset.
type Model struct {
	UID int32

	mu            sync.Mutex
	sessions      map[int32]SessionState
	bestSessionID int32
	tags          map[string]struct{}

	listeners map[string][]Listener
	whens     []*whenBinding

	// emitting guards against listener-list mutation while an emission is
	// in flight: a listener registering or removing another listener
	// mid-dispatch queues the operation here instead of mutating the live
	// slice, applied once emitting returns to zero.
	emitting int
	deferred []func()
}

// newModel creates a Model with the synthetic offline session (sid=0,
// vs=Offline) already present.
func newModel(uid int32) *Model {
	m := &Model{
		UID:      uid,
		sessions: make(map[int32]SessionState),
		tags:     make(map[string]struct{}),
		listeners: make(map[string][]Listener),
	}
	offline := NewSessionState()
	offline.Set("sid", int32(0))
	offline.Set("uid", uid)
	offline.Set("vs", Offline)
	m.sessions[0] = offline
	m.bestSessionID = 0
	return m
}

// BestSession returns the currently selected best session.
func (m *Model) BestSession() SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[m.bestSessionID]
}

// BestSessionID returns the sid of the currently selected best session.
func (m *Model) BestSessionID() int32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bestSessionID
}

// Session returns a copy of the session state for sid, if present.
func (m *Model) Session(sid int32) (SessionState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sid]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

// Sessions returns a snapshot of every session currently held for this
// model, keyed by sid.
func (m *Model) Sessions() map[int32]SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int32]SessionState, len(m.sessions))
	for sid, s := range m.sessions {
		out[sid] = s.Clone()
	}
	return out
}

// Tags returns a snapshot of the model's tag set.
func (m *Model) Tags() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.tags))
	for t := range m.tags {
		out = append(out, t)
	}
	return out
}

// HasTag reports whether tag is present on this model.
func (m *Model) HasTag(tag string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tags[tag]
	return ok
}

// On registers a listener for property (or AnyProperty for every change).
// If called from inside an in-flight emission, the registration is
// deferred until the emission completes.
func (m *Model) On(property string, l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addListenerLocked(property, l)
}

func (m *Model) addListenerLocked(property string, l Listener) {
	if m.emitting > 0 {
		m.deferred = append(m.deferred, func() { m.addListenerLocked(property, l) })
		return
	}
	m.listeners[property] = append(m.listeners[property], l)
}

// When registers an edge-triggered binding: onTrue fires on the
// false→true transition of predicate, onFalse (if non-nil) on the
// true→false transition. onFalse may be nil, in which case the
// true→false transition is silent.
func (m *Model) When(predicate func(*Model) bool, onTrue WhenCallback, onFalse WhenCallback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.whens = append(m.whens, &whenBinding{predicate: predicate, onTrue: onTrue, onFalse: onFalse})
}

// RemoveWhen removes the binding identified by token. Go cannot compare
// func values for identity, so removal goes through the token returned by
// WhenWithToken rather than by re-passing the original predicate.
func (m *Model) RemoveWhen(token *WhenToken) {
	if token == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, b := range m.whens {
		if b == token.binding {
			m.whens = append(m.whens[:i], m.whens[i+1:]...)
			return
		}
	}
}

// WhenToken identifies a registered "when" binding for later removal.
type WhenToken struct {
	binding *whenBinding
}

// WhenWithToken is like When but returns a token that RemoveWhen accepts,
// for callers that need to unregister later.
func (m *Model) WhenWithToken(predicate func(*Model) bool, onTrue WhenCallback, onFalse WhenCallback) *WhenToken {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := &whenBinding{predicate: predicate, onTrue: onTrue, onFalse: onFalse}
	m.whens = append(m.whens, b)
	return &WhenToken{binding: b}
}

// emit delivers a ChangeEvent to this model's listeners (both the exact
// property and AnyProperty), then re-evaluates "when" bindings. Must be
// called with m.mu held; releases and reacquires it around listener calls
// so listeners may safely call back into the model.
func (m *Model) emit(ev ChangeEvent, globalFire func(ChangeEvent)) {
	m.emitting++
	listeners := append([]Listener{}, m.listeners[ev.Property]...)
	if ev.Property != AnyProperty {
		listeners = append(listeners, m.listeners[AnyProperty]...)
	}
	whens := append([]*whenBinding{}, m.whens...)
	m.mu.Unlock()

	for _, l := range listeners {
		l(ev)
	}
	if globalFire != nil {
		globalFire(ev)
	}
	for _, b := range whens {
		now := b.predicate(m)
		if now && !b.lastTrue && b.onTrue != nil {
			b.onTrue(m)
		} else if !now && b.lastTrue && b.onFalse != nil {
			b.onFalse(m)
		}
		b.lastTrue = now
	}

	m.mu.Lock()
	m.emitting--
	if m.emitting == 0 && len(m.deferred) > 0 {
		deferred := m.deferred
		m.deferred = nil
		for _, fn := range deferred {
			fn()
		}
	}
}
