package registry

import "sync"

// Registry owns every Model currently referenced, keyed by uid. Models are
// created lazily on first reference and removed only by Reset, which is
// refcount-gated so a model held through Acquire survives a reset that
// would otherwise drop it. Listeners registered with Model.On do not count
// as references.
type Registry struct {
	mu     sync.Mutex
	models map[int32]*Model
	refs   map[int32]int

	globalMu  sync.Mutex
	globalAny []Listener
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		models: make(map[int32]*Model),
		refs:   make(map[int32]int),
	}
}

// Model returns the Model for uid, creating it if this is the first
// reference.
func (r *Registry) Model(uid int32) *Model {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.modelLocked(uid)
}

func (r *Registry) modelLocked(uid int32) *Model {
	m, ok := r.models[uid]
	if !ok {
		m = newModel(uid)
		r.models[uid] = m
	}
	return m
}

// Acquire returns the Model for uid and increments its reference count, so
// a subsequent Reset will not drop it. Release must be called when the
// caller no longer needs the model held.
func (r *Registry) Acquire(uid int32) *Model {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.modelLocked(uid)
	r.refs[uid]++
	return m
}

// Release decrements uid's reference count. It does not itself delete the
// model; deletion only happens inside Reset.
func (r *Registry) Release(uid int32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.refs[uid] > 0 {
		r.refs[uid]--
	}
}

// All returns every currently-known model, in no particular order.
func (r *Registry) All() []*Model {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Model, 0, len(r.models))
	for _, m := range r.models {
		out = append(out, m)
	}
	return out
}

// Lookup returns the model for uid without creating it.
func (r *Registry) Lookup(uid int32) (*Model, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.models[uid]
	return m, ok
}

// Reset discards every model with a zero reference count, simulating a
// fresh connection's empty registry without tearing down subscriptions
// that outlive a single connection's lifetime.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for uid := range r.models {
		if r.refs[uid] > 0 {
			continue
		}
		delete(r.models, uid)
	}
}

// OnAny registers a listener invoked for every ChangeEvent emitted by any
// model in the registry, independent of per-model listeners.
func (r *Registry) OnAny(l Listener) {
	r.globalMu.Lock()
	defer r.globalMu.Unlock()
	r.globalAny = append(r.globalAny, l)
}

func (r *Registry) fireGlobal(ev ChangeEvent) {
	r.globalMu.Lock()
	listeners := append([]Listener{}, r.globalAny...)
	r.globalMu.Unlock()
	for _, l := range listeners {
		l(ev)
	}
}
