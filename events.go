package fcclient

import (
	"sync"

	"github.com/fcwire/fcclient/internal/wire"
)

// Event is one emission from a Client: either a decoded packet under its
// fcType name (or the ANY wildcard), or a synthetic lifecycle event
// (CLIENT_CONNECTED, CLIENT_DISCONNECTED, CLIENT_MANUAL_DISCONNECT,
// CLIENT_MODELSLOADED) carrying no packet.
type Event struct {
	Name      string
	Packet    wire.Packet
	HasPacket bool
}

// EventHandler receives one Event at a time, called synchronously. Packet
// events (and CLIENT_MODELSLOADED) arrive on the client's single dispatch
// goroutine; connection lifecycle events arrive on whichever goroutine the
// connection manager reports the change from, including the caller of
// Disconnect.
type EventHandler func(Event)

const (
	EventConnected        = "CLIENT_CONNECTED"
	EventDisconnected     = "CLIENT_DISCONNECTED"
	EventManualDisconnect = "CLIENT_MANUAL_DISCONNECT"
	EventModelsLoaded     = "CLIENT_MODELSLOADED"
	EventLoginRejected    = "CLIENT_LOGIN_REJECTED"
)

// emitter is a per-name subscription list. Registering or removing a
// handler from inside a callback defers the mutation until the emission
// in progress finishes, the same discipline registry.Model uses for its
// per-property listeners.
type emitter struct {
	mu       sync.Mutex
	handlers map[string][]EventHandler
	emitting int
	deferred []func()
}

func newEmitter() *emitter {
	return &emitter{handlers: make(map[string][]EventHandler)}
}

// On registers h for name. Pass wire.ANY to receive every packet-shaped
// event regardless of fcType.
func (e *emitter) On(name string, h EventHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.addLocked(name, h)
}

func (e *emitter) addLocked(name string, h EventHandler) {
	if e.emitting > 0 {
		e.deferred = append(e.deferred, func() { e.addLocked(name, h) })
		return
	}
	e.handlers[name] = append(e.handlers[name], h)
}

// Emit delivers ev to every handler registered under ev.Name.
func (e *emitter) Emit(ev Event) {
	e.mu.Lock()
	e.emitting++
	handlers := append([]EventHandler{}, e.handlers[ev.Name]...)
	e.mu.Unlock()

	for _, h := range handlers {
		h(ev)
	}

	e.mu.Lock()
	e.emitting--
	if e.emitting == 0 && len(e.deferred) > 0 {
		deferred := e.deferred
		e.deferred = nil
		for _, fn := range deferred {
			fn()
		}
	}
	e.mu.Unlock()
}
