// Package dispatch executes the per-fcType handler for each decoded
// packet: merging candidate session state into the registry, following
// EXTDATA's HTTP indirection, and emitting the type-named and wildcard
// events every packet produces.
package dispatch

import (
	"context"
	"log"

	"github.com/fcwire/fcclient/internal/fetch"
	"github.com/fcwire/fcclient/internal/listdecode"
	"github.com/fcwire/fcclient/internal/registry"
	"github.com/fcwire/fcclient/internal/wire"
)

// StateClassTypes is the set of fcTypes whose silence governs the stronger
// "state silence" watchdog tier, exactly the DETAILS-group handler list.
var StateClassTypes = map[wire.FCType]bool{
	wire.DETAILS:        true,
	wire.ROOMHELPER:     true,
	wire.SESSIONSTATE:   true,
	wire.ADDFRIEND:      true,
	wire.ADDIGNORE:      true,
	wire.CMESG:          true,
	wire.PMESG:          true,
	wire.TXPROFILE:      true,
	wire.USERNAMELOOKUP: true,
	wire.MYCAMSTATE:     true,
	wire.MYWEBCAM:       true,
	wire.JOINCHAN:       true,
}

// Sender writes an outbound command on the current dialect/connection.
type Sender interface {
	Send(fcType wire.FCType, nTo, nArg1, nArg2 int32, payload string)
}

// Dispatcher holds the per-connection state the handlers in this package
// read and mutate: the session registry, the outbound sender, the event
// sink, and the bookkeeping LOGIN/MANAGELIST need (current session id,
// model/tag load completion latches).
type Dispatcher struct {
	Registry *registry.Registry
	Sender   Sender
	Emit     func(name string, pkt wire.Packet)
	HttpGet  fetch.HttpGet
	Host     string

	SessionID int32
	UID       int32
	Username  string

	completedModels bool
	completedTags   bool
	modelsLoaded    bool
}

// New returns a Dispatcher wired to reg, sender, emit, and an HttpGet for
// EXTDATA indirection (host is the site host used to build the EXTDATA
// fetch URL, e.g. "chaturbate.com"-shaped).
func New(reg *registry.Registry, sender Sender, emit func(string, wire.Packet), get fetch.HttpGet, host string) *Dispatcher {
	return &Dispatcher{Registry: reg, Sender: sender, Emit: emit, HttpGet: get, Host: host}
}

// Dispatch runs the per-type handler for pkt, then emits the type-named
// event followed by the ANY wildcard event. extdataDepth tracks EXTDATA's
// recursive re-dispatch so it can be capped at one level.
func (d *Dispatcher) Dispatch(ctx context.Context, pkt wire.Packet) {
	d.dispatchAt(ctx, pkt, 0)
}

func (d *Dispatcher) dispatchAt(ctx context.Context, pkt wire.Packet, extdataDepth int) {
	switch pkt.Type {
	case wire.LOGIN:
		d.handleLogin(pkt)
	case wire.DETAILS, wire.ROOMHELPER, wire.SESSIONSTATE, wire.ADDFRIEND, wire.ADDIGNORE,
		wire.CMESG, wire.PMESG, wire.TXPROFILE, wire.USERNAMELOOKUP, wire.MYCAMSTATE,
		wire.MYWEBCAM, wire.JOINCHAN:
		d.handleCandidateState(pkt)
	case wire.TAGS:
		d.handleTags(pkt)
	case wire.BOOKMARKS:
		d.handleBookmarks(pkt)
	case wire.EXTDATA:
		d.handleExtdata(ctx, pkt, extdataDepth)
	case wire.MANAGELIST:
		d.handleManageList(pkt)
	case wire.ROOMDATA:
		d.handleRoomData(pkt)
	}

	if d.Emit != nil {
		d.Emit(pkt.TypeName(), pkt)
		d.Emit(wire.ANY, pkt)
	}
}

func (d *Dispatcher) send(fcType wire.FCType, nTo, nArg1, nArg2 int32, payload string) {
	if d.Sender != nil {
		d.Sender.Send(fcType, nTo, nArg1, nArg2, payload)
	}
}

func (d *Dispatcher) logf(format string, args ...any) {
	log.Printf("dispatch: "+format, args...)
}

// payloadMap extracts pkt's payload as a map, if it decoded as one.
func payloadMap(pkt wire.Packet) (map[string]any, bool) {
	m, ok := pkt.Value.(map[string]any)
	return m, ok
}

func int32Field(m map[string]any, key string) (int32, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int32(n), true
	case int32:
		return n, true
	case int:
		return int32(n), true
	}
	return 0, false
}

func mapToSessionState(m map[string]any) registry.SessionState {
	s := registry.NewSessionState()
	for k, v := range m {
		s.Set(k, normalizeSessionValue(v))
	}
	return s
}

// normalizeSessionValue converts a decoded JSON nested object into
// registry.SessionState so overlay's type assertion on the "m"/"u"/"s"/"x"
// bag keys succeeds; encoding/json only ever produces plain
// map[string]any, never the named SessionState type, for a nested object.
func normalizeSessionValue(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	return mapToSessionState(m)
}

func recordToSessionState(r listdecode.Record) registry.SessionState {
	return mapToSessionState(map[string]any(r))
}
