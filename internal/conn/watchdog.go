package conn

import (
	"time"

	"github.com/fcwire/fcclient/internal/dispatch"
	"github.com/fcwire/fcclient/internal/wire"
)

const (
	defaultSilenceTimeout      = 90 * time.Second
	defaultStateSilenceTimeout = 120 * time.Second

	webSocketTickInterval = 15 * time.Second
	binaryTickInterval    = 120 * time.Second
)

// Watchdog tracks when packets last arrived, on two tiers: any packet, and
// the stronger "state-class" tier used only once logged in.
type Watchdog struct {
	dialect             wire.Dialect
	silenceTimeout      time.Duration
	stateSilenceTimeout time.Duration
	lastPacket          time.Time
	lastStatePacket     time.Time
}

// NewWatchdog returns a Watchdog for dialect with the given timeouts. A
// zero timeout falls back to the documented default.
func NewWatchdog(dialect wire.Dialect, silenceTimeout, stateSilenceTimeout time.Duration) *Watchdog {
	if silenceTimeout == 0 {
		silenceTimeout = defaultSilenceTimeout
	}
	if stateSilenceTimeout == 0 {
		stateSilenceTimeout = defaultStateSilenceTimeout
	}
	now := time.Now()
	return &Watchdog{
		dialect:             dialect,
		silenceTimeout:      silenceTimeout,
		stateSilenceTimeout: stateSilenceTimeout,
		lastPacket:          now,
		lastStatePacket:     now,
	}
}

// TickInterval is how often the silence check runs for this dialect.
func (w *Watchdog) TickInterval() time.Duration {
	if w.dialect == wire.DialectText {
		return webSocketTickInterval
	}
	return binaryTickInterval
}

// Touch records the arrival of pkt, updating the state-class timestamp too
// when pkt's type is one of the state-class fcTypes.
func (w *Watchdog) Touch(pkt wire.Packet) {
	now := time.Now()
	w.lastPacket = now
	if dispatch.StateClassTypes[pkt.Type] {
		w.lastStatePacket = now
	}
}

// Expired reports whether the connection should be considered silent.
// loggedIn gates the stronger state-class tier, which only applies once a
// login handshake has completed.
func (w *Watchdog) Expired(loggedIn bool) bool {
	now := time.Now()
	if now.Sub(w.lastPacket) > w.silenceTimeout {
		return true
	}
	if loggedIn && now.Sub(w.lastStatePacket) > w.stateSilenceTimeout {
		return true
	}
	return false
}
