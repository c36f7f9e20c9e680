// Package conn implements the connection lifecycle state machine: dialing
// a server, running the login handshake, watching for silence, and
// reconnecting with backoff.
package conn

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/fcwire/fcclient/internal/fetch"
	"github.com/fcwire/fcclient/internal/wire"
)

// ErrLoginRejected is the disconnect cause logged when the server's LOGIN
// response carries a nonzero nArg1; OnEvent then receives
// CLIENT_DISCONNECTED followed by CLIENT_LOGIN_REJECTED. Unlike every other
// disconnect cause, this one does not get an automatic reconnect.
var ErrLoginRejected = errors.New("conn: login rejected")

// transport is the narrow seam both dialects satisfy.
type transport interface {
	Send([]byte) error
	Close() error
	ReadLoop(onData func([]byte)) error
}

// Options configures a Manager. Zero-valued duration fields fall back to
// their documented defaults.
type Options struct {
	Dialect               wire.Dialect
	Host                  string
	CamYou                bool
	UseCachedServerConfig bool
	SilenceTimeout        time.Duration
	StateSilenceTimeout   time.Duration
	LoginTimeout          time.Duration
	ConnectionTimeout     time.Duration
	Username              string
	Password              string
	HttpGet               fetch.HttpGet
}

const defaultLoginTimeout = 30 * time.Second

// Manager owns one connection's lifecycle: Idle/Pending/Active, the
// silence watchdog, and reconnect backoff. OnPacket/OnStateChange are
// invoked outside any internal lock and must not block.
type Manager struct {
	opts Options

	mu          sync.Mutex
	state       State
	manual      bool
	loggedIn    bool
	lastDoLogin bool

	transport    transport
	decoder      *wire.Decoder
	backoff      *Backoff
	watchdog     *Watchdog
	serverConfig *ServerConfig

	reconnectTimer *time.Timer
	loginTimer     *time.Timer
	tickTimer      *time.Timer

	connectDone chan struct{}
	connectErr  error

	// SessionID is the nFrom every outbound frame is stamped with. It is
	// 0 until a successful LOGIN response arrives, at which point the
	// Manager sets it from that response's nTo.
	SessionID int32

	OnPacket      func(wire.Packet)
	OnStateChange func(State)
	OnEvent       func(name string)
}

// New returns a Manager in the Idle state.
func New(opts Options) *Manager {
	return &Manager{
		opts:    opts,
		state:   Idle,
		backoff: NewBackoff(),
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connect resolves once Active is first reached for this attempt, or
// returns an error if Disconnect is called first or ConnectionTimeout
// elapses. Calling Connect while Pending waits for the in-flight attempt;
// calling it while Active is a no-op.
func (m *Manager) Connect(ctx context.Context, doLogin bool) error {
	m.mu.Lock()
	switch m.state {
	case Active:
		m.mu.Unlock()
		return nil
	case Pending:
		done := m.connectDone
		m.mu.Unlock()
		return m.awaitConnect(ctx, done)
	}

	m.manual = false
	m.lastDoLogin = doLogin
	done := make(chan struct{})
	m.connectDone = done
	m.connectErr = nil
	m.setStateLocked(Pending)
	m.mu.Unlock()

	go m.attempt(doLogin, done)
	return m.awaitConnect(ctx, done)
}

func (m *Manager) awaitConnect(ctx context.Context, done chan struct{}) error {
	if m.opts.ConnectionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.opts.ConnectionTimeout)
		defer cancel()
	}
	select {
	case <-done:
		m.mu.Lock()
		err := m.connectErr
		m.mu.Unlock()
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Disconnect tears the connection down and moves to Idle, suppressing the
// automatic reconnect that would otherwise follow.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.manual = true
	tr := m.transport
	m.stopTimersLocked()
	m.mu.Unlock()

	if tr != nil {
		tr.Close()
	}

	m.mu.Lock()
	m.recycleGuestNameLocked()
	m.state = Idle
	m.loggedIn = false
	m.mu.Unlock()
	m.fireStateChange(Idle)
	m.fireEvent("CLIENT_MANUAL_DISCONNECT")
}

func (m *Manager) stopTimersLocked() {
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
	}
	if m.loginTimer != nil {
		m.loginTimer.Stop()
	}
	if m.tickTimer != nil {
		m.tickTimer.Stop()
	}
}

// Send encodes and writes a command using the current dialect. It
// satisfies dispatch.Sender so a Manager can be wired in directly as a
// Dispatcher's outbound sender; a failed write is not returned, matching
// that interface, but is treated as a disconnect (logged, with the
// connection dropped and a reconnect scheduled).
func (m *Manager) Send(fcType wire.FCType, nTo, nArg1, nArg2 int32, payload string) {
	m.mu.Lock()
	tr := m.transport
	sessionID := m.SessionID
	m.mu.Unlock()
	if tr == nil {
		return
	}
	if err := tr.Send(m.opts.Dialect.Encode(fcType, sessionID, nTo, nArg1, nArg2, payload)); err != nil {
		m.disconnected(err)
	}
}

func (m *Manager) attempt(doLogin bool, done chan struct{}) {
	ctx := context.Background()
	err := m.dialAndHandshake(ctx, doLogin)
	m.mu.Lock()
	if err != nil {
		m.connectErr = err
	}
	close(done)
	m.mu.Unlock()
	if err == nil {
		go m.readLoop()
		go m.tickLoop()
	}
}

func (m *Manager) dialAndHandshake(ctx context.Context, doLogin bool) error {
	addr, wsURL, err := m.resolveServer(ctx)
	if err != nil {
		m.backoffAndScheduleRetry(doLogin)
		return err
	}

	var tr transport
	if m.opts.Dialect == wire.DialectText {
		tr, err = DialWebSocket(ctx, wsURL)
	} else {
		tr, err = DialBinary(ctx, addr)
	}
	if err != nil {
		m.backoffAndScheduleRetry(doLogin)
		return err
	}

	if m.opts.Dialect == wire.DialectText {
		tr.Send([]byte("hello fcserver\n\x00"))
	}

	m.mu.Lock()
	m.transport = tr
	m.decoder = wire.NewDecoder(m.opts.Dialect)
	m.watchdog = NewWatchdog(m.opts.Dialect, m.opts.SilenceTimeout, m.opts.StateSilenceTimeout)
	m.backoff.Reset()
	m.setStateLocked(Active)
	m.mu.Unlock()
	m.fireStateChange(Active)
	m.fireEvent("CLIENT_CONNECTED")

	if doLogin {
		m.armLoginTimeout()
		m.sendLogin()
	}
	return nil
}

func (m *Manager) resolveServer(ctx context.Context) (addr, wsURL string, err error) {
	m.mu.Lock()
	cfg := m.serverConfig
	useCached := m.opts.UseCachedServerConfig
	m.mu.Unlock()

	if cfg == nil && !useCached {
		cfg, err = FetchServerConfig(ctx, m.opts.HttpGet, m.opts.Host)
		if err != nil {
			return "", "", err
		}
		m.mu.Lock()
		m.serverConfig = cfg
		m.mu.Unlock()
	}

	if m.opts.Dialect == wire.DialectText {
		name := cfg.PickWebSocketServer()
		if name == "" {
			return "", "", fmt.Errorf("conn: no websocket servers in server config")
		}
		return "", fmt.Sprintf("wss://%s.%s/fcsl", name, m.opts.Host), nil
	}
	name := cfg.PickChatServer()
	if name == "" {
		return "", "", fmt.Errorf("conn: no chat servers in server config")
	}
	return fmt.Sprintf("%s.%s:8090", name, m.opts.Host), "", nil
}

func (m *Manager) sendLogin() {
	userPrefix := ""
	if m.opts.CamYou {
		userPrefix = "2/"
	}
	payload := fmt.Sprintf("%s%s:%s", userPrefix, m.opts.Username, m.opts.Password)
	m.Send(wire.LOGIN, 0, m.opts.Dialect.LoginVersion(), 0, payload)
}

func (m *Manager) armLoginTimeout() {
	timeout := m.opts.LoginTimeout
	if timeout == 0 {
		timeout = defaultLoginTimeout
	}
	m.mu.Lock()
	m.loginTimer = time.AfterFunc(timeout, func() {
		m.disconnected(fmt.Errorf("conn: login timed out"))
	})
	m.mu.Unlock()
}

func (m *Manager) backoffAndScheduleRetry(doLogin bool) {
	m.mu.Lock()
	manual := m.manual
	m.mu.Unlock()
	if manual {
		return
	}
	delay := m.backoff.Next()
	m.mu.Lock()
	m.reconnectTimer = time.AfterFunc(delay, func() {
		m.mu.Lock()
		m.setStateLocked(Idle)
		m.mu.Unlock()
		m.fireStateChange(Idle)
		m.Connect(context.Background(), doLogin)
	})
	m.mu.Unlock()
}

func (m *Manager) readLoop() {
	m.mu.Lock()
	tr := m.transport
	m.mu.Unlock()
	if tr == nil {
		return
	}
	err := tr.ReadLoop(m.handleChunk)
	m.disconnected(err)
}

func (m *Manager) handleChunk(chunk []byte) {
	m.mu.Lock()
	dec := m.decoder
	m.mu.Unlock()
	if dec == nil {
		return
	}
	pkts, err := dec.Feed(chunk)
	for _, pkt := range pkts {
		m.mu.Lock()
		if m.watchdog != nil {
			m.watchdog.Touch(pkt)
		}
		if pkt.Type == wire.LOGIN {
			if m.loginTimer != nil {
				m.loginTimer.Stop()
			}
			if pkt.Arg1 != 0 {
				m.mu.Unlock()
				m.disconnectedNoRetry(ErrLoginRejected)
				return
			}
			m.loggedIn = true
			m.SessionID = pkt.To
		}
		m.mu.Unlock()
		if m.OnPacket != nil {
			m.OnPacket(pkt)
		}
	}
	if err != nil {
		m.disconnected(err)
	}
}

func (m *Manager) tickLoop() {
	m.mu.Lock()
	wd := m.watchdog
	m.mu.Unlock()
	if wd == nil {
		return
	}
	ticker := time.NewTicker(wd.TickInterval())
	defer ticker.Stop()
	for range ticker.C {
		m.mu.Lock()
		if m.state != Active {
			m.mu.Unlock()
			return
		}
		expired := m.watchdog.Expired(m.loggedIn)
		m.mu.Unlock()
		if expired {
			m.disconnected(fmt.Errorf("conn: silence watchdog tripped"))
			return
		}
		m.Send(wire.NULL, 0, 0, 0, "")
	}
}

// disconnected routes every Active-ending cause (socket close/error,
// silence trip, login timeout) through one path: close the transport,
// recycle the guest name if applicable, and either settle at Idle
// (manual disconnect) or arm a reconnect timer.
func (m *Manager) disconnected(cause error) {
	m.disconnectedWithRetry(cause, true)
}

// disconnectedNoRetry is disconnected's login-rejection variant: a
// rejected login is fatal to this connection attempt and must not be
// retried automatically.
func (m *Manager) disconnectedNoRetry(cause error) {
	m.disconnectedWithRetry(cause, false)
	m.fireEvent("CLIENT_LOGIN_REJECTED")
}

func (m *Manager) disconnectedWithRetry(cause error, retry bool) {
	m.mu.Lock()
	if m.state != Active && m.state != Pending {
		m.mu.Unlock()
		return
	}
	tr := m.transport
	m.transport = nil
	m.loggedIn = false
	m.stopTimersLocked()
	manual := m.manual
	doLogin := m.lastDoLogin
	m.recycleGuestNameLocked()
	m.setStateLocked(Pending)
	m.mu.Unlock()

	if tr != nil {
		tr.Close()
	}
	m.fireStateChange(Pending)
	m.fireEvent("CLIENT_DISCONNECTED")
	if cause != nil {
		log.Printf("conn: disconnected: %v", cause)
	}

	if manual || !retry {
		m.mu.Lock()
		m.setStateLocked(Idle)
		m.mu.Unlock()
		m.fireStateChange(Idle)
		return
	}
	m.backoffAndScheduleRetry(doLogin)
}

// recycleGuestNameLocked implements the guest login recycle: when logging
// in as a guest, the server assigns a name beginning with "Guest"; reset
// it back to "guest" so the next handshake is valid. Must be called with
// m.mu held.
func (m *Manager) recycleGuestNameLocked() {
	if m.opts.Password == "guest" && strings.HasPrefix(m.opts.Username, "Guest") {
		m.opts.Username = "guest"
	}
}

func (m *Manager) setStateLocked(s State) {
	m.state = s
}

func (m *Manager) fireStateChange(s State) {
	if m.OnStateChange != nil {
		m.OnStateChange(s)
	}
}

func (m *Manager) fireEvent(name string) {
	if m.OnEvent != nil {
		m.OnEvent(name)
	}
}
