package fcclient

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fcwire/fcclient/internal/clientid"
	"github.com/fcwire/fcclient/internal/conn"
	"github.com/fcwire/fcclient/internal/dispatch"
	"github.com/fcwire/fcclient/internal/emote"
	"github.com/fcwire/fcclient/internal/fetch"
	"github.com/fcwire/fcclient/internal/registry"
	"github.com/fcwire/fcclient/internal/wire"
)

// HttpGet is the HTTP seam used for server-config and EXTDATA fetches.
type HttpGet = fetch.HttpGet

// Encoder is the external collaborator contract for outbound emote
// expansion.
type Encoder = emote.Encoder

// ConnectionState is one of StateIdle, StatePending, or StateActive.
type ConnectionState = conn.State

const (
	StateIdle    = conn.Idle
	StatePending = conn.Pending
	StateActive  = conn.Active
)

// UserLookup is QueryUser's result: Found is false when the server
// responded with a string-typed "not found" payload rather than a user
// record.
type UserLookup struct {
	Found bool
	Data  map[string]any
}

type queryOutcome struct {
	result UserLookup
	err    error
}

// sharedRegistry is process-wide: every Client in this process merges
// into the same model set, and it is only reset (all unreferenced models
// dropped) once the last logged-in Client disconnects.
var (
	sharedRegistry  = registry.New()
	loggedInClients int32
)

// Client is one connection to the chat/broadcast service: a connection
// manager, a packet dispatcher feeding the shared model registry, and
// the event/request bookkeeping the facade operations need.
type Client struct {
	id      clientid.ID
	opts    ClientOptions
	mgr     *conn.Manager
	disp    *dispatch.Dispatcher
	events  *emitter
	emote   Encoder
	packets chan wire.Packet

	mu             sync.Mutex
	loggedIn       bool
	queryID        int32
	queryWaiters   map[int32]chan queryOutcome
	joinWaiters    map[int32][]chan error
	connectWaiters []chan error
}

// Registry returns the process-wide model registry this Client merges
// into. Models survive disconnects as long as at least one Client in the
// process remains logged in, or a caller holds a Registry.Acquire
// reference on them.
func (c *Client) Registry() *registry.Registry {
	return sharedRegistry
}

// Options returns the fully-resolved ClientOptions this Client was built
// from.
func (c *Client) Options() ClientOptions {
	return c.opts
}

// NewClient constructs a Client from opts. Host and Username are
// required; every other zero-valued field is filled from
// ClientOptions.withDefaults (use DefaultClientOptions to start from the
// documented defaults instead of a bare literal).
func NewClient(opts ClientOptions) (*Client, error) {
	if opts.Host == "" {
		return nil, fmt.Errorf("fcclient: ClientOptions.Host is required")
	}
	if opts.Username == "" {
		return nil, fmt.Errorf("fcclient: ClientOptions.Username is required")
	}
	opts = opts.withDefaults()

	get := opts.HttpGet
	if get == nil {
		get = fetch.Default(http.DefaultClient)
	}
	enc := opts.EmoteEncoder
	if enc == nil {
		enc = emote.NewLocalEncoder(nil)
	}

	dialect := wire.DialectBinary
	if opts.UseWebSockets {
		dialect = wire.DialectText
	}

	c := &Client{
		id:           clientid.New(),
		opts:         opts,
		events:       newEmitter(),
		emote:        enc,
		packets:      make(chan wire.Packet, 256),
		queryID:      19, // first QueryUser call lands at 20
		queryWaiters: make(map[int32]chan queryOutcome),
		joinWaiters:  make(map[int32][]chan error),
	}

	c.mgr = conn.New(conn.Options{
		Dialect:               dialect,
		Host:                  opts.Host,
		CamYou:                opts.CamYou,
		UseCachedServerConfig: opts.UseCachedServerConfig,
		SilenceTimeout:        opts.SilenceTimeout,
		StateSilenceTimeout:   opts.StateSilenceTimeout,
		LoginTimeout:          opts.LoginTimeout,
		ConnectionTimeout:     opts.ConnectionTimeout,
		Username:              opts.Username,
		Password:              opts.Password,
		HttpGet:               get,
	})
	c.disp = dispatch.New(sharedRegistry, c.mgr, c.onDispatchEvent, get, opts.Host)

	c.mgr.OnPacket = func(pkt wire.Packet) { c.packets <- pkt }
	c.mgr.OnStateChange = c.onStateChange
	c.mgr.OnEvent = c.onConnEvent

	go c.dispatchLoop()

	return c, nil
}

func (c *Client) logf(format string, args ...any) {
	log.Printf("fcclient[%s]: "+format, append([]any{c.id}, args...)...)
}

// dispatchLoop is the single goroutine every decoded packet is dispatched
// from: registry merges and event emission always happen serially, in
// strict packet arrival order.
func (c *Client) dispatchLoop() {
	ctx := context.Background()
	for pkt := range c.packets {
		c.disp.Dispatch(ctx, pkt)
	}
}

// On subscribes h to every Event named name: an fcType name, wire.ANY, or
// one of EventConnected/EventDisconnected/EventManualDisconnect/
// EventModelsLoaded.
func (c *Client) On(name string, h EventHandler) {
	c.events.On(name, h)
}

// State reports the connection's current lifecycle state.
func (c *Client) State() ConnectionState {
	return c.mgr.State()
}

// Connect dials and, if doLogin, logs in, resolving once Active is first
// reached for this attempt.
func (c *Client) Connect(ctx context.Context, doLogin bool) error {
	err := c.mgr.Connect(ctx, doLogin)
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return ErrConnectionTimeout
	}
	return err
}

// ConnectAndWaitForModels connects (always logging in) and resolves on
// the first CLIENT_MODELSLOADED event, or fails with ErrLoginRejected if
// the server rejects the login first.
func (c *Client) ConnectAndWaitForModels(ctx context.Context) error {
	loaded := make(chan struct{})
	var once sync.Once
	c.events.On(EventModelsLoaded, func(Event) { once.Do(func() { close(loaded) }) })
	rejected := make(chan struct{})
	var rejectOnce sync.Once
	c.events.On(EventLoginRejected, func(Event) { rejectOnce.Do(func() { close(rejected) }) })

	if err := c.Connect(ctx, true); err != nil {
		return err
	}
	select {
	case <-loaded:
		return nil
	case <-rejected:
		return ErrLoginRejected
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Disconnect tears the connection down and blocks until Idle is reached,
// cancelling any in-flight EnsureConnected, JoinRoom, or QueryUser
// waiters with ErrManualDisconnect.
func (c *Client) Disconnect() {
	c.mgr.Disconnect()
}

// EnsureConnected resolves immediately if Active, rejects immediately if
// Idle or timeout < 0, and otherwise waits for the next CLIENT_CONNECTED
// (success) or CLIENT_MANUAL_DISCONNECT / ctx cancellation / timeout
// (failure). A zero timeout waits indefinitely.
func (c *Client) EnsureConnected(ctx context.Context, timeout time.Duration) error {
	if c.mgr.State() == conn.Active {
		return nil
	}
	if c.mgr.State() == conn.Idle || timeout < 0 {
		return ErrIdle
	}

	ch := make(chan error, 1)
	c.mu.Lock()
	c.connectWaiters = append(c.connectWaiters, ch)
	c.mu.Unlock()

	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	select {
	case err := <-ch:
		return err
	case <-waitCtx.Done():
		return waitCtx.Err()
	}
}

// JoinRoom sends a JOINCHAN(JOIN) for id's room and resolves on the first
// CMESG or JOINCHAN(JOIN) for the target model, or rejects on
// JOINCHAN(PART), ZBAN, or BANCHAN for the target.
func (c *Client) JoinRoom(ctx context.Context, id int32) error {
	uid := wire.ToUserID(id)
	ch := make(chan error, 1)
	c.mu.Lock()
	c.joinWaiters[uid] = append(c.joinWaiters[uid], ch)
	c.mu.Unlock()

	c.mgr.Send(wire.JOINCHAN, wire.ToRoomID(uid), 0, wire.JOIN, "")

	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		c.removeJoinWaiter(uid, ch)
		return ctx.Err()
	}
}

// LeaveRoom sends a JOINCHAN(PART) for id's room if Active; otherwise it
// is a silent no-op.
func (c *Client) LeaveRoom(id int32) {
	if c.mgr.State() != conn.Active {
		return
	}
	uid := wire.ToUserID(id)
	c.mgr.Send(wire.JOINCHAN, wire.ToRoomID(uid), 0, wire.PART, "")
}

// SendChat encodes emotes in msg and sends it as CMESG to id's room.
func (c *Client) SendChat(ctx context.Context, id int32, msg string) error {
	return c.sendText(ctx, wire.CMESG, wire.ToRoomID(wire.ToUserID(id)), msg)
}

// SendPM encodes emotes in msg and sends it as PMESG to id's user.
func (c *Client) SendPM(ctx context.Context, id int32, msg string) error {
	return c.sendText(ctx, wire.PMESG, wire.ToUserID(id), msg)
}

func (c *Client) sendText(ctx context.Context, fcType wire.FCType, nTo int32, msg string) error {
	encoded, err := c.emote.Encode(ctx, msg)
	if err != nil {
		return err
	}
	return c.TxCmd(fcType, nTo, 0, 0, encoded)
}

// nextQueryID returns the next monotonic query id, wrapping back to 20
// instead of going negative if the counter would overflow int32, the
// same width as the nArg1 field it is sent in.
func (c *Client) nextQueryID() int32 {
	for {
		old := atomic.LoadInt32(&c.queryID)
		next := old + 1
		if next <= 0 {
			next = 20
		}
		if atomic.CompareAndSwapInt32(&c.queryID, old, next) {
			return next
		}
	}
}

// QueryUser assigns a monotonic query id (>=20), sends USERNAMELOOKUP,
// and resolves with the first USERNAMELOOKUP response carrying that id
// in nArg1.
func (c *Client) QueryUser(ctx context.Context, userOrID any) (UserLookup, error) {
	if c.mgr.State() != conn.Active {
		return UserLookup{}, ErrNotConnected
	}
	id := c.nextQueryID()
	ch := make(chan queryOutcome, 1)
	c.mu.Lock()
	c.queryWaiters[id] = ch
	c.mu.Unlock()

	c.mgr.Send(wire.USERNAMELOOKUP, 0, id, 0, fmt.Sprintf("%v", userOrID))

	select {
	case out := <-ch:
		return out.result, out.err
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.queryWaiters, id)
		c.mu.Unlock()
		return UserLookup{}, ctx.Err()
	}
}

// TxCmd encodes and sends an arbitrary command on the current dialect,
// failing if not connected.
func (c *Client) TxCmd(fcType wire.FCType, nTo, nArg1, nArg2 int32, payload string) error {
	if c.mgr.State() != conn.Active {
		return ErrNotConnected
	}
	c.mgr.Send(fcType, nTo, nArg1, nArg2, payload)
	return nil
}

func (c *Client) onStateChange(s conn.State) {
	c.logf("state -> %s", s)
}

func (c *Client) onConnEvent(name string) {
	c.events.Emit(Event{Name: name})
	switch name {
	case EventConnected:
		c.fireConnectWaiters(nil)
	case EventManualDisconnect:
		c.fireConnectWaiters(ErrManualDisconnect)
		c.cancelAllJoinWaiters(ErrManualDisconnect)
		c.cancelAllQueryWaiters(ErrManualDisconnect)
		c.markLoggedOut()
	case EventLoginRejected:
		c.fireConnectWaiters(ErrLoginRejected)
		c.markLoggedOut()
	case EventDisconnected:
		c.markLoggedOut()
	}
}

func (c *Client) onDispatchEvent(name string, pkt wire.Packet) {
	c.events.Emit(Event{Name: name, Packet: pkt, HasPacket: true})

	switch pkt.Type {
	case wire.LOGIN:
		if pkt.Arg1 == 0 {
			c.markLoggedIn()
		}
	case wire.CMESG:
		if uid, ok := pkt.AboutModel(); ok {
			c.resolveJoin(uid, nil)
		}
	case wire.JOINCHAN:
		uid, ok := pkt.AboutModel()
		if !ok {
			break
		}
		switch pkt.Arg2 {
		case wire.JOIN:
			c.resolveJoin(uid, nil)
		case wire.PART:
			c.resolveJoin(uid, ErrJoinRefused)
		}
	case wire.ZBAN, wire.BANCHAN:
		if uid, ok := pkt.AboutModel(); ok {
			c.resolveJoin(uid, ErrJoinRefused)
		}
	case wire.USERNAMELOOKUP:
		c.resolveQuery(pkt)
	}
}

func (c *Client) resolveQuery(pkt wire.Packet) {
	c.mu.Lock()
	ch, ok := c.queryWaiters[pkt.Arg1]
	if ok {
		delete(c.queryWaiters, pkt.Arg1)
	}
	c.mu.Unlock()
	if !ok {
		return
	}
	if data, isMap := pkt.Value.(map[string]any); isMap {
		ch <- queryOutcome{result: UserLookup{Found: true, Data: data}}
		return
	}
	ch <- queryOutcome{result: UserLookup{Found: false}}
}

func (c *Client) resolveJoin(uid int32, err error) {
	c.mu.Lock()
	waiters := c.joinWaiters[uid]
	delete(c.joinWaiters, uid)
	c.mu.Unlock()
	for _, ch := range waiters {
		ch <- err
	}
}

func (c *Client) removeJoinWaiter(uid int32, target chan error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	list := c.joinWaiters[uid]
	for i, ch := range list {
		if ch == target {
			c.joinWaiters[uid] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

func (c *Client) cancelAllJoinWaiters(err error) {
	c.mu.Lock()
	all := c.joinWaiters
	c.joinWaiters = make(map[int32][]chan error)
	c.mu.Unlock()
	for _, list := range all {
		for _, ch := range list {
			ch <- err
		}
	}
}

func (c *Client) cancelAllQueryWaiters(err error) {
	c.mu.Lock()
	all := c.queryWaiters
	c.queryWaiters = make(map[int32]chan queryOutcome)
	c.mu.Unlock()
	for _, ch := range all {
		ch <- queryOutcome{err: err}
	}
}

func (c *Client) fireConnectWaiters(err error) {
	c.mu.Lock()
	waiters := c.connectWaiters
	c.connectWaiters = nil
	c.mu.Unlock()
	for _, ch := range waiters {
		ch <- err
	}
}

// markLoggedIn increments the process-wide logged-in-client refcount
// exactly once per successful login, guarding sharedRegistry.Reset from
// firing while any client still depends on the current registry state.
func (c *Client) markLoggedIn() {
	c.mu.Lock()
	already := c.loggedIn
	c.loggedIn = true
	c.mu.Unlock()
	if !already {
		atomic.AddInt32(&loggedInClients, 1)
	}
}

func (c *Client) markLoggedOut() {
	c.mu.Lock()
	was := c.loggedIn
	c.loggedIn = false
	c.mu.Unlock()
	if was && atomic.AddInt32(&loggedInClients, -1) == 0 {
		sharedRegistry.Reset()
	}
}
