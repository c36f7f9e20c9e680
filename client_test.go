package fcclient

import (
	"context"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fcwire/fcclient/internal/wire"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c, err := NewClient(DefaultClientOptions("test.invalid", "alice", "secret"))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClientRequiresHostAndUsername(t *testing.T) {
	if _, err := NewClient(ClientOptions{Username: "alice"}); err == nil {
		t.Fatal("NewClient with no Host should fail")
	}
	if _, err := NewClient(ClientOptions{Host: "test.invalid"}); err == nil {
		t.Fatal("NewClient with no Username should fail")
	}
}

func TestResolveJoinDeliversToAllWaitersAndClears(t *testing.T) {
	c := newTestClient(t)
	ch1 := make(chan error, 1)
	ch2 := make(chan error, 1)
	c.joinWaiters[42] = []chan error{ch1, ch2}

	c.resolveJoin(42, nil)

	if err := <-ch1; err != nil {
		t.Fatalf("ch1 = %v, want nil", err)
	}
	if err := <-ch2; err != nil {
		t.Fatalf("ch2 = %v, want nil", err)
	}
	if _, exists := c.joinWaiters[42]; exists {
		t.Fatal("waiters for uid 42 were not cleared")
	}
}

func TestOnDispatchEventResolvesJoinOnJoinchanJoin(t *testing.T) {
	c := newTestClient(t)
	ch := make(chan error, 1)
	c.joinWaiters[42] = []chan error{ch}

	pkt := wire.Packet{Type: wire.JOINCHAN, To: wire.ToRoomID(42), Arg2: wire.JOIN}
	c.onDispatchEvent(pkt.TypeName(), pkt)

	select {
	case err := <-ch:
		if err != nil {
			t.Fatalf("JoinRoom waiter error = %v, want nil", err)
		}
	default:
		t.Fatal("JOINCHAN(JOIN) did not resolve the waiter")
	}
}

func TestOnDispatchEventResolvesJoinOnCmesg(t *testing.T) {
	c := newTestClient(t)
	ch := make(chan error, 1)
	c.joinWaiters[42] = []chan error{ch}

	pkt := wire.Packet{Type: wire.CMESG, To: wire.ToRoomID(42)}
	c.onDispatchEvent(pkt.TypeName(), pkt)

	select {
	case err := <-ch:
		if err != nil {
			t.Fatalf("JoinRoom waiter error = %v, want nil", err)
		}
	default:
		t.Fatal("CMESG did not resolve the waiter")
	}
}

func TestOnDispatchEventRejectsJoinOnPart(t *testing.T) {
	c := newTestClient(t)
	ch := make(chan error, 1)
	c.joinWaiters[42] = []chan error{ch}

	pkt := wire.Packet{Type: wire.JOINCHAN, To: wire.ToRoomID(42), Arg2: wire.PART}
	c.onDispatchEvent(pkt.TypeName(), pkt)

	select {
	case err := <-ch:
		if err != ErrJoinRefused {
			t.Fatalf("JoinRoom waiter error = %v, want ErrJoinRefused", err)
		}
	default:
		t.Fatal("JOINCHAN(PART) did not reject the waiter")
	}
}

func TestOnDispatchEventRejectsJoinOnZban(t *testing.T) {
	c := newTestClient(t)
	ch := make(chan error, 1)
	c.joinWaiters[42] = []chan error{ch}

	pkt := wire.Packet{Type: wire.ZBAN, To: wire.ToUserID(42)}
	c.onDispatchEvent(pkt.TypeName(), pkt)

	select {
	case err := <-ch:
		if err != ErrJoinRefused {
			t.Fatalf("JoinRoom waiter error = %v, want ErrJoinRefused", err)
		}
	default:
		t.Fatal("ZBAN did not reject the waiter")
	}
}

func TestCancelAllJoinWaitersClearsEveryUID(t *testing.T) {
	c := newTestClient(t)
	ch1 := make(chan error, 1)
	ch2 := make(chan error, 1)
	c.joinWaiters[1] = []chan error{ch1}
	c.joinWaiters[2] = []chan error{ch2}

	c.cancelAllJoinWaiters(ErrManualDisconnect)

	if err := <-ch1; err != ErrManualDisconnect {
		t.Fatalf("ch1 = %v, want ErrManualDisconnect", err)
	}
	if err := <-ch2; err != ErrManualDisconnect {
		t.Fatalf("ch2 = %v, want ErrManualDisconnect", err)
	}
	if len(c.joinWaiters) != 0 {
		t.Fatalf("joinWaiters not cleared: %v", c.joinWaiters)
	}
}

func TestRemoveJoinWaiterOnlyRemovesTargetChannel(t *testing.T) {
	c := newTestClient(t)
	ch1 := make(chan error, 1)
	ch2 := make(chan error, 1)
	c.joinWaiters[7] = []chan error{ch1, ch2}

	c.removeJoinWaiter(7, ch1)

	list := c.joinWaiters[7]
	if len(list) != 1 || list[0] != ch2 {
		t.Fatalf("joinWaiters[7] = %v, want only ch2", list)
	}
}

func TestResolveQueryFoundAndNotFound(t *testing.T) {
	c := newTestClient(t)

	found := make(chan queryOutcome, 1)
	c.queryWaiters[20] = found
	c.resolveQuery(wire.Packet{
		Type: wire.USERNAMELOOKUP, Arg1: 20,
		Value: map[string]any{"uid": float64(5)}, HasValue: true,
	})
	out := <-found
	if out.err != nil || !out.result.Found || out.result.Data["uid"] != float64(5) {
		t.Fatalf("resolveQuery (found) = %+v", out)
	}

	notFound := make(chan queryOutcome, 1)
	c.queryWaiters[21] = notFound
	c.resolveQuery(wire.Packet{
		Type: wire.USERNAMELOOKUP, Arg1: 21,
		Value: "not found", HasValue: true,
	})
	out = <-notFound
	if out.err != nil || out.result.Found {
		t.Fatalf("resolveQuery (not found) = %+v", out)
	}
}

func TestResolveQueryIgnoresUnknownID(t *testing.T) {
	c := newTestClient(t)
	c.resolveQuery(wire.Packet{Type: wire.USERNAMELOOKUP, Arg1: 999}) // must not panic
}

func TestQueryUserAssignsMonotonicIDsStartingAt20(t *testing.T) {
	c := newTestClient(t)
	if id := c.nextQueryID(); id != 20 {
		t.Fatalf("first query id = %d, want 20", id)
	}
	if id := c.nextQueryID(); id != 21 {
		t.Fatalf("second query id = %d, want 21", id)
	}
}

func TestNextQueryIDWrapsInsteadOfGoingNegative(t *testing.T) {
	c := newTestClient(t)
	atomic.StoreInt32(&c.queryID, math.MaxInt32-1)

	if id := c.nextQueryID(); id != math.MaxInt32 {
		t.Fatalf("query id before overflow = %d, want %d", id, int32(math.MaxInt32))
	}
	if id := c.nextQueryID(); id != 20 {
		t.Fatalf("query id after overflow = %d, want 20 (wrapped)", id)
	}
}

func TestQueryUserFailsWhenNotConnected(t *testing.T) {
	c := newTestClient(t)
	if _, err := c.QueryUser(context.Background(), "alice"); err != ErrNotConnected {
		t.Fatalf("QueryUser on a disconnected client = %v, want ErrNotConnected", err)
	}
}

func TestTxCmdFailsWhenNotConnected(t *testing.T) {
	c := newTestClient(t)
	if err := c.TxCmd(wire.CMESG, 1, 0, 0, "hi"); err != ErrNotConnected {
		t.Fatalf("TxCmd on a disconnected client = %v, want ErrNotConnected", err)
	}
}

func TestLeaveRoomIsANoopWhenNotConnected(t *testing.T) {
	c := newTestClient(t)
	c.LeaveRoom(42) // must not panic or block with no transport attached
}

func TestEnsureConnectedRejectsImmediatelyWhenIdle(t *testing.T) {
	c := newTestClient(t)
	if err := c.EnsureConnected(context.Background(), 0); err != ErrIdle {
		t.Fatalf("EnsureConnected on an idle client = %v, want ErrIdle", err)
	}
}

func TestFireConnectWaitersDeliversAndClears(t *testing.T) {
	c := newTestClient(t)
	ch1 := make(chan error, 1)
	ch2 := make(chan error, 1)
	c.connectWaiters = []chan error{ch1, ch2}

	c.fireConnectWaiters(ErrLoginRejected)

	if err := <-ch1; err != ErrLoginRejected {
		t.Fatalf("ch1 = %v, want ErrLoginRejected", err)
	}
	if err := <-ch2; err != ErrLoginRejected {
		t.Fatalf("ch2 = %v, want ErrLoginRejected", err)
	}
	if c.connectWaiters != nil {
		t.Fatal("connectWaiters not cleared")
	}
}

func TestOnConnEventLoginRejectedRejectsConnectWaiters(t *testing.T) {
	c := newTestClient(t)
	ch := make(chan error, 1)
	c.connectWaiters = []chan error{ch}

	c.onConnEvent(EventLoginRejected)

	if err := <-ch; err != ErrLoginRejected {
		t.Fatalf("connect waiter error = %v, want ErrLoginRejected", err)
	}
}

func TestMarkLoggedInOutTracksSharedRefcount(t *testing.T) {
	before := atomic.LoadInt32(&loggedInClients)
	c1 := &Client{}
	c2 := &Client{}

	c1.markLoggedIn()
	c2.markLoggedIn()
	if got := atomic.LoadInt32(&loggedInClients) - before; got != 2 {
		t.Fatalf("loggedInClients delta after two logins = %d, want 2", got)
	}

	c1.markLoggedIn() // idempotent: already logged in, must not double-count
	if got := atomic.LoadInt32(&loggedInClients) - before; got != 2 {
		t.Fatalf("loggedInClients delta after duplicate login = %d, want 2", got)
	}

	c1.markLoggedOut()
	if got := atomic.LoadInt32(&loggedInClients) - before; got != 1 {
		t.Fatalf("loggedInClients delta after one logout = %d, want 1", got)
	}
	c2.markLoggedOut()
	if got := atomic.LoadInt32(&loggedInClients) - before; got != 0 {
		t.Fatalf("loggedInClients delta after both logouts = %d, want 0", got)
	}
}

func TestEventsOnReceivesConnLifecycleEvents(t *testing.T) {
	c := newTestClient(t)
	var names []string
	c.On(EventManualDisconnect, func(ev Event) { names = append(names, ev.Name) })

	c.onConnEvent(EventManualDisconnect)

	if len(names) != 1 || names[0] != EventManualDisconnect {
		t.Fatalf("events received = %v, want [%s]", names, EventManualDisconnect)
	}
}

func TestConnectAndWaitForModelsPropagatesConnectFailure(t *testing.T) {
	c := newTestClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := c.ConnectAndWaitForModels(ctx); err == nil {
		t.Fatal("ConnectAndWaitForModels against an unreachable host should fail")
	}
}
