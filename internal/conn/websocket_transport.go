package conn

import (
	"context"
	"errors"

	"github.com/gorilla/websocket"
)

var errTransportClosed = errors.New("conn: transport closed")

// WebSocketTransport carries the text dialect over a WebSocket connection.
// One goroutine (writePump) owns every write to the underlying connection,
// so Send from arbitrary callers never races with the read side.
type WebSocketTransport struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

// DialWebSocket opens a WebSocket connection to url.
func DialWebSocket(ctx context.Context, url string) (*WebSocketTransport, error) {
	c, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	t := &WebSocketTransport{
		conn: c,
		send: make(chan []byte, 32),
		done: make(chan struct{}),
	}
	go t.writePump()
	return t, nil
}

func (t *WebSocketTransport) writePump() {
	for {
		select {
		case msg, ok := <-t.send:
			if !ok {
				return
			}
			if err := t.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-t.done:
			return
		}
	}
}

// Send enqueues p for the write pump. Send does not block on the network.
func (t *WebSocketTransport) Send(p []byte) error {
	select {
	case t.send <- p:
		return nil
	case <-t.done:
		return errTransportClosed
	}
}

// Close stops the write pump and closes the underlying connection.
func (t *WebSocketTransport) Close() error {
	select {
	case <-t.done:
	default:
		close(t.done)
	}
	return t.conn.Close()
}

// ReadLoop reads text messages until the connection closes or errors,
// delivering each message to onData. It blocks and must be run in its own
// goroutine.
func (t *WebSocketTransport) ReadLoop(onData func([]byte)) error {
	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			return err
		}
		onData(data)
	}
}
