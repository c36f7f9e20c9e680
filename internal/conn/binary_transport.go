package conn

import (
	"context"
	"net"
)

// BinaryTransport carries the binary dialect over a raw TCP connection.
type BinaryTransport struct {
	conn net.Conn
}

// DialBinary opens a TCP connection to addr (host:port).
func DialBinary(ctx context.Context, addr string) (*BinaryTransport, error) {
	var d net.Dialer
	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return &BinaryTransport{conn: c}, nil
}

// Send writes p in full to the connection.
func (t *BinaryTransport) Send(p []byte) error {
	_, err := t.conn.Write(p)
	return err
}

// Close closes the underlying connection.
func (t *BinaryTransport) Close() error {
	return t.conn.Close()
}

// ReadLoop reads raw bytes until the connection closes or errors,
// delivering each chunk to onData. It blocks and must be run in its own
// goroutine.
func (t *BinaryTransport) ReadLoop(onData func([]byte)) error {
	buf := make([]byte, 64*1024)
	for {
		n, err := t.conn.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			onData(chunk)
		}
		if err != nil {
			return err
		}
	}
}
