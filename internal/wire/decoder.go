package wire

// Dialect selects which wire dialect a connection speaks. The logical
// packet shape is identical across both; only framing and encoding differ.
type Dialect int

const (
	DialectBinary Dialect = iota
	DialectText
)

// LoginVersion returns the version code carried in a LOGIN command's
// nArg1, which distinguishes binary clients from WebSocket clients on the
// wire.
func (d Dialect) LoginVersion() int32 {
	switch d {
	case DialectText:
		return 20
	default:
		return 11
	}
}

// Decoder buffers inbound bytes for one dialect and yields complete packets
// as they become available. It is not safe for concurrent use; callers feed
// it from a single reader goroutine so packets are processed in strict
// arrival order.
type Decoder struct {
	dialect Dialect
	buf     []byte
}

// NewDecoder returns a Decoder for the given dialect.
func NewDecoder(dialect Dialect) *Decoder {
	return &Decoder{dialect: dialect}
}

// Feed appends newly read bytes and returns every complete packet that can
// now be decoded. A partial trailing frame is retained internally for the
// next Feed call.
func (d *Decoder) Feed(chunk []byte) ([]Packet, error) {
	d.buf = append(d.buf, chunk...)

	var decode func([]byte) ([]Packet, int, error)
	if d.dialect == DialectText {
		decode = DecodeText
	} else {
		decode = DecodeBinary
	}

	pkts, consumed, err := decode(d.buf)
	if consumed > 0 {
		remaining := len(d.buf) - consumed
		copy(d.buf, d.buf[consumed:])
		d.buf = d.buf[:remaining]
	}
	if err != nil {
		return pkts, err
	}
	return pkts, nil
}

// Encode renders a packet for this decoder's dialect.
func (d Dialect) Encode(fcType FCType, sessionID, nTo, nArg1, nArg2 int32, payload string) []byte {
	if d == DialectText {
		return []byte(EncodeText(fcType, sessionID, nTo, nArg1, nArg2, payload))
	}
	return EncodeBinary(fcType, sessionID, nTo, nArg1, nArg2, payload)
}
