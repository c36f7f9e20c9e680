package wire

import (
	"encoding/binary"
	"encoding/json"
	"errors"
)

// Magic is the fixed sentinel that opens every binary-dialect frame. Any
// other value at that position is a fatal framing error.
const Magic int32 = -2027771214

// ErrBadMagic is returned when a binary frame's leading int32 does not
// match Magic. This is fatal to the current connection.
var ErrBadMagic = errors.New("wire: bad magic")

const binaryHeaderLen = 7 * 4 // 7 big-endian int32s

// DecodeBinary consumes as many complete frames as possible from buf,
// returning the decoded packets and the number of bytes consumed. A
// trailing partial frame is left unconsumed ("need more data") rather than
// reported as an error.
func DecodeBinary(buf []byte) (pkts []Packet, consumed int, err error) {
	for {
		if len(buf)-consumed < binaryHeaderLen {
			return pkts, consumed, nil
		}
		frame := buf[consumed:]

		magic := int32(binary.BigEndian.Uint32(frame[0:4]))
		if magic != Magic {
			return pkts, consumed, ErrBadMagic
		}
		fcType := int32(binary.BigEndian.Uint32(frame[4:8]))
		nFrom := int32(binary.BigEndian.Uint32(frame[8:12]))
		nTo := int32(binary.BigEndian.Uint32(frame[12:16]))
		nArg1 := int32(binary.BigEndian.Uint32(frame[16:20]))
		nArg2 := int32(binary.BigEndian.Uint32(frame[20:24]))
		payloadLen := int32(binary.BigEndian.Uint32(frame[24:28]))
		if payloadLen < 0 {
			return pkts, consumed, errors.New("wire: negative payload length")
		}

		total := binaryHeaderLen + int(payloadLen)
		if len(frame) < total {
			return pkts, consumed, nil
		}

		var raw string
		if payloadLen > 0 {
			raw = string(frame[binaryHeaderLen:total])
		}

		pkt := Packet{
			Type:       FCType(fcType),
			From:       nFrom,
			To:         nTo,
			Arg1:       nArg1,
			Arg2:       nArg2,
			PayloadLen: int(payloadLen),
			Raw:        raw,
		}
		decodePayload(&pkt)

		pkts = append(pkts, pkt)
		consumed += total
	}
}

// decodePayload fills in pkt.Value/HasValue by attempting a JSON parse of
// pkt.Raw. A failed parse simply leaves the raw string as the only
// representation.
func decodePayload(pkt *Packet) {
	if pkt.Raw == "" {
		return
	}
	var v any
	if err := json.Unmarshal([]byte(pkt.Raw), &v); err == nil {
		pkt.Value = v
		pkt.HasValue = true
	}
}

// EncodeBinary writes a packet in the binary dialect: seven big-endian
// int32s followed by the UTF-8 payload. sessionID is written in the
// fcType-independent "nFrom" slot the binary dialect uses for the session
// id on outbound frames, matching the inbound frame's layout.
func EncodeBinary(fcType FCType, sessionID, nTo, nArg1, nArg2 int32, payload string) []byte {
	buf := make([]byte, binaryHeaderLen+len(payload))
	magic := Magic
	binary.BigEndian.PutUint32(buf[0:4], uint32(magic))
	binary.BigEndian.PutUint32(buf[4:8], uint32(fcType))
	binary.BigEndian.PutUint32(buf[8:12], uint32(sessionID))
	binary.BigEndian.PutUint32(buf[12:16], uint32(nTo))
	binary.BigEndian.PutUint32(buf[16:20], uint32(nArg1))
	binary.BigEndian.PutUint32(buf[20:24], uint32(nArg2))
	binary.BigEndian.PutUint32(buf[24:28], uint32(len(payload)))
	copy(buf[binaryHeaderLen:], payload)
	return buf
}
