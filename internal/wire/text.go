package wire

import (
	"errors"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// textLenTagLen is the fixed width of the decimal length tag that opens
// every text-dialect frame.
const textLenTagLen = 4

// textNoiseRe matches the start of a well-formed text-dialect body:
// "<fcType> <sid> <nTo> <nArg1> <nArg2>[ ...]". The length tag itself is
// matched greedily as "\d{4}\d+" so that noise bytes preceding a valid
// frame are discarded rather than mistaken for part of the tag.
var textNoiseRe = regexp.MustCompile(`^\d{4}\d+ \d+ \d+ \d+ \d+`)

// textHeaderPrefixRe matches a buffer that is, in its entirety, a
// not-yet-complete start of something textNoiseRe would match once more
// bytes arrive.
var textHeaderPrefixRe = regexp.MustCompile(`^\d{5,}( \d+){0,3}( \d*)?$`)

// DecodeText consumes as many complete frames as possible from buf in the
// text dialect, returning decoded packets and bytes consumed. Leading bytes
// that don't match textNoiseRe are discarded as noise unless fewer than
// five characters remain (too little to judge) or the whole remaining
// buffer is still an incomplete frame header, which is kept for the next
// call.
func DecodeText(buf []byte) (pkts []Packet, consumed int, err error) {
	for {
		rest := buf[consumed:]
		if len(rest) < 5 {
			return pkts, consumed, nil
		}

		if !textNoiseRe.Match(rest) {
			if textHeaderPrefixRe.Match(rest) {
				return pkts, consumed, nil
			}
			// Discard one leading byte and retry: keep shrinking from the
			// front until the buffer matches or fewer than five characters
			// remain.
			consumed++
			continue
		}

		if len(rest) < textLenTagLen {
			return pkts, consumed, nil
		}
		tag := string(rest[:textLenTagLen])
		bodyLen, convErr := strconv.Atoi(tag)
		if convErr != nil {
			// Looked like a tag to the regex but isn't numeric; treat as
			// one byte of noise and keep scanning.
			consumed++
			continue
		}

		total := textLenTagLen + bodyLen
		if len(rest) < total {
			return pkts, consumed, nil
		}
		body := string(rest[textLenTagLen:total])
		body = strings.TrimSuffix(body, "\x00")
		body = strings.TrimSuffix(body, "\n")

		pkt, parseErr := parseTextBody(body)
		if parseErr == nil {
			pkts = append(pkts, pkt)
		}
		consumed += total
	}
}

// parseTextBody parses "fcType sessionId nTo nArg1 nArg2[ payload]" into a
// Packet. The payload, if present, is URL-decoded before the JSON parse
// attempt.
func parseTextBody(body string) (Packet, error) {
	fields := strings.SplitN(body, " ", 6)
	if len(fields) < 5 {
		return Packet{}, errBadTextBody
	}

	fcType, err := strconv.Atoi(fields[0])
	if err != nil {
		return Packet{}, errBadTextBody
	}
	sid, err := strconv.Atoi(fields[1])
	if err != nil {
		return Packet{}, errBadTextBody
	}
	nTo, err := strconv.Atoi(fields[2])
	if err != nil {
		return Packet{}, errBadTextBody
	}
	nArg1, err := strconv.Atoi(fields[3])
	if err != nil {
		return Packet{}, errBadTextBody
	}
	nArg2, err := strconv.Atoi(fields[4])
	if err != nil {
		return Packet{}, errBadTextBody
	}

	pkt := Packet{
		Type: FCType(fcType),
		From: int32(sid),
		To:   int32(nTo),
		Arg1: int32(nArg1),
		Arg2: int32(nArg2),
	}

	if len(fields) == 6 && fields[5] != "" {
		decoded, uerr := url.QueryUnescape(fields[5])
		if uerr != nil {
			decoded = fields[5]
		}
		pkt.Raw = decoded
		pkt.PayloadLen = len(decoded)
		decodePayload(&pkt)
	}

	return pkt, nil
}

var errBadTextBody = errors.New("wire: malformed text frame body")

// EncodeText writes a packet in the text dialect:
// "fcType sessionId nTo nArg1 nArg2[ payload]\n\x00". The server frames
// outbound text messages itself, so no length tag is written.
func EncodeText(fcType FCType, sessionID, nTo, nArg1, nArg2 int32, payload string) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(int(fcType)))
	b.WriteByte(' ')
	b.WriteString(strconv.Itoa(int(sessionID)))
	b.WriteByte(' ')
	b.WriteString(strconv.Itoa(int(nTo)))
	b.WriteByte(' ')
	b.WriteString(strconv.Itoa(int(nArg1)))
	b.WriteByte(' ')
	b.WriteString(strconv.Itoa(int(nArg2)))
	if payload != "" {
		b.WriteByte(' ')
		b.WriteString(url.QueryEscape(payload))
	}
	b.WriteString("\n\x00")
	return b.String()
}
