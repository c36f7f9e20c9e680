package wire

import "regexp"

// Packet is the immutable envelope every decoded frame produces. Both
// dialects decode into exactly this shape; downstream code never needs to
// know which dialect a packet arrived over.
type Packet struct {
	Type FCType
	From int32
	To   int32
	Arg1 int32
	Arg2 int32

	// PayloadLen is the byte length of the encoded payload before decoding,
	// independent of whether decoding produced a string or a structured
	// value (or nothing, for an empty payload).
	PayloadLen int

	// Raw is the undecoded payload string, always populated when the
	// payload was non-empty, even if Value also holds a decoded form.
	// Kept around because a handful of handlers want the literal string
	// (e.g. LOGIN's username) even though the payload happens to also be
	// valid JSON.
	Raw string

	// Value holds the JSON-decoded payload when Raw parses as JSON:
	// map[string]any, []any, string, float64, bool, or nil. Value is nil
	// (HasValue false) when Raw did not parse as JSON, in which case
	// callers fall back to Raw directly.
	Value    any
	HasValue bool
}

// HasPayload reports whether any payload bytes were present on the wire.
func (p Packet) HasPayload() bool {
	return p.PayloadLen > 0
}

var emoteRe = regexp.MustCompile(`#~ue,[^,]+\.gif,([^~]+)~#`)

// ChatString returns the text of a CMESG or PMESG packet, with inline
// emotes of the form "#~ue,<hash>.gif,<code>~#" replaced by ":<code>". The
// text is the payload string as received (or the raw payload when it did
// not parse as JSON); no username prefix is added. ok is false for any
// other fcType, tip packets included, and for a structured payload.
func (p Packet) ChatString() (s string, ok bool) {
	switch p.Type {
	case CMESG, PMESG:
	default:
		return "", false
	}
	text, isStr := p.Value.(string)
	if !isStr {
		if !p.HasValue && p.Raw != "" {
			text = p.Raw
		} else {
			return "", false
		}
	}
	rendered := emoteRe.ReplaceAllString(text, ":$1")
	return rendered, true
}

// TypeName returns the event name this packet's fcType is emitted under.
func (p Packet) TypeName() string {
	return p.Type.Name()
}

// AboutModel derives the uid the packet concerns, if any. For
// room/tip/chat/PM-shaped types the subject is whichever envelope field
// carries the target user, normalized through ToUserID. For payload-shaped
// types (SESSIONSTATE, DETAILS, and the rest of the DETAILS-group handler)
// the subject comes from the payload's uid/sid instead.
func (p Packet) AboutModel() (uid int32, ok bool) {
	switch p.Type {
	case CMESG, PMESG, TOKENINC, ZBAN, BANCHAN, JOINCHAN:
		return ToUserID(p.To), true
	case DETAILS, ROOMHELPER, SESSIONSTATE, ADDFRIEND, ADDIGNORE,
		TXPROFILE, USERNAMELOOKUP, MYCAMSTATE, MYWEBCAM:
		if m, isMap := p.Value.(map[string]any); isMap {
			if u, hasUID := payloadInt32(m, "uid"); hasUID && u != 0 {
				return u, true
			}
			if s, hasSID := payloadInt32(m, "sid"); hasSID && s > 0 {
				return s, true
			}
		}
		return 0, false
	default:
		return 0, false
	}
}

// payloadInt32 reads a numeric field out of a decoded JSON map. JSON numbers
// decode as float64; this tolerates that along with a pre-normalized int32,
// returning ok=false for anything else (including absent keys).
func payloadInt32(m map[string]any, key string) (int32, bool) {
	v, present := m[key]
	if !present {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int32(n), true
	case int32:
		return n, true
	case int:
		return int32(n), true
	default:
		return 0, false
	}
}
