package wire

import (
	"fmt"
	"net/url"
	"testing"
)

func TestDecodeTextNoiseFilter(t *testing.T) {
	frame := frameText("37 555 1000000555 0 0 hello")
	buf := append([]byte("garbage0123 5 6 7 8 9 "), frame...)

	pkts, consumed, err := DecodeText(buf)
	if err != nil {
		t.Fatalf("DecodeText: %v", err)
	}
	if len(pkts) != 1 {
		t.Fatalf("got %d packets, want 1", len(pkts))
	}
	if consumed != len(buf) {
		t.Fatalf("consumed = %d, want %d", consumed, len(buf))
	}
	if pkts[0].Type != CMESG {
		t.Errorf("Type = %v, want CMESG", pkts[0].Type)
	}
}

func TestDecodeTextPartialThenComplete(t *testing.T) {
	frame := frameText("64 7 0 0 0 {}")
	for n := 0; n < len(frame); n++ {
		pkts, consumed, err := DecodeText(frame[:n])
		if err != nil {
			t.Fatalf("unexpected error at n=%d: %v", n, err)
		}
		if len(pkts) != 0 || consumed != 0 {
			t.Fatalf("at n=%d premature delivery: pkts=%d consumed=%d", n, len(pkts), consumed)
		}
	}
	pkts, consumed, err := DecodeText(frame)
	if err != nil || len(pkts) != 1 || consumed != len(frame) {
		t.Fatalf("final decode: err=%v pkts=%d consumed=%d", err, len(pkts), consumed)
	}
}

func TestDecodeTextPayloadURLDecoded(t *testing.T) {
	payload := url.QueryEscape(`{"uid":42,"vs":90}`)
	frame := frameText("64 7 0 0 0 " + payload)

	pkts, _, err := DecodeText(frame)
	if err != nil || len(pkts) != 1 {
		t.Fatalf("decode failed: err=%v pkts=%d", err, len(pkts))
	}
	m, ok := pkts[0].Value.(map[string]any)
	if !ok {
		t.Fatalf("Value not a map: %#v", pkts[0].Value)
	}
	if m["uid"].(float64) != 42 {
		t.Errorf("uid = %v, want 42", m["uid"])
	}
}

func TestEncodeTextDecodeTextRoundTrip(t *testing.T) {
	encoded := EncodeText(CMESG, 5, 6, 7, 8, `{"a":"b c"}`)
	// EncodeText already appends "\n\x00" and the server supplies the
	// length tag on real frames; reproduce that wrapping here.
	frame := []byte(fmt.Sprintf("%04d%s", len(encoded), encoded))

	pkts, _, err := DecodeText(frame)
	if err != nil || len(pkts) != 1 {
		t.Fatalf("decode failed: err=%v pkts=%d", err, len(pkts))
	}
	p := pkts[0]
	if p.Type != CMESG || p.From != 5 || p.To != 6 || p.Arg1 != 7 || p.Arg2 != 8 {
		t.Fatalf("round trip envelope mismatch: %+v", p)
	}
	if m, ok := p.Value.(map[string]any); !ok || m["a"] != "b c" {
		t.Fatalf("round trip payload mismatch: %#v", p.Value)
	}
}

// frameText wraps a text-dialect body with its length tag and trailer, as
// the server would when delivering it to a client.
func frameText(body string) []byte {
	full := body + "\n\x00"
	return []byte(fmt.Sprintf("%04d%s", len(full), full))
}
