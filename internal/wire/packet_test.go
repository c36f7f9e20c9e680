package wire

import "testing"

func TestChatStringRendersEmotes(t *testing.T) {
	p := Packet{Type: CMESG, Value: "alice: hi #~ue,abc123.gif,smile~# there", HasValue: true}
	got, ok := p.ChatString()
	if !ok {
		t.Fatal("ChatString returned ok=false")
	}
	want := "alice: hi :smile there"
	if got != want {
		t.Errorf("ChatString = %q, want %q", got, want)
	}
}

func TestChatStringWrongType(t *testing.T) {
	p := Packet{Type: SESSIONSTATE, Value: "irrelevant", HasValue: true}
	if _, ok := p.ChatString(); ok {
		t.Error("ChatString should not apply to SESSIONSTATE")
	}
}

func TestAboutModelFromEnvelope(t *testing.T) {
	p := Packet{Type: CMESG, To: 1_000_000_042}
	uid, ok := p.AboutModel()
	if !ok || uid != 42 {
		t.Fatalf("AboutModel = (%d, %v), want (42, true)", uid, ok)
	}
}

func TestAboutModelFromPayload(t *testing.T) {
	p := Packet{
		Type:     SESSIONSTATE,
		Value:    map[string]any{"uid": float64(42), "sid": float64(7)},
		HasValue: true,
	}
	uid, ok := p.AboutModel()
	if !ok || uid != 42 {
		t.Fatalf("AboutModel = (%d, %v), want (42, true)", uid, ok)
	}
}

func TestAboutModelFromPayloadSidFallback(t *testing.T) {
	p := Packet{
		Type:     SESSIONSTATE,
		Value:    map[string]any{"uid": float64(0), "sid": float64(7)},
		HasValue: true,
	}
	uid, ok := p.AboutModel()
	if !ok || uid != 7 {
		t.Fatalf("AboutModel = (%d, %v), want (7, true)", uid, ok)
	}
}

func TestToRoomIDToUserIDRoundTrip(t *testing.T) {
	uid := int32(4242)
	room := ToRoomID(uid)
	if got := ToUserID(room); got != uid {
		t.Errorf("ToUserID(ToRoomID(%d)) = %d, want %d", uid, got, uid)
	}
	if got := ToRoomID(ToUserID(room)); got != room {
		t.Errorf("ToRoomID(ToUserID(%d)) = %d, want %d", room, got, room)
	}
}
