package listdecode

import "testing"

func TestDecodeFlatSchemaRecords(t *testing.T) {
	input := []any{
		[]any{"uid", "nm"},
		[]any{float64(42), "alice"},
		[]any{float64(43), "bob"},
	}
	records := Decode(input)
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0]["uid"] != float64(42) || records[0]["nm"] != "alice" {
		t.Errorf("record 0 = %v", records[0])
	}
	if records[1]["uid"] != float64(43) || records[1]["nm"] != "bob" {
		t.Errorf("record 1 = %v", records[1])
	}
}

func TestDecodeNestedBagSchema(t *testing.T) {
	input := []any{
		[]any{"uid", map[string]any{"m": []any{"rc", "topic"}}},
		[]any{float64(1), float64(5), "hello"},
	}
	records := Decode(input)
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	bag, ok := records[0]["m"].(map[string]any)
	if !ok {
		t.Fatalf("record[m] = %v, want a nested map", records[0]["m"])
	}
	if bag["rc"] != float64(5) || bag["topic"] != "hello" {
		t.Errorf("nested bag = %v", bag)
	}
}

func TestDecodeShortRecordLeavesTrailingSlotsUnset(t *testing.T) {
	input := []any{
		[]any{"uid", "nm", "lv"},
		[]any{float64(1), "alice"},
	}
	records := Decode(input)
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if _, present := records[0]["lv"]; present {
		t.Errorf("lv should be absent for a short record, got %v", records[0]["lv"])
	}
	if records[0]["nm"] != "alice" {
		t.Errorf("nm = %v, want alice", records[0]["nm"])
	}
}

func TestDecodeLongRecordIgnoresExcess(t *testing.T) {
	input := []any{
		[]any{"uid"},
		[]any{float64(1), "extra", "more-extra"},
	}
	records := Decode(input)
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if len(records[0]) != 1 {
		t.Errorf("record = %v, want only uid", records[0])
	}
}

func TestDecodeRecordAlreadyStructuredPassesThrough(t *testing.T) {
	input := []any{
		[]any{"uid", "nm"},
		map[string]any{"uid": float64(9), "nm": "carol", "extra": "field"},
	}
	records := Decode(input)
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0]["extra"] != "field" {
		t.Errorf("structured record should pass through unchanged, got %v", records[0])
	}
}

func TestDecodeEmptyInput(t *testing.T) {
	if got := Decode([]any{}); got != nil {
		t.Errorf("Decode(empty) = %v, want nil", got)
	}
	if got := Decode(nil); got != nil {
		t.Errorf("Decode(nil) = %v, want nil", got)
	}
}

func TestDecodeTagResponseMap(t *testing.T) {
	input := map[string]any{
		"42": map[string]any{"uid": float64(42), "tags": []any{"blonde"}},
		"43": "not a record",
	}
	records := Decode(input)
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1 (non-map entries skipped)", len(records))
	}
	if records[0]["uid"] != float64(42) {
		t.Errorf("record = %v", records[0])
	}
}
