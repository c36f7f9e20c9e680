package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fcwire/fcclient/internal/listdecode"
	"github.com/fcwire/fcclient/internal/registry"
	"github.com/fcwire/fcclient/internal/wire"
)

// handleLogin records the handshake result and immediately subscribes to
// room data. nArg1 != 0 is a fatal login failure handled by the conn
// package, which drops the connection without retry and does not forward
// the rejected LOGIN packet here.
func (d *Dispatcher) handleLogin(pkt wire.Packet) {
	if pkt.Arg1 != 0 {
		return
	}
	d.SessionID = pkt.To
	d.UID = pkt.Arg2
	d.Username = pkt.Raw
	d.send(wire.ROOMDATA, 0, 0, 0, "")
}

// handleCandidateState implements the shared DETAILS-group handler: skip
// rules, uid/sid extraction, and the lv-gated auto-create-vs-merge-only
// distinction.
func (d *Dispatcher) handleCandidateState(pkt wire.Packet) {
	if pkt.Type == wire.DETAILS && pkt.From == int32(wire.TOKENINC) {
		return
	}
	if pkt.Type == wire.ROOMHELPER && pkt.Arg2 < 100 {
		return
	}
	if pkt.Type == wire.JOINCHAN && pkt.Arg2 == wire.PART {
		return
	}

	m, ok := payloadMap(pkt)
	if !ok {
		return
	}
	uid, hasUID := int32Field(m, "uid")
	sid, hasSID := int32Field(m, "sid")
	lv, hasLV := int32Field(m, "lv")

	if (!hasUID || uid == 0) && hasSID && sid > 0 {
		uid = sid
		hasUID = true
	}
	if !hasUID || uid == 0 {
		if aboutUID, aboutOK := pkt.AboutModel(); aboutOK {
			uid = aboutUID
			hasUID = true
		}
	}
	if !hasUID || uid == 0 {
		return
	}
	if hasLV && lv != wire.LV_MODEL {
		return
	}

	state := mapToSessionState(m)
	state.Set("uid", uid)

	if hasLV && lv == wire.LV_MODEL {
		d.Registry.Merge(d.Registry.Model(uid), state)
		return
	}
	if model, exists := d.Registry.Lookup(uid); exists {
		d.Registry.Merge(model, state)
	}
}

// handleTags merges a uid-string → tags[] mapping into existing models
// only; it never auto-creates.
func (d *Dispatcher) handleTags(pkt wire.Packet) {
	m, ok := payloadMap(pkt)
	if !ok {
		return
	}
	for uidStr, tagsRaw := range m {
		uid, err := parseUID(uidStr)
		if err != nil {
			continue
		}
		model, exists := d.Registry.Lookup(uid)
		if !exists {
			continue
		}
		d.Registry.MergeTags(model, toStringSlice(tagsRaw))
	}
}

// handleBookmarks merges bookmarks[] entries into existing models only.
func (d *Dispatcher) handleBookmarks(pkt wire.Packet) {
	m, ok := payloadMap(pkt)
	if !ok {
		return
	}
	bookmarksRaw, ok := m["bookmarks"].([]any)
	if !ok {
		return
	}
	for _, entryRaw := range bookmarksRaw {
		entry, ok := entryRaw.(map[string]any)
		if !ok {
			continue
		}
		uid, ok := int32Field(entry, "uid")
		if !ok {
			continue
		}
		model, exists := d.Registry.Lookup(uid)
		if !exists {
			continue
		}
		d.Registry.Merge(model, mapToSessionState(entry))
	}
}

// handleExtdata follows the server's HTTP indirection: fetch the
// referenced resource and re-dispatch it as a synthesized packet carrying
// the envelope fields named in the EXTDATA payload. Capped to one level of
// recursion: a synthesized packet that is itself EXTDATA is dropped rather
// than fetched again.
func (d *Dispatcher) handleExtdata(ctx context.Context, pkt wire.Packet, depth int) {
	if pkt.To != d.SessionID || pkt.Arg2 != wire.REDIS_JSON {
		return
	}
	if depth >= 1 {
		d.logf("extdata: recursion depth exceeded, dropping")
		return
	}
	m, ok := payloadMap(pkt)
	if !ok {
		return
	}
	msg, ok := m["msg"].(map[string]any)
	if !ok {
		return
	}

	url := fmt.Sprintf(
		"https://www.%s/php/FcwExtResp.php?respkey=%v&type=%v&opts=%v&serv=%v",
		d.Host, m["respkey"], m["type"], m["opts"], m["serv"],
	)
	if d.HttpGet == nil {
		return
	}
	body, err := d.HttpGet(ctx, url)
	if err != nil {
		d.logf("extdata: fetch failed: %v", err)
		return
	}

	fcType, _ := int32Field(msg, "type")
	from, _ := int32Field(msg, "from")
	to, _ := int32Field(msg, "to")
	arg1, _ := int32Field(msg, "arg1")
	arg2, _ := int32Field(msg, "arg2")

	synthesized := wire.Packet{
		Type: wire.FCType(fcType),
		From: from,
		To:   to,
		Arg1: arg1,
		Arg2: arg2,
		Raw:  body,
	}
	var v any
	if err := json.Unmarshal([]byte(body), &v); err == nil {
		synthesized.Value = v
		synthesized.HasValue = true
	}
	d.dispatchAt(ctx, synthesized, depth+1)
}

// handleManageList decodes a schema+records list body and applies the list
// kind named in nArg2, then emits CLIENT_MODELSLOADED once both a CAMS list
// and a tags-via-MANAGELIST pass have completed for this connection.
func (d *Dispatcher) handleManageList(pkt wire.Packet) {
	if pkt.Arg2 <= 0 {
		return
	}
	m, ok := payloadMap(pkt)
	if !ok {
		return
	}
	rdata, ok := m["rdata"]
	if !ok {
		return
	}
	records := listdecode.Decode(rdata)

	switch pkt.Arg2 {
	case wire.FCL_ROOMMATES, wire.FCL_FRIENDS, wire.FCL_IGNORES:
		d.mergeModelRecords(records)
	case wire.FCL_CAMS:
		d.mergeModelRecords(records)
		d.completedModels = true
	case wire.FCL_TAGS:
		d.mergeTagRecords(records)
		d.completedTags = true
	}

	if d.completedModels && d.completedTags && !d.modelsLoaded {
		d.modelsLoaded = true
		if d.Emit != nil {
			d.Emit("CLIENT_MODELSLOADED", pkt)
		}
	}
}

func (d *Dispatcher) mergeModelRecords(records []listdecode.Record) {
	for _, r := range records {
		uid, ok := int32Field(r, "uid")
		if !ok {
			continue
		}
		state := recordToSessionState(r)
		lv, hasLV := int32Field(r, "lv")
		if hasLV && lv == wire.LV_MODEL {
			d.Registry.Merge(d.Registry.Model(uid), state)
			continue
		}
		if model, exists := d.Registry.Lookup(uid); exists {
			d.Registry.Merge(model, state)
		}
	}
}

func (d *Dispatcher) mergeTagRecords(records []listdecode.Record) {
	for _, r := range records {
		uid, ok := int32Field(r, "uid")
		if !ok {
			continue
		}
		model, exists := d.Registry.Lookup(uid)
		if !exists {
			continue
		}
		tagsRaw, ok := r["tags"]
		if !ok {
			continue
		}
		d.Registry.MergeTags(model, toStringSlice(tagsRaw))
	}
}

// handleRoomData merges a viewer-count update into the best session of
// each known model; unknown models are skipped rather than auto-created.
func (d *Dispatcher) handleRoomData(pkt wire.Packet) {
	switch v := pkt.Value.(type) {
	case []any:
		for i := 0; i+1 < len(v); i += 2 {
			uid, ok := asInt32(v[i])
			if !ok {
				continue
			}
			count, _ := asInt32(v[i+1])
			d.mergeRoomCount(uid, count)
		}
	case map[string]any:
		for uidStr, countRaw := range v {
			uid, err := parseUID(uidStr)
			if err != nil {
				continue
			}
			count, _ := asInt32(countRaw)
			d.mergeRoomCount(uid, count)
		}
	}
}

func (d *Dispatcher) mergeRoomCount(uid, count int32) {
	model, exists := d.Registry.Lookup(uid)
	if !exists {
		return
	}
	bestSID := model.BestSessionID()
	state := registry.NewSessionState()
	state.Set("sid", bestSID)
	bag := state.Bag("m")
	bag.Set("rc", count)
	d.Registry.Merge(model, state)
}

func asInt32(v any) (int32, bool) {
	switch n := v.(type) {
	case float64:
		return int32(n), true
	case int32:
		return n, true
	case int:
		return int32(n), true
	}
	return 0, false
}

func toStringSlice(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func parseUID(s string) (int32, error) {
	var n int32
	_, err := fmt.Sscanf(s, "%d", &n)
	return n, err
}
